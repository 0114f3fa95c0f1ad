// Package relaygrp maintains the group of handlers for relay access.
package relaygrp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/business/web/txmodel"
	"github.com/ardanlabs/powledger/foundation/relay"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of relay endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Relay *relay.Relay
	WS    websocket.Upgrader

	// Ctx bounds the lifetime of node connections. It is cancelled when
	// the service shuts down.
	Ctx context.Context
}

// Connect upgrades the request to a websocket and serves the node on the
// other side until it disconnects.
func (h Handlers) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	ws, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	err = h.Relay.Serve(h.Ctx, ws, r.RemoteAddr)
	h.Log.Infow("node disconnected", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr, "reason", err)

	return nil
}

// SubmitTransaction adds a new transaction to the relay mempool and
// broadcasts it to every node.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx txmodel.NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	tx, err := h.Relay.SubmitTransaction(ntx.ToDB())
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx.Hash, "inputs", len(tx.Inputs), "outputs", len(tx.Outputs))

	resp := submitted{
		Message:         "Transaction added to mempool",
		TransactionHash: tx.Hash,
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Mempool returns the transactions the relay knows are pending.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Relay.Mempool(), http.StatusOK)
}

// Nodes returns the set of connected nodes.
func (h Handlers) Nodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Relay.Nodes(), http.StatusOK)
}

// Health reports the relay is up along with the number of connected nodes.
func (h Handlers) Health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := health{
		Status: "ok",
		Nodes:  len(h.Relay.Nodes()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
