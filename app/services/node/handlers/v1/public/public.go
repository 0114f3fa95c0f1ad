// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/business/web/txmodel"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The filter
// query parameter limits the events to those starting with it, the viewer
// page asks for "viewer:".
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query().Get("filter"))
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := h.State.RetrieveStatus()
	return web.Respond(ctx, w, status, http.StatusOK)
}

// Blocks returns the full canonical chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()
	return web.Respond(ctx, w, chain, http.StatusOK)
}

// BlocksByIndex returns all the blocks within the specified range. Either
// side of the range can be "latest".
func (h Handlers) BlocksByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock().Index

	from, err := parseIndex(web.Param(r, "from"), latest)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("from: %w", err), http.StatusBadRequest)
	}

	to, err := parseIndex(web.Param(r, "to"), latest)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("to: %w", err), http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from is greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByIndex(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Balance returns the balance of the address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := balance{
		Address: address,
		Balance: h.State.QueryBalance(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UTXOs returns the unspent outputs owned by the address.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	utxos := h.State.QueryUTXOs(address)
	if utxos == nil {
		utxos = []database.UTXO{}
	}

	return web.Respond(ctx, w, utxos, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in priority order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	trans := make([]tx, len(mempool))
	for i, tran := range mempool {
		trans[i] = toTx(tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// SubmitTransaction adds a transaction to the mempool and shares it with
// the network.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx txmodel.NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	dbTx := ntx.ToDB()

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", dbTx.Hash, "inputs", len(dbTx.Inputs), "outputs", len(dbTx.Outputs))
	if err := h.State.SubmitTransaction(dbTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := submitted{
		Message:         "Transaction added to mempool",
		TransactionHash: dbTx.Hash,
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// =============================================================================

func parseIndex(s string, latest uint64) (uint64, error) {
	if s == "latest" || s == "" {
		return latest, nil
	}

	return strconv.ParseUint(s, 10, 64)
}
