// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powledger/app/services/relay/handlers/v1/relaygrp"
	"github.com/ardanlabs/powledger/foundation/relay"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	Relay *relay.Relay
	Ctx   context.Context
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	rgh := relaygrp.Handlers{
		Log:   cfg.Log,
		Relay: cfg.Relay,
		WS:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		Ctx:   cfg.Ctx,
	}

	app.Handle(http.MethodGet, version, "/ws", rgh.Connect)
	app.Handle(http.MethodPost, version, "/transaction", rgh.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/mempool", rgh.Mempool)
	app.Handle(http.MethodGet, version, "/nodes", rgh.Nodes)

	app.Handle(http.MethodGet, "", "/health", rgh.Health)
	app.Handle(http.MethodGet, "", "/", rgh.Health)
}
