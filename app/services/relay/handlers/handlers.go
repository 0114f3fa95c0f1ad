// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"net/http"
	"os"

	v1 "github.com/ardanlabs/powledger/app/services/relay/handlers/v1"
	"github.com/ardanlabs/powledger/business/web/debug"
	"github.com/ardanlabs/powledger/business/web/mid"
	"github.com/ardanlabs/powledger/foundation/relay"
	"github.com/ardanlabs/powledger/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Relay    *relay.Relay
	Ctx      context.Context
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Metrics("relay"),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		Relay: cfg.Relay,
		Ctx:   cfg.Ctx,
	})

	return app
}

// DebugMux registers all the debug routes for the relay.
func DebugMux(build string, log *zap.SugaredLogger) http.Handler {
	return debug.Mux(build, log, nil)
}
