package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/web"
)

// Metrics records the request count and duration for every route. It sits
// outside Errors in the chain so the status code written for a failed
// request is known.
func Metrics(service string) web.Middleware {
	m := metrics.NewHTTP(service)

	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return web.NewShutdownError("web value missing from context")
			}

			err = handler(ctx, w, r)

			statusCode := v.StatusCode
			if err != nil && statusCode == 0 {
				statusCode = http.StatusInternalServerError
			}
			m.ObserveRequest(r.Method, web.Route(r), statusCode, v.Now)

			return err
		}

		return h
	}

	return mw
}
