// Package debug provides the mux serving the debug endpoints shared by the
// node and relay services.
package debug

import (
	"expvar"
	"net/http"
	"net/http/pprof"

	"github.com/ardanlabs/powledger/business/web/checkgrp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func StandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// Mux registers all the debug standard library routes, the prometheus
// metrics endpoint and then the check routes for the service.
func Mux(build string, log *zap.SugaredLogger, ready func() error) http.Handler {
	mux := StandardLibraryMux()

	mux.Handle("/metrics", promhttp.Handler())

	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		Ready: ready,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
