package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func (p payload) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestHandleRoutesAndMiddleware(t *testing.T) {
	var order []string
	trace := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(make(chan os.Signal, 1), trace("app"))

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, v.TraceID)

		return web.Respond(ctx, w, map[string]string{"address": web.Param(r, "address")}, http.StatusOK)
	}
	app.Handle(http.MethodGet, "v1", "/balances/:address", h, trace("route"))

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/balances/alice", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"address":"alice"}`, w.Body.String())
	require.Equal(t, []string{"app", "route"}, order)
}

func TestDecode(t *testing.T) {
	var p payload

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, web.Decode(r, &p))
	require.Equal(t, "alice", p.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	require.EqualError(t, web.Decode(r, &p), "name is required")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"age":1}`))
	require.Error(t, web.Decode(r, &p))
}

func TestShutdownError(t *testing.T) {
	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	}
	app.Handle(http.MethodGet, "", "/broken", h)

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

	select {
	case <-shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown was not signaled")
	}

	require.True(t, web.IsShutdown(web.NewShutdownError("x")))
	require.False(t, web.IsShutdown(errors.New("x")))
}

func TestRespondNoContent(t *testing.T) {
	app := web.NewApp(make(chan os.Signal, 1))

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
	app.Handle(http.MethodGet, "", "/health", h)

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())
}
