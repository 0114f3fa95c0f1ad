package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/app/services/relay/handlers"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
	"github.com/ardanlabs/powledger/foundation/logger"
	"github.com/ardanlabs/powledger/foundation/relay"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *relay.Relay) {
	t.Helper()

	log, err := logger.New("TEST", filepath.Join(t.TempDir(), "test.log"))
	require.NoError(t, err)

	r, err := relay.New(relay.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	server := httptest.NewServer(handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      log,
		Relay:    r,
		Ctx:      ctx,
	}))

	t.Cleanup(func() {
		cancel()
		r.Shutdown()
		server.Close()
	})

	return server, r
}

func TestSubmitTransaction(t *testing.T) {
	server, r := newServer(t)

	// A connected node sees the transaction.
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/v1/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	var msg network.Message
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, network.TypeMempoolUpdate, msg.Type)
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, network.TypeBlockchainSync, msg.Type)

	body := `{"inputs":[{"referencedTxHash":"0xabc","outputIndex":0,"amount":10}],"outputs":[{"address":"bob","amount":9}]}`
	resp, err := http.Post(server.URL+"/v1/transaction", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var got struct {
		Message         string `json:"message"`
		TransactionHash string `json:"transactionHash"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "Transaction added to mempool", got.Message)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, network.TypeNewTransaction, msg.Type)
	require.Equal(t, got.TransactionHash, msg.Transaction.Hash)

	require.Len(t, r.Mempool(), 1)
	require.Len(t, r.Nodes(), 1)
}

func TestRejectedPayloads(t *testing.T) {
	server, r := newServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "no outputs", body: `{"inputs":[],"outputs":[]}`},
		{name: "missing address", body: `{"outputs":[{"amount":9}]}`},
		{name: "forged hash", body: `{"hash":"0xforged","outputs":[{"address":"bob","amount":9}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/v1/transaction", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	require.Empty(t, r.Mempool())
}

func TestQueries(t *testing.T) {
	server, _ := newServer(t)

	tests := []struct {
		path string
		body string
	}{
		{path: "/health", body: `{"status":"ok","nodes":0}`},
		{path: "/", body: `{"status":"ok","nodes":0}`},
		{path: "/v1/mempool", body: `[]`},
		{path: "/v1/nodes", body: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body json.RawMessage
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.JSONEq(t, tt.body, string(body))
		})
	}
}
