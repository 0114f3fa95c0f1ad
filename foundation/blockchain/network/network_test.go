package network_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	tx := database.NewTx(
		[]database.TxInput{{ReferencedTxHash: "a", Amount: 5}},
		[]database.TxOutput{{Address: "bob", Amount: 5}},
	)

	tests := []struct {
		name    string
		msg     network.Message
		wantErr bool
	}{
		{name: "mempool update", msg: network.NewMempoolUpdate(nil)},
		{name: "empty sync", msg: network.NewBlockchainSync(nil)},
		{name: "transaction", msg: network.NewTransaction(tx)},
		{name: "block", msg: network.NewBlock(database.GenesisBlock(time.Now()))},
		{name: "request share", msg: network.NewRequestBlockchainShare("node-1")},
		{name: "resync request", msg: network.NewResyncRequest()},
		{name: "share", msg: network.NewBlockchainShare("node-1", nil)},
		{name: "missing transaction", msg: network.Message{Type: network.TypeNewTransaction}, wantErr: true},
		{name: "missing block", msg: network.Message{Type: network.TypeNewBlock}, wantErr: true},
		{name: "missing target", msg: network.Message{Type: network.TypeBlockchainShare}, wantErr: true},
		{name: "unknown", msg: network.Message{Type: "GOSSIP"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMessageWireFormat(t *testing.T) {
	data, err := json.Marshal(network.NewRequestBlockchainShare("node-1"))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"REQUEST_BLOCKCHAIN_SHARE","targetNodeId":"node-1"}`, string(data))

	tx := database.NewTx(
		[]database.TxInput{{ReferencedTxHash: "a", OutputIndex: 1, Amount: 5}},
		[]database.TxOutput{{Address: "bob", Amount: 4}},
	)

	data, err = json.Marshal(network.NewTransaction(tx))
	require.NoError(t, err)

	var msg network.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, network.TypeNewTransaction, msg.Type)
	require.NotNil(t, msg.Transaction)
	require.Equal(t, tx.Hash, msg.Transaction.CalculateHash())
}

// relay is a minimal websocket server that records what it receives and
// lets the test push messages to the connected client.
type relay struct {
	server   *httptest.Server
	received chan network.Message
	conns    chan *websocket.Conn
	accepts  atomic.Int32
}

func newRelay(t *testing.T) *relay {
	t.Helper()

	r := relay{
		received: make(chan network.Message, 10),
		conns:    make(chan *websocket.Conn, 10),
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.accepts.Add(1)
		r.conns <- conn

		for {
			var msg network.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			r.received <- msg
		}
	}))
	t.Cleanup(r.server.Close)

	return &r
}

func (r *relay) url() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func TestClientRoundTrip(t *testing.T) {
	r := newRelay(t)

	handled := make(chan network.Message, 10)
	client := network.NewClient(network.ClientConfig{
		URL:           r.url(),
		RetryInterval: 50 * time.Millisecond,
		Handler: func(ctx context.Context, msg network.Message) {
			handled <- msg
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	var conn *websocket.Conn
	select {
	case conn = <-r.conns:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}
	require.Eventually(t, client.Connected, 5*time.Second, 10*time.Millisecond)

	// Outbound.
	require.NoError(t, client.Send(network.NewRequestBlockchainShare("node-2")))
	select {
	case msg := <-r.received:
		require.Equal(t, network.TypeRequestBlockchainShare, msg.Type)
		require.Equal(t, "node-2", msg.TargetNodeID)
	case <-time.After(5 * time.Second):
		t.Fatal("relay never received the message")
	}

	// Inbound, the invalid message is dropped before the handler.
	require.NoError(t, conn.WriteJSON(network.Message{Type: network.TypeNewBlock}))
	require.NoError(t, conn.WriteJSON(network.NewBlockchainSync(nil)))
	select {
	case msg := <-handled:
		require.Equal(t, network.TypeBlockchainSync, msg.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never received the message")
	}

	// Drop the connection and expect the client to come back.
	require.NoError(t, conn.Close())
	select {
	case <-r.conns:
	case <-time.After(5 * time.Second):
		t.Fatal("client never reconnected")
	}
	require.EqualValues(t, 2, r.accepts.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client never shut down")
	}
	require.False(t, client.Connected())
}

func TestClientQueueFull(t *testing.T) {
	client := network.NewClient(network.ClientConfig{URL: "ws://127.0.0.1:0", QueueSize: 1})

	require.NoError(t, client.Send(network.NewBlockchainSync(nil)))
	require.ErrorIs(t, client.Send(network.NewBlockchainSync(nil)), network.ErrQueueFull)
}
