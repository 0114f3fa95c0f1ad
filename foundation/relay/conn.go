package relay

import (
	"context"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/gorilla/websocket"
)

// conn is a connected node. Only the write pump writes to the websocket.
type conn struct {
	peer peer.Peer
	ws   *websocket.Conn
	send chan network.Message
}

func newConn(p peer.Peer, ws *websocket.Conn, queueSize int) *conn {
	return &conn{
		peer: p,
		ws:   ws,
		send: make(chan network.Message, queueSize),
	}
}

// enqueue queues the message for the write pump without blocking.
func (c *conn) enqueue(msg network.Message) error {
	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("%s: %w", msg.Type, network.ErrQueueFull)
	}
}

func (c *conn) writePump(ctx context.Context, m metrics.Relay) error {
	for {
		select {
		case msg := <-c.send:
			if err := c.ws.WriteJSON(msg); err != nil {
				return fmt.Errorf("write: %s: %w", msg.Type, err)
			}
			m.ObserveOutbound(msg.Type)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
