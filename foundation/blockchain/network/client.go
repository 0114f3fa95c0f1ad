package network

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Send when the outbound queue can't take
// another message.
var ErrQueueFull = errors.New("outbound queue is full")

// Handler is called for every message received from the relay. Messages are
// handed over one at a time in the order they arrived.
type Handler func(ctx context.Context, msg Message)

// ClientConfig represents the configuration required to start the client.
type ClientConfig struct {
	URL           string
	RetryInterval time.Duration
	PingInterval  time.Duration
	QueueSize     int
	Handler       Handler
	EvHandler     func(v string, args ...any)
}

// Client maintains a websocket connection to the relay. The connection is
// re-established whenever it drops until the client is shut down.
type Client struct {
	url           string
	retryInterval time.Duration
	pingInterval  time.Duration
	handler       Handler
	evHandler     func(v string, args ...any)

	dialer    websocket.Dialer
	send      chan Message
	connected atomic.Bool
}

// NewClient constructs a client for the relay at the configured url.
func NewClient(cfg ClientConfig) *Client {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Handler == nil {
		cfg.Handler = func(ctx context.Context, msg Message) {}
	}

	return &Client{
		url:           cfg.URL,
		retryInterval: cfg.RetryInterval,
		pingInterval:  cfg.PingInterval,
		handler:       cfg.Handler,
		evHandler:     ev,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		send: make(chan Message, cfg.QueueSize),
	}
}

// Connected reports whether the client currently holds a connection.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Send queues the message to be written to the relay. Send never blocks.
// Messages queued while the connection is down are written once it is back.
func (c *Client) Send(msg Message) error {
	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("%s: %w", msg.Type, ErrQueueFull)
	}
}

// Run connects to the relay and serves the connection, reconnecting after
// the retry interval whenever the connection is lost. Run returns when the
// context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	c.evHandler("network: Run: started: url[%s]", c.url)
	defer c.evHandler("network: Run: completed")

	for {
		if err := c.serve(ctx); err != nil && ctx.Err() == nil {
			c.evHandler("network: Run: ERROR: %s", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.retryInterval):
			c.evHandler("network: Run: reconnecting: url[%s]", c.url)
		}
	}
}

// serve dials the relay and runs the read and write pumps until either
// of them fails or the context is cancelled.
func (c *Client) serve(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.connected.Store(true)
	defer c.connected.Store(false)

	c.evHandler("network: serve: connected: url[%s]", c.url)

	g, gctx := errgroup.WithContext(ctx)

	// Closing the connection is the only way to unblock the read pump.
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})

	g.Go(func() error {
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return fmt.Errorf("read: %w", err)
			}

			if err := msg.Validate(); err != nil {
				c.evHandler("network: serve: read: dropping message: %s", err)
				continue
			}

			c.handler(gctx, msg)
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()

		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					return fmt.Errorf("write: %s: %w", msg.Type, err)
				}
				c.evHandler("network: serve: write: sent: %s", msg)

			case <-ticker.C:
				deadline := time.Now().Add(c.pingInterval / 2)
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
					return fmt.Errorf("ping: %w", err)
				}

			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	return g.Wait()
}
