// Package relay implements the hub every miner node connects to. The relay
// keeps a view of the pending transactions, forwards blocks and transactions
// between nodes and brokers chain shares so a node joining or falling
// behind can catch up.
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// EventHandler defines a function that is called when events
// occur in the processing of the relay.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the relay.
type Config struct {
	SelectStrategy string
	QueueSize      int
	EvHandler      EventHandler
}

// Relay manages the set of connected nodes and the pending transactions
// the network knows about.
type Relay struct {
	evHandler EventHandler
	metrics   metrics.Relay
	queueSize int

	mempool *mempool.Mempool
	peers   *peer.PeerSet

	mu    sync.RWMutex
	conns map[string]*conn
}

// New constructs a relay ready to accept node connections.
func New(cfg Config) (*Relay, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.SelectStrategy == "" {
		cfg.SelectStrategy = selector.StrategyFeeRate
	}

	mempool, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	r := Relay{
		evHandler: ev,
		queueSize: cfg.QueueSize,
		mempool:   mempool,
		peers:     peer.NewPeerSet(),
		conns:     make(map[string]*conn),
	}

	return &r, nil
}

// Shutdown closes every node connection.
func (r *Relay) Shutdown() {
	r.evHandler("relay: Shutdown: started")
	defer r.evHandler("relay: Shutdown: completed")

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns {
		c.ws.Close()
	}
}

// =============================================================================

// Serve takes ownership of an upgraded websocket connection and serves the
// node on the other side until the connection drops or the context is
// cancelled.
func (r *Relay) Serve(ctx context.Context, ws *websocket.Conn, host string) error {
	c := newConn(peer.New(host), ws, r.queueSize)

	r.register(c)
	defer r.unregister(c)

	r.evHandler("relay: Serve: node connected: id[%s] host[%s]", c.peer.ID, host)
	defer r.evHandler("relay: Serve: node disconnected: id[%s]", c.peer.ID)

	r.welcome(c)

	g, gctx := errgroup.WithContext(ctx)

	// Closing the connection is the only way to unblock the read pump.
	g.Go(func() error {
		<-gctx.Done()
		return ws.Close()
	})

	g.Go(func() error {
		for {
			var msg network.Message
			if err := ws.ReadJSON(&msg); err != nil {
				return fmt.Errorf("read: %w", err)
			}

			if err := msg.Validate(); err != nil {
				r.evHandler("relay: Serve: id[%s]: dropping message: %s", c.peer.ID, err)
				continue
			}

			r.metrics.ObserveInbound(msg.Type)
			r.process(c, msg)
		}
	})

	g.Go(func() error {
		return c.writePump(gctx, r.metrics)
	})

	return g.Wait()
}

// SubmitTransaction adds a transaction received outside the node network
// to the relay view and broadcasts it to every node.
func (r *Relay) SubmitTransaction(tx database.Tx) (database.Tx, error) {
	if tx.Hash == "" {
		tx.Hash = tx.CalculateHash()
	}

	if tx.Hash != tx.CalculateHash() {
		return database.Tx{}, fmt.Errorf("tx[%s]: %w", tx.Hash, database.ErrHashMismatch)
	}

	r.mempool.Upsert(tx)
	r.broadcast("", network.NewTransaction(tx))

	r.evHandler("relay: SubmitTransaction: tx[%s] broadcast", tx.Hash)

	return tx, nil
}

// Mempool returns a copy of the transactions the relay knows are pending.
func (r *Relay) Mempool() []database.Tx {
	trans := r.mempool.Copy()
	if trans == nil {
		return []database.Tx{}
	}
	return trans
}

// Nodes returns the set of connected nodes.
func (r *Relay) Nodes() []peer.Peer {
	peers := r.peers.Copy("")
	if peers == nil {
		return []peer.Peer{}
	}
	return peers
}

// =============================================================================

// welcome sends a newly connected node the pending transactions and asks
// another node to share its chain with it. A node that is alone gets an
// empty sync so it knows it may start from its own genesis.
func (r *Relay) welcome(c *conn) {
	r.deliver(c, network.NewMempoolUpdate(r.mempool.PickBest(network.ShareLimit)))

	other, exists := r.peers.Random(c.peer.ID)
	if !exists {
		r.evHandler("relay: welcome: id[%s]: alone on the network", c.peer.ID)
		r.deliver(c, network.NewBlockchainSync(nil))
		return
	}

	r.evHandler("relay: welcome: id[%s]: asking id[%s] to share", c.peer.ID, other.ID)
	r.send(other.ID, network.NewRequestBlockchainShare(c.peer.ID))
}

// process applies a message received from the specified node.
func (r *Relay) process(from *conn, msg network.Message) {
	r.evHandler("relay: process: id[%s]: %s", from.peer.ID, msg)

	switch msg.Type {
	case network.TypeNewTransaction:
		r.mempool.Upsert(*msg.Transaction)
		r.broadcast(from.peer.ID, msg)

	case network.TypeNewBlock:
		for _, tx := range msg.Block.Transactions {
			r.mempool.Delete(tx)
		}
		r.broadcast(from.peer.ID, msg)

	case network.TypeBlockchainShare:
		r.send(msg.TargetNodeID, network.NewBlockchainSync(msg.Blockchain))

	case network.TypeRequestBlockchainShare:
		target := msg.TargetNodeID
		if target == "" {
			target = from.peer.ID
		}

		other, exists := r.peers.Random(target)
		if !exists {
			r.evHandler("relay: process: id[%s]: no node to share with", target)
			return
		}
		r.send(other.ID, network.NewRequestBlockchainShare(target))

	default:
		r.evHandler("relay: process: id[%s]: ignoring %s", from.peer.ID, msg.Type)
	}
}

// send delivers the message to the specified node if it is connected.
func (r *Relay) send(id string, msg network.Message) {
	r.mu.RLock()
	c, exists := r.conns[id]
	r.mu.RUnlock()

	if !exists {
		r.evHandler("relay: send: id[%s]: not connected: dropping %s", id, msg.Type)
		return
	}

	r.deliver(c, msg)
}

// broadcast delivers the message to every node except the specified one.
func (r *Relay) broadcast(exceptID string, msg network.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.conns {
		if id == exceptID {
			continue
		}
		r.deliver(c, msg)
	}
}

func (r *Relay) deliver(c *conn, msg network.Message) {
	if err := c.enqueue(msg); err != nil {
		r.evHandler("relay: deliver: id[%s]: WARNING: %s", c.peer.ID, err)
	}
}

func (r *Relay) register(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.peer.ID] = c
	r.peers.Add(c.peer)
	r.metrics.SetNodes(len(r.conns))
}

func (r *Relay) unregister(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, c.peer.ID)
	r.peers.Remove(c.peer)
	r.metrics.SetNodes(len(r.conns))
}
