// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	MinerState() string
}

// Sender interface represents the behavior required to send messages to the
// rest of the network through the relay.
type Sender interface {
	Send(msg network.Message) error
	Connected() bool
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis        genesis.Genesis
	SelectStrategy string
	Sender         Sender
	EvHandler      EventHandler
}

// State manages the blockchain database. The chain, the unspent outputs and
// the mempool are only changed while holding mu so every change produced by
// a single event is seen as a whole.
type State struct {
	mu        sync.Mutex
	evHandler EventHandler
	metrics   metrics.Node

	genesis genesis.Genesis
	mempool *mempool.Mempool
	db      *database.Database
	sender  Sender

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Construct a mempool with the specified sort strategy.
	mempool, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	sender := cfg.Sender
	if sender == nil {
		sender = nopSender{}
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		mempool:   mempool,
		db:        database.New(cfg.Genesis, ev),
		sender:    sender,
		Worker:    nopWorker{},
	}

	state.metrics.SetChain(state.db.Length(), 0)

	// The Worker is replaced here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// Truncate resets the chain and the mempool back to the genesis state.
func (s *State) Truncate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()
	s.db.Reset()
	s.metrics.SetChain(s.db.Length(), 0)
}

// =============================================================================

// nopWorker is used until a worker registers itself with the state.
type nopWorker struct{}

func (nopWorker) Shutdown()           {}
func (nopWorker) SignalStartMining()  {}
func (nopWorker) SignalCancelMining() {}
func (nopWorker) MinerState() string  { return "" }

// nopSender is used when the node runs without a relay.
type nopSender struct{}

func (nopSender) Send(msg network.Message) error { return nil }
func (nopSender) Connected() bool                { return false }
