// Package worker implements the background mining workflow for the
// blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/looplab/fsm"
)

// DefaultMiningInterval represents the interval the worker checks the
// mempool for transactions to mine.
const DefaultMiningInterval = 10 * time.Second

// Set of states the miner can be in.
const (
	StateIdle   = "idle"
	StateMining = "mining"
)

// Set of events that move the miner between states.
const (
	eventMine   = "mine"
	eventFinish = "finish"
)

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	miner        *fsm.FSM
	metrics      metrics.Node
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, miningInterval time.Duration, evHandler state.EventHandler) *Worker {
	if miningInterval <= 0 {
		miningInterval = DefaultMiningInterval
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		state:        st,
		ticker:       time.NewTicker(miningInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		evHandler:    ev,
	}

	w.miner = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventMine, Src: []string{StateIdle}, Dst: StateMining},
			{Name: eventFinish, Src: []string{StateMining}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				ev("worker: miner: state[%s] -> state[%s]", e.Src, e.Dst)
			},
		},
	)

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.tickerOperations,
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// MinerState returns the current state of the miner.
func (w *Worker) MinerState() string {
	return w.miner.Current()
}

// =============================================================================

// tickerOperations signals a mining operation on every tick of the mining
// interval when there are transactions waiting.
func (w *Worker) tickerOperations() {
	w.evHandler("worker: tickerOperations: G started")
	defer w.evHandler("worker: tickerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() && w.miner.Is(StateIdle) && w.state.QueryMempoolLength() > 0 {
				w.SignalStartMining()
			}
		case <-w.shut:
			w.evHandler("worker: tickerOperations: received shut signal")
			return
		}
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
