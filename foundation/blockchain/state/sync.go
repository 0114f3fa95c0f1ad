package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// ErrChainNotLonger is returned when a chain offered by a peer is not longer
// than the local chain. Chains of equal length are never reconciled.
var ErrChainNotLonger = errors.New("chain is not longer than the local chain")

// SyncChain replaces the local chain with the specified chain if it is
// strictly longer and valid from genesis to tip. When the chain is replaced
// the mempool is cleared and the unspent outputs are rebuilt.
func (s *State) SyncChain(chain []database.Block) error {
	s.evHandler("state: SyncChain: started: blocks[%d]", len(chain))
	defer s.evHandler("state: SyncChain: completed")

	if err := s.replaceChain(chain); err != nil {
		s.metrics.ObserveChainSync(err)
		return err
	}
	s.metrics.ObserveChainSync(nil)

	// Any mining operation in flight is building on the old chain.
	s.evHandler("state: SyncChain: signal mining operation to restart")
	s.Worker.SignalCancelMining()

	return nil
}

// replaceChain performs the validation and replacement under the lock.
func (s *State) replaceChain(chain []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.db.Length()
	if len(chain) <= local {
		return fmt.Errorf("got %d, have %d: %w", len(chain), local, ErrChainNotLonger)
	}

	s.evHandler("state: SyncChain: validate chain: blocks[%d]", len(chain))

	if err := s.db.ValidateChain(chain); err != nil {
		return fmt.Errorf("invalid chain: %w", err)
	}

	s.evHandler("state: SyncChain: replace chain and rebuild unspent outputs")

	s.db.Replace(chain)
	s.mempool.Truncate()

	s.metrics.SetChain(s.db.Length(), 0)

	latest := chain[len(chain)-1]
	s.evHandler(`viewer: sync: {"length":%d,"hash":%q}`, len(chain), latest.Hash)

	return nil
}
