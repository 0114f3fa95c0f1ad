package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
)

// UpsertTransaction accepts a transaction for inclusion. The transaction
// must be valid against the unspent outputs of the current chain or it is
// dropped. A transaction already in the mempool is accepted again without
// any change.
func (s *State) UpsertTransaction(tx database.Tx, source string) error {
	err := s.upsertTransaction(tx)
	s.metrics.ObserveTransaction(source, err)

	if err != nil {
		s.evHandler("state: UpsertTransaction: tx[%s]: dropped: %s", tx.Hash, err)
		return err
	}

	s.evHandler("state: UpsertTransaction: tx[%s]: accepted", tx)

	return nil
}

// MergeMempool validates each of the transactions and adds the valid ones
// to the mempool. It returns the number of transactions accepted.
func (s *State) MergeMempool(trans []database.Tx, source string) int {
	s.evHandler("state: MergeMempool: started: trans[%d]", len(trans))

	var accepted int
	for _, tx := range trans {
		if err := s.UpsertTransaction(tx, source); err == nil {
			accepted++
		}
	}

	s.evHandler("state: MergeMempool: completed: accepted[%d]", accepted)

	return accepted
}

// =============================================================================

// upsertTransaction validates and inserts under the lock so a block can't be
// applied between the two.
func (s *State) upsertTransaction(tx database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mempool.Exists(tx.Hash) {
		return nil
	}

	if err := s.db.ValidateTransaction(tx); err != nil {
		return err
	}

	n := s.mempool.Upsert(tx)
	s.metrics.SetChain(s.db.Length(), n)

	return nil
}

// SubmitTransaction accepts a transaction from a local client and shares it
// with the rest of the network once it is in the mempool.
func (s *State) SubmitTransaction(tx database.Tx) error {
	if err := s.UpsertTransaction(tx, metrics.SourceAPI); err != nil {
		return err
	}

	if err := s.sender.Send(network.NewTransaction(tx)); err != nil {
		s.evHandler("state: SubmitTransaction: tx[%s]: WARNING: %s", tx.Hash, err)
	}

	return nil
}
