// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"maps"
	"slices"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of transactions waiting to be mined, keyed by
// the transaction hash.
type Mempool struct {
	pool     map[string]database.Tx
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFeeRate)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Exists reports whether a transaction with the hash is in the pool.
func (mp *Mempool) Exists(hash string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[hash]
	return exists
}

// Upsert adds or replaces a transaction from the mempool.
func (mp *Mempool) Upsert(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[tx.Hash] = tx

	return len(mp.pool)
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.Hash)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
}

// Refilter removes every transaction that is no longer valid against the
// specified unspent outputs and returns the ones that were removed. Each
// transaction is checked on its own against the set.
func (mp *Mempool) Refilter(utxos *database.UTXOSet) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var dropped []database.Tx
	for hash, tx := range mp.pool {
		if err := database.ValidateTransaction(tx, utxos); err != nil {
			dropped = append(dropped, tx)
			delete(mp.pool, hash)
		}
	}

	return dropped
}

// Copy returns all the transactions in the pool in the order of the
// configured sort strategy.
func (mp *Mempool) Copy() []database.Tx {
	return mp.PickBest(-1)
}

// PickBest uses the configured sort strategy to return the next set
// of transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	trans := slices.Collect(maps.Values(mp.pool))
	mp.mu.RUnlock()

	return mp.selectFn(trans, howMany)
}
