// Package database handles all the lower level support for maintaining the
// blockchain in memory along with the set of unspent transaction outputs the
// chain produces.
package database

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// ErrGenesisMismatch is returned when a chain doesn't start with our genesis block.
var ErrGenesisMismatch = errors.New("chain does not start with the genesis block")

// =============================================================================

// Database manages the canonical chain and the unspent outputs it produced.
// The set of unspent outputs is always the result of replaying the chain
// over the genesis allocations.
type Database struct {
	mu sync.RWMutex

	genesis      genesis.Genesis
	genesisBlock Block
	evHandler    func(v string, args ...any)

	chain []Block
	utxos *UTXOSet
}

// New constructs a new database holding only the genesis block and the
// unspent outputs allocated by the genesis information.
func New(genesis genesis.Genesis, evHandler func(v string, args ...any)) *Database {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	genesisBlock := GenesisBlock(genesis.Date)

	db := Database{
		genesis:      genesis,
		genesisBlock: genesisBlock,
		evHandler:    evHandler,
		chain:        []Block{genesisBlock},
		utxos:        NewUTXOSet(genesisUTXOs(genesis, genesisBlock)...),
	}

	db.utxos.Rebuild(db.chain)

	return &db
}

// Reset re-initalizes the database back to the genesis state.
func (db *Database) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.chain = []Block{db.genesisBlock}
	db.utxos.Rebuild(db.chain)
}

// =============================================================================

// Genesis returns the genesis information the database was created with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// GenesisBlock returns the first block of the chain.
func (db *Database) GenesisBlock() Block {
	return db.genesisBlock
}

// LatestBlock returns the tip of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.chain[len(db.chain)-1]
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.chain)
}

// Chain returns a copy of the full chain.
func (db *Database) Chain() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return slices.Clone(db.chain)
}

// Blocks returns the blocks between the specified indexes inclusive.
func (db *Database) Blocks(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	last := uint64(len(db.chain) - 1)
	if to > last {
		to = last
	}
	if from > to {
		return nil
	}

	return slices.Clone(db.chain[from : to+1])
}

// CopyUTXOs returns a copy of the unspent outputs that can be mutated
// without affecting the database.
func (db *Database) CopyUTXOs() *UTXOSet {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Copy()
}

// Balance returns the sum of the unspent outputs owned by the address.
func (db *Database) Balance(address string) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Balance(address)
}

// QueryUTXOs returns the unspent outputs owned by the address.
func (db *Database) QueryUTXOs(address string) []UTXO {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.QueryAddress(address)
}

// ValidateTransaction validates the transaction against the current set of
// unspent outputs.
func (db *Database) ValidateTransaction(tx Tx) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return ValidateTransaction(tx, db.utxos)
}

// =============================================================================

// ValidateNextBlock validates the block can be appended to the current tip
// of the chain and every transaction it holds is valid against the current
// set of unspent outputs.
func (db *Database) ValidateNextBlock(block Block) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := block.ValidateBlock(db.chain[len(db.chain)-1], db.genesis.Difficulty, db.evHandler); err != nil {
		return err
	}

	db.evHandler("database: ValidateNextBlock: validate: blk[%d]: check: transactions are valid", block.Index)

	if err := ValidateTransactions(block.Transactions, db.utxos.Copy()); err != nil {
		return fmt.Errorf("blk[%d]: %w", block.Index, err)
	}

	return nil
}

// ValidateChain validates a full chain by replaying it from genesis. Every
// block is checked against its predecessor and every transaction is checked
// against a scratch set of unspent outputs that has all the earlier blocks
// applied. A transaction spending an output consumed earlier in the chain
// fails the check.
func (db *Database) ValidateChain(chain []Block) error {
	if len(chain) == 0 {
		return errors.New("chain is empty")
	}

	db.evHandler("database: ValidateChain: validate: check: genesis block matches")

	if !db.isGenesisBlock(chain[0]) {
		return ErrGenesisMismatch
	}

	utxos := NewUTXOSet(db.utxos.seed...)

	for i := 1; i < len(chain); i++ {
		block := chain[i]

		if err := block.ValidateBlock(chain[i-1], db.genesis.Difficulty, db.evHandler); err != nil {
			return fmt.Errorf("blk[%d]: %w", i, err)
		}

		if err := ValidateTransactions(block.Transactions, utxos); err != nil {
			return fmt.Errorf("blk[%d]: %w", i, err)
		}
	}

	return nil
}

// =============================================================================

// Append adds a validated block to the end of the chain and applies its
// transactions to the set of unspent outputs.
func (db *Database) Append(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.chain = append(db.chain, block)
	db.utxos.Apply(block)
}

// Replace swaps the chain for the specified validated chain and rebuilds
// the set of unspent outputs from it.
func (db *Database) Replace(chain []Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.chain = slices.Clone(chain)
	db.utxos.Rebuild(db.chain)
}

// =============================================================================

// isGenesisBlock reports whether the block is our genesis block.
func (db *Database) isGenesisBlock(block Block) bool {
	return block.Index == db.genesisBlock.Index &&
		block.Timestamp == db.genesisBlock.Timestamp &&
		block.PreviousHash == db.genesisBlock.PreviousHash &&
		block.Hash == db.genesisBlock.Hash &&
		block.Nonce == db.genesisBlock.Nonce &&
		len(block.Transactions) == 0
}

// genesisUTXOs converts the genesis allocations into unspent outputs. They
// are keyed by the genesis block hash and the position of the allocation.
func genesisUTXOs(genesis genesis.Genesis, genesisBlock Block) []UTXO {
	utxos := make([]UTXO, len(genesis.Allocations))
	for i, alloc := range genesis.Allocations {
		utxos[i] = UTXO{
			SourceTxHash: genesisBlock.Hash,
			OutputIndex:  uint32(i),
			Amount:       alloc.Amount,
			Address:      alloc.Address,
		}
	}

	return utxos
}
