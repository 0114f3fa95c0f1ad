package database

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// OutPoint is the key of an unspent output: the hash of the transaction that
// created it and the position of the output in that transaction.
type OutPoint struct {
	TxHash string
	Index  uint32
}

// String implements the fmt.Stringer interface.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxHash, op.Index)
}

// UTXO represents an output that has not been consumed by any transaction
// in the canonical chain.
type UTXO struct {
	SourceTxHash string `json:"sourceTxHash"`
	OutputIndex  uint32 `json:"outputIndex"`
	Amount       uint64 `json:"amount"`
	Address      string `json:"address"`
}

// OutPoint returns the key for this entry.
func (u UTXO) OutPoint() OutPoint {
	return OutPoint{TxHash: u.SourceTxHash, Index: u.OutputIndex}
}

// =============================================================================

// UTXOSet maps output references to unspent outputs. The seed entries are
// the outputs that exist before any block is applied and are restored on
// every rebuild. A UTXOSet is not safe for concurrent use; the Database
// owning it serializes access.
type UTXOSet struct {
	seed []UTXO
	set  map[OutPoint]UTXO
}

// NewUTXOSet constructs a set holding the specified seed entries.
func NewUTXOSet(seed ...UTXO) *UTXOSet {
	us := UTXOSet{
		seed: slices.Clone(seed),
		set:  make(map[OutPoint]UTXO, len(seed)),
	}

	us.reset()

	return &us
}

// Apply updates the set with every transaction in the block. Transactions
// are applied one at a time in list order, so a transaction may spend an
// output created earlier in the same block.
func (us *UTXOSet) Apply(block Block) {
	for _, tx := range block.Transactions {
		us.ApplyTx(tx)
	}
}

// ApplyTx removes the outputs spent by the transaction and adds the outputs
// it creates.
func (us *UTXOSet) ApplyTx(tx Tx) {
	for _, in := range tx.Inputs {
		delete(us.set, in.OutPoint())
	}

	for i, out := range tx.Outputs {
		u := UTXO{
			SourceTxHash: tx.Hash,
			OutputIndex:  uint32(i),
			Amount:       out.Amount,
			Address:      out.Address,
		}
		us.set[u.OutPoint()] = u
	}
}

// Rebuild clears the set back to the seed entries and applies every block
// in chain order, including genesis.
func (us *UTXOSet) Rebuild(chain []Block) {
	us.reset()

	for _, block := range chain {
		us.Apply(block)
	}
}

// Balance returns the sum of all the unspent outputs owned by the address.
func (us *UTXOSet) Balance(address string) uint64 {
	var balance uint64
	for _, u := range us.set {
		if u.Address == address {
			balance += u.Amount
		}
	}

	return balance
}

// Get returns the unspent output for the specified key.
func (us *UTXOSet) Get(op OutPoint) (UTXO, bool) {
	u, exists := us.set[op]
	return u, exists
}

// Len returns the number of unspent outputs in the set.
func (us *UTXOSet) Len() int {
	return len(us.set)
}

// Copy returns a deep copy of the set that can be mutated independently.
func (us *UTXOSet) Copy() *UTXOSet {
	return &UTXOSet{
		seed: slices.Clone(us.seed),
		set:  maps.Clone(us.set),
	}
}

// Values returns the unspent outputs ordered by source hash and index.
func (us *UTXOSet) Values() []UTXO {
	values := slices.Collect(maps.Values(us.set))
	slices.SortFunc(values, compareUTXO)

	return values
}

// QueryAddress returns the unspent outputs owned by the address ordered by
// source hash and index.
func (us *UTXOSet) QueryAddress(address string) []UTXO {
	var values []UTXO
	for _, u := range us.set {
		if u.Address == address {
			values = append(values, u)
		}
	}
	slices.SortFunc(values, compareUTXO)

	return values
}

// Equal reports whether both sets hold exactly the same unspent outputs.
func (us *UTXOSet) Equal(other *UTXOSet) bool {
	return maps.Equal(us.set, other.set)
}

// =============================================================================

// reset clears the set back to the seed entries.
func (us *UTXOSet) reset() {
	clear(us.set)
	for _, u := range us.seed {
		us.set[u.OutPoint()] = u
	}
}

// compareUTXO orders unspent outputs by source hash and then index.
func compareUTXO(a, b UTXO) int {
	if c := strings.Compare(a.SourceTxHash, b.SourceTxHash); c != 0 {
		return c
	}

	switch {
	case a.OutputIndex < b.OutputIndex:
		return -1
	case a.OutputIndex > b.OutputIndex:
		return 1
	}

	return 0
}
