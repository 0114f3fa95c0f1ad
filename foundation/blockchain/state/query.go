package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// QueryLastest represents to query the latest block in the chain.
const QueryLastest = ^uint64(0) >> 1

// =============================================================================

// QueryBalance returns the sum of the unspent outputs owned by the address.
func (s *State) QueryBalance(address string) uint64 {
	return s.db.Balance(address)
}

// QueryUTXOs returns the unspent outputs owned by the address.
func (s *State) QueryUTXOs(address string) []database.UTXO {
	return s.db.QueryUTXOs(address)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryChainLength returns the number of blocks in the chain including genesis.
func (s *State) QueryChainLength() int {
	return s.db.Length()
}

// QueryBlocksByIndex returns the set of blocks between the specified indexes
// inclusive.
func (s *State) QueryBlocksByIndex(from uint64, to uint64) []database.Block {
	if from == QueryLastest {
		from = s.db.LatestBlock().Index
		to = from
	}
	if to == QueryLastest {
		to = s.db.LatestBlock().Index
	}

	return s.db.Blocks(from, to)
}
