package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: select transactions")

	// Pick the best transactions that can be mined together on top of the
	// current tip.
	prevBlock, trans := s.selectTransactions()
	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: prevBlk[%d]: numTrans[%d]", prevBlock.Index, len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		Difficulty: s.genesis.Difficulty,
		PrevBlock:  prevBlock,
		Trans:      trans,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// The tip may have moved while mining. The block is validated against
	// the current tip and discarded if it no longer fits.
	if err := s.validateUpdateDatabase(block, metrics.SourceMined); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PreviousHash, block.Hash, len(block.Transactions))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash)

	// Validate the block and then update the blockchain database.
	if err := s.validateUpdateDatabase(block, metrics.SourceNetwork); err != nil {

		// The peer is ahead of us. Ask the network for its chain.
		if errors.Is(err, database.ErrChainForked) {
			s.NetRequestChainShare()
		}

		return err
	}

	// If a mining operation is running it is working on a stale tip. It
	// needs to stop and start over on top of this block.
	s.evHandler("state: ProcessProposedBlock: signal mining operation to restart")
	s.Worker.SignalCancelMining()

	return nil
}

// =============================================================================

// selectTransactions walks the mempool in priority order and returns up to
// TransPerBlock transactions that are valid when applied one after the
// other on top of the current tip. Transactions conflicting with one already
// selected are skipped.
func (s *State) selectTransactions() (database.Block, []database.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevBlock := s.db.LatestBlock()
	utxos := s.db.CopyUTXOs()

	limit := int(s.genesis.TransPerBlock)

	var trans []database.Tx
	for _, tx := range s.mempool.PickBest(-1) {
		if len(trans) == limit {
			break
		}

		if err := database.ValidateTransaction(tx, utxos); err != nil {
			s.evHandler("state: selectTransactions: skipping tx[%s]: %s", tx.Hash, err)
			continue
		}

		utxos.ApplyTx(tx)
		trans = append(trans, tx)
	}

	return prevBlock, trans
}

// validateUpdateDatabase takes the block and validates the block against the
// current tip. If the block passes, the block is added to the chain, the
// unspent outputs are updated and the mempool is filtered.
func (s *State) validateUpdateDatabase(block database.Block, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateDatabase: validate block")

	if err := s.db.ValidateNextBlock(block); err != nil {
		s.metrics.ObserveBlock(source, err)
		return err
	}

	s.evHandler("state: validateUpdateDatabase: append block and update unspent outputs")

	s.db.Append(block)

	s.evHandler("state: validateUpdateDatabase: remove from mempool and refilter")

	for _, tx := range block.Transactions {
		s.mempool.Delete(tx)
	}

	for _, tx := range s.mempool.Refilter(s.db.CopyUTXOs()) {
		s.evHandler("state: validateUpdateDatabase: tx[%s] removed", tx.Hash)
	}

	s.metrics.ObserveBlock(source, nil)
	s.metrics.SetChain(s.db.Length(), s.mempool.Count())

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockTransJSON, err := json.Marshal(block.Transactions)
	if err != nil {
		blockTransJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: {"index":%d,"hash":%q,"previousHash":%q,"nonce":%d,"trans":%s}`, block.Index, block.Hash, block.PreviousHash, block.Nonce, string(blockTransJSON))
}
