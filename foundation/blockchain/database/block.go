package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/digest"
)

// ErrChainForked is returned from ValidateBlock if another node's chain
// is ahead of ours.
var ErrChainForked = errors.New("blockchain forked, request a chain share")

// ErrNotNextBlock is returned from ValidateBlock when the block does not sit
// directly on top of the previous block, such as a block mined on a stale tip.
var ErrNotNextBlock = errors.New("block is not the next block")

// =============================================================================

// Block represents a group of transactions batched together and linked to
// the previous block by hash.
type Block struct {
	Index        uint64 `json:"index"`        // Zero based position of the block in the chain.
	Timestamp    uint64 `json:"timestamp"`    // Unix time in milliseconds the block was mined.
	Transactions []Tx   `json:"transactions"` // Transactions applied in list order.
	PreviousHash string `json:"previousHash"` // Hash of the previous block in the chain.
	Hash         string `json:"hash"`         // Hash of all the other fields.
	Nonce        uint64 `json:"nonce"`        // Value identified to solve the hash solution.
}

// GenesisBlock returns the first block of every chain. It carries no
// transactions and its hash is the zero hash sentinel.
func GenesisBlock(date time.Time) Block {
	var timestamp uint64
	if ms := date.UnixMilli(); ms > 0 {
		timestamp = uint64(ms)
	}

	return Block{
		Index:        0,
		Timestamp:    timestamp,
		Transactions: []Tx{},
		PreviousHash: digest.ZeroHash,
		Hash:         digest.ZeroHash,
	}
}

// CalculateHash returns the hash over the index, previous hash, timestamp,
// serialized transactions and nonce.
func (b Block) CalculateHash() string {
	data := struct {
		Index        uint64 `json:"index"`
		PreviousHash string `json:"previousHash"`
		Timestamp    uint64 `json:"timestamp"`
		Transactions []Tx   `json:"transactions"`
		Nonce        uint64 `json:"nonce"`
	}{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		Nonce:        b.Nonce,
	}

	if data.Transactions == nil {
		data.Transactions = []Tx{}
	}

	return digest.Hash(data)
}

// ValidateBlock takes a block and validates it can follow the previous block.
// The transactions are not validated here since that requires the unspent
// outputs the previous block produced.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint16, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: chain is not forked", b.Index)

	// The node who sent this block has a chain that is ahead of ours. This
	// block can't be linked until we have the blocks in between.
	nextIndex := previousBlock.Index + 1
	if b.Index > nextIndex {
		return fmt.Errorf("got %d, exp %d: %w", b.Index, nextIndex, ErrChainForked)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block index is the next index", b.Index)

	if b.Index != nextIndex {
		return fmt.Errorf("got %d, exp %d: %w", b.Index, nextIndex, ErrNotNextBlock)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: previous hash does match previous block", b.Index)

	if b.PreviousHash != previousBlock.Hash {
		return fmt.Errorf("previous hash got %s, exp %s: %w", b.PreviousHash, previousBlock.Hash, ErrNotNextBlock)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash matches its content", b.Index)

	hash := b.CalculateHash()
	if b.Hash != hash {
		return fmt.Errorf("block hash doesn't match its content, got %s, exp %s", b.Hash, hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !digest.IsHashSolved(difficulty, hash) {
		return fmt.Errorf("%s invalid block hash for difficulty %d", hash, difficulty)
	}

	return nil
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Difficulty uint16
	PrevBlock  Block
	Trans      []Tx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The work can be cancelled with the
// context, in which case the context error is returned.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	trans := args.Trans
	if trans == nil {
		trans = []Tx{}
	}

	// Construct the block to be mined.
	nb := Block{
		Index:        args.PrevBlock.Index + 1,
		Timestamp:    uint64(time.Now().UTC().UnixMilli()),
		Transactions: trans,
		PreviousHash: args.PrevBlock.Hash,
		Nonce:        0, // Will be identified by the POW algorithm.
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	// Peform the proof of work mining operation.
	if err := nb.performPOW(ctx, args.Difficulty, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty uint16, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started")
	defer ev("database: PerformPOW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Transactions {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// Loop until we find a solution or another node's block cancels us.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.CalculateHash()
		if !digest.IsHashSolved(difficulty, hash) {
			b.Nonce++
			continue
		}

		b.Hash = hash

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PreviousHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}
