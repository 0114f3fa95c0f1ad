package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// noop is an event handler that discards the events.
func noop(v string, args ...any) {}

// mine performs the POW for a block holding the transactions.
func mine(t *testing.T, prev database.Block, difficulty uint16, trans ...database.Tx) database.Block {
	t.Helper()

	block, err := database.POW(context.Background(), database.POWArgs{
		Difficulty: difficulty,
		PrevBlock:  prev,
		Trans:      trans,
		EvHandler:  noop,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
	}

	return block
}

// =============================================================================

func Test_ValidateTransaction(t *testing.T) {
	seed := database.UTXO{SourceTxHash: "g", OutputIndex: 0, Amount: 10, Address: "A"}

	forged := database.NewTx(
		[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10}},
		[]database.TxOutput{{Address: "B", Amount: 7}},
	)
	forged.Outputs[0].Amount = 10

	type table struct {
		name string
		tx   database.Tx
		err  error
	}

	tt := []table{
		{
			name: "fee",
			tx: database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 7}},
			),
		},
		{
			name: "exact",
			tx: database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 4}, {Address: "A", Amount: 6}},
			),
		},
		{
			name: "unknown-output-index",
			tx: database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 1, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 10}},
			),
			err: database.ErrUnknownInput,
		},
		{
			name: "unknown-source",
			tx: database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "x", OutputIndex: 0, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 1}},
			),
			err: database.ErrUnknownInput,
		},
		{
			name: "forged-input-amount",
			tx: database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 100}},
				[]database.TxOutput{{Address: "B", Amount: 50}},
			),
			err: database.ErrAmountMismatch,
		},
		{
			name: "outputs-exceed-inputs",
			tx: database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 11}},
			),
			err: database.ErrInsufficientFund,
		},
		{
			name: "duplicate-input",
			tx: database.NewTx(
				[]database.TxInput{
					{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10},
					{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10},
				},
				[]database.TxOutput{{Address: "B", Amount: 20}},
			),
			err: database.ErrDuplicateInput,
		},
		{
			name: "hash-mismatch",
			tx:   forged,
			err:  database.ErrHashMismatch,
		},
	}

	t.Log("Given the need to validate transactions against the unspent outputs.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling transaction %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					utxos := database.NewUTXOSet(seed)

					err := database.ValidateTransaction(tst.tx, utxos)
					switch {
					case tst.err == nil && err != nil:
						t.Fatalf("\t%s\tTest %d:\tShould be a valid transaction: %v", failed, testID, err)
					case tst.err != nil && !errors.Is(err, tst.err):
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right validation error.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right validation result.", success, testID)

					if utxos.Len() != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould not modify the unspent outputs.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not modify the unspent outputs.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_ApplyBlock(t *testing.T) {
	t.Log("Given the need to apply a block to the unspent outputs.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen spending a single output with a fee.", testID)
		{
			utxos := database.NewUTXOSet(database.UTXO{SourceTxHash: "g", OutputIndex: 0, Amount: 10, Address: "A"})

			tx := database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 7}},
			)

			if err := database.ValidateTransaction(tx, utxos); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be a valid transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be a valid transaction.", success, testID)

			utxos.Apply(database.Block{Index: 1, Transactions: []database.Tx{tx}})

			values := utxos.Values()
			if len(values) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have exactly one unspent output: got %d", failed, testID, len(values))
			}
			t.Logf("\t%s\tTest %d:\tShould have exactly one unspent output.", success, testID)

			exp := database.UTXO{SourceTxHash: tx.Hash, OutputIndex: 0, Amount: 7, Address: "B"}
			if values[0] != exp {
				t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, values[0])
				t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, exp)
				t.Fatalf("\t%s\tTest %d:\tShould have the new output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the new output.", success, testID)

			if _, exists := utxos.Get(database.OutPoint{TxHash: "g", Index: 0}); exists {
				t.Fatalf("\t%s\tTest %d:\tShould have removed the spent output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have removed the spent output.", success, testID)

			if utxos.Balance("B") != 7 || utxos.Balance("A") != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have the right balances: A[%d] B[%d]", failed, testID, utxos.Balance("A"), utxos.Balance("B"))
			}
			t.Logf("\t%s\tTest %d:\tShould have the right balances.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen spending an output created earlier in the same block.", testID)
		{
			utxos := database.NewUTXOSet(database.UTXO{SourceTxHash: "g", OutputIndex: 0, Amount: 10, Address: "A"})

			parent := database.NewTx(
				[]database.TxInput{{ReferencedTxHash: "g", OutputIndex: 0, Amount: 10}},
				[]database.TxOutput{{Address: "B", Amount: 9}},
			)
			child := database.NewTx(
				[]database.TxInput{{ReferencedTxHash: parent.Hash, OutputIndex: 0, Amount: 9}},
				[]database.TxOutput{{Address: "C", Amount: 8}},
			)

			if err := database.ValidateTransactions([]database.Tx{parent, child}, utxos.Copy()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould allow spending an output from the same block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould allow spending an output from the same block.", success, testID)

			if err := database.ValidateTransactions([]database.Tx{child, parent}, utxos.Copy()); !errors.Is(err, database.ErrUnknownInput) {
				t.Fatalf("\t%s\tTest %d:\tShould reject spending an output created later in the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject spending an output created later in the block.", success, testID)

			utxos.Apply(database.Block{Index: 1, Transactions: []database.Tx{parent, child}})
			if utxos.Len() != 1 || utxos.Balance("C") != 8 {
				t.Fatalf("\t%s\tTest %d:\tShould only have the child output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould only have the child output.", success, testID)
		}
	}
}

func Test_Rebuild(t *testing.T) {
	t.Log("Given the need to rebuild the unspent outputs from a chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen rebuilding the same chain twice.", testID)
		{
			gen := genesis.New(1, genesis.Allocation{Address: "A", Amount: 100})
			db := database.New(gen, noop)

			utxo := db.QueryUTXOs("A")[0]
			tx1 := database.NewTx(
				[]database.TxInput{{ReferencedTxHash: utxo.SourceTxHash, OutputIndex: utxo.OutputIndex, Amount: 100}},
				[]database.TxOutput{{Address: "B", Amount: 60}, {Address: "A", Amount: 39}},
			)
			b1 := mine(t, db.LatestBlock(), 1, tx1)
			tx2 := database.NewTx(
				[]database.TxInput{{ReferencedTxHash: tx1.Hash, OutputIndex: 0, Amount: 60}},
				[]database.TxOutput{{Address: "C", Amount: 60}},
			)
			b2 := mine(t, b1, 1, tx2)

			chain := []database.Block{db.GenesisBlock(), b1, b2}
			seed := database.UTXO{SourceTxHash: utxo.SourceTxHash, OutputIndex: 0, Amount: 100, Address: "A"}

			first := database.NewUTXOSet(seed)
			first.Rebuild(chain)

			second := database.NewUTXOSet(seed)
			second.Rebuild(chain)
			second.Rebuild(chain)

			if !first.Equal(second) {
				t.Fatalf("\t%s\tTest %d:\tShould produce identical sets.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce identical sets.", success, testID)

			if first.Balance("A") != 39 || first.Balance("B") != 0 || first.Balance("C") != 60 {
				t.Fatalf("\t%s\tTest %d:\tShould have the right balances.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the right balances.", success, testID)
		}
	}
}

func Test_POW(t *testing.T) {
	t.Log("Given the need to mine blocks.")
	{
		for testID, difficulty := range []uint16{0, 1, 2, 3} {
			t.Logf("\tTest %d:\tWhen mining at difficulty %d.", testID, difficulty)
			{
				prev := database.GenesisBlock(time.Now())
				block := mine(t, prev, difficulty)

				digits := strings.TrimPrefix(block.Hash, "0x")
				if digits[:difficulty] != strings.Repeat("0", int(difficulty)) {
					t.Fatalf("\t%s\tTest %d:\tShould have %d leading zeros: %s", failed, testID, difficulty, block.Hash)
				}
				t.Logf("\t%s\tTest %d:\tShould have %d leading zeros.", success, testID, difficulty)

				if block.Index != 1 || block.PreviousHash != prev.Hash {
					t.Fatalf("\t%s\tTest %d:\tShould link to the previous block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould link to the previous block.", success, testID)

				if err := block.ValidateBlock(prev, difficulty, noop); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be a valid block: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be a valid block.", success, testID)
			}
		}

		testID := 4
		t.Logf("\tTest %d:\tWhen mining is cancelled.", testID)
		{
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := database.POW(ctx, database.POWArgs{
				Difficulty: 64,
				PrevBlock:  database.GenesisBlock(time.Now()),
				EvHandler:  noop,
			})
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("\t%s\tTest %d:\tShould stop when the context is done: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould stop when the context is done.", success, testID)
		}
	}
}

func Test_ValidateBlock(t *testing.T) {
	prev := database.GenesisBlock(time.Now())

	type table struct {
		name   string
		mutate func(b *database.Block)
		err    error
	}

	tt := []table{
		{name: "valid", mutate: func(b *database.Block) {}},
		{name: "ahead", mutate: func(b *database.Block) { b.Index = 5 }, err: database.ErrChainForked},
		{name: "behind", mutate: func(b *database.Block) { b.Index = 0 }, err: database.ErrNotNextBlock},
		{name: "previous-hash", mutate: func(b *database.Block) { b.PreviousHash = "0x01" }, err: database.ErrNotNextBlock},
		{name: "content", mutate: func(b *database.Block) { b.Timestamp++ }},
		{name: "hash", mutate: func(b *database.Block) { b.Hash = "0x" + strings.Repeat("0", 64) }},
	}

	t.Log("Given the need to validate a new block.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling block %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					block := mine(t, prev, 1)
					tst.mutate(&block)

					err := block.ValidateBlock(prev, 1, noop)
					switch {
					case tst.name == "valid" && err != nil:
						t.Fatalf("\t%s\tTest %d:\tShould be a valid block: %v", failed, testID, err)
					case tst.name != "valid" && err == nil:
						t.Fatalf("\t%s\tTest %d:\tShould be an invalid block.", failed, testID)
					case tst.err != nil && !errors.Is(err, tst.err):
						t.Fatalf("\t%s\tTest %d:\tShould get back the right error: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right validation result.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_ValidateChain(t *testing.T) {
	t.Log("Given the need to validate a chain from a peer.")
	{
		gen := genesis.New(1, genesis.Allocation{Address: "A", Amount: 100})
		db := database.New(gen, noop)
		seed := db.QueryUTXOs("A")[0]

		spend := func(to string) database.Tx {
			return database.NewTx(
				[]database.TxInput{{ReferencedTxHash: seed.SourceTxHash, OutputIndex: seed.OutputIndex, Amount: seed.Amount}},
				[]database.TxOutput{{Address: to, Amount: seed.Amount}},
			)
		}

		testID := 0
		t.Logf("\tTest %d:\tWhen the chain is valid.", testID)
		{
			b1 := mine(t, db.GenesisBlock(), 1, spend("B"))
			b2 := mine(t, b1, 1)

			if err := db.ValidateChain([]database.Block{db.GenesisBlock(), b1, b2}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be a valid chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be a valid chain.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the same output is spent in two blocks.", testID)
		{
			b1 := mine(t, db.GenesisBlock(), 1, spend("B"))
			b2 := mine(t, b1, 1, spend("C"))

			if err := db.ValidateChain([]database.Block{db.GenesisBlock(), b1, b2}); !errors.Is(err, database.ErrUnknownInput) {
				t.Fatalf("\t%s\tTest %d:\tShould catch the double spend: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould catch the double spend.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the chain starts with a different genesis block.", testID)
		{
			other := database.GenesisBlock(time.Now())
			b1 := mine(t, other, 1)

			if err := db.ValidateChain([]database.Block{other, b1}); !errors.Is(err, database.ErrGenesisMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the chain.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a block in the middle was tampered with.", testID)
		{
			b1 := mine(t, db.GenesisBlock(), 1, spend("B"))
			b2 := mine(t, b1, 1)
			b1.Transactions[0].Outputs[0].Address = "Z"

			if err := db.ValidateChain([]database.Block{db.GenesisBlock(), b1, b2}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the chain.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the database takes a new block and a new chain.", testID)
		{
			b1 := mine(t, db.GenesisBlock(), 1, spend("B"))
			if err := db.ValidateNextBlock(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the next block: %v", failed, testID, err)
			}
			db.Append(b1)
			t.Logf("\t%s\tTest %d:\tShould accept the next block.", success, testID)

			if db.Balance("B") != 100 || db.Length() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould apply the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould apply the block.", success, testID)

			c1 := mine(t, db.GenesisBlock(), 1, spend("C"))
			c2 := mine(t, c1, 1)
			chain := []database.Block{db.GenesisBlock(), c1, c2}
			if err := db.ValidateChain(chain); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the competing chain: %v", failed, testID, err)
			}
			db.Replace(chain)

			if db.Balance("B") != 0 || db.Balance("C") != 100 || db.Length() != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild from the new chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould rebuild from the new chain.", success, testID)
		}
	}
}
