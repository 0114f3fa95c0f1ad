package database

import (
	"errors"
	"fmt"
)

// Set of errors returned when a transaction fails validation.
var (
	ErrHashMismatch     = errors.New("transaction hash does not match its content")
	ErrUnknownInput     = errors.New("input references an unknown or spent output")
	ErrAmountMismatch   = errors.New("input amount does not match the referenced output")
	ErrDuplicateInput   = errors.New("input references the same output more than once")
	ErrInsufficientFund = errors.New("outputs spend more than the inputs provide")
)

// ValidateTransaction checks the transaction against a snapshot of the
// unspent outputs. Every input must reference an existing output carrying
// exactly the claimed amount and the inputs must cover the outputs. The
// difference is an implicit fee. The set is not modified.
func ValidateTransaction(tx Tx, utxos *UTXOSet) error {
	if tx.Hash != tx.CalculateHash() {
		return fmt.Errorf("tx[%s]: %w", tx.Hash, ErrHashMismatch)
	}

	seen := make(map[OutPoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		op := in.OutPoint()

		if _, exists := seen[op]; exists {
			return fmt.Errorf("tx[%s]: input[%s]: %w", tx.Hash, op, ErrDuplicateInput)
		}
		seen[op] = struct{}{}

		u, exists := utxos.Get(op)
		if !exists {
			return fmt.Errorf("tx[%s]: input[%s]: %w", tx.Hash, op, ErrUnknownInput)
		}

		if u.Amount != in.Amount {
			return fmt.Errorf("tx[%s]: input[%s]: got %d, exp %d: %w", tx.Hash, op, in.Amount, u.Amount, ErrAmountMismatch)
		}
	}

	inputSum, err := tx.InputSum()
	if err != nil {
		return err
	}

	outputSum, err := tx.OutputSum()
	if err != nil {
		return err
	}

	if inputSum < outputSum {
		return fmt.Errorf("tx[%s]: inputs %d, outputs %d: %w", tx.Hash, inputSum, outputSum, ErrInsufficientFund)
	}

	return nil
}

// ValidateTransactions validates the transactions one at a time against the
// set, applying each one before the next is checked. This is how the
// transactions of a block are validated, so a later transaction may spend an
// output created by an earlier one and two transactions can't spend the
// same output. The set is modified.
func ValidateTransactions(trans []Tx, utxos *UTXOSet) error {
	for _, tx := range trans {
		if err := ValidateTransaction(tx, utxos); err != nil {
			return err
		}
		utxos.ApplyTx(tx)
	}

	return nil
}
