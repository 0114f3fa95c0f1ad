// Package txmodel provides the transaction payload accepted by the node and
// relay web APIs.
package txmodel

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/validate"
)

// Input is an unspent output the transaction consumes.
type Input struct {
	ReferencedTxHash string `json:"referencedTxHash" validate:"required"`
	OutputIndex      uint32 `json:"outputIndex"`
	Amount           uint64 `json:"amount"`
}

// Output assigns coin to an address.
type Output struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"gt=0"`
}

// NewTx is the payload for submitting a transaction. The hash is optional,
// when present it must match the content.
type NewTx struct {
	Hash    string   `json:"hash,omitempty"`
	Inputs  []Input  `json:"inputs" validate:"dive"`
	Outputs []Output `json:"outputs" validate:"required,min=1,dive"`
}

// Validate checks the payload is well formed.
func (ntx NewTx) Validate() error {
	return validate.Check(ntx)
}

// ToDB converts the payload into a database transaction. A missing hash is
// calculated, a provided one is kept for the ledger to verify.
func (ntx NewTx) ToDB() database.Tx {
	inputs := make([]database.TxInput, len(ntx.Inputs))
	for i, in := range ntx.Inputs {
		inputs[i] = database.TxInput{
			ReferencedTxHash: in.ReferencedTxHash,
			OutputIndex:      in.OutputIndex,
			Amount:           in.Amount,
		}
	}

	outputs := make([]database.TxOutput, len(ntx.Outputs))
	for i, out := range ntx.Outputs {
		outputs[i] = database.TxOutput{
			Address: out.Address,
			Amount:  out.Amount,
		}
	}

	if ntx.Hash == "" {
		return database.NewTx(inputs, outputs)
	}

	return database.Tx{
		Hash:    ntx.Hash,
		Inputs:  inputs,
		Outputs: outputs,
	}
}
