package database

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ardanlabs/powledger/foundation/blockchain/digest"
)

// TxInput references an unspent output being consumed by a transaction.
type TxInput struct {
	ReferencedTxHash string `json:"referencedTxHash" validate:"required"` // Hash of the transaction that created the output.
	OutputIndex      uint32 `json:"outputIndex"`                          // Position of the output in that transaction.
	Amount           uint64 `json:"amount"`                               // Amount the spender claims the output holds.
}

// OutPoint returns the key of the output this input is spending.
func (in TxInput) OutPoint() OutPoint {
	return OutPoint{TxHash: in.ReferencedTxHash, Index: in.OutputIndex}
}

// TxOutput assigns an amount of coin to an address.
type TxOutput struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount"`
}

// =============================================================================

// Tx is the transactional information moving coin from unspent outputs to a
// new set of outputs. The hash is the identity of the transaction and is
// calculated over the inputs and outputs.
type Tx struct {
	Hash    string     `json:"hash"`
	Inputs  []TxInput  `json:"inputs" validate:"dive"`
	Outputs []TxOutput `json:"outputs" validate:"dive"`
}

// NewTx constructs a new transaction and calculates its hash.
func NewTx(inputs []TxInput, outputs []TxOutput) Tx {
	tx := Tx{
		Inputs:  inputs,
		Outputs: outputs,
	}
	tx.Hash = tx.CalculateHash()

	return tx
}

// CalculateHash returns the content hash of the inputs and outputs. A nil
// and an empty list serialize the same way so a transaction decoded off the
// wire hashes the same as the one that was sent.
func (tx Tx) CalculateHash() string {
	content := struct {
		Inputs  []TxInput  `json:"inputs"`
		Outputs []TxOutput `json:"outputs"`
	}{
		Inputs:  tx.Inputs,
		Outputs: tx.Outputs,
	}

	if content.Inputs == nil {
		content.Inputs = []TxInput{}
	}
	if content.Outputs == nil {
		content.Outputs = []TxOutput{}
	}

	return digest.Hash(content)
}

// InputSum returns the sum of the amounts claimed by the inputs.
func (tx Tx) InputSum() (uint64, error) {
	var sum uint64
	for _, in := range tx.Inputs {
		if sum > math.MaxUint64-in.Amount {
			return 0, fmt.Errorf("tx[%s]: input sum overflows", tx.Hash)
		}
		sum += in.Amount
	}

	return sum, nil
}

// OutputSum returns the sum of the amounts of the outputs.
func (tx Tx) OutputSum() (uint64, error) {
	var sum uint64
	for _, out := range tx.Outputs {
		if sum > math.MaxUint64-out.Amount {
			return 0, fmt.Errorf("tx[%s]: output sum overflows", tx.Hash)
		}
		sum += out.Amount
	}

	return sum, nil
}

// Fee returns the difference between the claimed inputs and the outputs. A
// transaction spending more than it consumes has no fee.
func (tx Tx) Fee() uint64 {
	in, err := tx.InputSum()
	if err != nil {
		return 0
	}

	out, err := tx.OutputSum()
	if err != nil || out > in {
		return 0
	}

	return in - out
}

// Weight returns the serialized size of the transaction in bytes.
func (tx Tx) Weight() int {
	data, err := json.Marshal(tx)
	if err != nil {
		return 0
	}

	return len(data)
}

// FeeRate returns the fee paid per byte of block space.
func (tx Tx) FeeRate() float64 {
	weight := tx.Weight()
	if weight == 0 {
		return 0
	}

	return float64(tx.Fee()) / float64(weight)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]:fee[%d]", tx.Hash, len(tx.Inputs), len(tx.Outputs), tx.Fee())
}
