package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/ardanlabs/powledger/business/web/txmodel"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

// ErrInsufficientFunds is returned when the unspent outputs of an address
// can't cover a payment.
var ErrInsufficientFunds = errors.New("insufficient funds")

var (
	from   string
	to     string
	amount uint64
	fee    uint64
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay an amount, selecting inputs from the unspent outputs the node knows",
	Run: func(cmd *cobra.Command, args []string) {
		var utxos []database.UTXO
		if err := get(fmt.Sprintf("%s/v1/utxos/%s", nodeURL, from), &utxos); err != nil {
			log.Fatal(err)
		}

		ntx, err := buildPayment(utxos, from, to, amount, fee)
		if err != nil {
			log.Fatal(err)
		}

		hash, err := submit(ntx)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(hash)
	},
}

func init() {
	rootCmd.AddCommand(payCmd)
	payCmd.Flags().StringVarP(&from, "from", "f", "", "Address paying.")
	payCmd.Flags().StringVarP(&to, "to", "t", "", "Address being paid.")
	payCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to pay.")
	payCmd.Flags().Uint64VarP(&fee, "fee", "c", 0, "Fee left for the miner.")
	payCmd.MarkFlagRequired("from")
	payCmd.MarkFlagRequired("to")
	payCmd.MarkFlagRequired("amount")
}

// buildPayment spends unspent outputs in the order given until they cover
// the amount and the fee. Anything left over is returned to the payer.
func buildPayment(utxos []database.UTXO, from string, to string, amount uint64, fee uint64) (txmodel.NewTx, error) {
	need := amount + fee
	if need < amount {
		return txmodel.NewTx{}, fmt.Errorf("amount plus fee overflows")
	}

	var ntx txmodel.NewTx
	var have uint64
	for _, u := range utxos {
		if have >= need {
			break
		}

		ntx.Inputs = append(ntx.Inputs, txmodel.Input{
			ReferencedTxHash: u.SourceTxHash,
			OutputIndex:      u.OutputIndex,
			Amount:           u.Amount,
		})
		have += u.Amount
	}

	if have < need {
		return txmodel.NewTx{}, fmt.Errorf("have %d, need %d: %w", have, need, ErrInsufficientFunds)
	}

	ntx.Outputs = append(ntx.Outputs, txmodel.Output{Address: to, Amount: amount})
	if change := have - need; change > 0 {
		ntx.Outputs = append(ntx.Outputs, txmodel.Output{Address: from, Amount: change})
	}

	if err := ntx.Validate(); err != nil {
		return txmodel.NewTx{}, err
	}

	return ntx, nil
}
