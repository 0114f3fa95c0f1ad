package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Print the balance of an address.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Address string `json:"address"`
			Balance uint64 `json:"balance"`
		}

		if err := get(fmt.Sprintf("%s/v1/balances/%s", nodeURL, args[0]), &resp); err != nil {
			log.Fatal(err)
		}

		fmt.Println(resp.Balance)
	},
}

var utxosCmd = &cobra.Command{
	Use:   "utxos <address>",
	Short: "Print the unspent outputs owned by an address.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var utxos []database.UTXO
		if err := get(fmt.Sprintf("%s/v1/utxos/%s", nodeURL, args[0]), &utxos); err != nil {
			log.Fatal(err)
		}

		for _, u := range utxos {
			fmt.Printf("%s:%d:%d\n", u.SourceTxHash, u.OutputIndex, u.Amount)
		}
	},
}

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "Print the transactions waiting to be mined.",
	Run: func(cmd *cobra.Command, args []string) {
		var trans []struct {
			Hash    string  `json:"hash"`
			Fee     uint64  `json:"fee"`
			FeeRate float64 `json:"feeRate"`
		}
		if err := get(nodeURL+"/v1/tx/uncommitted/list", &trans); err != nil {
			log.Fatal(err)
		}

		for _, tx := range trans {
			fmt.Printf("%s fee[%d] rate[%.4f]\n", tx.Hash, tx.Fee, tx.FeeRate)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(utxosCmd)
	rootCmd.AddCommand(mempoolCmd)
}
