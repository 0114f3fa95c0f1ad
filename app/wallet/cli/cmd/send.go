package cmd

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ardanlabs/powledger/business/web/txmodel"
	"github.com/spf13/cobra"
)

var (
	ins  []string
	outs []string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction built from explicit inputs and outputs",
	Example: `  wallet send --in 0x1f..:0:1000 --out bob:600 --out alice:390
  the difference between the inputs and the outputs is the fee`,
	Run: func(cmd *cobra.Command, args []string) {
		ntx, err := buildTx(ins, outs)
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
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringArrayVar(&ins, "in", nil, "Input to spend as txhash:index:amount.")
	sendCmd.Flags().StringArrayVar(&outs, "out", nil, "Output to create as address:amount.")
	sendCmd.MarkFlagRequired("out")
}

// submit posts the transaction to the relay and returns its hash.
func submit(ntx txmodel.NewTx) (string, error) {
	var resp struct {
		Message         string `json:"message"`
		TransactionHash string `json:"transactionHash"`
	}

	if err := post(relayURL+"/v1/transaction", ntx, &resp); err != nil {
		return "", err
	}

	return resp.TransactionHash, nil
}

func buildTx(ins []string, outs []string) (txmodel.NewTx, error) {
	var ntx txmodel.NewTx

	for _, s := range ins {
		in, err := parseInput(s)
		if err != nil {
			return txmodel.NewTx{}, err
		}
		ntx.Inputs = append(ntx.Inputs, in)
	}

	for _, s := range outs {
		out, err := parseOutput(s)
		if err != nil {
			return txmodel.NewTx{}, err
		}
		ntx.Outputs = append(ntx.Outputs, out)
	}

	if err := ntx.Validate(); err != nil {
		return txmodel.NewTx{}, err
	}

	return ntx, nil
}

// parseInput parses txhash:index:amount.
func parseInput(s string) (txmodel.Input, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" {
		return txmodel.Input{}, fmt.Errorf("input %q: expected txhash:index:amount", s)
	}

	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return txmodel.Input{}, fmt.Errorf("input %q: index: %w", s, err)
	}

	amount, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return txmodel.Input{}, fmt.Errorf("input %q: amount: %w", s, err)
	}

	in := txmodel.Input{
		ReferencedTxHash: parts[0],
		OutputIndex:      uint32(index),
		Amount:           amount,
	}

	return in, nil
}

// parseOutput parses address:amount.
func parseOutput(s string) (txmodel.Output, error) {
	address, amount, found := strings.Cut(s, ":")
	if !found || address == "" {
		return txmodel.Output{}, fmt.Errorf("output %q: expected address:amount", s)
	}

	value, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return txmodel.Output{}, fmt.Errorf("output %q: amount: %w", s, err)
	}

	return txmodel.Output{Address: address, Amount: value}, nil
}
