package public

import "github.com/ardanlabs/powledger/foundation/blockchain/database"

type balance struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type tx struct {
	Hash    string              `json:"hash"`
	Inputs  []database.TxInput  `json:"inputs"`
	Outputs []database.TxOutput `json:"outputs"`
	Fee     uint64              `json:"fee"`
	FeeRate float64             `json:"feeRate"`
}

func toTx(dbTx database.Tx) tx {
	return tx{
		Hash:    dbTx.Hash,
		Inputs:  dbTx.Inputs,
		Outputs: dbTx.Outputs,
		Fee:     dbTx.Fee(),
		FeeRate: dbTx.FeeRate(),
	}
}

type submitted struct {
	Message         string `json:"message"`
	TransactionHash string `json:"transactionHash"`
}
