// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFeeRate = "feerate"
	StrategyFee     = "fee"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFeeRate: feeRateSelect,
	StrategyFee:     feeSelect,
}

// Func defines a function that takes the transactions in the mempool and
// selects howMany of them in an order based on the functions strategy.
// Receiving -1 for howMany must return all the transactions in the
// strategies ordering. The slice passed in may be reordered.
type Func func(transactions []database.Tx, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// feeRateSelect returns the transactions paying the most fee per byte of
// block space.
var feeRateSelect = func(transactions []database.Tx, howMany int) []database.Tx {
	sort.Sort(newByFeeRate(transactions))
	return topN(transactions, howMany)
}

// feeSelect returns the transactions paying the largest absolute fee
// regardless of their size.
var feeSelect = func(transactions []database.Tx, howMany int) []database.Tx {
	sort.Sort(newByFee(transactions))
	return topN(transactions, howMany)
}

// topN returns the first howMany transactions, or all of them when there
// are fewer or howMany is -1.
func topN(transactions []database.Tx, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	final := make([]database.Tx, howMany)
	copy(final, transactions[:howMany])

	return final
}

// =============================================================================

// byFeeRate provides sorting support by the transaction fee rate. The rates
// are calculated once since a fee rate requires serializing the transaction.
type byFeeRate struct {
	trans []database.Tx
	rates []float64
}

func newByFeeRate(trans []database.Tx) byFeeRate {
	rates := make([]float64, len(trans))
	for i, tx := range trans {
		rates[i] = tx.FeeRate()
	}

	return byFeeRate{trans: trans, rates: rates}
}

// Len returns the number of transactions in the list.
func (bf byFeeRate) Len() int {
	return len(bf.trans)
}

// Less helps to sort the list by fee rate in decending order to pick the
// transactions that provide the best reward for the space.
func (bf byFeeRate) Less(i, j int) bool {
	return bf.rates[i] > bf.rates[j]
}

// Swap moves transactions in the order of the fee rate value.
func (bf byFeeRate) Swap(i, j int) {
	bf.trans[i], bf.trans[j] = bf.trans[j], bf.trans[i]
	bf.rates[i], bf.rates[j] = bf.rates[j], bf.rates[i]
}

// =============================================================================

// byFee provides sorting support by the transaction fee.
type byFee struct {
	trans []database.Tx
	fees  []uint64
}

func newByFee(trans []database.Tx) byFee {
	fees := make([]uint64, len(trans))
	for i, tx := range trans {
		fees[i] = tx.Fee()
	}

	return byFee{trans: trans, fees: fees}
}

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf.trans)
}

// Less helps to sort the list by fee in decending order.
func (bf byFee) Less(i, j int) bool {
	return bf.fees[i] > bf.fees[j]
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf.trans[i], bf.trans[j] = bf.trans[j], bf.trans[i]
	bf.fees[i], bf.fees[j] = bf.fees[j], bf.fees[i]
}
