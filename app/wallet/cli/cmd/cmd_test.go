package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ardanlabs/powledger/business/web/txmodel"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in, err := parseInput("0xabc:2:1000")
	require.NoError(t, err)
	require.Equal(t, txmodel.Input{ReferencedTxHash: "0xabc", OutputIndex: 2, Amount: 1000}, in)

	out, err := parseOutput("bob:600")
	require.NoError(t, err)
	require.Equal(t, txmodel.Output{Address: "bob", Amount: 600}, out)

	for _, s := range []string{"0xabc:2", ":1:1", "0xabc:x:1", "0xabc:1:-5"} {
		_, err := parseInput(s)
		require.Error(t, err, s)
	}

	for _, s := range []string{"bob", ":5", "bob:five"} {
		_, err := parseOutput(s)
		require.Error(t, err, s)
	}

	_, err = buildTx([]string{"0xabc:0:10"}, nil)
	require.Error(t, err)

	ntx, err := buildTx([]string{"0xabc:0:10"}, []string{"bob:9"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), ntx.ToDB().Fee())
}

func TestBuildPayment(t *testing.T) {
	utxos := []database.UTXO{
		{SourceTxHash: "0xa", OutputIndex: 0, Amount: 30, Address: "alice"},
		{SourceTxHash: "0xb", OutputIndex: 1, Amount: 50, Address: "alice"},
		{SourceTxHash: "0xc", OutputIndex: 0, Amount: 70, Address: "alice"},
	}

	ntx, err := buildPayment(utxos, "alice", "bob", 60, 5)
	require.NoError(t, err)
	require.Len(t, ntx.Inputs, 2)
	require.Equal(t, []txmodel.Output{{Address: "bob", Amount: 60}, {Address: "alice", Amount: 15}}, ntx.Outputs)
	require.Equal(t, uint64(5), ntx.ToDB().Fee())

	ntx, err = buildPayment(utxos, "alice", "bob", 75, 5)
	require.NoError(t, err)
	require.Len(t, ntx.Outputs, 1)

	_, err = buildPayment(utxos, "alice", "bob", 150, 1)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ntx txmodel.NewTx
		if err := json.NewDecoder(r.Body).Decode(&ntx); err != nil || r.URL.Path != "/v1/transaction" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad payload"}`))
			return
		}

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"message":         "Transaction added to mempool",
			"transactionHash": ntx.ToDB().Hash,
		})
	}))
	defer server.Close()

	relayURL = server.URL

	ntx, err := buildTx([]string{"0xabc:0:10"}, []string{"bob:9"})
	require.NoError(t, err)

	hash, err := submit(ntx)
	require.NoError(t, err)
	require.Equal(t, ntx.ToDB().Hash, hash)

	relayURL = server.URL + "/wrong"
	_, err = submit(ntx)
	require.EqualError(t, err, "status 400: bad payload")
}
