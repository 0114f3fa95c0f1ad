package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestNodeRecords(t *testing.T) {
	var m Node

	inc := delta(t, nodeBlocksTotal.WithLabelValues(SourceNetwork, "error"), func() {
		m.ObserveBlock(SourceNetwork, errors.New("bad block"))
	})
	require.Equal(t, 1.0, inc)

	inc = delta(t, nodeBlocksTotal.WithLabelValues(SourceMined, "success"), func() {
		m.ObserveBlock(SourceMined, nil)
	})
	require.Equal(t, 1.0, inc)

	inc = delta(t, nodeTransactionsTotal.WithLabelValues(SourceAPI, "success"), func() {
		m.ObserveTransaction(SourceAPI, nil)
	})
	require.Equal(t, 1.0, inc)

	inc = delta(t, nodeChainSyncTotal.WithLabelValues("error"), func() {
		m.ObserveChainSync(errors.New("shorter"))
	})
	require.Equal(t, 1.0, inc)

	m.SetChain(7, 3)
	require.Equal(t, 7.0, testutil.ToFloat64(nodeChainLength))
	require.Equal(t, 3.0, testutil.ToFloat64(nodeMempoolSize))

	m.ObserveMining(OutcomeCancelled, time.Now().Add(-time.Second))
	require.Equal(t, 1, testutil.CollectAndCount(nodeMiningDuration))
}

func TestRelayRecords(t *testing.T) {
	var m Relay

	m.SetNodes(4)
	require.Equal(t, 4.0, testutil.ToFloat64(relayNodes))

	inc := delta(t, relayMessagesTotal.WithLabelValues("NEW_BLOCK", "out"), func() {
		m.ObserveOutbound("NEW_BLOCK")
		m.ObserveOutbound("NEW_BLOCK")
	})
	require.Equal(t, 2.0, inc)

	inc = delta(t, relayMessagesTotal.WithLabelValues("NEW_BLOCK", "in"), func() {
		m.ObserveInbound("NEW_BLOCK")
	})
	require.Equal(t, 1.0, inc)
}

func TestHTTPRecords(t *testing.T) {
	m := NewHTTP("relay")

	inc := delta(t, httpRequestsTotal.WithLabelValues("relay", "POST", "/v1/transaction", "202"), func() {
		m.ObserveRequest("POST", "/v1/transaction", 202, time.Now())
	})
	require.Equal(t, 1.0, inc)

	inc = delta(t, httpRequestsTotal.WithLabelValues("unknown", "GET", "unmatched", "404"), func() {
		NewHTTP("").ObserveRequest("GET", "", 404, time.Now())
	})
	require.Equal(t, 1.0, inc)
}
