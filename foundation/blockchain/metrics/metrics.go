// Package metrics provides the prometheus collectors for the miner node
// and the relay.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set of sources a block or transaction can arrive from.
const (
	SourceMined   = "mined"
	SourceNetwork = "network"
	SourceSync    = "sync"
	SourceAPI     = "api"
)

// Set of outcomes for a mining operation.
const (
	OutcomeSolved    = "solved"
	OutcomeCancelled = "cancelled"
	OutcomeDiscarded = "discarded"
)

var (
	nodeBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powledger",
		Subsystem: "node",
		Name:      "blocks_total",
		Help:      "Count of blocks processed by source and status.",
	}, []string{"source", "status"})

	nodeTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powledger",
		Subsystem: "node",
		Name:      "transactions_total",
		Help:      "Count of transactions processed by source and status.",
	}, []string{"source", "status"})

	nodeChainSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powledger",
		Subsystem: "node",
		Name:      "chain_sync_total",
		Help:      "Count of chain sync attempts by status.",
	}, []string{"status"})

	nodeMiningDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "powledger",
		Subsystem: "node",
		Name:      "mining_duration_seconds",
		Help:      "Duration of mining operations by outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"outcome"})

	nodeChainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powledger",
		Subsystem: "node",
		Name:      "chain_length",
		Help:      "Number of blocks in the canonical chain including genesis.",
	})

	nodeMempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powledger",
		Subsystem: "node",
		Name:      "mempool_size",
		Help:      "Number of transactions waiting to be mined.",
	})

	relayNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powledger",
		Subsystem: "relay",
		Name:      "connected_nodes",
		Help:      "Number of nodes connected to the relay.",
	})

	relayMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powledger",
		Subsystem: "relay",
		Name:      "messages_total",
		Help:      "Count of messages handled by the relay by type and direction.",
	}, []string{"type", "direction"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powledger",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of HTTP requests by service, route and status code.",
	}, []string{"service", "method", "route", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "powledger",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests by service and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method", "route"})
)

// =============================================================================

// Node tracks metrics for the miner node.
type Node struct{}

// ObserveBlock records a block being accepted or rejected.
func (Node) ObserveBlock(source string, err error) {
	nodeBlocksTotal.WithLabelValues(source, status(err)).Inc()
}

// ObserveTransaction records a transaction being accepted or rejected.
func (Node) ObserveTransaction(source string, err error) {
	nodeTransactionsTotal.WithLabelValues(source, status(err)).Inc()
}

// ObserveChainSync records the outcome of a chain sync.
func (Node) ObserveChainSync(err error) {
	nodeChainSyncTotal.WithLabelValues(status(err)).Inc()
}

// ObserveMining records the outcome and duration of a mining operation.
func (Node) ObserveMining(outcome string, started time.Time) {
	nodeMiningDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

// SetChain records the current size of the chain and mempool.
func (Node) SetChain(length int, mempool int) {
	nodeChainLength.Set(float64(length))
	nodeMempoolSize.Set(float64(mempool))
}

// =============================================================================

// Relay tracks metrics for the relay.
type Relay struct{}

// SetNodes records the number of connected nodes.
func (Relay) SetNodes(n int) {
	relayNodes.Set(float64(n))
}

// ObserveInbound records a message received from a node.
func (Relay) ObserveInbound(msgType string) {
	relayMessagesTotal.WithLabelValues(msgType, "in").Inc()
}

// ObserveOutbound records a message sent to a node.
func (Relay) ObserveOutbound(msgType string) {
	relayMessagesTotal.WithLabelValues(msgType, "out").Inc()
}

// =============================================================================

// HTTP tracks request metrics for a web service.
type HTTP struct {
	service string
}

// NewHTTP constructs an HTTP for the named service.
func NewHTTP(service string) HTTP {
	if service == "" {
		service = "unknown"
	}
	return HTTP{service: service}
}

// ObserveRequest records the outcome and duration of a request.
func (m HTTP) ObserveRequest(method string, route string, statusCode int, started time.Time) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(m.service, method, route, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(m.service, method, route).Observe(time.Since(started).Seconds())
}

// =============================================================================

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
