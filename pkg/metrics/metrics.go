package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_orders_created_total",
		Help: "The total number of swap orders created, by terminal status",
	}, []string{"status"})

	SwapProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_swap_processing_seconds",
		Help:    "Time taken to process a swap from decode to terminal status",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	}, []string{"chain"})

	ExecutionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_execution_errors_total",
		Help: "Total number of destination-chain execution errors by type",
	}, []string{"error_type"})

	DuplicateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_duplicate_submissions_total",
		Help: "Number of create-order requests short-circuited by an existing order",
	})

	PendingSourceTxs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_pending_source_txs",
		Help: "Number of create-order requests currently waiting on source finality",
	})

	SourceTxPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_source_tx_polls_total",
		Help: "Confirmation poller attempts against the source chain, by outcome",
	}, []string{"outcome"})

	ContractOrderCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_contract_order_count",
		Help: "Order count reported by the escrow contract's read-only function",
	})

	GasPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_destination_gas_price_gwei",
		Help: "Current destination-chain gas price in gwei",
	})
)
