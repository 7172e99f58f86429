// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/ToniyaSundaram/raiden-token/internal/units"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Deployment metrics
	DeploysTotal   *prometheus.CounterVec
	DeployDuration prometheus.Histogram

	// Simulation metrics
	SimulationRunsTotal    *prometheus.CounterVec
	BidsConfirmed          prometheus.Counter
	BidsFailed             prometheus.Counter
	BidConfirmationLatency prometheus.Histogram

	// Auction metrics
	AuctionPriceEth      prometheus.Gauge
	PriceSamplesRecorded prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "raiden_token"
	}

	return &Metrics{
		// Deployment metrics
		DeploysTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "runs_total",
			Help:      "Total number of deployment runs by chain and status",
		}, []string{"chain", "status"}),
		DeployDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "duration_seconds",
			Help:      "Full deployment run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Simulation metrics
		SimulationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by terminal state",
		}, []string{"state"}),
		BidsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "bids_confirmed_total",
			Help:      "Total number of simulated bids confirmed on chain",
		}),
		BidsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "bids_failed_total",
			Help:      "Total number of simulated bids that failed or timed out",
		}),
		BidConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "bid_confirmation_latency_seconds",
			Help:      "Latency between bid submission and receipt confirmation",
			Buckets:   prometheus.DefBuckets,
		}),

		// Auction metrics
		AuctionPriceEth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "price_eth",
			Help:      "Last observed auction price in ETH per token",
		}),
		PriceSamplesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "price_samples_recorded_total",
			Help:      "Total number of price curve samples recorded",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDeploy records a completed deployment run.
func RecordDeploy(chain, status string, durationSeconds float64) {
	DefaultMetrics.DeploysTotal.WithLabelValues(chain, status).Inc()
	DefaultMetrics.DeployDuration.Observe(durationSeconds)
}

// RecordSimulationRun increments the simulation run counter for a terminal state.
func RecordSimulationRun(state string) {
	DefaultMetrics.SimulationRunsTotal.WithLabelValues(state).Inc()
}

// RecordBidConfirmed records one confirmed bid and its confirmation latency.
func RecordBidConfirmed(latencySeconds float64) {
	DefaultMetrics.BidsConfirmed.Inc()
	DefaultMetrics.BidConfirmationLatency.Observe(latencySeconds)
}

// RecordBidFailed increments the failed bid counter.
func RecordBidFailed() {
	DefaultMetrics.BidsFailed.Inc()
}

// SetAuctionPrice updates the observed auction price gauge.
func SetAuctionPrice(priceWei *big.Int) {
	if priceWei == nil {
		return
	}
	DefaultMetrics.AuctionPriceEth.Set(decimal.NewFromBigInt(priceWei, -units.Decimals).InexactFloat64())
}

// RecordPriceSamples adds to the recorded price sample counter.
func RecordPriceSamples(n int) {
	DefaultMetrics.PriceSamplesRecorded.Add(float64(n))
}
