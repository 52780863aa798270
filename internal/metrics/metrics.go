// Package metrics provides Prometheus metrics for auction operations.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/efreitasn/ledgerauction/internal/domain"
)

// Metrics holds all Prometheus metrics for the auction service.
type Metrics struct {
	// Auction lifecycle
	AuctionsCreated prometheus.Counter
	AuctionsStarted prometheus.Counter
	AuctionsEnded   *prometheus.CounterVec
	EndExtensions   prometheus.Counter

	// Bids
	BidsPlaced    prometheus.Counter
	BidsRejected  *prometheus.CounterVec
	BidsCancelled prometheus.Counter
	BidsRefunded  prometheus.Counter
	BidsClaimed   prometheus.Counter

	// Operations
	OperationsRejected *prometheus.CounterVec

	// Escrow
	EscrowBalance prometheus.Gauge
}

// New creates a Metrics instance registered with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ledgerauction"
	}
	factory := promauto.With(reg)

	return &Metrics{
		AuctionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_created_total",
			Help:      "Total number of auctions created",
		}),
		AuctionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_started_total",
			Help:      "Total number of auctions started",
		}),
		AuctionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_ended_total",
			Help:      "Total number of auctions ended by trigger",
		}, []string{"trigger"}),
		EndExtensions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "end_extensions_total",
			Help:      "Total number of end time extensions caused by late bids",
		}),
		BidsPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_placed_total",
			Help:      "Total number of bids placed",
		}),
		BidsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_rejected_total",
			Help:      "Total number of bids rejected by reason",
		}, []string{"reason"}),
		BidsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_cancelled_total",
			Help:      "Total number of bids cancelled by their bidder",
		}),
		BidsRefunded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_refunded_total",
			Help:      "Total number of losing bids refunded at end",
		}),
		BidsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_claimed_total",
			Help:      "Total number of winning bids claimed",
		}),
		OperationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_rejected_total",
			Help:      "Total number of rejected operations by operation and reason",
		}, []string{"operation", "reason"}),
		EscrowBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "escrow_balance",
			Help:      "Sum of active bid amounts held in escrow across auctions",
		}),
	}
}

// Record updates the metrics for a committed event.
func (m *Metrics) Record(_ context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventAuctionCreated:
		m.AuctionsCreated.Inc()
	case domain.EventAuctionStarted:
		m.AuctionsStarted.Inc()
	case domain.EventAuctionExtended:
		m.EndExtensions.Inc()
	case domain.EventAuctionEnded:
		m.AuctionsEnded.WithLabelValues(ev.Trigger).Inc()
	case domain.EventBidPlaced:
		m.BidsPlaced.Inc()
	case domain.EventBidCancelled:
		m.BidsCancelled.Inc()
	case domain.EventBidRefunded:
		m.BidsRefunded.Inc()
	case domain.EventBidClaimed:
		m.BidsClaimed.Inc()
	}
	if ev.EscrowIn != 0 {
		m.EscrowBalance.Add(float64(ev.EscrowIn))
	}
	if ev.EscrowOut != 0 {
		m.EscrowBalance.Sub(float64(ev.EscrowOut))
	}
	return nil
}

// RecordRejection counts a rejected operation under the reason of err.
func (m *Metrics) RecordRejection(operation string, err error) {
	reason := domain.Reason(err)
	m.OperationsRejected.WithLabelValues(operation, reason).Inc()
	if operation == "place_bid" {
		m.BidsRejected.WithLabelValues(reason).Inc()
	}
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
