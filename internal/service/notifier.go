package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/engine"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// Sink receives committed auction events.
type Sink interface {
	Record(ctx context.Context, ev domain.Event) error
}

type namedSink struct {
	name string
	sink Sink
}

// Notifier fans committed events out to every registered sink, in the
// order they were registered. A failing sink is logged and skipped; the
// operation that produced the event stays committed.
type Notifier struct {
	logger *slog.Logger
	sinks  []namedSink
	mu     sync.RWMutex
}

// NewNotifier creates a Notifier with no sinks.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Register adds a sink under name.
func (n *Notifier) Register(name string, sink Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, namedSink{name: name, sink: sink})
}

// Publish delivers events to every sink.
func (n *Notifier) Publish(ctx context.Context, events ...domain.Event) {
	n.mu.RLock()
	sinks := n.sinks
	n.mu.RUnlock()

	for _, ev := range events {
		for _, s := range sinks {
			if err := s.sink.Record(ctx, ev); err != nil {
				n.logger.Error("event sink failed",
					slog.String("sink", s.name),
					slog.String("event", string(ev.Type)),
					slog.String("event_id", ev.EventID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// AuctionClosed publishes the events of an auction ended on schedule.
func (n *Notifier) AuctionClosed(res engine.EndResult) {
	n.logger.Info("auction ended",
		slog.String("resource", res.Auction.Resource.String()),
		slog.String("auction_id", res.Auction.AuctionID),
		slog.String("trigger", res.Trigger),
		slog.Int("winners", len(res.Auction.Winners)),
	)
	n.Publish(context.Background(), endEvents(res)...)
}

// CloseFailed logs a scheduled end that could not be committed.
func (n *Notifier) CloseFailed(resource pubkey.PublicKey, err error) {
	n.logger.Error("scheduled end failed",
		slog.String("resource", resource.String()),
		slog.String("reason", domain.Reason(err)),
		slog.String("error", err.Error()),
	)
}
