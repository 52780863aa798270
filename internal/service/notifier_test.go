package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/engine"
	"github.com/efreitasn/ledgerauction/internal/store"
)

func TestNotifier_FailingSinkDoesNotBlockOthers(t *testing.T) {
	var logs bytes.Buffer
	n := NewNotifier(slog.New(slog.NewJSONHandler(&logs, nil)))
	events := store.NewEventStore()
	n.Register("broken", failingSink{})
	n.Register("events", events)

	n.Publish(context.Background(), domain.Event{EventID: "e-1", Type: domain.EventAuctionCreated, Resource: resource})

	if got := events.ListByResource(resource); len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"sink":"broken"`)) {
		t.Errorf("expected sink failure to be logged, got %s", logs.String())
	}
}

func TestNotifier_AuctionClosed(t *testing.T) {
	n := NewNotifier(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	events := store.NewEventStore()
	n.Register("events", events)

	endAt := baseTime.Add(time.Hour)
	endedAt := endAt.Add(time.Second)
	n.AuctionClosed(engine.EndResult{
		Auction: domain.Auction{
			AuctionID: "a-1",
			Resource:  resource,
			EndAt:     &endAt,
			EndedAt:   &endedAt,
		},
		Trigger: engine.TriggerSchedule,
		Refunded: []domain.Bid{
			{AuctionID: "a-1", Resource: resource, Bidder: alice, Amount: 40},
		},
	})

	got := events.ListByResource(resource)
	if !equalTypes(eventTypes(got), domain.EventAuctionEnded, domain.EventBidRefunded) {
		t.Fatalf("unexpected events %v", eventTypes(got))
	}
	if got[0].Trigger != engine.TriggerSchedule || !got[0].OccurredAt.Equal(endedAt) {
		t.Errorf("unexpected ended event %+v", got[0])
	}
	if got[1].EscrowOut != 40 || got[1].Bidder != alice {
		t.Errorf("unexpected refund event %+v", got[1])
	}
}

func TestNotifier_CloseFailed(t *testing.T) {
	var logs bytes.Buffer
	n := NewNotifier(slog.New(slog.NewJSONHandler(&logs, nil)))

	n.CloseFailed(resource, errors.New("boom"))

	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"scheduled end failed"`)) {
		t.Errorf("expected failure to be logged, got %s", logs.String())
	}
}
