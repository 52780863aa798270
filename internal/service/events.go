package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/engine"
)

func newEvent(typ domain.EventType, a *domain.Auction, at time.Time) domain.Event {
	return domain.Event{
		EventID:    uuid.New().String(),
		Type:       typ,
		AuctionID:  a.AuctionID,
		Resource:   a.Resource,
		OccurredAt: at,
	}
}

func bidEvent(typ domain.EventType, b *domain.Bid, at time.Time) domain.Event {
	ev := domain.Event{
		EventID:    uuid.New().String(),
		Type:       typ,
		AuctionID:  b.AuctionID,
		Resource:   b.Resource,
		OccurredAt: at,
	}
	ev.Bidder = b.Bidder
	ev.Amount = b.Amount
	return ev
}

// releaseEvent describes a bid whose whole escrow left the auction.
func releaseEvent(typ domain.EventType, b *domain.Bid, at time.Time) domain.Event {
	ev := bidEvent(typ, b, at)
	ev.EscrowOut = b.Amount
	return ev
}

func createdEvents(h engine.AuctionHandle) []domain.Event {
	return []domain.Event{{
		EventID:    uuid.New().String(),
		Type:       domain.EventAuctionCreated,
		AuctionID:  h.AuctionID,
		Resource:   h.Resource,
		OccurredAt: h.CreatedAt,
	}}
}

func startedEvents(a domain.Auction) []domain.Event {
	ev := newEvent(domain.EventAuctionStarted, &a, *a.StartedAt)
	ev.EndAt = a.EndAt
	return []domain.Event{ev}
}

// placedEvents describes a committed bid. A replacement only moves the
// difference through escrow, which EscrowIn or EscrowOut mirrors.
func placedEvents(res engine.PlaceBidResult) []domain.Event {
	a := &res.Auction
	at := res.Bid.PlacedAt

	placed := bidEvent(domain.EventBidPlaced, &res.Bid, at)
	var held uint64
	if res.Replaced != nil {
		held = res.Replaced.Amount
	}
	if res.Bid.Amount >= held {
		placed.EscrowIn = res.Bid.Amount - held
	} else {
		placed.EscrowOut = held - res.Bid.Amount
	}
	events := []domain.Event{placed}

	if res.Extended {
		ev := newEvent(domain.EventAuctionExtended, a, at)
		ev.EndAt = a.EndAt
		events = append(events, ev)
	}
	if res.Ended {
		events = append(events, endEvents(engine.EndResult{
			Auction:  res.Auction,
			Trigger:  engine.TriggerInstantSale,
			Refunded: res.Refunded,
		})...)
	}
	return events
}

func endEvents(res engine.EndResult) []domain.Event {
	a := &res.Auction
	at := *a.EndedAt

	ended := newEvent(domain.EventAuctionEnded, a, at)
	ended.EndAt = a.EndAt
	ended.Trigger = res.Trigger
	events := []domain.Event{ended}

	for i := range res.Refunded {
		b := &res.Refunded[i]
		events = append(events, releaseEvent(domain.EventBidRefunded, b, at))
	}
	return events
}

func cancelledEvents(b domain.Bid) []domain.Event {
	return []domain.Event{releaseEvent(domain.EventBidCancelled, &b, *b.CancelledAt)}
}

func claimedEvents(b domain.Bid) []domain.Event {
	return []domain.Event{releaseEvent(domain.EventBidClaimed, &b, *b.ClaimedAt)}
}
