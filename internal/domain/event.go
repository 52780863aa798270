package domain

import (
	"time"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// EventType names a committed auction transition.
type EventType string

const (
	EventAuctionCreated  EventType = "auction.created"
	EventAuctionStarted  EventType = "auction.started"
	EventAuctionExtended EventType = "auction.extended"
	EventAuctionEnded    EventType = "auction.ended"
	EventBidPlaced       EventType = "bid.placed"
	EventBidCancelled    EventType = "bid.cancelled"
	EventBidRefunded     EventType = "bid.refunded"
	EventBidClaimed      EventType = "bid.claimed"
)

// Event records one committed transition. Bidder and Amount are zero for
// auction-level events.
type Event struct {
	EventID    string
	Type       EventType
	AuctionID  string
	Resource   pubkey.PublicKey
	Bidder     pubkey.PublicKey
	Amount     uint64
	EscrowIn   uint64 // deposited into the auction's escrow by this event
	EscrowOut  uint64 // released from the auction's escrow by this event
	EndAt      *time.Time
	Trigger    string // what ended the auction, for auction.ended
	OccurredAt time.Time
}
