package domain

import (
	"time"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// BidStatus represents the lifecycle state of a bid.
type BidStatus string

const (
	BidStatusActive    BidStatus = "active"
	BidStatusCancelled BidStatus = "cancelled"
	BidStatusClaimed   BidStatus = "claimed"
)

// Bid is a bidder's escrowed offer on one auction. A bidder holds at most
// one Active bid per auction.
type Bid struct {
	AuctionID string
	Resource  pubkey.PublicKey
	Bidder    pubkey.PublicKey
	Pot       pubkey.PublicKey // escrow account holding Amount
	Amount    uint64
	Seq       uint64 // insertion sequence, breaks ties between equal amounts
	PlacedAt  time.Time
	Status    BidStatus

	CancelledAt *time.Time
	ClaimedAt   *time.Time
}

// Clone returns a copy that shares no pointers with b.
func (b *Bid) Clone() Bid {
	c := *b
	if b.CancelledAt != nil {
		v := *b.CancelledAt
		c.CancelledAt = &v
	}
	if b.ClaimedAt != nil {
		v := *b.ClaimedAt
		c.ClaimedAt = &v
	}
	return c
}
