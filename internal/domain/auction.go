package domain

import (
	"time"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// AuctionState represents the lifecycle state of an auction.
type AuctionState string

const (
	AuctionStateCreated AuctionState = "created"
	AuctionStateStarted AuctionState = "started"
	AuctionStateEnded   AuctionState = "ended"
)

// PriceFloorKind tags the PriceFloor variant.
type PriceFloorKind uint8

const (
	PriceFloorNone PriceFloorKind = iota
	PriceFloorMinimum
)

// PriceFloor is either no minimum or a minimum accepted bid amount.
type PriceFloor struct {
	Kind   PriceFloorKind
	Amount uint64
}

// NoPriceFloor accepts any positive bid.
func NoPriceFloor() PriceFloor {
	return PriceFloor{Kind: PriceFloorNone}
}

// MinimumPrice rejects bids below amount.
func MinimumPrice(amount uint64) PriceFloor {
	return PriceFloor{Kind: PriceFloorMinimum, Amount: amount}
}

// Minimum returns the smallest acceptable bid, 0 when there is no floor.
func (p PriceFloor) Minimum() uint64 {
	switch p.Kind {
	case PriceFloorMinimum:
		return p.Amount
	default:
		return 0
	}
}

// WinnerLimitKind tags the WinnerLimit variant.
type WinnerLimitKind uint8

const (
	WinnerLimitUnlimited WinnerLimitKind = iota
	WinnerLimitCapped
)

// WinnerLimit bounds how many bids can win simultaneously.
type WinnerLimit struct {
	Kind WinnerLimitKind
	Max  int
}

// Unlimited lets every active bid win.
func Unlimited() WinnerLimit {
	return WinnerLimit{Kind: WinnerLimitUnlimited}
}

// Capped allows at most n winners.
func Capped(n int) WinnerLimit {
	return WinnerLimit{Kind: WinnerLimitCapped, Max: n}
}

// Winners returns min(limit, active).
func (w WinnerLimit) Winners(active int) int {
	switch w.Kind {
	case WinnerLimitCapped:
		if w.Max < active {
			return w.Max
		}
		return active
	default:
		return active
	}
}

// Full reports whether a book holding count bids has no free winner slot.
func (w WinnerLimit) Full(count int) bool {
	switch w.Kind {
	case WinnerLimitCapped:
		return count >= w.Max
	default:
		return false
	}
}

// Auction is the per-resource auction record. It is created once, mutated
// only through state machine transitions and retained after it ends.
type Auction struct {
	AuctionID string
	Address   pubkey.PublicKey
	Name      string

	Resource       pubkey.PublicKey
	Authority      pubkey.PublicKey
	ClaimAuthority *pubkey.PublicKey
	TokenMint      pubkey.PublicKey
	Proceeds       pubkey.PublicKey // token account credited on claim

	PriceFloor            PriceFloor
	WinnerLimit           WinnerLimit
	TickSize              *uint64
	GapTickSizePercentage *uint8
	InstantSalePrice      *uint64
	GatekeeperNetwork     *pubkey.PublicKey

	EndAt    *time.Time
	EndAfter time.Duration // resolved into EndAt at start when EndAt is nil
	EndGap   *time.Duration

	State   AuctionState
	NextSeq uint64
	Winners []pubkey.PublicKey // ranked, fixed at end
	Reveal  []byte

	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	LastBidAt *time.Time
}

// IsWinner reports whether bidder is in the final winner set.
func (a *Auction) IsWinner(bidder pubkey.PublicKey) bool {
	for _, w := range a.Winners {
		if w == bidder {
			return true
		}
	}
	return false
}

// CanClaim reports whether caller may authorize a claim.
func (a *Auction) CanClaim(caller pubkey.PublicKey) bool {
	if caller == a.Authority {
		return true
	}
	return a.ClaimAuthority != nil && *a.ClaimAuthority == caller
}

// Clone returns a deep copy safe to hand out while the original keeps
// changing under the auction lock.
func (a *Auction) Clone() Auction {
	c := *a
	if a.ClaimAuthority != nil {
		v := *a.ClaimAuthority
		c.ClaimAuthority = &v
	}
	if a.TickSize != nil {
		v := *a.TickSize
		c.TickSize = &v
	}
	if a.GapTickSizePercentage != nil {
		v := *a.GapTickSizePercentage
		c.GapTickSizePercentage = &v
	}
	if a.InstantSalePrice != nil {
		v := *a.InstantSalePrice
		c.InstantSalePrice = &v
	}
	if a.GatekeeperNetwork != nil {
		v := *a.GatekeeperNetwork
		c.GatekeeperNetwork = &v
	}
	if a.EndAt != nil {
		v := *a.EndAt
		c.EndAt = &v
	}
	if a.EndGap != nil {
		v := *a.EndGap
		c.EndGap = &v
	}
	if a.StartedAt != nil {
		v := *a.StartedAt
		c.StartedAt = &v
	}
	if a.EndedAt != nil {
		v := *a.EndedAt
		c.EndedAt = &v
	}
	if a.LastBidAt != nil {
		v := *a.LastBidAt
		c.LastBidAt = &v
	}
	if a.Winners != nil {
		c.Winners = append([]pubkey.PublicKey(nil), a.Winners...)
	}
	if a.Reveal != nil {
		c.Reveal = append([]byte(nil), a.Reveal...)
	}
	return c
}
