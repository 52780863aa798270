package engine

import (
	"fmt"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// CancelBid withdraws a bidder's active bid and refunds its escrow. A
// winning bid cannot be withdrawn once the auction has ended.
func (m *Machine) CancelBid(resource, bidder pubkey.PublicKey) (domain.Bid, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return domain.Bid{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.auction
	b, ok := e.bids[bidder]
	if !ok {
		return domain.Bid{}, domain.ErrNotFound
	}
	if b.Status != domain.BidStatusActive {
		return domain.Bid{}, domain.ErrCancelNotAllowed
	}
	if a.State == domain.AuctionStateEnded && a.IsWinner(bidder) {
		return domain.Bid{}, domain.ErrCancelNotAllowed
	}

	now := m.clock.Now()
	next := b.Clone()
	next.Status = domain.BidStatusCancelled
	next.CancelledAt = &now

	writes, err := m.records(a, &next)
	if err != nil {
		return domain.Bid{}, err
	}
	if err := m.apply([]domain.Transfer{refundTransfer(a, b)}, writes); err != nil {
		return domain.Bid{}, fmt.Errorf("cancel bid: %w", err)
	}

	m.commitBids(e, &next)
	return next.Clone(), nil
}

// Claim settles a winning bid: its escrow moves to the auction's proceeds
// account and the bid is marked Claimed. caller must be the authority or
// the claim authority.
func (m *Machine) Claim(resource, bidder, caller pubkey.PublicKey) (domain.Bid, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return domain.Bid{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.auction
	if a.State != domain.AuctionStateEnded {
		return domain.Bid{}, domain.ErrInvalidState
	}
	if !a.CanClaim(caller) {
		return domain.Bid{}, domain.ErrUnauthorized
	}
	b, ok := e.bids[bidder]
	if !ok {
		return domain.Bid{}, domain.ErrNotFound
	}
	if b.Status == domain.BidStatusClaimed {
		return domain.Bid{}, domain.ErrAlreadyClaimed
	}
	if b.Status != domain.BidStatusActive || !a.IsWinner(bidder) {
		return domain.Bid{}, domain.ErrNotWinner
	}

	now := m.clock.Now()
	next := b.Clone()
	next.Status = domain.BidStatusClaimed
	next.ClaimedAt = &now

	payout := domain.Transfer{
		Mint:      a.TokenMint,
		From:      b.Pot,
		To:        a.Proceeds,
		Authority: a.Address,
		Amount:    b.Amount,
	}
	writes, err := m.records(a, &next)
	if err != nil {
		return domain.Bid{}, err
	}
	if err := m.apply([]domain.Transfer{payout}, writes); err != nil {
		return domain.Bid{}, fmt.Errorf("claim: %w", err)
	}

	m.commitBids(e, &next)
	return next.Clone(), nil
}
