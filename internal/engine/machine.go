package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
	"github.com/efreitasn/ledgerauction/internal/store"
)

// End triggers reported in EndResult and auction.ended events.
const (
	TriggerAuthority   = "authority"
	TriggerInstantSale = "instant_sale"
	TriggerSchedule    = "schedule"
)

var (
	auctionPrefix  = []byte("auction")
	metadataSuffix = []byte("metadata")
)

// Ledger is the account adapter escrow moves and records are written
// through. Transfer must apply all of its transfers or none.
type Ledger interface {
	Read(id pubkey.PublicKey) (domain.Record, error)
	Write(id pubkey.PublicKey, rec domain.Record) error
	Transfer(transfers ...domain.Transfer) error
}

// Verifier checks a gateway token presented by a bidder on a gated auction.
type Verifier interface {
	Verify(token, network, owner pubkey.PublicKey) bool
}

// Options tunes a Machine.
type Options struct {
	ProgramID        pubkey.PublicKey
	BookDegree       int
	AutoRefundLosers bool // refund losing bids inside End instead of leaving them to CancelBid
}

// AuctionHandle identifies a freshly created auction.
type AuctionHandle struct {
	AuctionID string
	Resource  pubkey.PublicKey
	Address   pubkey.PublicKey
	CreatedAt time.Time
}

// PlaceBidArgs carries a bid request. GatewayToken is required only on
// auctions with a gatekeeper network.
type PlaceBidArgs struct {
	Resource     pubkey.PublicKey
	Bidder       pubkey.PublicKey
	Amount       uint64
	GatewayToken *pubkey.PublicKey
}

// PlaceBidResult describes a committed bid.
type PlaceBidResult struct {
	Bid      domain.Bid
	Replaced *domain.Bid // the bidder's previous active bid, if any
	Auction  domain.Auction
	Extended bool // end_at was pushed forward
	Ended    bool // the bid hit the instant sale price
	Refunded []domain.Bid
}

// EndResult describes a committed end of auction.
type EndResult struct {
	Auction  domain.Auction
	Trigger  string
	Refunded []domain.Bid
}

// Machine runs the auction lifecycle. Every operation locks the target
// auction for its whole duration, validates everything before moving any
// funds, and commits in-memory state only after the ledger accepted the
// operation's transfers.
type Machine struct {
	registry *Registry
	ledger   Ledger
	verifier Verifier
	bids     *store.BidStore
	clock    Clock
	opts     Options
}

// NewMachine creates a Machine with the given dependencies. verifier may
// be nil, in which case gated auctions reject every bid.
func NewMachine(ledger Ledger, verifier Verifier, bids *store.BidStore, clock Clock, opts Options) *Machine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Machine{
		registry: NewRegistry(opts.BookDegree),
		ledger:   ledger,
		verifier: verifier,
		bids:     bids,
		clock:    clock,
		opts:     opts,
	}
}

// Create validates cfg and registers a new auction in the Created state.
// No funds move.
func (m *Machine) Create(cfg domain.AuctionConfig) (AuctionHandle, error) {
	if err := cfg.Validate(); err != nil {
		return AuctionHandle{}, err
	}

	id := uuid.New()
	address, _, err := pubkey.FindProgramAddress(m.seeds(cfg.Resource, id), m.opts.ProgramID)
	if err != nil {
		return AuctionHandle{}, fmt.Errorf("derive auction address: %w", err)
	}

	proceeds := cfg.Proceeds
	if proceeds.IsZero() {
		proceeds = cfg.Authority
	}

	draft := domain.Auction{
		AuctionID:             id.String(),
		Address:               address,
		Name:                  cfg.Name,
		Resource:              cfg.Resource,
		Authority:             cfg.Authority,
		ClaimAuthority:        cfg.ClaimAuthority,
		TokenMint:             cfg.TokenMint,
		Proceeds:              proceeds,
		PriceFloor:            cfg.PriceFloor,
		WinnerLimit:           cfg.WinnerLimit,
		TickSize:              cfg.TickSize,
		GapTickSizePercentage: cfg.GapTickSizePercentage,
		InstantSalePrice:      cfg.InstantSalePrice,
		GatekeeperNetwork:     cfg.GatekeeperNetwork,
		EndAt:                 cfg.EndAt,
		EndAfter:              cfg.EndAfter,
		EndGap:                cfg.EndGap,
		State:                 domain.AuctionStateCreated,
		CreatedAt:             m.clock.Now(),
	}
	// Detach from the caller's pointers.
	a := draft.Clone()

	err = m.registry.install(&a, func() error {
		writes, err := m.records(&a)
		if err != nil {
			return err
		}
		return m.apply(nil, writes)
	})
	if err != nil {
		return AuctionHandle{}, err
	}

	return AuctionHandle{
		AuctionID: a.AuctionID,
		Resource:  a.Resource,
		Address:   a.Address,
		CreatedAt: a.CreatedAt,
	}, nil
}

// Get returns the live auction of a resource.
func (m *Machine) Get(resource pubkey.PublicKey) (domain.Auction, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return domain.Auction{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.auction.Clone(), nil
}

// Bids returns the active bids of an auction in rank order.
func (m *Machine) Bids(resource pubkey.PublicKey) ([]domain.Bid, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshot(e.book.Rank()), nil
}

// Winners returns the final winner set of an ended auction, or the bids
// currently inside the winner window of a running one.
func (m *Machine) Winners(resource pubkey.PublicKey) ([]domain.Bid, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.auction.State != domain.AuctionStateEnded {
		return e.snapshot(e.book.Winners(e.auction.WinnerLimit)), nil
	}
	result := make([]domain.Bid, 0, len(e.auction.Winners))
	for _, bidder := range e.auction.Winners {
		result = append(result, e.bids[bidder].Clone())
	}
	return result, nil
}

// BidderBids returns every bid record of a bidder, newest first.
func (m *Machine) BidderBids(bidder pubkey.PublicKey) []domain.Bid {
	return m.bids.ListByBidder(bidder)
}

// History returns the settled auctions a resource went through before its
// current one.
func (m *Machine) History(resource pubkey.PublicKey) []domain.Auction {
	return m.registry.History(resource)
}

// Start opens an auction for bidding. A relative end time is resolved
// against the current time here.
func (m *Machine) Start(resource, caller pubkey.PublicKey) (domain.Auction, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return domain.Auction{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.auction
	if caller != a.Authority {
		return domain.Auction{}, domain.ErrUnauthorized
	}
	if a.State != domain.AuctionStateCreated {
		return domain.Auction{}, domain.ErrInvalidState
	}

	now := m.clock.Now()
	next := a.Clone()
	if next.EndAt == nil {
		if next.EndAfter <= 0 {
			return domain.Auction{}, domain.ErrMissingEndTime
		}
		end := now.Add(next.EndAfter)
		next.EndAt = &end
	}
	next.State = domain.AuctionStateStarted
	next.StartedAt = &now

	writes, err := m.records(&next)
	if err != nil {
		return domain.Auction{}, err
	}
	if err := m.apply(nil, writes); err != nil {
		return domain.Auction{}, fmt.Errorf("start: %w", err)
	}

	*e.auction = next
	return next.Clone(), nil
}

// PlaceBid admits a bid, escrows its amount and ranks it. A bidder's
// previous active bid is replaced, with only the difference moving
// through escrow. A bid close to the end pushes end_at forward by the end
// gap; a bid at or above the instant sale price ends the auction in the
// same operation.
func (m *Machine) PlaceBid(args PlaceBidArgs) (PlaceBidResult, error) {
	e, err := m.registry.lookup(args.Resource)
	if err != nil {
		return PlaceBidResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.auction
	now := m.clock.Now()

	if a.State != domain.AuctionStateStarted || !now.Before(*a.EndAt) {
		return PlaceBidResult{}, domain.ErrAuctionClosed
	}
	if a.GatekeeperNetwork != nil {
		if args.GatewayToken == nil || m.verifier == nil ||
			!m.verifier.Verify(*args.GatewayToken, *a.GatekeeperNetwork, args.Bidder) {
			return PlaceBidResult{}, domain.ErrUnverified
		}
	}
	if err := qualify(a, e.book, args.Bidder, args.Amount); err != nil {
		return PlaceBidResult{}, err
	}

	var prev *domain.Bid
	if b, ok := e.bids[args.Bidder]; ok && b.Status == domain.BidStatusActive {
		c := b.Clone()
		prev = &c
	}

	pot, err := m.potAddress(a, args.Bidder)
	if err != nil {
		return PlaceBidResult{}, err
	}

	next := a.Clone()
	bid := &domain.Bid{
		AuctionID: a.AuctionID,
		Resource:  a.Resource,
		Bidder:    args.Bidder,
		Pot:       pot,
		Amount:    args.Amount,
		Seq:       next.NextSeq,
		PlacedAt:  now,
		Status:    domain.BidStatusActive,
	}
	next.NextSeq++
	next.LastBidAt = &now
	transfers := escrowTransfers(&next, bid, prev)

	e.book.Upsert(bid.Bidder, bid.Amount, bid.Seq)
	undo := func() {
		if prev != nil {
			e.book.Upsert(prev.Bidder, prev.Amount, prev.Seq)
		} else {
			e.book.Remove(bid.Bidder)
		}
	}

	result := PlaceBidResult{}
	var refunded []*domain.Bid
	if next.InstantSalePrice != nil && bid.Amount >= *next.InstantSalePrice {
		var refunds []domain.Transfer
		refunds, refunded = m.close(e, &next, now, nil, bid)
		transfers = append(transfers, refunds...)
		result.Ended = true
	} else if next.EndGap != nil && next.EndAt.Sub(now) <= *next.EndGap {
		end := next.EndAt.Add(*next.EndGap)
		next.EndAt = &end
		result.Extended = true
	}

	writes, err := m.records(&next, append([]*domain.Bid{bid}, refunded...)...)
	if err != nil {
		undo()
		return PlaceBidResult{}, err
	}
	if err := m.apply(transfers, writes); err != nil {
		undo()
		return PlaceBidResult{}, fmt.Errorf("place bid: %w", err)
	}

	*e.auction = next
	m.commitBids(e, bid)
	m.commitBids(e, refunded...)

	result.Bid = bid.Clone()
	result.Replaced = prev
	result.Auction = next.Clone()
	result.Refunded = cloneBids(refunded)
	return result, nil
}

// End closes an auction whose end time has passed and fixes its winner
// set. reveal is stored as-is.
func (m *Machine) End(resource, caller pubkey.PublicKey, reveal []byte) (EndResult, error) {
	return m.end(resource, caller, reveal, TriggerAuthority)
}

func (m *Machine) end(resource, caller pubkey.PublicKey, reveal []byte, trigger string) (EndResult, error) {
	e, err := m.registry.lookup(resource)
	if err != nil {
		return EndResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.auction
	if caller != a.Authority {
		return EndResult{}, domain.ErrUnauthorized
	}
	if a.State != domain.AuctionStateStarted {
		return EndResult{}, domain.ErrInvalidState
	}
	now := m.clock.Now()
	if now.Before(*a.EndAt) {
		return EndResult{}, domain.ErrEndTimeNotReached
	}

	next := a.Clone()
	transfers, refunded := m.close(e, &next, now, reveal, nil)

	writes, err := m.records(&next, refunded...)
	if err != nil {
		return EndResult{}, err
	}
	if err := m.apply(transfers, writes); err != nil {
		return EndResult{}, fmt.Errorf("end: %w", err)
	}

	*e.auction = next
	m.commitBids(e, refunded...)

	return EndResult{
		Auction:  next.Clone(),
		Trigger:  trigger,
		Refunded: cloneBids(refunded),
	}, nil
}

// close fixes the winner set of next from the current book and marks it
// Ended. The winners are the top min(limit, count) entries of the book, as
// for End; an instant sale closes with the triggering bid already in the
// book, so the buyer does not displace lower bids when the limit has room.
// When losers are auto-refunded it also returns their refund transfers and
// cancelled copies. pending stands in for the entry of a bid that is not
// committed yet.
func (m *Machine) close(e *auctionEntry, next *domain.Auction, now time.Time, reveal []byte, pending *domain.Bid) ([]domain.Transfer, []*domain.Bid) {
	ranked := e.book.Rank()
	n := next.WinnerLimit.Winners(len(ranked))

	next.Winners = make([]pubkey.PublicKey, n)
	for i := 0; i < n; i++ {
		next.Winners[i] = ranked[i].Bidder
	}
	next.State = domain.AuctionStateEnded
	next.EndedAt = &now
	if reveal != nil {
		next.Reveal = append([]byte(nil), reveal...)
	}

	if !m.opts.AutoRefundLosers {
		return nil, nil
	}

	var transfers []domain.Transfer
	var refunded []*domain.Bid
	for _, entry := range ranked[n:] {
		b := e.bids[entry.Bidder]
		if pending != nil && pending.Bidder == entry.Bidder {
			b = pending
		}
		r := b.Clone()
		cancelledAt := now
		r.Status = domain.BidStatusCancelled
		r.CancelledAt = &cancelledAt
		transfers = append(transfers, refundTransfer(next, &r))
		refunded = append(refunded, &r)
	}
	return transfers, refunded
}

// qualify checks amount against the qualifying threshold: the price floor
// and, once the winner window is full, the configured increments over the
// lowest bid inside it. The bidder's own entry does not count, since it is
// about to be replaced.
func qualify(a *domain.Auction, book *BidBook, bidder pubkey.PublicKey, amount uint64) error {
	if amount == 0 || amount < a.PriceFloor.Minimum() {
		return domain.ErrBidTooLow
	}
	if cutoff, full := book.Cutoff(a.WinnerLimit, bidder); full {
		if amount < domain.MinimumOutbid(cutoff.Amount, a.TickSize, a.GapTickSizePercentage) {
			return domain.ErrBidTooLow
		}
	}
	return nil
}

// escrowTransfers nets a replacement into a single movement of the
// difference between the new amount and what the pot already holds. A
// deposit opens the pot for the auction if it does not exist yet.
func escrowTransfers(a *domain.Auction, bid, prev *domain.Bid) []domain.Transfer {
	var held uint64
	if prev != nil {
		held = prev.Amount
	}
	switch {
	case bid.Amount > held:
		return []domain.Transfer{{
			Mint:      a.TokenMint,
			From:      bid.Bidder,
			To:        bid.Pot,
			Authority: bid.Bidder,
			Amount:    bid.Amount - held,
			ToOwner:   &a.Address,
		}}
	case bid.Amount < held:
		return []domain.Transfer{{
			Mint:      a.TokenMint,
			From:      bid.Pot,
			To:        bid.Bidder,
			Authority: a.Address,
			Amount:    held - bid.Amount,
		}}
	}
	return nil
}

// refundTransfer returns a bid's whole escrow to its bidder.
func refundTransfer(a *domain.Auction, b *domain.Bid) domain.Transfer {
	return domain.Transfer{
		Mint:      a.TokenMint,
		From:      b.Pot,
		To:        b.Bidder,
		Authority: a.Address,
		Amount:    b.Amount,
	}
}

// commitBids stores committed bid records. Bids that are no longer active
// leave the book.
func (m *Machine) commitBids(e *auctionEntry, bids ...*domain.Bid) {
	for _, b := range bids {
		if b.Status != domain.BidStatusActive {
			e.book.Remove(b.Bidder)
		}
		e.bids[b.Bidder] = b
		m.bids.Save(*b)
	}
}

// snapshot copies the bid records behind a list of book entries.
func (e *auctionEntry) snapshot(entries []BookEntry) []domain.Bid {
	result := make([]domain.Bid, 0, len(entries))
	for _, entry := range entries {
		result = append(result, e.bids[entry.Bidder].Clone())
	}
	return result
}

func cloneBids(bids []*domain.Bid) []domain.Bid {
	if len(bids) == 0 {
		return nil
	}
	result := make([]domain.Bid, len(bids))
	for i, b := range bids {
		result[i] = b.Clone()
	}
	return result
}
