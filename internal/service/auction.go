package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/engine"
	"github.com/efreitasn/ledgerauction/internal/metrics"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
	"github.com/efreitasn/ledgerauction/internal/store"
)

// Operation names used in logs and rejection metrics.
const (
	OpCreate    = "create"
	OpStart     = "start"
	OpPlaceBid  = "place_bid"
	OpCancelBid = "cancel_bid"
	OpEnd       = "end"
	OpClaim     = "claim"
)

// Scheduler tracks started auctions so they can be ended on time.
type Scheduler interface {
	Track(resource pubkey.PublicKey, endAt time.Time)
	Forget(resource pubkey.PublicKey)
}

// CreateAuctionRequest represents the input for auction creation. Keys are
// base58 strings; optional keys are empty when unset.
type CreateAuctionRequest struct {
	Name              string
	Resource          string
	Authority         string
	ClaimAuthority    string
	TokenMint         string
	Proceeds          string
	GatekeeperNetwork string

	MinimumPrice          *uint64 // nil means no price floor
	MaxWinners            *int    // nil means unlimited
	TickSize              *uint64
	GapTickSizePercentage *uint8
	InstantSalePrice      *uint64

	EndAt    *time.Time
	EndAfter time.Duration
	EndGap   *time.Duration
}

// PlaceBidRequest represents the input for a bid.
type PlaceBidRequest struct {
	Resource     string
	Bidder       string
	Amount       uint64
	GatewayToken string
}

// AuctionService validates requests, drives the state machine and
// publishes an event for every committed transition.
type AuctionService struct {
	machine   *engine.Machine
	events    *store.EventStore
	notifier  *Notifier
	scheduler Scheduler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAuctionService creates a new AuctionService. scheduler and m may be nil.
func NewAuctionService(
	machine *engine.Machine,
	events *store.EventStore,
	notifier *Notifier,
	scheduler Scheduler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuctionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuctionService{
		machine:   machine,
		events:    events,
		notifier:  notifier,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
	}
}

// CreateAuction validates the request and registers a new auction.
func (s *AuctionService) CreateAuction(ctx context.Context, req CreateAuctionRequest) (engine.AuctionHandle, error) {
	cfg, err := req.config()
	if err != nil {
		return engine.AuctionHandle{}, s.reject(OpCreate, req.Resource, err)
	}

	h, err := s.machine.Create(cfg)
	if err != nil {
		return engine.AuctionHandle{}, s.reject(OpCreate, req.Resource, err)
	}

	s.logger.Info("auction created",
		slog.String("resource", h.Resource.String()),
		slog.String("auction_id", h.AuctionID),
		slog.String("address", h.Address.String()),
	)
	s.notifier.Publish(ctx, createdEvents(h)...)
	return h, nil
}

func (r CreateAuctionRequest) config() (domain.AuctionConfig, error) {
	cfg := domain.AuctionConfig{
		Name:                  r.Name,
		PriceFloor:            domain.NoPriceFloor(),
		WinnerLimit:           domain.Unlimited(),
		TickSize:              r.TickSize,
		GapTickSizePercentage: r.GapTickSizePercentage,
		InstantSalePrice:      r.InstantSalePrice,
		EndAt:                 r.EndAt,
		EndAfter:              r.EndAfter,
		EndGap:                r.EndGap,
	}
	var err error
	if cfg.Resource, err = parseKey("resource", r.Resource); err != nil {
		return cfg, err
	}
	if cfg.Authority, err = parseKey("authority", r.Authority); err != nil {
		return cfg, err
	}
	if cfg.TokenMint, err = parseKey("token_mint", r.TokenMint); err != nil {
		return cfg, err
	}
	if cfg.ClaimAuthority, err = parseOptionalKey("claim_authority", r.ClaimAuthority); err != nil {
		return cfg, err
	}
	if cfg.GatekeeperNetwork, err = parseOptionalKey("gatekeeper_network", r.GatekeeperNetwork); err != nil {
		return cfg, err
	}
	proceeds, err := parseOptionalKey("proceeds", r.Proceeds)
	if err != nil {
		return cfg, err
	}
	if proceeds != nil {
		cfg.Proceeds = *proceeds
	}
	if r.MinimumPrice != nil {
		cfg.PriceFloor = domain.MinimumPrice(*r.MinimumPrice)
	}
	if r.MaxWinners != nil {
		cfg.WinnerLimit = domain.Capped(*r.MaxWinners)
	}
	return cfg, nil
}

// StartAuction opens an auction for bidding and schedules its end.
func (s *AuctionService) StartAuction(ctx context.Context, resource, caller string) (domain.Auction, error) {
	res, who, err := parseKeys("resource", resource, "caller", caller)
	if err != nil {
		return domain.Auction{}, s.reject(OpStart, resource, err)
	}

	a, err := s.machine.Start(res, who)
	if err != nil {
		return domain.Auction{}, s.reject(OpStart, resource, err)
	}

	s.logger.Info("auction started",
		slog.String("resource", resource),
		slog.String("auction_id", a.AuctionID),
		slog.Time("end_at", *a.EndAt),
	)
	s.track(a)
	s.notifier.Publish(ctx, startedEvents(a)...)
	return a, nil
}

// PlaceBid validates the request and submits the bid.
func (s *AuctionService) PlaceBid(ctx context.Context, req PlaceBidRequest) (engine.PlaceBidResult, error) {
	res, bidder, err := parseKeys("resource", req.Resource, "bidder", req.Bidder)
	if err != nil {
		return engine.PlaceBidResult{}, s.reject(OpPlaceBid, req.Resource, err)
	}
	token, err := parseOptionalKey("gateway_token", req.GatewayToken)
	if err != nil {
		return engine.PlaceBidResult{}, s.reject(OpPlaceBid, req.Resource, err)
	}

	result, err := s.machine.PlaceBid(engine.PlaceBidArgs{
		Resource:     res,
		Bidder:       bidder,
		Amount:       req.Amount,
		GatewayToken: token,
	})
	if err != nil {
		return engine.PlaceBidResult{}, s.reject(OpPlaceBid, req.Resource, err)
	}

	s.logger.Info("bid placed",
		slog.String("resource", req.Resource),
		slog.String("bidder", req.Bidder),
		slog.Uint64("amount", req.Amount),
		slog.Bool("replaced", result.Replaced != nil),
		slog.Bool("extended", result.Extended),
		slog.Bool("ended", result.Ended),
	)
	switch {
	case result.Ended:
		s.forget(res)
	case result.Extended:
		s.track(result.Auction)
	}
	s.notifier.Publish(ctx, placedEvents(result)...)
	return result, nil
}

// CancelBid withdraws a bid and refunds its escrow.
func (s *AuctionService) CancelBid(ctx context.Context, resource, bidder string) (domain.Bid, error) {
	res, who, err := parseKeys("resource", resource, "bidder", bidder)
	if err != nil {
		return domain.Bid{}, s.reject(OpCancelBid, resource, err)
	}

	b, err := s.machine.CancelBid(res, who)
	if err != nil {
		return domain.Bid{}, s.reject(OpCancelBid, resource, err)
	}

	s.logger.Info("bid cancelled",
		slog.String("resource", resource),
		slog.String("bidder", bidder),
		slog.Uint64("amount", b.Amount),
	)
	s.notifier.Publish(ctx, cancelledEvents(b)...)
	return b, nil
}

// EndAuction ends an auction on behalf of its authority.
func (s *AuctionService) EndAuction(ctx context.Context, resource, caller string, reveal []byte) (engine.EndResult, error) {
	res, who, err := parseKeys("resource", resource, "caller", caller)
	if err != nil {
		return engine.EndResult{}, s.reject(OpEnd, resource, err)
	}

	result, err := s.machine.End(res, who, reveal)
	if err != nil {
		return engine.EndResult{}, s.reject(OpEnd, resource, err)
	}

	s.logger.Info("auction ended",
		slog.String("resource", resource),
		slog.String("auction_id", result.Auction.AuctionID),
		slog.String("trigger", result.Trigger),
		slog.Int("winners", len(result.Auction.Winners)),
		slog.Int("refunded", len(result.Refunded)),
	)
	s.forget(res)
	s.notifier.Publish(ctx, endEvents(result)...)
	return result, nil
}

// Claim pays a winning bid out to the auction's proceeds account.
func (s *AuctionService) Claim(ctx context.Context, resource, bidder, caller string) (domain.Bid, error) {
	res, who, err := parseKeys("resource", resource, "bidder", bidder)
	if err != nil {
		return domain.Bid{}, s.reject(OpClaim, resource, err)
	}
	by, err := parseKey("caller", caller)
	if err != nil {
		return domain.Bid{}, s.reject(OpClaim, resource, err)
	}

	b, err := s.machine.Claim(res, who, by)
	if err != nil {
		return domain.Bid{}, s.reject(OpClaim, resource, err)
	}

	s.logger.Info("bid claimed",
		slog.String("resource", resource),
		slog.String("bidder", bidder),
		slog.Uint64("amount", b.Amount),
	)
	s.notifier.Publish(ctx, claimedEvents(b)...)
	return b, nil
}

// GetAuction returns the live auction of a resource.
func (s *AuctionService) GetAuction(resource string) (domain.Auction, error) {
	res, err := parseKey("resource", resource)
	if err != nil {
		return domain.Auction{}, err
	}
	return s.machine.Get(res)
}

// Bids returns the active bids of an auction in rank order.
func (s *AuctionService) Bids(resource string) ([]domain.Bid, error) {
	res, err := parseKey("resource", resource)
	if err != nil {
		return nil, err
	}
	return s.machine.Bids(res)
}

// Winners returns the winners of an ended auction, or the bids currently
// inside the winner window.
func (s *AuctionService) Winners(resource string) ([]domain.Bid, error) {
	res, err := parseKey("resource", resource)
	if err != nil {
		return nil, err
	}
	return s.machine.Winners(res)
}

// BidderBids returns every bid record of a bidder, newest first.
func (s *AuctionService) BidderBids(bidder string) ([]domain.Bid, error) {
	who, err := parseKey("bidder", bidder)
	if err != nil {
		return nil, err
	}
	return s.machine.BidderBids(who), nil
}

// History returns the settled auctions a resource went through before its
// current one.
func (s *AuctionService) History(resource string) ([]domain.Auction, error) {
	res, err := parseKey("resource", resource)
	if err != nil {
		return nil, err
	}
	return s.machine.History(res), nil
}

// Events returns the committed events of a resource in order.
func (s *AuctionService) Events(resource string) ([]domain.Event, error) {
	res, err := parseKey("resource", resource)
	if err != nil {
		return nil, err
	}
	return s.events.ListByResource(res), nil
}

func (s *AuctionService) reject(op, resource string, err error) error {
	reason := domain.Reason(err)
	s.logger.Debug("operation rejected",
		slog.String("operation", op),
		slog.String("resource", resource),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	if s.metrics != nil {
		s.metrics.RecordRejection(op, err)
	}
	return err
}

func (s *AuctionService) track(a domain.Auction) {
	if s.scheduler != nil && a.EndAt != nil {
		s.scheduler.Track(a.Resource, *a.EndAt)
	}
}

func (s *AuctionService) forget(resource pubkey.PublicKey) {
	if s.scheduler != nil {
		s.scheduler.Forget(resource)
	}
}

func parseKey(field, s string) (pubkey.PublicKey, error) {
	if s == "" {
		return pubkey.PublicKey{}, &domain.ValidationError{Message: field + " is required"}
	}
	pk, err := pubkey.Parse(s)
	if err != nil {
		return pubkey.PublicKey{}, &domain.ValidationError{Message: field + " must be a base58 encoded 32-byte key"}
	}
	return pk, nil
}

func parseOptionalKey(field, s string) (*pubkey.PublicKey, error) {
	if s == "" {
		return nil, nil
	}
	pk, err := parseKey(field, s)
	if err != nil {
		return nil, err
	}
	return &pk, nil
}

func parseKeys(f1, s1, f2, s2 string) (pubkey.PublicKey, pubkey.PublicKey, error) {
	k1, err := parseKey(f1, s1)
	if err != nil {
		return pubkey.PublicKey{}, pubkey.PublicKey{}, err
	}
	k2, err := parseKey(f2, s2)
	if err != nil {
		return pubkey.PublicKey{}, pubkey.PublicKey{}, err
	}
	return k1, k2, nil
}
