package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
	"github.com/efreitasn/ledgerauction/internal/service"
)

// AuctionHandler handles HTTP requests for auction inspection.
type AuctionHandler struct {
	auctionSvc *service.AuctionService
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(auctionSvc *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionSvc: auctionSvc}
}

// auctionResponse is the JSON form of an auction.
type auctionResponse struct {
	AuctionID         string   `json:"auction_id"`
	Address           string   `json:"address"`
	Name              string   `json:"name"`
	Resource          string   `json:"resource"`
	Authority         string   `json:"authority"`
	ClaimAuthority    *string  `json:"claim_authority"`
	TokenMint         string   `json:"token_mint"`
	Proceeds          string   `json:"proceeds"`
	GatekeeperNetwork *string  `json:"gatekeeper_network"`
	PriceFloor        *uint64  `json:"price_floor"`
	MaxWinners        *int     `json:"max_winners"`
	TickSize          *uint64  `json:"tick_size"`
	GapTickSizePct    *uint8   `json:"gap_tick_size_percentage"`
	InstantSalePrice  *uint64  `json:"instant_sale_price"`
	EndGap            *string  `json:"end_gap"`
	State             string   `json:"state"`
	Winners           []string `json:"winners"`
	EndAt             *string  `json:"end_at"`
	CreatedAt         string   `json:"created_at"`
	StartedAt         *string  `json:"started_at"`
	EndedAt           *string  `json:"ended_at"`
	LastBidAt         *string  `json:"last_bid_at"`
}

// bidResponse is the JSON form of a bid.
type bidResponse struct {
	AuctionID   string  `json:"auction_id"`
	Resource    string  `json:"resource"`
	Bidder      string  `json:"bidder"`
	Pot         string  `json:"pot"`
	Amount      uint64  `json:"amount"`
	Status      string  `json:"status"`
	PlacedAt    string  `json:"placed_at"`
	CancelledAt *string `json:"cancelled_at"`
	ClaimedAt   *string `json:"claimed_at"`
}

// eventResponse is the JSON form of a committed event.
type eventResponse struct {
	EventID    string  `json:"event_id"`
	Type       string  `json:"type"`
	AuctionID  string  `json:"auction_id"`
	Bidder     *string `json:"bidder"`
	Amount     uint64  `json:"amount"`
	EscrowIn   uint64  `json:"escrow_in"`
	EscrowOut  uint64  `json:"escrow_out"`
	EndAt      *string `json:"end_at"`
	Trigger    string  `json:"trigger,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}

// GetAuction handles GET /auctions/{resource}.
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.auctionSvc.GetAuction(chi.URLParam(r, "resource"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAuctionResponse(&a))
}

// ListBids handles GET /auctions/{resource}/bids.
func (h *AuctionHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.auctionSvc.Bids(chi.URLParam(r, "resource"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"bids": toBidResponses(bids)})
}

// ListWinners handles GET /auctions/{resource}/winners.
func (h *AuctionHandler) ListWinners(w http.ResponseWriter, r *http.Request) {
	bids, err := h.auctionSvc.Winners(chi.URLParam(r, "resource"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"winners": toBidResponses(bids)})
}

// ListEvents handles GET /auctions/{resource}/events.
func (h *AuctionHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.auctionSvc.Events(chi.URLParam(r, "resource"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]eventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, toEventResponse(&events[i]))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": resp})
}

// ListHistory handles GET /auctions/{resource}/history.
func (h *AuctionHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.auctionSvc.History(chi.URLParam(r, "resource"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]auctionResponse, 0, len(history))
	for i := range history {
		resp = append(resp, toAuctionResponse(&history[i]))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"auctions": resp})
}

// ListBidderBids handles GET /bidders/{bidder}/bids.
func (h *AuctionHandler) ListBidderBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.auctionSvc.BidderBids(chi.URLParam(r, "bidder"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"bids": toBidResponses(bids)})
}

func toAuctionResponse(a *domain.Auction) auctionResponse {
	resp := auctionResponse{
		AuctionID:         a.AuctionID,
		Address:           a.Address.String(),
		Name:              a.Name,
		Resource:          a.Resource.String(),
		Authority:         a.Authority.String(),
		ClaimAuthority:    keyPtr(a.ClaimAuthority),
		TokenMint:         a.TokenMint.String(),
		Proceeds:          a.Proceeds.String(),
		GatekeeperNetwork: keyPtr(a.GatekeeperNetwork),
		TickSize:          a.TickSize,
		GapTickSizePct:    a.GapTickSizePercentage,
		InstantSalePrice:  a.InstantSalePrice,
		State:             string(a.State),
		Winners:           make([]string, 0, len(a.Winners)),
		EndAt:             timePtr(a.EndAt),
		CreatedAt:         formatTime(a.CreatedAt),
		StartedAt:         timePtr(a.StartedAt),
		EndedAt:           timePtr(a.EndedAt),
		LastBidAt:         timePtr(a.LastBidAt),
	}
	if a.PriceFloor.Kind == domain.PriceFloorMinimum {
		v := a.PriceFloor.Amount
		resp.PriceFloor = &v
	}
	if a.WinnerLimit.Kind == domain.WinnerLimitCapped {
		v := a.WinnerLimit.Max
		resp.MaxWinners = &v
	}
	if a.EndGap != nil {
		v := a.EndGap.String()
		resp.EndGap = &v
	}
	for _, w := range a.Winners {
		resp.Winners = append(resp.Winners, w.String())
	}
	return resp
}

func toBidResponses(bids []domain.Bid) []bidResponse {
	resp := make([]bidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, bidResponse{
			AuctionID:   b.AuctionID,
			Resource:    b.Resource.String(),
			Bidder:      b.Bidder.String(),
			Pot:         b.Pot.String(),
			Amount:      b.Amount,
			Status:      string(b.Status),
			PlacedAt:    formatTime(b.PlacedAt),
			CancelledAt: timePtr(b.CancelledAt),
			ClaimedAt:   timePtr(b.ClaimedAt),
		})
	}
	return resp
}

func toEventResponse(ev *domain.Event) eventResponse {
	resp := eventResponse{
		EventID:    ev.EventID,
		Type:       string(ev.Type),
		AuctionID:  ev.AuctionID,
		Amount:     ev.Amount,
		EscrowIn:   ev.EscrowIn,
		EscrowOut:  ev.EscrowOut,
		EndAt:      timePtr(ev.EndAt),
		Trigger:    ev.Trigger,
		OccurredAt: formatTime(ev.OccurredAt),
	}
	if !ev.Bidder.IsZero() {
		s := ev.Bidder.String()
		resp.Bidder = &s
	}
	return resp
}

func keyPtr(k *pubkey.PublicKey) *string {
	if k == nil {
		return nil
	}
	s := k.String()
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
