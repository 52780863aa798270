package store

import (
	"sync"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

type bidKey struct {
	auctionID string
	bidder    pubkey.PublicKey
}

// BidStore is a thread-safe in-memory store of bid records, with a primary
// index by (auction, bidder) and secondary indexes by auction and bidder.
// It holds snapshots: callers save a copy after every committed change.
type BidStore struct {
	mu        sync.RWMutex
	bids      map[bidKey]domain.Bid
	byAuction map[string][]pubkey.PublicKey // auction_id → bidders (first bid order)
	byBidder  map[pubkey.PublicKey][]bidKey // bidder → keys (first bid order)
}

// NewBidStore creates an empty BidStore.
func NewBidStore() *BidStore {
	return &BidStore{
		bids:      make(map[bidKey]domain.Bid),
		byAuction: make(map[string][]pubkey.PublicKey),
		byBidder:  make(map[pubkey.PublicKey][]bidKey),
	}
}

// Save inserts or replaces the record for b's (auction, bidder).
func (s *BidStore) Save(b domain.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bidKey{auctionID: b.AuctionID, bidder: b.Bidder}
	if _, exists := s.bids[key]; !exists {
		s.byAuction[b.AuctionID] = append(s.byAuction[b.AuctionID], b.Bidder)
		s.byBidder[b.Bidder] = append(s.byBidder[b.Bidder], key)
	}
	s.bids[key] = b.Clone()
}

// Get retrieves the bid record of a bidder on an auction. It returns
// domain.ErrNotFound if the bidder never bid there.
func (s *BidStore) Get(auctionID string, bidder pubkey.PublicKey) (domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bids[bidKey{auctionID: auctionID, bidder: bidder}]
	if !ok {
		return domain.Bid{}, domain.ErrNotFound
	}
	return b.Clone(), nil
}

// ListByAuction returns every bid record of an auction in first-bid order.
// If status is non-nil, only records with that status are included.
func (s *BidStore) ListByAuction(auctionID string, status *domain.BidStatus) []domain.Bid {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Bid, 0, len(s.byAuction[auctionID]))
	for _, bidder := range s.byAuction[auctionID] {
		b := s.bids[bidKey{auctionID: auctionID, bidder: bidder}]
		if status != nil && b.Status != *status {
			continue
		}
		result = append(result, b.Clone())
	}
	return result
}

// ListByBidder returns a bidder's records across auctions, newest first.
func (s *BidStore) ListByBidder(bidder pubkey.PublicKey) []domain.Bid {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byBidder[bidder]
	result := make([]domain.Bid, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		b := s.bids[keys[i]]
		result = append(result, b.Clone())
	}
	return result
}
