package engine

import (
	"sync"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// auctionEntry is the live state of one auction. mu is held for the whole
// of every operation on the auction, so no operation observes a peer's
// partial work.
type auctionEntry struct {
	mu      sync.Mutex
	auction *domain.Auction
	book    *BidBook
	bids    map[pubkey.PublicKey]*domain.Bid // bidder → latest bid record
}

// settled reports whether the auction has ended and no escrow remains.
func (e *auctionEntry) settled() bool {
	return e.auction.State == domain.AuctionStateEnded && e.book.Len() == 0
}

// Registry is a thread-safe map of resource → auction. A resource holds at
// most one auction at a time; settled auctions are archived when the
// resource is auctioned again.
type Registry struct {
	mu      sync.RWMutex
	degree  int
	entries map[pubkey.PublicKey]*auctionEntry
	history map[pubkey.PublicKey][]domain.Auction // resource → archived auctions (oldest first)
}

// NewRegistry creates an empty Registry whose bid books use the given
// B-tree degree.
func NewRegistry(degree int) *Registry {
	return &Registry{
		degree:  degree,
		entries: make(map[pubkey.PublicKey]*auctionEntry),
		history: make(map[pubkey.PublicKey][]domain.Auction),
	}
}

// lookup returns the live entry of a resource, or domain.ErrNotFound.
func (r *Registry) lookup(resource pubkey.PublicKey) (*auctionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[resource]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// install registers a new auction for a.Resource. It fails with
// domain.ErrAlreadyExists unless the resource is free or its current
// auction is settled. commit runs under the registry lock before the
// auction becomes visible; if it fails nothing is installed.
func (r *Registry) install(a *domain.Auction, commit func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var archived *domain.Auction
	if prev, ok := r.entries[a.Resource]; ok {
		prev.mu.Lock()
		if !prev.settled() {
			prev.mu.Unlock()
			return domain.ErrAlreadyExists
		}
		snapshot := prev.auction.Clone()
		archived = &snapshot
		prev.mu.Unlock()
	}

	if err := commit(); err != nil {
		return err
	}

	if archived != nil {
		r.history[a.Resource] = append(r.history[a.Resource], *archived)
	}
	r.entries[a.Resource] = &auctionEntry{
		auction: a,
		book:    NewBidBook(r.degree),
		bids:    make(map[pubkey.PublicKey]*domain.Bid),
	}
	return nil
}

// History returns the archived auctions of a resource, oldest first.
func (r *Registry) History(resource pubkey.PublicKey) []domain.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	archived := r.history[resource]
	result := make([]domain.Auction, len(archived))
	for i := range archived {
		result[i] = archived[i].Clone()
	}
	return result
}

// Resources returns the resources with a live auction.
func (r *Registry) Resources() []pubkey.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]pubkey.PublicKey, 0, len(r.entries))
	for resource := range r.entries {
		result = append(result, resource)
	}
	return result
}
