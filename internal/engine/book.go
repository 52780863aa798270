package engine

import (
	"github.com/google/btree"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// DefaultBookDegree is the B-tree degree used when none is configured.
const DefaultBookDegree = 32

// BookEntry is one active bid resting on a BidBook.
type BookEntry struct {
	Bidder pubkey.PublicKey
	Amount uint64
	Seq    uint64
}

// rankLess orders entries by amount descending, then sequence ascending.
// Sequences are unique per auction so no two entries compare equal, and
// Min() returns the best bid.
func rankLess(a, b BookEntry) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	return a.Seq < b.Seq
}

// BidBook holds the active bids of one auction in rank order, with a
// secondary index by bidder for O(log n) replacement and removal.
// It is not safe for concurrent use; the owning auction lock guards it.
type BidBook struct {
	tree  *btree.BTreeG[BookEntry]
	index map[pubkey.PublicKey]BookEntry // bidder → entry
}

// NewBidBook creates an empty book backed by a B-tree of the given degree.
func NewBidBook(degree int) *BidBook {
	if degree < 2 {
		degree = DefaultBookDegree
	}
	return &BidBook{
		tree:  btree.NewG[BookEntry](degree, rankLess),
		index: make(map[pubkey.PublicKey]BookEntry),
	}
}

// Upsert places or replaces the bidder's entry.
func (b *BidBook) Upsert(bidder pubkey.PublicKey, amount, seq uint64) {
	if old, ok := b.index[bidder]; ok {
		b.tree.Delete(old)
	}
	entry := BookEntry{Bidder: bidder, Amount: amount, Seq: seq}
	b.tree.ReplaceOrInsert(entry)
	b.index[bidder] = entry
}

// Remove deletes the bidder's entry. It reports whether one existed.
func (b *BidBook) Remove(bidder pubkey.PublicKey) bool {
	entry, ok := b.index[bidder]
	if !ok {
		return false
	}
	delete(b.index, bidder)
	b.tree.Delete(entry)
	return true
}

// Entry returns the bidder's entry.
func (b *BidBook) Entry(bidder pubkey.PublicKey) (BookEntry, bool) {
	entry, ok := b.index[bidder]
	return entry, ok
}

// Len returns the number of active bids.
func (b *BidBook) Len() int {
	return b.tree.Len()
}

// Rank returns every entry, best first.
func (b *BidBook) Rank() []BookEntry {
	return b.Top(b.tree.Len())
}

// Top returns up to n entries, best first.
func (b *BidBook) Top(n int) []BookEntry {
	if n <= 0 {
		return nil
	}
	out := make([]BookEntry, 0, min(n, b.tree.Len()))
	b.tree.Ascend(func(e BookEntry) bool {
		out = append(out, e)
		return len(out) < n
	})
	return out
}

// Position returns the zero-based rank of the bidder's entry.
func (b *BidBook) Position(bidder pubkey.PublicKey) (int, bool) {
	entry, ok := b.index[bidder]
	if !ok {
		return 0, false
	}
	pos := 0
	b.tree.AscendLessThan(entry, func(BookEntry) bool {
		pos++
		return true
	})
	return pos, true
}

// Winners returns the entries inside the winner window under limit.
func (b *BidBook) Winners(limit domain.WinnerLimit) []BookEntry {
	return b.Top(limit.Winners(b.tree.Len()))
}

// Cutoff returns the lowest entry still inside a full winner window,
// ignoring the entry of exclude. It returns false while the window, so
// counted, has a free slot.
func (b *BidBook) Cutoff(limit domain.WinnerLimit, exclude pubkey.PublicKey) (BookEntry, bool) {
	count := b.tree.Len()
	if _, ok := b.index[exclude]; ok {
		count--
	}
	if !limit.Full(count) {
		return BookEntry{}, false
	}

	var cutoff BookEntry
	seen := 0
	b.tree.Ascend(func(e BookEntry) bool {
		if e.Bidder == exclude {
			return true
		}
		seen++
		if seen == limit.Max {
			cutoff = e
			return false
		}
		return true
	})
	return cutoff, seen == limit.Max
}
