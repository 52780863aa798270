package engine

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// Property 1: Bid book ordering
// After any sequence of upserts and removals the book is ordered by amount
// descending then seq ascending, and holds one entry per bidder matching
// the bidder's latest upsert.

func TestProperty_BidBookOrdering(t *testing.T) {
	bidders := make([]pubkey.PublicKey, 8)
	for i := range bidders {
		bidders[i] = pubkey.NewFromSeed(fmt.Sprintf("bidder-%d", i))
	}

	rapid.Check(t, func(t *rapid.T) {
		degree := rapid.IntRange(2, 8).Draw(t, "degree")
		book := NewBidBook(degree)
		model := make(map[pubkey.PublicKey]BookEntry)

		var seq uint64
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			bidder := bidders[rapid.IntRange(0, len(bidders)-1).Draw(t, "bidder")]
			if rapid.IntRange(0, 4).Draw(t, "op") == 0 {
				book.Remove(bidder)
				delete(model, bidder)
				continue
			}
			amount := rapid.Uint64Range(1, 20).Draw(t, "amount")
			book.Upsert(bidder, amount, seq)
			model[bidder] = BookEntry{Bidder: bidder, Amount: amount, Seq: seq}
			seq++
		}

		ranked := book.Rank()
		if len(ranked) != len(model) || book.Len() != len(model) {
			t.Fatalf("expected %d entries, got %d (len %d)", len(model), len(ranked), book.Len())
		}
		seen := make(map[pubkey.PublicKey]bool)
		for i, e := range ranked {
			if seen[e.Bidder] {
				t.Fatalf("bidder %s appears twice", e.Bidder)
			}
			seen[e.Bidder] = true
			if model[e.Bidder] != e {
				t.Fatalf("entry %+v does not match latest upsert %+v", e, model[e.Bidder])
			}
			if i > 0 && !rankLess(ranked[i-1], e) {
				t.Fatalf("entries %d and %d out of order: %+v then %+v", i-1, i, ranked[i-1], e)
			}
			if pos, _ := book.Position(e.Bidder); pos != i {
				t.Fatalf("position of %s: got %d, want %d", e.Bidder, pos, i)
			}
		}
	})
}
