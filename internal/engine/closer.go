package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// CloseNotifier receives auctions ended by the Closer, so the service layer
// can fan them out like any other committed operation.
type CloseNotifier interface {
	AuctionClosed(res EndResult)
	CloseFailed(resource pubkey.PublicKey, err error)
}

type scheduledEnd struct {
	resource pubkey.PublicKey
	endAt    time.Time
}

// Closer tracks started auctions sorted by end_at and ends each one on
// behalf of its authority once the end time has passed. Anti-snipe
// extensions are picked up when a due auction turns out to end later.
type Closer struct {
	interval time.Duration
	machine  *Machine
	notifier CloseNotifier
	pending  []scheduledEnd // sorted by endAt ASC
	mu       sync.Mutex     // protects pending
}

// NewCloser creates a Closer over machine. notifier may be nil.
func NewCloser(interval time.Duration, machine *Machine, notifier CloseNotifier) *Closer {
	return &Closer{
		interval: interval,
		machine:  machine,
		notifier: notifier,
		pending:  make([]scheduledEnd, 0),
	}
}

// Track schedules a started auction. Tracking a resource again replaces
// its previous schedule.
func (c *Closer) Track(resource pubkey.PublicKey, endAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(resource)
	// Binary search for the insertion point.
	idx := sort.Search(len(c.pending), func(i int) bool {
		return c.pending[i].endAt.After(endAt)
	})
	c.pending = append(c.pending, scheduledEnd{})
	copy(c.pending[idx+1:], c.pending[idx:])
	c.pending[idx] = scheduledEnd{resource: resource, endAt: endAt}
}

// Forget drops a resource from the schedule.
func (c *Closer) Forget(resource pubkey.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(resource)
}

func (c *Closer) removeLocked(resource pubkey.PublicKey) {
	for i, s := range c.pending {
		if s.resource == resource {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and ends due auctions. It stops when ctx is cancelled.
func (c *Closer) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick(c.machine.clock.Now())
			}
		}
	}()
}

// tick pops every schedule entry due at now and tries to end its auction.
func (c *Closer) tick(now time.Time) {
	c.mu.Lock()
	cutoff := 0
	for cutoff < len(c.pending) && !c.pending[cutoff].endAt.After(now) {
		cutoff++
	}
	due := append([]scheduledEnd(nil), c.pending[:cutoff]...)
	c.pending = c.pending[cutoff:]
	c.mu.Unlock()

	for _, s := range due {
		c.closeAuction(s.resource)
	}
}

// closeAuction re-reads the auction and ends it if it is still running and
// due, or reschedules it if its end time moved.
func (c *Closer) closeAuction(resource pubkey.PublicKey) {
	a, err := c.machine.Get(resource)
	if err != nil || a.State != domain.AuctionStateStarted {
		return
	}

	res, err := c.machine.end(resource, a.Authority, nil, TriggerSchedule)
	switch {
	case errors.Is(err, domain.ErrEndTimeNotReached):
		c.Track(resource, *a.EndAt)
	case errors.Is(err, domain.ErrInvalidState):
		// Ended by its authority in the meantime.
	case err != nil:
		if c.notifier != nil {
			c.notifier.CloseFailed(resource, err)
		}
	default:
		if c.notifier != nil {
			c.notifier.AuctionClosed(res)
		}
	}
}

// PendingCount returns the number of auctions waiting to be ended.
func (c *Closer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
