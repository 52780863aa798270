// Package journal keeps a durable audit trail of committed auction events
// in SQLite.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/efreitasn/ledgerauction/internal/domain"
	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// MemoryPath opens a journal that lives only as long as the process.
const MemoryPath = ":memory:"

// Entry is the stored form of a domain.Event. Token amounts are kept as
// decimal text since SQLite integers stop at MaxInt64.
type Entry struct {
	ID         uint      `gorm:"primaryKey"`
	EventID    string    `gorm:"uniqueIndex"`
	Type       string    `gorm:"index"`
	AuctionID  string    `gorm:"index"`
	Resource   string    `gorm:"index"`
	Bidder     string
	Amount     string
	EscrowIn   string
	EscrowOut  string
	EndAt      *time.Time
	Trigger    string
	OccurredAt time.Time
}

// TableName pins the table name.
func (Entry) TableName() string {
	return "auction_events"
}

// Journal appends events to SQLite and reads them back.
type Journal struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path, creating its directory
// and migrating the schema as needed.
func Open(path string) (*Journal, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if path == MemoryPath {
		// Every connection would otherwise see its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access journal pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends ev.
func (j *Journal) Record(ctx context.Context, ev domain.Event) error {
	entry := fromEvent(ev)
	return j.db.WithContext(ctx).Create(&entry).Error
}

// ListByResource returns the events of a resource in the order recorded.
func (j *Journal) ListByResource(ctx context.Context, resource pubkey.PublicKey) ([]domain.Event, error) {
	return j.list(ctx, "resource = ?", resource.String())
}

// ListByAuction returns the events of one auction in the order recorded.
func (j *Journal) ListByAuction(ctx context.Context, auctionID string) ([]domain.Event, error) {
	return j.list(ctx, "auction_id = ?", auctionID)
}

func (j *Journal) list(ctx context.Context, query string, arg any) ([]domain.Event, error) {
	var entries []Entry
	if err := j.db.WithContext(ctx).Where(query, arg).Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(entries))
	for _, e := range entries {
		ev, err := e.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromEvent(ev domain.Event) Entry {
	e := Entry{
		EventID:    ev.EventID,
		Type:       string(ev.Type),
		AuctionID:  ev.AuctionID,
		Resource:   ev.Resource.String(),
		Amount:     strconv.FormatUint(ev.Amount, 10),
		EscrowIn:   strconv.FormatUint(ev.EscrowIn, 10),
		EscrowOut:  strconv.FormatUint(ev.EscrowOut, 10),
		EndAt:      ev.EndAt,
		Trigger:    ev.Trigger,
		OccurredAt: ev.OccurredAt,
	}
	if !ev.Bidder.IsZero() {
		e.Bidder = ev.Bidder.String()
	}
	return e
}

func (e Entry) toEvent() (domain.Event, error) {
	resource, err := pubkey.Parse(e.Resource)
	if err != nil {
		return domain.Event{}, fmt.Errorf("entry %d resource: %w", e.ID, err)
	}
	var bidder pubkey.PublicKey
	if e.Bidder != "" {
		if bidder, err = pubkey.Parse(e.Bidder); err != nil {
			return domain.Event{}, fmt.Errorf("entry %d bidder: %w", e.ID, err)
		}
	}
	var amounts [3]uint64
	for i, s := range []string{e.Amount, e.EscrowIn, e.EscrowOut} {
		if amounts[i], err = parseAmount(s); err != nil {
			return domain.Event{}, fmt.Errorf("entry %d amount: %w", e.ID, err)
		}
	}
	return domain.Event{
		EventID:    e.EventID,
		Type:       domain.EventType(e.Type),
		AuctionID:  e.AuctionID,
		Resource:   resource,
		Bidder:     bidder,
		Amount:     amounts[0],
		EscrowIn:   amounts[1],
		EscrowOut:  amounts[2],
		EndAt:      e.EndAt,
		Trigger:    e.Trigger,
		OccurredAt: e.OccurredAt,
	}, nil
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
