package domain

import (
	"fmt"
	"time"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// MaxNameLen is the longest auction name accepted, in bytes.
const MaxNameLen = 32

// AuctionConfig carries everything needed to create an auction.
type AuctionConfig struct {
	Name              string
	Resource          pubkey.PublicKey
	Authority         pubkey.PublicKey
	ClaimAuthority    *pubkey.PublicKey
	TokenMint         pubkey.PublicKey
	Proceeds          pubkey.PublicKey // defaults to Authority
	GatekeeperNetwork *pubkey.PublicKey

	PriceFloor            PriceFloor
	WinnerLimit           WinnerLimit
	TickSize              *uint64
	GapTickSizePercentage *uint8
	InstantSalePrice      *uint64

	EndAt    *time.Time
	EndAfter time.Duration
	EndGap   *time.Duration
}

// Validate checks the configuration and returns an error wrapping
// ErrInvalidConfig describing the first problem found.
func (c *AuctionConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Resource.IsZero() {
		return invalid("resource is required")
	}
	if c.Authority.IsZero() {
		return invalid("authority is required")
	}
	if c.TokenMint.IsZero() {
		return invalid("token mint is required")
	}
	if len(c.Name) > MaxNameLen {
		return invalid("name must be at most %d bytes", MaxNameLen)
	}

	switch c.PriceFloor.Kind {
	case PriceFloorNone:
	case PriceFloorMinimum:
		if c.PriceFloor.Amount == 0 {
			return invalid("minimum price must be positive")
		}
	default:
		return invalid("unknown price floor kind %d", c.PriceFloor.Kind)
	}

	switch c.WinnerLimit.Kind {
	case WinnerLimitUnlimited:
	case WinnerLimitCapped:
		if c.WinnerLimit.Max <= 0 {
			return invalid("winner limit must be at least 1")
		}
	default:
		return invalid("unknown winner limit kind %d", c.WinnerLimit.Kind)
	}

	if c.TickSize != nil && *c.TickSize == 0 {
		return invalid("tick size must be positive")
	}
	if c.GapTickSizePercentage != nil {
		if p := *c.GapTickSizePercentage; p == 0 || p > 100 {
			return invalid("gap tick size percentage must be within 1..100, got %d", p)
		}
	}
	if c.InstantSalePrice != nil {
		if *c.InstantSalePrice == 0 {
			return invalid("instant sale price must be positive")
		}
		if *c.InstantSalePrice < c.PriceFloor.Minimum() {
			return invalid("instant sale price %d is below the price floor %d", *c.InstantSalePrice, c.PriceFloor.Minimum())
		}
	}

	if c.EndAt != nil && c.EndAfter != 0 {
		return invalid("end time must be absolute or relative, not both")
	}
	if c.EndAfter < 0 {
		return invalid("relative end time must be positive")
	}
	if c.EndGap != nil && *c.EndGap <= 0 {
		return invalid("end gap must be positive")
	}
	return nil
}
