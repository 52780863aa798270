package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
	"github.com/peterldowns/testy/check"
)

func u64(v uint64) *uint64 { return &v }
func u8(v uint8) *uint8    { return &v }

func validConfig() AuctionConfig {
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return AuctionConfig{
		Resource:    pubkey.NewFromSeed("resource"),
		Authority:   pubkey.NewFromSeed("authority"),
		TokenMint:   pubkey.NewFromSeed("mint"),
		PriceFloor:  MinimumPrice(100),
		WinnerLimit: Capped(1),
		EndAt:       &end,
	}
}

func TestAuctionConfig_Validate_OK(t *testing.T) {
	cfg := validConfig()
	check.NoError(t, cfg.Validate())

	cfg.PriceFloor = NoPriceFloor()
	cfg.WinnerLimit = Unlimited()
	cfg.TickSize = u64(5)
	cfg.GapTickSizePercentage = u8(100)
	cfg.InstantSalePrice = u64(500)
	check.NoError(t, cfg.Validate())
}

func TestAuctionConfig_Validate_Rejects(t *testing.T) {
	gap := time.Duration(0)
	tests := []struct {
		name   string
		mutate func(*AuctionConfig)
	}{
		{"capped zero", func(c *AuctionConfig) { c.WinnerLimit = Capped(0) }},
		{"capped negative", func(c *AuctionConfig) { c.WinnerLimit = Capped(-1) }},
		{"zero tick", func(c *AuctionConfig) { c.TickSize = u64(0) }},
		{"zero percentage", func(c *AuctionConfig) { c.GapTickSizePercentage = u8(0) }},
		{"percentage over 100", func(c *AuctionConfig) { c.GapTickSizePercentage = u8(101) }},
		{"instant sale below floor", func(c *AuctionConfig) { c.InstantSalePrice = u64(99) }},
		{"zero minimum price", func(c *AuctionConfig) { c.PriceFloor = MinimumPrice(0) }},
		{"missing resource", func(c *AuctionConfig) { c.Resource = pubkey.Zero }},
		{"missing authority", func(c *AuctionConfig) { c.Authority = pubkey.Zero }},
		{"missing mint", func(c *AuctionConfig) { c.TokenMint = pubkey.Zero }},
		{"long name", func(c *AuctionConfig) { c.Name = strings.Repeat("n", 33) }},
		{"absolute and relative end", func(c *AuctionConfig) { c.EndAfter = time.Hour }},
		{"zero end gap", func(c *AuctionConfig) { c.EndGap = &gap }},
		{"unknown floor kind", func(c *AuctionConfig) { c.PriceFloor.Kind = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			check.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestWinnerLimit(t *testing.T) {
	check.Equal(t, 3, Unlimited().Winners(3))
	check.False(t, Unlimited().Full(1_000))
	check.Equal(t, 1, Capped(1).Winners(3))
	check.Equal(t, 2, Capped(5).Winners(2))
	check.True(t, Capped(2).Full(2))
	check.False(t, Capped(2).Full(1))
}

func TestPriceFloor_Minimum(t *testing.T) {
	check.Equal(t, uint64(0), NoPriceFloor().Minimum())
	check.Equal(t, uint64(100), MinimumPrice(100).Minimum())
}

func TestAuction_CloneIsIndependent(t *testing.T) {
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &Auction{
		EndAt:   &end,
		Winners: []pubkey.PublicKey{pubkey.NewFromSeed("w")},
		Reveal:  []byte{1, 2},
	}
	c := a.Clone()
	*c.EndAt = end.Add(time.Hour)
	c.Winners[0] = pubkey.Zero
	c.Reveal[0] = 9

	check.Equal(t, end, *a.EndAt)
	check.Equal(t, pubkey.NewFromSeed("w"), a.Winners[0])
	check.Equal(t, byte(1), a.Reveal[0])
}

func TestAuction_CanClaim(t *testing.T) {
	authority := pubkey.NewFromSeed("authority")
	claimer := pubkey.NewFromSeed("claimer")
	a := &Auction{Authority: authority}

	check.True(t, a.CanClaim(authority))
	check.False(t, a.CanClaim(claimer))

	a.ClaimAuthority = &claimer
	check.True(t, a.CanClaim(claimer))
}
