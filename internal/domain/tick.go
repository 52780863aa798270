package domain

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MinimumOutbid returns the smallest amount that displaces a bid of
// current from a full winner window. Every configured increment must be
// cleared: the absolute tick and the percentage tick. With neither set the
// new bid only has to be strictly higher.
func MinimumOutbid(current uint64, tickSize *uint64, gapPercentage *uint8) uint64 {
	required := addSaturating(current, 1)

	if tickSize != nil {
		if v := addSaturating(current, *tickSize); v > required {
			required = v
		}
	}

	if gapPercentage != nil {
		factor := decimal.NewFromInt(int64(*gapPercentage)).Add(hundred).Div(hundred)
		scaled := fromUint64(current).Mul(factor).Ceil()
		if scaled.GreaterThan(fromUint64(math.MaxUint64)) {
			return math.MaxUint64
		}
		if v := scaled.BigInt().Uint64(); v > required {
			required = v
		}
	}
	return required
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
