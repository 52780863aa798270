package domain

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestMinimumOutbid(t *testing.T) {
	tests := []struct {
		name    string
		current uint64
		tick    *uint64
		pct     *uint8
		want    uint64
	}{
		{"no increments", 100, nil, nil, 101},
		{"tick only", 100, u64(10), nil, 110},
		{"percentage only", 100, nil, u8(5), 105},
		{"percentage rounds up", 101, nil, u8(5), 107}, // 106.05 -> 107
		{"both, tick dominates", 100, u64(10), u8(5), 110},
		{"both, percentage dominates", 1000, u64(10), u8(5), 1050},
		{"tiny percentage still strictly higher", 1, nil, u8(1), 2},
		{"saturates", math.MaxUint64 - 1, u64(10), nil, math.MaxUint64},
		{"percentage saturates", math.MaxUint64/2 + 1, nil, u8(100), math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinimumOutbid(tt.current, tt.tick, tt.pct); got != tt.want {
				t.Errorf("MinimumOutbid(%d) = %d, want %d", tt.current, got, tt.want)
			}
		})
	}
}

func TestProperty_MinimumOutbidClearsEveryIncrement(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.Uint64Range(1, 1_000_000_000).Draw(t, "current")
		var tick *uint64
		if rapid.Bool().Draw(t, "hasTick") {
			v := rapid.Uint64Range(1, 1_000_000).Draw(t, "tick")
			tick = &v
		}
		var pct *uint8
		if rapid.Bool().Draw(t, "hasPct") {
			v := rapid.Uint8Range(1, 100).Draw(t, "pct")
			pct = &v
		}

		got := MinimumOutbid(current, tick, pct)
		if got <= current {
			t.Fatalf("minimum %d does not exceed current %d", got, current)
		}
		if tick != nil && got < current+*tick {
			t.Fatalf("minimum %d does not clear tick %d over %d", got, *tick, current)
		}
		if pct != nil && got*100 < current*(100+uint64(*pct)) {
			t.Fatalf("minimum %d does not clear %d%% over %d", got, *pct, current)
		}
	})
}
