// Package mining computes asteroid extraction yields and field depletion.
package mining

import (
	"math"

	"github.com/talgya/hexfleet/internal/world"
)

// MinerYieldPerTurn is the base extraction per turn, indexed by the
// fleet's mining tier.
var MinerYieldPerTurn = map[int]int{
	1: 2,
	2: 4,
	3: 7,
}

// BaseYield returns the base extraction rate for a mining tier. Tiers above
// the table use the top entry; tier 0 cannot mine.
func BaseYield(tier int) int {
	if tier <= 0 {
		return 0
	}
	if base, ok := MinerYieldPerTurn[tier]; ok {
		return base
	}
	top := 0
	for t, base := range MinerYieldPerTurn {
		if t < tier {
			top = max(top, base)
		}
	}
	return top
}

// Yield returns floor(base * richness) for a miner of the given tier.
func Yield(tier int, richness float64) int {
	if richness <= 0 {
		return 0
	}
	return int(math.Floor(float64(BaseYield(tier)) * richness))
}

// Extract mines the field once with a miner of the given tier and returns
// the units gained. The field loses gained/TotalYield*100 percent, clamped
// to [0, 100]. A depleted field gives nothing. The gained metal is of the
// field's own tier; the miner's tier only sets the rate.
//
// Gains never exceed the whole units left in the rock. A field holding less
// than one unit is emptied and pays nothing.
func Extract(field *world.Asteroids, tier int) int {
	if field == nil || field.Depleted() || field.TotalYield <= 0 {
		return 0
	}
	gained := Yield(tier, field.Richness)
	if gained <= 0 {
		return 0
	}
	left := Available(field)
	if left <= 0 {
		field.YieldRemaining = 0
		return 0
	}
	gained = min(gained, left)
	field.YieldRemaining = Deplete(field.YieldRemaining, gained, field.TotalYield)
	return gained
}

// Available returns the whole units still in the field:
// floor(YieldRemaining/100 * TotalYield).
func Available(field *world.Asteroids) int {
	if field == nil || field.TotalYield <= 0 || field.YieldRemaining <= 0 {
		return 0
	}
	return int(math.Floor(field.YieldRemaining/100*float64(field.TotalYield) + 1e-9))
}

// Deplete returns the remaining percentage after removing gained units from
// a field of total capacity.
func Deplete(remaining float64, gained, total int) float64 {
	if total <= 0 {
		return 0
	}
	next := remaining - float64(gained)/float64(total)*100
	// Snap float dust so a field that is spent reads exactly 0.
	if next < 1e-9 {
		return 0
	}
	return math.Min(next, 100)
}
