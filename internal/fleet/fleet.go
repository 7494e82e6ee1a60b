// Package fleet defines ships, fleets and the blueprint catalog.
// A fleet's composition is its ships slice; every aggregate (role, modal
// type, mean integrity, troop totals) is computed from it on read.
package fleet

import (
	"math"
	"sort"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/world"
)

// ShipType is a hull class.
type ShipType string

const (
	ShipMiner      ShipType = "MINER"
	ShipCorvette   ShipType = "CORVETTE"
	ShipFrigate    ShipType = "FRIGATE"
	ShipDestroyer  ShipType = "DESTROYER"
	ShipCruiser    ShipType = "CRUISER"
	ShipBattleship ShipType = "BATTLESHIP"
	ShipCarrier    ShipType = "CARRIER"
	ShipStation    ShipType = "STATION"
)

// shipOrder ranks hull classes for deterministic tie-breaking.
var shipOrder = map[ShipType]int{
	ShipMiner: 0, ShipCorvette: 1, ShipFrigate: 2, ShipDestroyer: 3,
	ShipCruiser: 4, ShipBattleship: 5, ShipCarrier: 6, ShipStation: 7,
}

// Valid reports whether t is a known hull class.
func (t ShipType) Valid() bool {
	_, ok := shipOrder[t]
	return ok
}

// Role is what a fleet is for.
type Role string

const (
	RoleMiner  Role = "MINER"
	RoleCombat Role = "COMBAT"
)

// Ship is one hull.
type Ship struct {
	ID                  string         `json:"id"`
	Type                ShipType       `json:"type"`
	Blueprint           string         `json:"blueprint"`
	Integrity           int            `json:"integrity"` // 0-100
	Morale              int            `json:"morale"`    // 0-100
	Firepower           int            `json:"firepower"`
	Toughness           int            `json:"toughness"`
	GroundTroops        int            `json:"ground_troops"`
	GroundTroopCapacity int            `json:"ground_troop_capacity"`
	MiningTier          int            `json:"mining_tier,omitempty"` // 0 = cannot mine
	Weapons             int            `json:"weapons,omitempty"`
	Armor               int            `json:"armor,omitempty"`
	BuildCost           economy.Metals `json:"build_cost"`
}

// Fleet is a group of ships moving together.
type Fleet struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Owner     world.Faction `json:"owner"`
	Ships     []Ship        `json:"ships"`
	Location  string        `json:"location"` // StarSystem id
	MovesLeft int           `json:"moves_left"`
	MaxMoves  int           `json:"max_moves"`
}

// Destroyed reports whether the fleet has no ships left. Destroyed fleets
// are removed from the world, never kept around empty.
func (f *Fleet) Destroyed() bool {
	return len(f.Ships) == 0
}

// Role is MINER if any ship can mine, otherwise COMBAT.
func (f *Fleet) Role() Role {
	for _, s := range f.Ships {
		if s.Type == ShipMiner {
			return RoleMiner
		}
	}
	return RoleCombat
}

// ShipType returns the most common hull class aboard. Ties go to the
// lighter class. Empty fleets return "".
func (f *Fleet) ShipType() ShipType {
	counts := make(map[ShipType]int)
	for _, s := range f.Ships {
		counts[s.Type]++
	}
	types := make([]ShipType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return shipOrder[types[i]] < shipOrder[types[j]]
	})
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

// Integrity is the mean ship integrity, rounded.
func (f *Fleet) Integrity() int {
	return f.mean(func(s Ship) int { return s.Integrity })
}

// Morale is the mean ship morale, rounded.
func (f *Fleet) Morale() int {
	return f.mean(func(s Ship) int { return s.Morale })
}

func (f *Fleet) mean(field func(Ship) int) int {
	if len(f.Ships) == 0 {
		return 0
	}
	total := 0
	for _, s := range f.Ships {
		total += field(s)
	}
	return int(math.Round(float64(total) / float64(len(f.Ships))))
}

// MiningTier is the best mining tier aboard, 0 if nothing can mine.
func (f *Fleet) MiningTier() int {
	best := 0
	for _, s := range f.Ships {
		if s.Type == ShipMiner {
			best = max(best, s.MiningTier)
		}
	}
	return best
}

// GroundTroops sums embarked troops.
func (f *Fleet) GroundTroops() int {
	total := 0
	for _, s := range f.Ships {
		total += s.GroundTroops
	}
	return total
}

// GroundTroopCapacity sums troop bay capacity.
func (f *Fleet) GroundTroopCapacity() int {
	total := 0
	for _, s := range f.Ships {
		total += s.GroundTroopCapacity
	}
	return total
}

// Firepower sums ship firepower.
func (f *Fleet) Firepower() int {
	total := 0
	for _, s := range f.Ships {
		total += s.Firepower
	}
	return total
}

// Disembark empties every troop bay and returns how many troops left.
func (f *Fleet) Disembark() int {
	n := 0
	for i := range f.Ships {
		n += f.Ships[i].GroundTroops
		f.Ships[i].GroundTroops = 0
	}
	return n
}

// BuildCost sums what was paid for every ship aboard.
func (f *Fleet) BuildCost() economy.Metals {
	var total economy.Metals
	for _, s := range f.Ships {
		total = total.Plus(s.BuildCost)
	}
	return total
}

// DismantleRefund returns the metals recovered by scrapping the fleet:
// half of each ship's build cost, floored per tier, summed.
func (f *Fleet) DismantleRefund() economy.Metals {
	var total economy.Metals
	for _, s := range f.Ships {
		total = total.Plus(economy.Refund(s.BuildCost))
	}
	return total
}

// ResetMoves restores the full movement budget.
func (f *Fleet) ResetMoves() {
	f.MovesLeft = f.MaxMoves
}

// MaxMovesFor returns the movement budget of a fleet made of ships built
// from the given blueprints: the slowest hull sets the pace.
func MaxMovesFor(bps []Blueprint) int {
	if len(bps) == 0 {
		return 0
	}
	moves := bps[0].MaxMoves
	for _, bp := range bps[1:] {
		moves = min(moves, bp.MaxMoves)
	}
	return moves
}
