package fleet

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hexfleet/internal/economy"
)

//go:embed blueprints.yaml
var blueprintsYAML []byte

// StationBlueprint is the catalog key used by station construction.
const StationBlueprint = "station"

// Blueprint is a buildable hull design.
type Blueprint struct {
	Key           string         `yaml:"-" json:"key"`
	Name          string         `yaml:"name" json:"name"`
	ShipType      ShipType       `yaml:"ship_type" json:"ship_type"`
	Cost          economy.Metals `yaml:"cost" json:"cost"`
	MaxMoves      int            `yaml:"max_moves" json:"max_moves"`
	Firepower     int            `yaml:"firepower" json:"firepower"`
	Toughness     int            `yaml:"toughness" json:"toughness"`
	Weapons       int            `yaml:"weapons" json:"weapons,omitempty"`
	Armor         int            `yaml:"armor" json:"armor,omitempty"`
	TroopCapacity int            `yaml:"troop_capacity" json:"troop_capacity"`
	MiningTier    int            `yaml:"mining_tier" json:"mining_tier,omitempty"`
}

var catalog = sync.OnceValues(func() (map[string]Blueprint, error) {
	return ParseCatalog(blueprintsYAML)
})

// ParseCatalog decodes a blueprint document keyed by blueprint key.
func ParseCatalog(data []byte) (map[string]Blueprint, error) {
	raw := make(map[string]Blueprint)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse blueprints: %w", err)
	}
	for key, bp := range raw {
		if !bp.ShipType.Valid() {
			return nil, fmt.Errorf("blueprint %q: unknown ship type %q", key, bp.ShipType)
		}
		if bp.MaxMoves < 0 {
			return nil, fmt.Errorf("blueprint %q: negative max_moves", key)
		}
		bp.Key = key
		raw[key] = bp
	}
	return raw, nil
}

func mustCatalog() map[string]Blueprint {
	c, err := catalog()
	if err != nil {
		// The catalog is compiled into the binary; a parse failure is a build defect.
		panic(err)
	}
	return c
}

// Lookup returns the blueprint for key.
func Lookup(key string) (Blueprint, bool) {
	bp, ok := mustCatalog()[key]
	return bp, ok
}

// Blueprints returns the whole catalog sorted by key.
func Blueprints() []Blueprint {
	c := mustCatalog()
	out := make([]Blueprint, 0, len(c))
	for _, bp := range c {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// StationCost is the fixed price of a non-free station.
func StationCost() economy.Metals {
	bp, _ := Lookup(StationBlueprint)
	return bp.Cost
}

// NewShip instantiates one ship from the blueprint at full integrity and
// morale with its troop bays full. cost is what was paid for it and is what
// a dismantle refunds against.
func (bp Blueprint) NewShip(id string, cost economy.Metals) Ship {
	return Ship{
		ID:                  id,
		Type:                bp.ShipType,
		Blueprint:           bp.Key,
		Integrity:           100,
		Morale:              100,
		Firepower:           bp.Firepower,
		Toughness:           bp.Toughness,
		GroundTroops:        bp.TroopCapacity,
		GroundTroopCapacity: bp.TroopCapacity,
		MiningTier:          bp.MiningTier,
		Weapons:             bp.Weapons,
		Armor:               bp.Armor,
		BuildCost:           cost,
	}
}
