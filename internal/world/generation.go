// Galaxy generation: the embedded starter core plus a procedural frontier
// grown outward from it with layered simplex noise.
package world

import (
	_ "embed"
	"fmt"
	"math"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gopkg.in/yaml.v3"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/entropy"
)

//go:embed layout.yaml
var layoutYAML []byte

// GenConfig holds galaxy generation parameters.
type GenConfig struct {
	Seed    uint32  // Galaxy seed; every per-system seed derives from it
	Radius  int     // Frontier extends out to this hex distance from the origin
	Density float64 // 0.0 (no frontier) to 1.0 (every reachable hex)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:    42,
		Radius:  6,
		Density: 0.45,
	}
}

// CoreOnlyConfig returns a configuration with no frontier: just the
// hand-placed starter systems. Handy for tests that need a fixed map.
func CoreOnlyConfig(seed uint32) GenConfig {
	return GenConfig{Seed: seed, Radius: 0, Density: 0}
}

// StarChart is the decoded starter layout file.
type StarChart struct {
	Systems []SystemSpec `yaml:"systems"`
	Spawns  []Spawn      `yaml:"spawns"`
}

// SystemSpec describes one hand-placed system.
type SystemSpec struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	Coord     HexCoord     `yaml:"coord"`
	Type      SystemType   `yaml:"type"`
	Tier      int          `yaml:"tier"`
	Home      bool         `yaml:"home"`
	Asteroids *Asteroids   `yaml:"asteroids"`
	Station   *StationSpec `yaml:"station"`
	Planets   []PlanetSpec `yaml:"planets"`
}

// StationSpec describes a pre-placed station.
type StationSpec struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Owner Faction `yaml:"owner"`
	Type  string  `yaml:"type"`
}

// PlanetSpec describes a pre-placed planet.
type PlanetSpec struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Control       Faction `yaml:"control"`
	Garrison      int     `yaml:"garrison"`
	Fortification int     `yaml:"fortification"`
	Population    int     `yaml:"population"`
}

// Spawn is a starting fleet: the blueprint keys of its ships and where it
// appears. The fleet package turns these into real fleets.
type Spawn struct {
	Name   string   `yaml:"name"`
	Owner  Faction  `yaml:"owner"`
	System string   `yaml:"system"`
	Ships  []string `yaml:"ships"`
}

var starterLayout = sync.OnceValues(func() (*StarChart, error) {
	return ParseLayout(layoutYAML)
})

// StarterLayout returns the embedded starter layout.
func StarterLayout() (*StarChart, error) {
	return starterLayout()
}

// ParseLayout decodes and checks a layout document.
func ParseLayout(data []byte) (*StarChart, error) {
	var l StarChart
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	homes := 0
	ids := make(map[string]bool, len(l.Systems))
	coords := make(map[HexCoord]bool, len(l.Systems))
	for _, s := range l.Systems {
		if s.ID == "" || ids[s.ID] {
			return nil, fmt.Errorf("layout: missing or duplicate system id %q", s.ID)
		}
		if coords[s.Coord] {
			return nil, fmt.Errorf("layout: system %q shares coordinate %v", s.ID, s.Coord)
		}
		if s.Tier < 1 {
			return nil, fmt.Errorf("layout: system %q has tier %d", s.ID, s.Tier)
		}
		if s.Asteroids != nil && !s.Asteroids.MetalTier.Valid() {
			return nil, fmt.Errorf("layout: system %q has metal tier %q", s.ID, s.Asteroids.MetalTier)
		}
		if s.Home {
			homes++
		}
		ids[s.ID] = true
		coords[s.Coord] = true
	}
	if homes != 1 {
		return nil, fmt.Errorf("layout: want exactly one home system, found %d", homes)
	}
	for _, sp := range l.Spawns {
		if !ids[sp.System] {
			return nil, fmt.Errorf("layout: spawn %q at unknown system %q", sp.Name, sp.System)
		}
	}
	return &l, nil
}

// Starter is the output of Generate.
type Starter struct {
	Galaxy Galaxy
	HomeID string
	Spawns []Spawn
}

// Generate builds the starting galaxy: the starter layout, then the
// procedural frontier. The home system is discovered and scanned; every
// other system starts unknown. Same config, same galaxy.
func Generate(cfg GenConfig) (*Starter, error) {
	layout, err := StarterLayout()
	if err != nil {
		return nil, err
	}

	g := make(Galaxy, len(layout.Systems))
	home := ""
	for _, def := range layout.Systems {
		sys := &StarSystem{
			ID:    def.ID,
			Name:  def.Name,
			Coord: def.Coord,
			Seed:  entropy.Derive(cfg.Seed, def.ID),
			Type:  def.Type,
			Tier:  def.Tier,
			Intel: IntelUnknown,
		}
		if def.Asteroids != nil {
			field := *def.Asteroids
			field.Reset()
			sys.Asteroids = &field
		}
		if def.Station != nil {
			sys.Station = &Station{
				ID:         def.Station.ID,
				Name:       def.Station.Name,
				Owner:      def.Station.Owner,
				Type:       def.Station.Type,
				State:      stationStateFor(def.Station.Owner),
				Integrity:  100,
				Functional: true,
			}
		}
		for _, p := range def.Planets {
			if sys.Planets == nil {
				sys.Planets = make(map[string]*Planet, len(def.Planets))
			}
			sys.Planets[p.ID] = &Planet{
				ID:   p.ID,
				Name: p.Name,
				Defense: Defense{
					Control:       p.Control,
					Garrison:      p.Garrison,
					Fortification: p.Fortification,
				},
				Population: p.Population,
			}
		}
		if def.Home {
			sys.Scan()
			home = sys.ID
		}
		g.Add(sys)
	}

	GenerateFrontier(cfg, g)

	spawns := make([]Spawn, len(layout.Spawns))
	copy(spawns, layout.Spawns)
	return &Starter{Galaxy: g, HomeID: home, Spawns: spawns}, nil
}

// stationStateFor maps an owner to the station state seen by the player.
func stationStateFor(owner Faction) StationState {
	switch owner {
	case FactionPlayer:
		return StationFriendly
	case FactionEnemy:
		return StationEnemy
	default:
		return StationDerelict
	}
}

// GenerateFrontier fills empty hexes around the systems already in g, ring
// by ring from the origin out to cfg.Radius. A hex becomes a system only if the
// density noise clears the threshold and it touches an existing system, so
// the frontier is always reachable by adjacent moves. Returns the number of
// systems added.
func GenerateFrontier(cfg GenConfig, g Galaxy) int {
	if cfg.Density <= 0 || cfg.Radius <= 0 {
		return 0
	}

	densityNoise := opensimplex.NewNormalized(int64(cfg.Seed))
	dangerNoise := opensimplex.NewNormalized(int64(cfg.Seed) + 1)
	threshold := 1.0 - cfg.Density

	occupied := g.Occupied()
	added := 0
	for radius := 1; radius <= cfg.Radius; radius++ {
		for _, coord := range Ring(HexCoord{}, radius) {
			if _, taken := occupied[coord]; taken || !touches(occupied, coord) {
				continue
			}

			// Hex axial -> cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(coord.Q) + float64(coord.R)*0.5
			y := float64(coord.R) * math.Sqrt(3.0) / 2.0
			if octaveNoise(densityNoise, x, y, 3, 0.35, 0.5) < threshold {
				continue
			}
			danger := octaveNoise(dangerNoise, x, y, 2, 0.25, 0.5)

			sys := frontierSystem(cfg.Seed, coord, radius, danger)
			g.Add(sys)
			occupied[coord] = sys.ID
			added++
		}
	}
	return added
}

func touches(occupied map[HexCoord]string, c HexCoord) bool {
	for _, n := range c.Neighbors() {
		if _, ok := occupied[n]; ok {
			return true
		}
	}
	return false
}

// frontierSystem rolls one procedural system. Everything random comes from
// the system's own derived stream so neighbours never influence each other.
func frontierSystem(galaxySeed uint32, coord HexCoord, radius int, danger float64) *StarSystem {
	id := fmt.Sprintf("frontier-%d-%d", coord.Q, coord.R)
	seed := entropy.Derive(galaxySeed, id)
	rng := entropy.New(seed)

	tier := 1 + radius/2
	if danger > 0.62 {
		tier++
	}
	tier = min(tier, 5)

	sys := &StarSystem{
		ID:    id,
		Name:  fmt.Sprintf("Frontier %+d:%+d", coord.Q, coord.R),
		Coord: coord,
		Seed:  seed,
		Tier:  tier,
		Intel: IntelUnknown,
	}

	switch {
	case danger > 0.7:
		sys.Type = SystemRift
	case rng.Float() < 0.4:
		sys.Type = SystemBelt
	case danger < 0.35:
		sys.Type = SystemNebula
	default:
		sys.Type = SystemVoid
	}

	if sys.Type == SystemBelt || (sys.Type == SystemNebula && rng.Float() < 0.3) {
		// Deeper systems skew toward rarer metals.
		weights := []float64{4, 2 + float64(tier)/2, float64(tier) - 1}
		field := &Asteroids{
			MetalTier:  economy.TierFromRank(rng.WeightedIndex(weights) + 1),
			Richness:   math.Round(rng.FloatRange(0.5, 2.0)*100) / 100,
			TotalYield: rng.IntRange(80, 300),
		}
		field.Reset()
		sys.Asteroids = field
	}
	return sys
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TypeCounts returns a summary of system type distribution.
func TypeCounts(g Galaxy) map[SystemType]int {
	counts := make(map[SystemType]int)
	for _, s := range g {
		counts[s.Type]++
	}
	return counts
}
