package world

import "github.com/talgya/hexfleet/internal/economy"

// Faction identifies who owns a fleet or station, or who controls a planet.
type Faction string

const (
	FactionPlayer  Faction = "PLAYER"
	FactionEnemy   Faction = "ENEMY"
	FactionNeutral Faction = "NEUTRAL"
	// FactionContested is only ever a planet's control state, never an owner.
	FactionContested Faction = "CONTESTED"
)

// SystemType categorises a star system's terrain and danger.
type SystemType string

const (
	SystemCore     SystemType = "CORE"     // Settled space
	SystemBelt     SystemType = "BELT"     // Dense asteroid belts
	SystemNebula   SystemType = "NEBULA"   // Sensor-dampening gas
	SystemRift     SystemType = "RIFT"     // Gravitational shear
	SystemVoid     SystemType = "VOID"     // Empty deep space
	SystemFortress SystemType = "FORTRESS" // Hostile strongholds
)

// IntelState is the fog-of-war state of a system.
type IntelState string

const (
	IntelUnknown IntelState = "UNKNOWN"
	IntelScanned IntelState = "SCANNED"
)

// StarSystem is one node of the galaxy map.
type StarSystem struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Coord      HexCoord           `json:"coord"`
	Seed       uint32             `json:"seed"`
	Discovered bool               `json:"discovered"`
	Type       SystemType         `json:"type"`
	Tier       int                `json:"tier"`
	Intel      IntelState         `json:"intel"`
	Asteroids  *Asteroids         `json:"asteroids,omitempty"`
	Station    *Station           `json:"station,omitempty"`
	Planets    map[string]*Planet `json:"planets,omitempty"`
}

// Scan reveals the system. Intel only ever moves UNKNOWN -> SCANNED.
// Returns true if this call changed anything.
func (s *StarSystem) Scan() bool {
	if s.Intel == IntelScanned && s.Discovered {
		return false
	}
	s.Intel = IntelScanned
	s.Discovered = true
	return true
}

// Known reports whether the system has been scanned.
func (s *StarSystem) Known() bool {
	return s.Intel == IntelScanned
}

// Planet returns the planet with the given id, or nil.
func (s *StarSystem) Planet(id string) *Planet {
	if s.Planets == nil {
		return nil
	}
	return s.Planets[id]
}

// Asteroids is a mineable field. YieldRemaining is a percentage of
// TotalYield still in the rock.
type Asteroids struct {
	MetalTier      economy.Tier `json:"metal_tier" yaml:"metal_tier"`
	Richness       float64      `json:"richness" yaml:"richness"`
	YieldRemaining float64      `json:"yield_remaining" yaml:"-"`
	TotalYield     int          `json:"total_yield" yaml:"total_yield"`
}

// Depleted reports whether the field has nothing left to give.
func (a *Asteroids) Depleted() bool {
	return a.YieldRemaining <= 0
}

// Reset refills the field. The only way YieldRemaining ever goes up.
func (a *Asteroids) Reset() {
	a.YieldRemaining = 100
}

// StationState describes a station's allegiance relative to the player.
type StationState string

const (
	StationFriendly StationState = "FRIENDLY"
	StationEnemy    StationState = "ENEMY"
	StationDerelict StationState = "DERELICT"
)

// Station is an orbital installation attached to a system.
type Station struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Owner      Faction      `json:"owner"`
	Type       string       `json:"type"`
	State      StationState `json:"state"`
	Integrity  int          `json:"integrity"`
	Functional bool         `json:"functional"`
}

// Defense is a planet's ground defense state.
type Defense struct {
	Control       Faction `json:"control"`
	Garrison      int     `json:"garrison"`
	Fortification int     `json:"fortification"`
	Unrest        int     `json:"unrest"`
}

// Invasion is an ongoing siege. Present iff Defense.Control is CONTESTED.
type Invasion struct {
	Attacker         Faction `json:"attacker"`
	Defender         Faction `json:"defender"` // Controller before the siege began
	InvasionStrength int     `json:"invasion_strength"`
	TurnsOngoing     int     `json:"turns_ongoing"`
}

// Planet is a controllable world inside a system.
type Planet struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Defense    Defense   `json:"defense"`
	Invasion   *Invasion `json:"invasion,omitempty"`
	Population int       `json:"population"`
}

// Controller returns who holds the planet (CONTESTED during a siege).
func (p *Planet) Controller() Faction {
	return p.Defense.Control
}

// Contested reports whether a siege is in progress.
func (p *Planet) Contested() bool {
	return p.Invasion != nil
}

// GroundTroops mirrors the garrison for callers that think in troops.
func (p *Planet) GroundTroops() int {
	return p.Defense.Garrison
}
