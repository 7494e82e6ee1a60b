// Package game holds the root simulation state: everything a save file
// contains and everything the action API mutates. The root is plain data,
// with no handles or callbacks, so a snapshot is just its JSON encoding.
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/world"
)

// Version is the current save schema version.
const Version = 2

// Phase is whose half of the turn it is.
type Phase string

const (
	PhasePlayer Phase = "PLAYER"
	PhaseEnemy  Phase = "ENEMY"
)

// State is the root of the simulation.
type State struct {
	Version int    `json:"version"`
	Seed    uint32 `json:"seed"`
	Turn    int    `json:"turn"`
	Phase   Phase  `json:"phase"`

	Galaxy world.Galaxy            `json:"galaxy"`
	Fleets map[string]*fleet.Fleet `json:"fleets"`
	HomeID string                  `json:"home_system_id"`

	// Cursor state belongs to the UI but lives here so a reload restores it.
	SelectedSystemID     string `json:"selected_system_id,omitempty"`
	SelectedFleetID      string `json:"selected_fleet_id,omitempty"`
	SelectedSystemObject string `json:"selected_system_object,omitempty"`

	Resources economy.Resources `json:"resources"`
	IntelLog  *intel.Log        `json:"intel_log"`

	NextFleetSeq  int    `json:"next_fleet_seq"`
	NextShipSeq   int    `json:"next_ship_seq"`
	ActionCounter uint64 `json:"action_counter"`
}

// New returns an empty state at turn 1, player phase.
func New(seed uint32) *State {
	return &State{
		Version:      Version,
		Seed:         seed,
		Turn:         1,
		Phase:        PhasePlayer,
		Galaxy:       make(world.Galaxy),
		Fleets:       make(map[string]*fleet.Fleet),
		IntelLog:     intel.NewLog(intel.DefaultCapacity),
		NextFleetSeq: 1,
		NextShipSeq:  1,
	}
}

// Clone returns a deep copy made by a JSON round trip.
func (s *State) Clone() *State {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("game: state is not serializable: %v", err))
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("game: state does not round-trip: %v", err))
	}
	return &out
}

// Log appends an intel entry stamped with the current turn.
func (s *State) Log(kind intel.Kind, format string, args ...any) intel.Entry {
	return s.IntelLog.Append(s.Turn, kind, fmt.Sprintf(format, args...))
}

// System returns the system with id, or nil.
func (s *State) System(id string) *world.StarSystem {
	return s.Galaxy.Get(id)
}

// Fleet returns the fleet with id, or nil.
func (s *State) Fleet(id string) *fleet.Fleet {
	return s.Fleets[id]
}

// FleetIDs returns all fleet ids in sorted order.
func (s *State) FleetIDs() []string {
	ids := make([]string, 0, len(s.Fleets))
	for id := range s.Fleets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FleetsOwnedBy returns the fleets of one faction in id order.
func (s *State) FleetsOwnedBy(owner world.Faction) []*fleet.Fleet {
	var out []*fleet.Fleet
	for _, id := range s.FleetIDs() {
		if f := s.Fleets[id]; f.Owner == owner {
			out = append(out, f)
		}
	}
	return out
}

// FleetsAt returns the fleets stationed at a system in id order.
func (s *State) FleetsAt(systemID string) []*fleet.Fleet {
	var out []*fleet.Fleet
	for _, id := range s.FleetIDs() {
		if f := s.Fleets[id]; f.Location == systemID {
			out = append(out, f)
		}
	}
	return out
}

// NewFleetID allocates the next fleet id.
func (s *State) NewFleetID() string {
	id := fmt.Sprintf("F-%d", s.NextFleetSeq)
	s.NextFleetSeq++
	return id
}

// NewShipID allocates the next ship id.
func (s *State) NewShipID() string {
	id := fmt.Sprintf("S-%d", s.NextShipSeq)
	s.NextShipSeq++
	return id
}

// AddFleet places a fleet built from the given blueprints at a system with a
// full movement budget. cost is charged against each ship as its build cost;
// pass nil to record each blueprint's own price.
func (s *State) AddFleet(name string, owner world.Faction, systemID string, bps []fleet.Blueprint, cost func(fleet.Blueprint) economy.Metals) *fleet.Fleet {
	f := &fleet.Fleet{
		ID:       s.NewFleetID(),
		Name:     name,
		Owner:    owner,
		Location: systemID,
		MaxMoves: fleet.MaxMovesFor(bps),
	}
	for _, bp := range bps {
		c := bp.Cost
		if cost != nil {
			c = cost(bp)
		}
		f.Ships = append(f.Ships, bp.NewShip(s.NewShipID(), c))
	}
	f.ResetMoves()
	s.Fleets[f.ID] = f
	return f
}

// RemoveFleet deletes a fleet and clears any selection pointing at it.
func (s *State) RemoveFleet(id string) {
	delete(s.Fleets, id)
	if s.SelectedFleetID == id {
		s.SelectedFleetID = ""
	}
}

// Validation errors.
var (
	ErrDanglingLocation = errors.New("fleet location does not resolve")
	ErrEmptyFleet       = errors.New("fleet has no ships")
	ErrMoveBudget       = errors.New("moves left outside budget")
	ErrSiegeMismatch    = errors.New("invasion record does not match control state")
	ErrBadPhase         = errors.New("unknown phase")
	ErrNegativeBalance  = errors.New("negative resource balance")
	ErrNoHome           = errors.New("home system missing")
	ErrMissingEntry     = errors.New("null entry")
	ErrOutOfRange       = errors.New("value out of range")
)

// Validate checks the structural invariants of a state. It is run on every
// loaded save before the save is allowed to replace live state.
func (s *State) Validate() error {
	if s.Phase != PhasePlayer && s.Phase != PhaseEnemy {
		return fmt.Errorf("%w: %q", ErrBadPhase, s.Phase)
	}
	if s.Galaxy.Get(s.HomeID) == nil {
		return fmt.Errorf("%w: %q", ErrNoHome, s.HomeID)
	}
	m := s.Resources.TieredMetals
	if m.T1 < 0 || m.T2 < 0 || m.T3 < 0 {
		return ErrNegativeBalance
	}
	for _, id := range s.FleetIDs() {
		f := s.Fleets[id]
		if f == nil || f.Destroyed() {
			return fmt.Errorf("%w: %s", ErrEmptyFleet, id)
		}
		if s.Galaxy.Get(f.Location) == nil {
			return fmt.Errorf("%w: %s at %q", ErrDanglingLocation, id, f.Location)
		}
		if f.MovesLeft < 0 || f.MovesLeft > f.MaxMoves {
			return fmt.Errorf("%w: %s has %d/%d", ErrMoveBudget, id, f.MovesLeft, f.MaxMoves)
		}
	}
	for _, sid := range s.Galaxy.IDs() {
		if err := validateSystem(sid, s.Galaxy[sid]); err != nil {
			return err
		}
	}
	return nil
}

func validateSystem(sid string, sys *world.StarSystem) error {
	if sys == nil {
		return fmt.Errorf("%w: system %s", ErrMissingEntry, sid)
	}
	if sys.Tier < 1 {
		return fmt.Errorf("%w: %s tier %d", ErrOutOfRange, sid, sys.Tier)
	}
	if sys.Intel != world.IntelUnknown && sys.Intel != world.IntelScanned {
		return fmt.Errorf("%w: %s intel %q", ErrOutOfRange, sid, sys.Intel)
	}
	if a := sys.Asteroids; a != nil {
		if a.YieldRemaining < 0 || a.YieldRemaining > 100 {
			return fmt.Errorf("%w: %s yield_remaining %v", ErrOutOfRange, sid, a.YieldRemaining)
		}
		if a.TotalYield < 0 || a.Richness < 0 {
			return fmt.Errorf("%w: %s field capacity %d richness %v", ErrOutOfRange, sid, a.TotalYield, a.Richness)
		}
	}
	for pid, p := range sys.Planets {
		if p == nil {
			return fmt.Errorf("%w: planet %s/%s", ErrMissingEntry, sid, pid)
		}
		d := p.Defense
		if d.Garrison < 0 || d.Fortification < 0 || d.Unrest < 0 {
			return fmt.Errorf("%w: %s/%s defense %+v", ErrOutOfRange, sid, pid, d)
		}
		contested := d.Control == world.FactionContested
		if contested != (p.Invasion != nil) {
			return fmt.Errorf("%w: %s/%s", ErrSiegeMismatch, sid, pid)
		}
		if p.Invasion != nil && p.Invasion.InvasionStrength < 0 {
			return fmt.Errorf("%w: %s/%s invasion strength %d", ErrOutOfRange, sid, pid, p.Invasion.InvasionStrength)
		}
	}
	return nil
}
