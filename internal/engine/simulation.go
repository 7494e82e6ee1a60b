// Package engine is the authoritative game-state machine: the action API,
// the turn pipeline and the enemy AI, all operating on one explicitly owned
// game.State.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/persistence"
	"github.com/talgya/hexfleet/internal/world"
)

// Options configures a Simulation.
type Options struct {
	Gen   world.GenConfig
	Store persistence.Store // Where SaveGame/LoadGame go; nil disables them
}

// Simulation owns the root state and serializes every action on it.
// Each exported method takes the lock for its whole run, so actions are
// atomic with respect to each other.
type Simulation struct {
	mu    sync.Mutex
	st    *game.State
	gen   world.GenConfig
	store persistence.Store
}

// New bootstraps a fresh game.
func New(opts Options) (*Simulation, error) {
	st, err := Bootstrap(opts.Gen)
	if err != nil {
		return nil, err
	}
	return &Simulation{st: st, gen: opts.Gen, store: opts.Store}, nil
}

// Bootstrap builds the starting state: the galaxy, the starting fleets, the
// free home station and an empty treasury.
func Bootstrap(cfg world.GenConfig) (*game.State, error) {
	starter, err := world.Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("generate galaxy: %w", err)
	}

	st := game.New(cfg.Seed)
	st.Galaxy = starter.Galaxy
	st.HomeID = starter.HomeID

	for _, sp := range starter.Spawns {
		bps := make([]fleet.Blueprint, 0, len(sp.Ships))
		for _, key := range sp.Ships {
			bp, ok := fleet.Lookup(key)
			if !ok {
				return nil, fmt.Errorf("spawn %q: unknown blueprint %q", sp.Name, key)
			}
			bps = append(bps, bp)
		}
		st.AddFleet(sp.Name, sp.Owner, sp.System, bps, nil)
	}

	home := st.System(st.HomeID)
	addStation(st, home, true)

	st.Log(intel.KindSystem, "Command uplink established at %s. %d systems charted, %d unexplored.",
		home.Name, len(st.Galaxy), len(st.Galaxy)-1)

	slog.Info("galaxy bootstrapped",
		"seed", cfg.Seed,
		"systems", len(st.Galaxy),
		"fleets", len(st.Fleets),
		"home", st.HomeID,
	)
	return st, nil
}

// NewGame discards the current game and bootstraps a fresh one from the
// configured generator settings.
func (s *Simulation) NewGame() Result {
	st, err := Bootstrap(s.gen)
	if err != nil {
		// New already bootstrapped with the same config.
		panic(fmt.Sprintf("engine: bootstrap failed on a config that worked before: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
	return ok("New game started at %s", st.System(st.HomeID).Name)
}

// State returns a deep copy of the current state. Mutating it has no effect
// on the simulation.
func (s *Simulation) State() *game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

// IntelLog returns the journal, oldest first.
func (s *Simulation) IntelLog() []intel.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.IntelLog.Entries()
}

// IntelSince returns journal entries newer than seq.
func (s *Simulation) IntelSince(seq uint64) []intel.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.IntelLog.Since(seq)
}

// Blueprints returns the build catalog.
func (s *Simulation) Blueprints() []fleet.Blueprint {
	return fleet.Blueprints()
}

// Turn returns the current turn number and phase.
func (s *Simulation) Turn() (int, game.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Turn, s.st.Phase
}

// mustSystem returns a system the caller already knows exists. A miss means
// a fleet or record points at nothing, which the state never allows.
func (s *Simulation) mustSystem(id string) *world.StarSystem {
	sys := s.st.System(id)
	if sys == nil {
		panic(fmt.Sprintf("engine: system %q does not exist", id))
	}
	return sys
}
