package engine

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/invasion"
	"github.com/talgya/hexfleet/internal/world"
)

// InvadePlanet lands a player fleet's troops on a planet in the system the
// fleet occupies, starting a siege. The troops leave the fleet.
func (s *Simulation) InvadePlanet(systemID, planetID, fleetID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, gated := s.gate("invade"); gated {
		return r
	}
	sys, p, f, r, failed := s.resolveGroundTargets(systemID, planetID, fleetID)
	if failed {
		return r
	}

	troops := f.GroundTroops()
	if troops <= 0 {
		return s.reject(ReasonNoTroops, "%s carries no ground troops", f.Name)
	}
	if err := invasion.Start(p, troops, f.Owner); err != nil {
		return s.rejectSiege(err, p)
	}
	f.Disembark()
	s.st.ActionCounter++
	s.st.Log(intel.KindInvasion, "%s landed %d troops on %s at %s. Garrison %d, fortification %d.",
		f.Name, troops, p.Name, sys.Name, p.Defense.Garrison, p.Defense.Fortification)

	slog.Info("invasion started", "planet", p.ID, "attacker", f.Owner, "strength", troops)
	return ok("Siege of %s begins", p.Name)
}

// ReinforcePlanet unloads a fleet's troops into the garrison of a planet its
// owner controls.
func (s *Simulation) ReinforcePlanet(systemID, planetID, fleetID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, gated := s.gate("reinforce"); gated {
		return r
	}
	sys, p, f, r, failed := s.resolveGroundTargets(systemID, planetID, fleetID)
	if failed {
		return r
	}

	troops := f.GroundTroops()
	if err := invasion.Reinforce(p, troops, f.Owner); err != nil {
		return s.rejectSiege(err, p)
	}
	f.Disembark()
	s.st.ActionCounter++
	s.st.Log(intel.KindInvasion, "%s reinforced %s at %s with %d troops (garrison %d, unrest %d)",
		f.Name, p.Name, sys.Name, troops, p.Defense.Garrison, p.Defense.Unrest)
	return ok("Reinforced %s", p.Name)
}

// resolveGroundTargets checks the shared preconditions of the two ground
// actions: the system and planet exist, the fleet is the player's and is in
// orbit there.
func (s *Simulation) resolveGroundTargets(systemID, planetID, fleetID string) (*world.StarSystem, *world.Planet, *fleet.Fleet, Result, bool) {
	sys := s.st.System(systemID)
	if sys == nil {
		return nil, nil, nil, s.reject(ReasonNotFound, "No system with id %q", systemID), true
	}
	p := sys.Planet(planetID)
	if p == nil {
		return nil, nil, nil, s.reject(ReasonNotFound, "%s has no planet %q", s.systemLabel(sys), planetID), true
	}
	f := s.st.Fleet(fleetID)
	if f == nil {
		return nil, nil, nil, s.reject(ReasonNotFound, "No fleet with id %q", fleetID), true
	}
	if f.Owner != world.FactionPlayer {
		return nil, nil, nil, s.reject(ReasonNotOwned, "%s is not under your command", f.Name), true
	}
	if f.Location != sys.ID {
		here := s.mustSystem(f.Location)
		return nil, nil, nil, s.reject(ReasonWrongLocation, "%s is at %s, not in orbit of %s", f.Name, here.Name, p.Name), true
	}
	return sys, p, f, Result{}, false
}

func (s *Simulation) rejectSiege(err error, p *world.Planet) Result {
	switch {
	case errors.Is(err, invasion.ErrAlreadyContested):
		return s.reject(ReasonAlreadyContested, "%s is already under siege by %s", p.Name, p.Invasion.Attacker)
	case errors.Is(err, invasion.ErrSameFaction):
		return s.reject(ReasonSameFaction, "%s is already held by %s", p.Name, p.Controller())
	case errors.Is(err, invasion.ErrSiegeActive):
		return s.reject(ReasonSiegeActive, "Cannot reinforce %s while it is under siege", p.Name)
	case errors.Is(err, invasion.ErrNotController):
		return s.reject(ReasonNotOwned, "%s is held by %s; only its controller can reinforce it", p.Name, p.Controller())
	case errors.Is(err, invasion.ErrInvalidAmount):
		return s.reject(ReasonNoTroops, "No troops to land on %s", p.Name)
	default:
		return s.reject(ReasonInvalidAmount, "%s: %v", p.Name, err)
	}
}

// resolveInvasions advances every siege by one step, in system and planet
// id order. Called exactly once per turn.
func (s *Simulation) resolveInvasions() {
	for _, sid := range s.st.Galaxy.IDs() {
		sys := s.st.Galaxy[sid]
		for _, pid := range sortedPlanetIDs(sys) {
			p := sys.Planets[pid]
			attacker := world.Faction("")
			if p.Invasion != nil {
				attacker = p.Invasion.Attacker
			}
			step, active := invasion.Resolve(p)
			if !active {
				continue
			}

			switch step.Outcome {
			case invasion.OutcomeAttackerWins:
				s.st.Log(intel.KindInvasion, "%s has fallen to %s after %d turns. Occupation garrison %d.",
					p.Name, step.Controller, step.Turn, step.Garrison)
				if attacker == world.FactionEnemy {
					s.st.Log(intel.KindAlert, "We lost %s at %s", p.Name, sys.Name)
				}
			case invasion.OutcomeDefenderWins:
				s.st.Log(intel.KindInvasion, "The siege of %s is broken. %s holds with %d troops.",
					p.Name, step.Controller, step.Garrison)
			default:
				s.st.Log(intel.KindInvasion, "Siege of %s, turn %d: garrison %d (-%d), invaders %d (-%d)",
					p.Name, step.Turn, step.Garrison, step.AttackDamage, step.InvasionStrength, step.DefenseDamage)
			}
			slog.Debug("siege step", "planet", p.ID, "outcome", step.Outcome,
				"garrison", step.Garrison, "strength", step.InvasionStrength)
		}
	}
}

func sortedPlanetIDs(sys *world.StarSystem) []string {
	ids := make([]string, 0, len(sys.Planets))
	for id := range sys.Planets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
