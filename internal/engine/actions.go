package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/world"
)

// SelectSystem moves the UI cursor to a system. Selecting an unscanned
// system reports an unknown signal and reveals nothing about it.
func (s *Simulation) SelectSystem(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	sys := s.st.System(id)
	if sys == nil {
		return s.reject(ReasonNotFound, "No system with id %q", id)
	}
	s.st.SelectedSystemID = id
	s.st.SelectedSystemObject = ""

	if !sys.Known() {
		s.st.Log(intel.KindScan, "Unknown signal at %d:%d. Send a fleet to investigate.", sys.Coord.Q, sys.Coord.R)
		return ok("Selected unknown signal")
	}
	s.st.Log(intel.KindSystem, "Selected %s (%s, tier %d)", sys.Name, sys.Type, sys.Tier)
	return ok("Selected %s", sys.Name)
}

// SelectFleet moves the fleet cursor. Only the player's own fleets can be
// selected.
func (s *Simulation) SelectFleet(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.st.Fleet(id)
	if f == nil {
		return s.reject(ReasonNotFound, "No fleet with id %q", id)
	}
	if f.Owner != world.FactionPlayer {
		return s.reject(ReasonNotOwned, "%s is not under your command", f.Name)
	}
	s.st.SelectedFleetID = id
	sys := s.mustSystem(f.Location)
	s.st.Log(intel.KindSystem, "Selected %s at %s (%d/%d moves)", f.Name, sys.Name, f.MovesLeft, f.MaxMoves)
	return ok("Selected %s", f.Name)
}

// SelectObject picks an object inside the selected system: "asteroids",
// "station", or a planet id.
func (s *Simulation) SelectObject(objectID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	sys := s.st.System(s.st.SelectedSystemID)
	if sys == nil {
		return s.reject(ReasonNotFound, "Select a system first")
	}
	if !sys.Known() {
		return s.reject(ReasonNotFound, "No intel on that system yet")
	}

	var label string
	switch {
	case objectID == "asteroids" && sys.Asteroids != nil:
		a := sys.Asteroids
		label = fmt.Sprintf("%s asteroid field, %.1f%% remaining", a.MetalTier, a.YieldRemaining)
		if a.Depleted() {
			label = fmt.Sprintf("%s asteroid field (depleted)", a.MetalTier)
		}
	case objectID == "station" && sys.Station != nil:
		label = fmt.Sprintf("%s (%s, integrity %d)", sys.Station.Name, sys.Station.State, sys.Station.Integrity)
	case sys.Planet(objectID) != nil:
		p := sys.Planet(objectID)
		label = fmt.Sprintf("%s (%s, garrison %d)", p.Name, p.Controller(), p.Defense.Garrison)
	default:
		return s.reject(ReasonNotFound, "%s has no object %q", sys.Name, objectID)
	}

	s.st.SelectedSystemObject = objectID
	s.st.Log(intel.KindSystem, "Selected %s", label)
	return ok("Selected %s", label)
}

// MoveFleet jumps a player fleet to an adjacent system. Arriving in an
// unscanned system scans it.
func (s *Simulation) MoveFleet(fleetID, targetID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, gated := s.gate("move"); gated {
		return r
	}
	f := s.st.Fleet(fleetID)
	if f == nil {
		return s.reject(ReasonNotFound, "No fleet with id %q", fleetID)
	}
	if f.Owner != world.FactionPlayer {
		return s.reject(ReasonNotOwned, "%s is not under your command", f.Name)
	}
	target := s.st.System(targetID)
	if target == nil {
		return s.reject(ReasonNotFound, "No system with id %q", targetID)
	}
	if f.MovesLeft <= 0 {
		return s.reject(ReasonNoMovesLeft, "%s has no moves left this turn (%d/%d)", f.Name, f.MovesLeft, f.MaxMoves)
	}
	from := s.mustSystem(f.Location)
	if d := world.Distance(from.Coord, target.Coord); d != 1 {
		return s.reject(ReasonNotAdjacent, "%s is %d jumps from %s; fleets move one hex at a time",
			s.systemLabel(target), d, from.Name)
	}

	f.Location = target.ID
	f.MovesLeft--
	s.st.ActionCounter++
	s.st.Log(intel.KindMove, "%s jumped %s -> %s (%d/%d moves left)",
		f.Name, from.Name, target.Name, f.MovesLeft, f.MaxMoves)

	if target.Scan() {
		s.st.Log(intel.KindScan, "Arrival scan of %s: %s", target.Name, describe(target))
	}

	slog.Debug("fleet moved", "fleet", f.ID, "from", from.ID, "to", target.ID, "moves_left", f.MovesLeft)
	return ok("%s arrived at %s", f.Name, target.Name)
}

// BuildFleet buys one ship from the catalog and puts it at a system as a
// new single-ship fleet with a full movement budget.
func (s *Simulation) BuildFleet(blueprintKey, systemID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, gated := s.gate("build"); gated {
		return r
	}
	bp, found := fleet.Lookup(blueprintKey)
	if !found || bp.ShipType == fleet.ShipStation {
		return s.reject(ReasonUnknownBlueprint, "No ship blueprint %q", blueprintKey)
	}
	sys := s.st.System(systemID)
	if sys == nil {
		return s.reject(ReasonNotFound, "No system with id %q", systemID)
	}
	if !economy.CanAfford(s.st.Resources, bp.Cost) {
		return s.rejectCost(bp.Name, bp.Cost)
	}

	economy.Pay(&s.st.Resources, bp.Cost)
	name := fmt.Sprintf("%s %d", bp.Name, s.st.NextFleetSeq)
	f := s.st.AddFleet(name, world.FactionPlayer, sys.ID, []fleet.Blueprint{bp}, nil)
	s.st.ActionCounter++
	s.st.Log(intel.KindBuild, "Commissioned %s at %s for %s", f.Name, sys.Name, bp.Cost)

	slog.Debug("fleet built", "fleet", f.ID, "blueprint", bp.Key, "system", sys.ID)
	return ok("Built %s", f.Name)
}

// DismantleFleet scraps a player fleet for half of its build cost. A
// station fleet takes its station record with it.
func (s *Simulation) DismantleFleet(fleetID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, gated := s.gate("dismantle"); gated {
		return r
	}
	f := s.st.Fleet(fleetID)
	if f == nil {
		return s.reject(ReasonNotFound, "No fleet with id %q", fleetID)
	}
	if f.Owner != world.FactionPlayer {
		return s.reject(ReasonNotOwned, "%s is not under your command", f.Name)
	}

	refund := f.DismantleRefund()
	economy.CreditAll(&s.st.Resources, refund)
	sys := s.mustSystem(f.Location)
	if sys.Station != nil && sys.Station.ID == f.ID {
		sys.Station = nil
	}
	s.st.RemoveFleet(f.ID)
	s.st.ActionCounter++
	s.st.Log(intel.KindDismantle, "Scrapped %s at %s, recovered %s", f.Name, sys.Name, refund)

	return ok("Dismantled %s", f.Name)
}

// BuildStation raises a player station at a system. A free station skips
// the phase check and the price.
func (s *Simulation) BuildStation(systemID string, free bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !free {
		if r, gated := s.gate("build a station"); gated {
			return r
		}
	}
	sys := s.st.System(systemID)
	if sys == nil {
		return s.reject(ReasonNotFound, "No system with id %q", systemID)
	}
	if sys.Station != nil {
		return s.reject(ReasonStationExists, "%s already hosts %s", sys.Name, sys.Station.Name)
	}
	cost := fleet.StationCost()
	if !free && !economy.CanAfford(s.st.Resources, cost) {
		return s.rejectCost("a station", cost)
	}

	if !free {
		economy.Pay(&s.st.Resources, cost)
	}
	addStation(s.st, sys, free)
	s.st.ActionCounter++
	return ok("Station online at %s", sys.Name)
}

// addStation creates the station fleet and record. No checks.
func addStation(st *game.State, sys *world.StarSystem, free bool) *fleet.Fleet {
	bp, _ := fleet.Lookup(fleet.StationBlueprint)
	paid := func(bp fleet.Blueprint) economy.Metals {
		if free {
			return economy.Metals{}
		}
		return bp.Cost
	}
	f := st.AddFleet(sys.Name+" Station", world.FactionPlayer, sys.ID, []fleet.Blueprint{bp}, paid)
	sys.Station = &world.Station{
		ID:         f.ID,
		Name:       f.Name,
		Owner:      world.FactionPlayer,
		Type:       "OUTPOST",
		State:      world.StationFriendly,
		Integrity:  100,
		Functional: true,
	}
	if free {
		st.Log(intel.KindBuild, "%s commissioned at no cost", f.Name)
	} else {
		st.Log(intel.KindBuild, "%s commissioned for %s", f.Name, bp.Cost)
	}
	return f
}

// gate refuses mutating actions outside the player phase.
func (s *Simulation) gate(action string) (Result, bool) {
	if s.st.Phase != game.PhasePlayer {
		return s.reject(ReasonWrongPhase, "Cannot %s during the %s phase", action, strings.ToLower(string(s.st.Phase))), true
	}
	return Result{}, false
}

// systemLabel names a system without leaking intel on unscanned ones.
func (s *Simulation) systemLabel(sys *world.StarSystem) string {
	if sys.Known() {
		return sys.Name
	}
	return fmt.Sprintf("Unknown signal %d:%d", sys.Coord.Q, sys.Coord.R)
}

// describe summarises what a scan found.
func describe(sys *world.StarSystem) string {
	parts := []string{fmt.Sprintf("%s, tier %d", sys.Type, sys.Tier)}
	if a := sys.Asteroids; a != nil {
		parts = append(parts, fmt.Sprintf("%s asteroid field (richness %.2f)", a.MetalTier, a.Richness))
	}
	if st := sys.Station; st != nil {
		parts = append(parts, fmt.Sprintf("%s station %s", strings.ToLower(string(st.State)), st.Name))
	}
	for _, id := range sortedPlanetIDs(sys) {
		p := sys.Planets[id]
		parts = append(parts, fmt.Sprintf("planet %s held by %s", p.Name, p.Controller()))
	}
	return strings.Join(parts, "; ")
}
