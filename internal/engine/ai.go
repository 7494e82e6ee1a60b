package engine

import (
	"log/slog"

	"github.com/talgya/hexfleet/internal/entropy"
	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/invasion"
	"github.com/talgya/hexfleet/internal/world"
)

// runEnemy plays the enemy phase. Every enemy fleet with budget left makes
// at most one jump toward the player's home, then lands troops if it finds
// itself over a planet it does not hold.
func (s *Simulation) runEnemy() {
	home := s.mustSystem(s.st.HomeID)
	for _, f := range s.st.FleetsOwnedBy(world.FactionEnemy) {
		if f.MovesLeft > 0 {
			s.advance(f, home)
		}
		s.landTroops(f)
	}
}

// advance jumps f to a neighbouring system strictly closer to home. Ties go
// to a stream derived from the seed, the fleet and the turn, so the same
// game replays the same way.
func (s *Simulation) advance(f *fleet.Fleet, home *world.StarSystem) {
	from := s.mustSystem(f.Location)
	dist := world.Distance(from.Coord, home.Coord)

	var best []*world.StarSystem
	bestDist := dist
	for _, next := range s.st.Galaxy.Adjacent(from.ID) {
		d := world.Distance(next.Coord, home.Coord)
		switch {
		case d < bestDist:
			best = append(best[:0], next)
			bestDist = d
		case d == bestDist && d < dist:
			best = append(best, next)
		}
	}
	if len(best) == 0 {
		return
	}

	target := best[0]
	if len(best) > 1 {
		target = entropy.Pick(entropy.Child(s.st.Seed, "enemy-move", f.ID, s.st.Turn), best)
	}
	f.Location = target.ID
	f.MovesLeft--
	s.st.Log(intel.KindMove, "Hostile contact: %s moved %s -> %s, %d jumps from %s",
		f.Name, s.systemLabel(from), s.systemLabel(target), bestDist, home.Name)

	slog.Debug("enemy moved", "fleet", f.ID, "from", from.ID, "to", target.ID, "distance_home", bestDist)
}

// landTroops starts a siege on the first planet here that the enemy does not
// hold and nobody is besieging.
func (s *Simulation) landTroops(f *fleet.Fleet) {
	troops := f.GroundTroops()
	if troops <= 0 {
		return
	}
	sys := s.mustSystem(f.Location)
	for _, pid := range sortedPlanetIDs(sys) {
		p := sys.Planets[pid]
		if p.Contested() || p.Controller() == f.Owner {
			continue
		}
		if err := invasion.Start(p, troops, f.Owner); err != nil {
			slog.Warn("enemy invasion refused", "planet", p.ID, "error", err)
			continue
		}
		f.Disembark()
		s.st.Log(intel.KindAlert, "%s landed %d troops on %s at %s", f.Name, troops, p.Name, sys.Name)
		slog.Info("enemy invasion started", "planet", p.ID, "fleet", f.ID, "strength", troops)
		return
	}
}
