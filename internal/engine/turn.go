package engine

import (
	"log/slog"

	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/world"
)

// EndTurn closes the player phase and runs the rest of the turn in a fixed
// order: mining, the enemy phase, siege resolution, then the turn advances
// and the player gets fresh move budgets.
func (s *Simulation) EndTurn() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, gated := s.gate("end the turn"); gated {
		return r
	}
	ended := s.st.Turn

	mined := s.runMining()

	s.st.Phase = game.PhaseEnemy
	s.resetMoves(world.FactionEnemy)
	s.runEnemy()

	s.resolveInvasions()

	s.st.Turn++
	s.st.Phase = game.PhasePlayer
	s.resetMoves(world.FactionPlayer)

	s.st.Log(intel.KindSystem, "Turn %d begins. Treasury: %s", s.st.Turn, s.st.Resources.TieredMetals)
	slog.Info("turn ended", "turn", ended, "mined", mined, "fleets", len(s.st.Fleets))
	return ok("Turn %d", s.st.Turn)
}

func (s *Simulation) resetMoves(owner world.Faction) {
	for _, f := range s.st.FleetsOwnedBy(owner) {
		f.ResetMoves()
	}
}
