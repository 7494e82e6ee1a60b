package engine

import (
	"log/slog"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/mining"
	"github.com/talgya/hexfleet/internal/world"
)

// runMining gives every eligible player miner one extraction pass. Metal is
// credited in the field's tier. Returns the total units extracted.
func (s *Simulation) runMining() int {
	total := 0
	for _, f := range s.st.FleetsOwnedBy(world.FactionPlayer) {
		if f.Role() != fleet.RoleMiner {
			continue
		}
		sys := s.mustSystem(f.Location)
		field := sys.Asteroids
		if field == nil || field.Depleted() {
			continue
		}

		gained := mining.Extract(field, f.MiningTier())
		if gained > 0 {
			economy.Credit(&s.st.Resources, field.MetalTier, gained)
			total += gained
			s.st.Log(intel.KindMine, "%s extracted %d %s at %s (field %.1f%% remaining)",
				f.Name, gained, field.MetalTier, sys.Name, field.YieldRemaining)
		}
		if field.Depleted() {
			s.st.Log(intel.KindAlert, "The asteroid field at %s is depleted", sys.Name)
		}
	}

	if total > 0 {
		slog.Debug("mining pass", "turn", s.st.Turn, "extracted", total,
			"t1", s.st.Resources.TieredMetals.T1,
			"t2", s.st.Resources.TieredMetals.T2,
			"t3", s.st.Resources.TieredMetals.T3,
		)
	}
	return total
}
