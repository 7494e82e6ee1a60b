package api

import (
	"sort"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/world"
)

// systemView is a star system as the player knows it. Unscanned systems
// show only where they are.
type systemView struct {
	ID        string                   `json:"id"`
	Coord     world.HexCoord           `json:"coord"`
	Known     bool                     `json:"known"`
	Name      string                   `json:"name,omitempty"`
	Type      world.SystemType         `json:"type,omitempty"`
	Tier      int                      `json:"tier,omitempty"`
	Asteroids *world.Asteroids         `json:"asteroids,omitempty"`
	Station   *world.Station           `json:"station,omitempty"`
	Planets   map[string]*world.Planet `json:"planets,omitempty"`
	Fleets    []string                 `json:"fleets,omitempty"`
}

func newSystemView(st *game.State, sys *world.StarSystem) systemView {
	v := systemView{ID: sys.ID, Coord: sys.Coord, Known: sys.Known()}
	if !v.Known {
		return v
	}
	v.Name = sys.Name
	v.Type = sys.Type
	v.Tier = sys.Tier
	v.Asteroids = sys.Asteroids
	v.Station = sys.Station
	v.Planets = sys.Planets
	for _, f := range st.FleetsAt(sys.ID) {
		v.Fleets = append(v.Fleets, f.ID)
	}
	return v
}

// fleetView is a fleet plus its derived aggregates.
type fleetView struct {
	*fleet.Fleet
	ShipType            fleet.ShipType `json:"ship_type"`
	Role                fleet.Role     `json:"role"`
	Integrity           int            `json:"integrity"`
	Morale              int            `json:"morale"`
	MiningTier          int            `json:"mining_tier"`
	GroundTroops        int            `json:"ground_troops"`
	GroundTroopCapacity int            `json:"ground_troop_capacity"`
	Firepower           int            `json:"firepower"`
	BuildCost           economy.Metals `json:"build_cost"`
}

func newFleetView(f *fleet.Fleet) fleetView {
	return fleetView{
		Fleet:               f,
		ShipType:            f.ShipType(),
		Role:                f.Role(),
		Integrity:           f.Integrity(),
		Morale:              f.Morale(),
		MiningTier:          f.MiningTier(),
		GroundTroops:        f.GroundTroops(),
		GroundTroopCapacity: f.GroundTroopCapacity(),
		Firepower:           f.Firepower(),
		BuildCost:           f.BuildCost(),
	}
}

// visibleFleets lists the player's fleets and any other fleet sitting in a
// scanned system, sorted by id.
func visibleFleets(st *game.State) []fleetView {
	out := []fleetView{}
	for _, id := range st.FleetIDs() {
		f := st.Fleets[id]
		if f.Owner != world.FactionPlayer {
			if sys := st.System(f.Location); sys == nil || !sys.Known() {
				continue
			}
		}
		out = append(out, newFleetView(f))
	}
	return out
}

func galaxyView(st *game.State) []systemView {
	out := make([]systemView, 0, len(st.Galaxy))
	for _, id := range st.Galaxy.IDs() {
		out = append(out, newSystemView(st, st.Galaxy[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Coord, out[j].Coord
		if a.R != b.R {
			return a.R < b.R
		}
		return a.Q < b.Q
	})
	return out
}
