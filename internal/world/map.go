package world

import (
	"fmt"
	"sort"
)

// Galaxy holds every star system keyed by id.
type Galaxy map[string]*StarSystem

// Get returns the system with the given id, or nil.
func (g Galaxy) Get(id string) *StarSystem {
	return g[id]
}

// Add places a system in the galaxy, replacing any system with the same id.
func (g Galaxy) Add(s *StarSystem) {
	g[s.ID] = s
}

// At returns the system occupying coord, or nil if the hex is empty space.
func (g Galaxy) At(coord HexCoord) *StarSystem {
	for _, s := range g {
		if s.Coord == coord {
			return s
		}
	}
	return nil
}

// Occupied returns the set of coordinates that hold a system.
func (g Galaxy) Occupied() map[HexCoord]string {
	out := make(map[HexCoord]string, len(g))
	for id, s := range g {
		out[s.Coord] = id
	}
	return out
}

// IDs returns all system ids sorted, for deterministic iteration.
func (g Galaxy) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Adjacent returns the systems exactly one hex step from id, sorted by id.
func (g Galaxy) Adjacent(id string) []*StarSystem {
	origin := g[id]
	if origin == nil {
		return nil
	}
	var out []*StarSystem
	for _, sid := range g.IDs() {
		s := g[sid]
		if Distance(origin.Coord, s.Coord) == 1 {
			out = append(out, s)
		}
	}
	return out
}

// Radius returns the largest distance of any system from the origin hex.
func (g Galaxy) Radius() int {
	r := 0
	for _, s := range g {
		r = max(r, Distance(HexCoord{}, s.Coord))
	}
	return r
}

// String returns a summary of the galaxy.
func (g Galaxy) String() string {
	scanned := 0
	for _, s := range g {
		if s.Known() {
			scanned++
		}
	}
	return fmt.Sprintf("Galaxy(systems=%d, scanned=%d, radius=%d)", len(g), scanned, g.Radius())
}
