// Package world provides the hex grid and the galaxy map: star systems,
// asteroid fields, stations and planets.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "math"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns the component-wise sum of two coordinates.
func (h HexCoord) Add(o HexCoord) HexCoord {
	return HexCoord{Q: h.Q + o.Q, R: h.R + o.R}
}

// Scale multiplies both components by k.
func (h HexCoord) Scale(k int) HexCoord {
	return HexCoord{Q: h.Q * k, R: h.R * k}
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbor returns the adjacent coordinate in direction dir.
// Any integer is accepted; it is reduced modulo 6.
func Neighbor(c HexCoord, dir int) HexCoord {
	dir %= 6
	if dir < 0 {
		dir += 6
	}
	return c.Add(HexNeighborDirections[dir])
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

// Ring returns the coordinates exactly radius steps from center, walking
// the ring counter-clockwise starting from the direction-4 corner.
// Radius 0 yields the center alone.
func Ring(center HexCoord, radius int) []HexCoord {
	if radius <= 0 {
		return []HexCoord{center}
	}
	out := make([]HexCoord, 0, 6*radius)
	h := center.Add(HexNeighborDirections[4].Scale(radius))
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			out = append(out, h)
			h = Neighbor(h, side)
		}
	}
	return out
}

// FracHex is a fractional axial coordinate, typically produced by a
// pixel-to-hex conversion before it is snapped to a real hex.
type FracHex struct {
	Q float64
	R float64
}

// Round snaps a fractional coordinate to the nearest hex. The component with
// the largest rounding error is recomputed from the other two so the cube
// constraint q + r + s = 0 always holds.
func (f FracHex) Round() HexCoord {
	s := -f.Q - f.R
	rq := math.Round(f.Q)
	rr := math.Round(f.R)
	rs := math.Round(s)

	dq := math.Abs(rq - f.Q)
	dr := math.Abs(rr - f.R)
	ds := math.Abs(rs - s)

	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return HexCoord{Q: int(rq), R: int(rr)}
}

// Layout converts between hex and pixel space for a pointy-top grid.
// The core never draws anything; renderers use this to map picks back to
// coordinates.
type Layout struct {
	Size    float64 // Hex radius in pixels
	OriginX float64
	OriginY float64
}

var sqrt3 = math.Sqrt(3.0)

// ToPixel returns the pixel center of h.
func (l Layout) ToPixel(h HexCoord) (x, y float64) {
	x = l.Size*(sqrt3*float64(h.Q)+sqrt3/2*float64(h.R)) + l.OriginX
	y = l.Size*(1.5*float64(h.R)) + l.OriginY
	return x, y
}

// FromPixel returns the fractional hex under a pixel position.
func (l Layout) FromPixel(x, y float64) FracHex {
	px := (x - l.OriginX) / l.Size
	py := (y - l.OriginY) / l.Size
	q := sqrt3/3*px - 1.0/3*py
	r := 2.0 / 3 * py
	return FracHex{Q: q, R: r}
}

// HexAt returns the hex containing a pixel position.
func (l Layout) HexAt(x, y float64) HexCoord {
	return l.FromPixel(x, y).Round()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
