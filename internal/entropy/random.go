// Package entropy provides the seeded random source for every gameplay
// decision. Nothing that affects the simulation may draw from math/rand or
// crypto/rand; it draws from a Rand built here instead.
package entropy

import (
	"encoding/binary"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Rand is a Mulberry32 generator. The zero value is a valid stream seeded
// with 0. Not safe for concurrent use.
type Rand struct {
	state uint32
}

// New returns a stream seeded with seed.
func New(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Derive combines a base seed with context values into an independent child
// seed. The context is hashed with BLAKE3 so that two streams with different
// contexts share no prefix, and replaying the same base seed and context
// always yields the same child.
func Derive(seed uint32, ctx ...any) uint32 {
	parts := make([]string, len(ctx))
	for i, c := range ctx {
		parts[i] = fmt.Sprint(c)
	}
	sum := blake3.Sum256([]byte(strings.Join(parts, "\x1f")))
	return seed ^ binary.LittleEndian.Uint32(sum[:4])
}

// Child returns a new stream seeded by Derive(seed, ctx...).
func Child(seed uint32, ctx ...any) *Rand {
	return New(Derive(seed, ctx...))
}

// Uint32 returns the next 32 bits of the stream.
func (r *Rand) Uint32() uint32 {
	r.state += 0x6D2B79F5
	z := r.state
	z = (z ^ z>>15) * (z | 1)
	z ^= z + (z^z>>7)*(z|61)
	return z ^ z>>14
}

// Float returns a float64 in [0, 1).
func (r *Rand) Float() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Intn returns an int in [0, n). Returns 0 when n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Float() * float64(n))
}

// IntRange returns an int in [lo, hi], inclusive on both ends.
func (r *Rand) IntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.Intn(hi-lo+1)
}

// FloatRange returns a float64 in [lo, hi).
func (r *Rand) FloatRange(lo, hi float64) float64 {
	return lo + r.Float()*(hi-lo)
}

// Pick returns a uniformly chosen element. Panics on an empty slice: asking
// for a choice among nothing is a bug in the caller.
func Pick[T any](r *Rand, items []T) T {
	if len(items) == 0 {
		panic("entropy: Pick from empty slice")
	}
	return items[r.Intn(len(items))]
}

// WeightedIndex returns an index chosen with probability proportional to its
// weight. Negative weights count as zero. Panics if the total is not positive.
func (r *Rand) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		panic("entropy: WeightedIndex with non-positive total weight")
	}
	roll := r.Float() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if roll < w {
			return i
		}
		roll -= w
	}
	// Float rounding can leave roll marginally above the last bucket.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return len(weights) - 1
}
