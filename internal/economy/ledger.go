// Package economy provides the tiered-metal currency and the ledger
// operations every construction and refund goes through.
package economy

import (
	"fmt"
	"math"
	"strings"
)

// Tier ranks a metal. Higher tiers are rarer and pay for heavier hulls.
type Tier string

const (
	T1 Tier = "T1"
	T2 Tier = "T2"
	T3 Tier = "T3"
)

// Tiers lists every metal tier in ascending order.
var Tiers = [3]Tier{T1, T2, T3}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t == T1 || t == T2 || t == T3
}

// Rank returns 1, 2 or 3 for a valid tier and 0 otherwise.
func (t Tier) Rank() int {
	switch t {
	case T1:
		return 1
	case T2:
		return 2
	case T3:
		return 3
	}
	return 0
}

// TierFromRank is the inverse of Rank. Unknown ranks map to T1.
func TierFromRank(rank int) Tier {
	switch rank {
	case 2:
		return T2
	case 3:
		return T3
	}
	return T1
}

// Metals is an amount of each metal tier. Used both for balances and costs;
// a zero tier in a cost means that tier is not required.
type Metals struct {
	T1 int `json:"t1" yaml:"t1"`
	T2 int `json:"t2" yaml:"t2"`
	T3 int `json:"t3" yaml:"t3"`
}

// Get returns the amount held for tier t.
func (m Metals) Get(t Tier) int {
	switch t {
	case T1:
		return m.T1
	case T2:
		return m.T2
	case T3:
		return m.T3
	}
	return 0
}

// Plus returns the per-tier sum.
func (m Metals) Plus(o Metals) Metals {
	return Metals{T1: m.T1 + o.T1, T2: m.T2 + o.T2, T3: m.T3 + o.T3}
}

// IsZero reports whether every tier is zero.
func (m Metals) IsZero() bool {
	return m == Metals{}
}

// String renders the non-zero tiers, e.g. "T1 15, T2 5".
func (m Metals) String() string {
	var parts []string
	for _, t := range Tiers {
		if v := m.Get(t); v != 0 {
			parts = append(parts, fmt.Sprintf("%s %d", t, v))
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}

func (m *Metals) add(t Tier, amount int) {
	switch t {
	case T1:
		m.T1 += amount
	case T2:
		m.T2 += amount
	case T3:
		m.T3 += amount
	}
}

// Resources is the player's treasury. Alloys, gas and crystals are reserved
// currencies: carried in saves, never spent by the simulation yet.
type Resources struct {
	TieredMetals Metals `json:"tiered_metals"`
	Alloys       int    `json:"alloys"`
	Gas          int    `json:"gas"`
	Crystals     int    `json:"crystals"`
}

// CanAfford reports whether every tier of cost is covered by the balance.
func CanAfford(res Resources, cost Metals) bool {
	for _, t := range Tiers {
		if cost.Get(t) > res.TieredMetals.Get(t) {
			return false
		}
	}
	return true
}

// Shortfall returns, per tier, how much of cost the balance is missing.
// Tiers that are covered come back as zero.
func Shortfall(res Resources, cost Metals) Metals {
	var out Metals
	for _, t := range Tiers {
		if d := cost.Get(t) - res.TieredMetals.Get(t); d > 0 {
			out.add(t, d)
		}
	}
	return out
}

// Pay subtracts cost unconditionally. Callers check CanAfford first.
func Pay(res *Resources, cost Metals) {
	for _, t := range Tiers {
		res.TieredMetals.add(t, -cost.Get(t))
	}
}

// Credit adds amount of tier t. Negative amounts are ignored.
func Credit(res *Resources, t Tier, amount int) {
	if amount <= 0 {
		return
	}
	res.TieredMetals.add(t, amount)
}

// CreditAll adds every tier of m.
func CreditAll(res *Resources, m Metals) {
	for _, t := range Tiers {
		Credit(res, t, m.Get(t))
	}
}

// RefundRate is the fraction of build cost returned on dismantle.
const RefundRate = 0.5

// Refund returns floor(cost * RefundRate) per tier.
func Refund(cost Metals) Metals {
	var out Metals
	for _, t := range Tiers {
		out.add(t, int(math.Floor(float64(cost.Get(t))*RefundRate)))
	}
	return out
}
