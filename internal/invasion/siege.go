// Package invasion runs planetary sieges: a deterministic attrition model
// between a planet's garrison and an invading force, resolved once per turn.
package invasion

import (
	"errors"

	"github.com/talgya/hexfleet/internal/world"
)

var (
	ErrAlreadyContested = errors.New("planet is already under siege")
	ErrSameFaction      = errors.New("attacker already controls the planet")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrNotController    = errors.New("only the controller can reinforce")
	ErrSiegeActive      = errors.New("cannot reinforce during a siege")
)

// Outcome is the state of a siege after one resolution step.
type Outcome string

const (
	OutcomeOngoing      Outcome = "ONGOING"
	OutcomeAttackerWins Outcome = "ATTACKER_WINS"
	OutcomeDefenderWins Outcome = "DEFENDER_WINS"
)

// Step records one resolution step.
type Step struct {
	Turn             int     // Value of TurnsOngoing after the step
	AttackDamage     int     // Garrison lost
	DefenseDamage    int     // Invasion strength lost
	Garrison         int     // Garrison after the step
	InvasionStrength int     // Invasion strength after the step
	Outcome          Outcome
	Controller       world.Faction // Controller after the step
}

// Start puts a planet under siege.
func Start(p *world.Planet, strength int, attacker world.Faction) error {
	if p.Contested() {
		return ErrAlreadyContested
	}
	if attacker == p.Controller() {
		return ErrSameFaction
	}
	if strength <= 0 {
		return ErrInvalidAmount
	}
	p.Invasion = &world.Invasion{
		Attacker:         attacker,
		Defender:         p.Controller(),
		InvasionStrength: strength,
	}
	p.Defense.Control = world.FactionContested
	return nil
}

// Resolve advances a siege by one turn. Both sides deal damage computed
// from the strengths at the start of the step. Calling Resolve on a planet
// that is not contested is a no-op returning false.
func Resolve(p *world.Planet) (Step, bool) {
	inv := p.Invasion
	if inv == nil {
		return Step{}, false
	}
	d := &p.Defense

	inv.TurnsOngoing++
	attackDamage := max(1, inv.InvasionStrength-d.Fortification)
	defenseDamage := max(1, d.Garrison)
	d.Garrison = max(0, d.Garrison-attackDamage)
	inv.InvasionStrength = max(0, inv.InvasionStrength-defenseDamage)
	d.Unrest++

	step := Step{
		Turn:          inv.TurnsOngoing,
		AttackDamage:  attackDamage,
		DefenseDamage: defenseDamage,
		Outcome:       OutcomeOngoing,
	}

	switch {
	case d.Garrison <= 0:
		d.Control = inv.Attacker
		d.Garrison = max(1, inv.InvasionStrength/2)
		d.Unrest = max(0, d.Unrest-2)
		step.Outcome = OutcomeAttackerWins
		p.Invasion = nil
	case inv.InvasionStrength <= 0:
		d.Control = inv.Defender
		d.Unrest = max(0, d.Unrest-3)
		step.Outcome = OutcomeDefenderWins
		p.Invasion = nil
	}

	step.Garrison = d.Garrison
	step.InvasionStrength = inv.InvasionStrength
	step.Controller = d.Control
	return step, true
}

// Reinforce lands fresh troops on a planet its owner controls.
func Reinforce(p *world.Planet, amount int, owner world.Faction) error {
	if p.Contested() {
		return ErrSiegeActive
	}
	if owner != p.Controller() {
		return ErrNotController
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	p.Defense.Garrison += amount
	p.Defense.Unrest = max(0, p.Defense.Unrest-amount/10)
	return nil
}
