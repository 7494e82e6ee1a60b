package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/intel"
)

// Reason says why an action was refused.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonWrongPhase            Reason = "WRONG_PHASE"
	ReasonNotFound              Reason = "NOT_FOUND"
	ReasonNotOwned              Reason = "NOT_OWNED"
	ReasonNotAdjacent           Reason = "NOT_ADJACENT"
	ReasonNoMovesLeft           Reason = "NO_MOVES_LEFT"
	ReasonInsufficientResources Reason = "INSUFFICIENT_RESOURCES"
	ReasonUnknownBlueprint      Reason = "UNKNOWN_BLUEPRINT"
	ReasonStationExists         Reason = "STATION_EXISTS"
	ReasonAlreadyContested      Reason = "ALREADY_CONTESTED"
	ReasonSameFaction           Reason = "SAME_FACTION"
	ReasonInvalidAmount         Reason = "INVALID_AMOUNT"
	ReasonSiegeActive           Reason = "SIEGE_ACTIVE"
	ReasonNoTroops              Reason = "NO_TROOPS"
	ReasonWrongLocation         Reason = "WRONG_LOCATION"
	ReasonNoSave                Reason = "NO_SAVE"
	ReasonCorruptSave           Reason = "CORRUPT_SAVE"
	ReasonStorageFailure        Reason = "STORAGE_FAILURE"
)

// Result is what every action returns. OK is the plain success flag; on
// failure Reason says why and, for resource shortfalls, Needed and Have
// carry the exact amounts.
type Result struct {
	OK      bool            `json:"ok"`
	Reason  Reason          `json:"reason,omitempty"`
	Message string          `json:"message"`
	Needed  *economy.Metals `json:"needed,omitempty"`
	Have    *economy.Metals `json:"have,omitempty"`
}

// Error lets a failed Result be handled as an error.
func (r Result) Error() string {
	if r.OK {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

func ok(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

// reject records a refusal as an ALERT entry and returns it. Nothing else
// in the state changes. Caller holds s.mu.
func (s *Simulation) reject(reason Reason, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	s.st.Log(intel.KindAlert, "%s", msg)
	slog.Debug("action rejected", "reason", reason, "detail", msg, "turn", s.st.Turn)
	return Result{Reason: reason, Message: msg}
}

// rejectCost is reject for resource shortfalls.
func (s *Simulation) rejectCost(what string, cost economy.Metals) Result {
	have := s.st.Resources.TieredMetals
	var parts []string
	for _, t := range economy.Tiers {
		if need := cost.Get(t); need > have.Get(t) {
			parts = append(parts, fmt.Sprintf("%s need %d have %d", t, need, have.Get(t)))
		}
	}
	r := s.reject(ReasonInsufficientResources,
		"Cannot afford %s: %s", what, strings.Join(parts, ", "))
	r.Needed = &cost
	r.Have = &have
	return r
}
