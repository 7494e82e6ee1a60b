package engine

import (
	"errors"
	"log/slog"

	"github.com/talgya/hexfleet/internal/persistence"
)

// SaveGame writes the whole state to the configured store. A successful save
// leaves the state untouched, journal included.
func (s *Simulation) SaveGame() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return s.reject(ReasonStorageFailure, "No save storage is configured")
	}
	n, err := persistence.Save(s.store, persistence.SaveKey, s.st)
	if err != nil {
		slog.Error("save failed", "error", err)
		return s.reject(ReasonStorageFailure, "Save failed: %v", err)
	}
	return ok("Game saved (%d bytes)", n)
}

// LoadGame replaces the state with the stored snapshot. On any failure the
// current game carries on unchanged apart from one ALERT entry.
func (s *Simulation) LoadGame() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return s.reject(ReasonStorageFailure, "No save storage is configured")
	}
	st, err := persistence.Load(s.store, persistence.SaveKey)
	switch {
	case errors.Is(err, persistence.ErrNoSave):
		return s.reject(ReasonNoSave, "No saved game found")
	case err != nil:
		slog.Error("load failed", "error", err)
		return s.reject(ReasonCorruptSave, "Saved game is unreadable: %v", err)
	}

	s.st = st
	return ok("Loaded turn %d", st.Turn)
}
