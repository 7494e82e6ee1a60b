// Package api serves the simulation over HTTP.
// GET endpoints are public and read-only.
// POST endpoints drive the action API and require an admin bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/talgya/hexfleet/internal/engine"
)

// Server serves one simulation.
type Server struct {
	Sim         *engine.Simulation
	Clock       *engine.Clock // optional; nil hides the speed control
	Port        int
	AdminSecret string // HS256 key for POST endpoints. Empty = POST disabled.
	Limiter     *RateLimiter

	streamConns int32
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	if s.Limiter == nil {
		s.Limiter = NewRateLimiter(2, 5)
	}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/galaxy", s.handleGalaxy).Methods(http.MethodGet)
	v1.HandleFunc("/systems/{id}", s.handleSystem).Methods(http.MethodGet)
	v1.HandleFunc("/fleets", s.handleFleets).Methods(http.MethodGet)
	v1.HandleFunc("/intel", s.handleIntel).Methods(http.MethodGet)
	v1.HandleFunc("/blueprints", s.handleBlueprints).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	admin := v1.NewRoute().Subrouter()
	admin.Use(s.Limiter.Middleware, s.adminOnly)
	admin.HandleFunc("/select/system", s.handleSelectSystem).Methods(http.MethodPost)
	admin.HandleFunc("/select/fleet", s.handleSelectFleet).Methods(http.MethodPost)
	admin.HandleFunc("/select/object", s.handleSelectObject).Methods(http.MethodPost)
	admin.HandleFunc("/fleets", s.handleBuildFleet).Methods(http.MethodPost)
	admin.HandleFunc("/fleets/{id}/move", s.handleMoveFleet).Methods(http.MethodPost)
	admin.HandleFunc("/fleets/{id}/dismantle", s.handleDismantleFleet).Methods(http.MethodPost)
	admin.HandleFunc("/stations", s.handleBuildStation).Methods(http.MethodPost)
	admin.HandleFunc("/systems/{system}/planets/{planet}/invade", s.handleInvade).Methods(http.MethodPost)
	admin.HandleFunc("/systems/{system}/planets/{planet}/reinforce", s.handleReinforce).Methods(http.MethodPost)
	admin.HandleFunc("/turn/end", s.handleEndTurn).Methods(http.MethodPost)
	admin.HandleFunc("/game/new", s.handleNewGame).Methods(http.MethodPost)
	admin.HandleFunc("/game/save", s.handleSave).Methods(http.MethodPost)
	admin.HandleFunc("/game/load", s.handleLoad).Methods(http.MethodPost)
	admin.HandleFunc("/speed", s.handleSpeed).Methods(http.MethodPost)

	return r
}

// Start begins serving in a goroutine. The returned server can be shut
// down by the caller.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminSecret != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		for range time.Tick(time.Hour) {
			if n := s.Limiter.Cleanup(time.Hour); n > 0 {
				slog.Debug("rate limiter cleanup", "dropped", n)
			}
		}
	}()
	return srv
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.State()
	status := map[string]any{
		"name":           "hexfleet",
		"turn":           st.Turn,
		"phase":          st.Phase,
		"home_system_id": st.HomeID,
		"resources":      st.Resources,
		"systems":        len(st.Galaxy),
		"fleets":         len(st.Fleets),
		"actions":        st.ActionCounter,
		"selected": map[string]string{
			"system": st.SelectedSystemID,
			"fleet":  st.SelectedFleetID,
			"object": st.SelectedSystemObject,
		},
	}
	if last, ok := st.IntelLog.Last(); ok {
		status["intel_seq"] = last.Seq
	}
	if s.Clock != nil {
		status["clock"] = map[string]any{
			"running":  s.Clock.Running(),
			"speed":    s.Clock.Speed(),
			"interval": s.Clock.Interval.String(),
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleGalaxy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, galaxyView(s.Sim.State()))
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.State()
	sys := st.System(mux.Vars(r)["id"])
	if sys == nil {
		http.Error(w, "system not found", http.StatusNotFound)
		return
	}
	writeJSON(w, newSystemView(st, sys))
}

func (s *Server) handleFleets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, visibleFleets(s.Sim.State()))
}

// handleIntel returns the journal, or only entries after ?since=<seq>.
func (s *Server) handleIntel(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("since")
	if v == "" {
		writeJSON(w, s.Sim.IntelLog())
		return
	}
	since, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		http.Error(w, "since must be a sequence number", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Sim.IntelSince(since))
}

func (s *Server) handleBlueprints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Blueprints())
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelectSystem(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, s.Sim.SelectSystem(req.ID))
}

func (s *Server) handleSelectFleet(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, s.Sim.SelectFleet(req.ID))
}

func (s *Server) handleSelectObject(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, s.Sim.SelectObject(req.ID))
}

func (s *Server) handleBuildFleet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blueprint string `json:"blueprint"`
		System    string `json:"system"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, s.Sim.BuildFleet(req.Blueprint, req.System))
}

func (s *Server) handleMoveFleet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, s.Sim.MoveFleet(mux.Vars(r)["id"], req.Target))
}

func (s *Server) handleDismantleFleet(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Sim.DismantleFleet(mux.Vars(r)["id"]))
}

func (s *Server) handleBuildStation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		System string `json:"system"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, s.Sim.BuildStation(req.System, false))
}

type groundRequest struct {
	Fleet string `json:"fleet"`
}

func (s *Server) handleInvade(w http.ResponseWriter, r *http.Request) {
	var req groundRequest
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	writeResult(w, s.Sim.InvadePlanet(vars["system"], vars["planet"], req.Fleet))
}

func (s *Server) handleReinforce(w http.ResponseWriter, r *http.Request) {
	var req groundRequest
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	writeResult(w, s.Sim.ReinforcePlanet(vars["system"], vars["planet"], req.Fleet))
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	if s.Clock != nil {
		writeResult(w, s.Clock.Step())
		return
	}
	writeResult(w, s.Sim.EndTurn())
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Sim.NewGame())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Sim.SaveGame())
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Sim.LoadGame())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Clock == nil {
		http.Error(w, "turn clock disabled", http.StatusConflict)
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be 0-100", http.StatusBadRequest)
		return
	}
	s.Clock.SetSpeed(req.Speed)
	slog.Info("clock speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Clock.Speed()})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps a refused action to an HTTP status.
func statusFor(res engine.Result) int {
	switch res.Reason {
	case engine.ReasonNone:
		return http.StatusOK
	case engine.ReasonNotFound, engine.ReasonNoSave, engine.ReasonUnknownBlueprint:
		return http.StatusNotFound
	case engine.ReasonCorruptSave, engine.ReasonStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func writeResult(w http.ResponseWriter, res engine.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(res))
	json.NewEncoder(w).Encode(res)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
