// Command hexfleet runs the fleet simulation behind its HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexfleet/internal/api"
	"github.com/talgya/hexfleet/internal/config"
	"github.com/talgya/hexfleet/internal/engine"
	"github.com/talgya/hexfleet/internal/persistence"
	"github.com/talgya/hexfleet/internal/world"
)

func main() {
	configPath := flag.String("config", "hexfleet.yaml", "path to the YAML config file")
	mintToken := flag.Duration("token", 0, "print an admin token valid for this long and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if *mintToken > 0 {
		tok, err := api.IssueToken(cfg.AdminSecret, "admin", *mintToken)
		if err != nil {
			slog.Error("cannot issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	// ── Storage ───────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.OpenSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.New(engine.Options{
		Gen:   world.GenConfig{Seed: cfg.Seed, Radius: cfg.Radius, Density: cfg.Density},
		Store: db,
	})
	if err != nil {
		slog.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}

	// Resume the last save if there is one; a fresh game is saved at once.
	if res := sim.LoadGame(); res.OK {
		if hist, err := db.History(persistence.SaveKey, 1); err == nil && len(hist) > 0 {
			slog.Info("resumed save",
				"saved", humanize.Time(time.UnixMilli(hist[0].SavedAt)),
				"size", humanize.Bytes(uint64(hist[0].Size)),
			)
		}
	} else {
		if res.Reason != engine.ReasonNoSave {
			slog.Warn("saved game not loaded, starting fresh", "reason", res.Reason, "detail", res.Message)
		}
		sim.NewGame()
		if res := sim.SaveGame(); !res.OK {
			slog.Error("initial save failed", "detail", res.Message)
		}
	}
	turn, phase := sim.Turn()
	st := sim.State()
	slog.Info("simulation ready",
		"turn", turn,
		"phase", phase,
		"systems", len(st.Galaxy),
		"fleets", len(st.Fleets),
		"frontier", world.TypeCounts(st.Galaxy),
	)

	// ── Turn clock ────────────────────────────────────────────────────
	var clock *engine.Clock
	if cfg.TurnInterval > 0 {
		clock = engine.NewClock(sim, cfg.TurnInterval)
		clock.OnTurn = func(res engine.Result) {
			if !res.OK {
				return
			}
			if saved := sim.SaveGame(); !saved.OK {
				slog.Error("autosave failed", "detail", saved.Message)
			}
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminSecret == "" {
		slog.Warn("HEXFLEET_ADMIN_SECRET not set; admin POST endpoints will be disabled")
	}
	limiter := api.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	limiter.TrustForwarded = cfg.TrustProxy
	apiServer := &api.Server{
		Sim:         sim,
		Clock:       clock,
		Port:        cfg.Port,
		AdminSecret: cfg.AdminSecret,
		Limiter:     limiter,
	}
	httpServer := apiServer.Start()

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if clock != nil {
		go func() {
			<-ctx.Done()
			clock.Stop()
		}()
		fmt.Printf("Turn clock: one turn every %s (Ctrl+C to stop)\n", cfg.TurnInterval)
		clock.Run()
	} else {
		fmt.Println("Waiting for commands... (Ctrl+C to stop)")
		<-ctx.Done()
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}

	// Final save on shutdown.
	if res := sim.SaveGame(); !res.OK {
		slog.Error("final save failed", "detail", res.Message)
		return
	}
	fmt.Println("Simulation stopped. Game saved.")
}
