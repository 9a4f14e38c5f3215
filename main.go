package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/vivarium/config"
	"github.com/pthm-cable/vivarium/persistence"
	"github.com/pthm-cable/vivarium/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	logStats := flag.Bool("log-stats", false, "Log each telemetry window via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite run archive path (empty = disabled)")
	snapshotPath := flag.String("final-snapshot", "", "Write a JSON state snapshot on exit")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	s, err := sim.NewWithOptions(sim.Options{
		Seed:       rngSeed,
		OutputDir:  *outputDir,
		LogWindows: *logStats,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	// Optional run archive
	var archive *persistence.DB
	if *dbPath != "" {
		archive, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open run archive", "error", err)
			os.Exit(1)
		}
		defer archive.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"population", s.Population(),
	)

	status := persistence.RunStatusCompleted

loop:
	for {
		frame := s.Step()

		if frame.Population == 0 {
			slog.Info("population extinct", "tick", frame.Tick)
			break
		}
		if *maxTicks > 0 && s.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			break
		}

		select {
		case <-sigCh:
			slog.Info("interrupted", "tick", s.Tick())
			status = persistence.RunStatusAborted
			break loop
		default:
		}
	}

	if archive != nil {
		archiveRun(archive, s, rngSeed, status)
	}

	if *snapshotPath != "" {
		if err := s.BuildSnapshot().Write(*snapshotPath); err != nil {
			slog.Error("failed to write snapshot", "error", err)
		} else {
			slog.Info("snapshot written", "path", *snapshotPath)
		}
	}

	if err := s.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
	}

	slog.Info("simulation finished",
		"ticks", s.Tick(),
		"population", s.Population(),
		"status", status,
	)
}

// archiveRun stores the run's telemetry record in the SQLite archive.
// Events are bounded by the history ring; the CSV output holds the full
// stream when enabled.
func archiveRun(db *persistence.DB, s *sim.Simulation, seed int64, status string) {
	runID, err := db.StartRun(seed)
	if err != nil {
		slog.Error("failed to register run", "error", err)
		return
	}

	h := s.History()
	if err := db.SaveWindows(runID, h.Windows()); err != nil {
		slog.Error("failed to archive windows", "error", err)
	}
	if err := db.SaveEvents(runID, h.Events()); err != nil {
		slog.Error("failed to archive events", "error", err)
	}
	if err := db.SaveLeaderboard(runID, h.Leaderboard()); err != nil {
		slog.Error("failed to archive leaderboard", "error", err)
	}
	if err := db.FinishRun(runID, status, s.Tick(), s.Population()); err != nil {
		slog.Error("failed to finish run", "error", err)
	}

	slog.Info("run archived", "run_id", runID.String())
}
