// Package persistence provides the SQLite run archive: one row per
// simulation run plus its telemetry windows, events and leaderboard.
package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/vivarium/telemetry"
)

// Run lifecycle states stored in the runs table.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// DB wraps a SQLite connection for run archiving.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		ticks INTEGER NOT NULL DEFAULT 0,
		final_population INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS windows (
		run_id TEXT NOT NULL,
		window_end INTEGER NOT NULL,
		learners INTEGER NOT NULL,
		causal INTEGER NOT NULL,
		players INTEGER NOT NULL,
		susceptible INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		recovered INTEGER NOT NULL,
		births INTEGER NOT NULL,
		deaths_old_age INTEGER NOT NULL,
		deaths_starvation INTEGER NOT NULL,
		deaths_exhaustion INTEGER NOT NULL,
		infections INTEGER NOT NULL,
		recoveries INTEGER NOT NULL,
		messages INTEGER NOT NULL,
		reasoning_jobs INTEGER NOT NULL,
		resources_consumed INTEGER NOT NULL,
		energy_foraged REAL NOT NULL,
		energy_mean REAL NOT NULL,
		energy_p50 REAL NOT NULL,
		trust_mean REAL NOT NULL,
		resource_count INTEGER NOT NULL,
		season TEXT NOT NULL,
		policy_states INTEGER NOT NULL,
		PRIMARY KEY (run_id, window_end)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		type TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		target_id TEXT,
		detail TEXT,
		amount REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS leaderboard (
		run_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		score REAL NOT NULL,
		survival_ticks INTEGER NOT NULL,
		offspring INTEGER NOT NULL,
		energy_foraged REAL NOT NULL,
		PRIMARY KEY (run_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_windows_run ON windows(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun registers a new run and returns its id.
func (db *DB) StartRun(seed int64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, seed, status, started_at) VALUES (?, ?, ?, ?)",
		id.String(), seed, RunStatusRunning, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run finished with its final tick and population.
func (db *DB) FinishRun(id uuid.UUID, status string, ticks, finalPopulation int) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET status = ?, completed_at = ?, ticks = ?, final_population = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339), ticks, finalPopulation, id.String(),
	)
	return err
}

// SaveWindows writes telemetry windows for a run in one transaction.
func (db *DB) SaveWindows(runID uuid.UUID, windows []telemetry.WindowStats) error {
	if len(windows) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO windows
		(run_id, window_end, learners, causal, players,
		 susceptible, infected, recovered, births,
		 deaths_old_age, deaths_starvation, deaths_exhaustion,
		 infections, recoveries, messages, reasoning_jobs,
		 resources_consumed, energy_foraged, energy_mean, energy_p50,
		 trust_mean, resource_count, season, policy_states)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range windows {
		messages := w.ThreatWarnings + w.ResourceLocations + w.HelpRequests + w.KnowledgeShares
		_, err := stmt.Exec(
			runID.String(), w.WindowEndTick, w.Learners, w.Causal, w.Players,
			w.Susceptible, w.Infected, w.Recovered, w.Births,
			w.DeathsOldAge, w.DeathsStarvation, w.DeathsExhaustion,
			w.Infections, w.Recoveries, messages, w.ReasoningJobs,
			w.ResourcesConsumed, w.EnergyForaged, w.EnergyMean, w.EnergyP50,
			w.TrustMean, w.ResourceCount, w.Season, w.PolicyStates,
		)
		if err != nil {
			return fmt.Errorf("insert window %d: %w", w.WindowEndTick, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events for a run in one transaction.
func (db *DB) SaveEvents(runID uuid.UUID, events []telemetry.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, tick, type, agent_id, kind, target_id, detail, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		row := e.ToCSV()
		_, err := stmt.Exec(
			runID.String(), row.Tick, row.Type, row.Agent,
			row.Kind, row.Target, row.Detail, row.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert event tick %d: %w", e.Tick, err)
		}
	}

	return tx.Commit()
}

// SaveLeaderboard replaces a run's leaderboard.
func (db *DB) SaveLeaderboard(runID uuid.UUID, entries []telemetry.BoardEntry) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM leaderboard WHERE run_id = ?", runID.String()); err != nil {
		return err
	}

	for rank, entry := range entries {
		_, err := tx.Exec(`INSERT INTO leaderboard
			(run_id, rank, agent_id, kind, score, survival_ticks, offspring, energy_foraged)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID.String(), rank+1, entry.Stats.ID, entry.Stats.Kind.String(), entry.Score,
			entry.Stats.SurvivalTicks, entry.Stats.Offspring, entry.Stats.EnergyForaged,
		)
		if err != nil {
			return fmt.Errorf("insert leaderboard rank %d: %w", rank+1, err)
		}
	}

	return tx.Commit()
}

// RunRow is one archived run.
type RunRow struct {
	ID              string  `db:"id"`
	Seed            int64   `db:"seed"`
	Status          string  `db:"status"`
	StartedAt       string  `db:"started_at"`
	CompletedAt     *string `db:"completed_at"`
	Ticks           int     `db:"ticks"`
	FinalPopulation int     `db:"final_population"`
}

// RecentRuns returns the most recently started runs.
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	return runs, err
}
