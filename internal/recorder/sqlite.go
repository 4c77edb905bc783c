package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"SmartPick/internal/logger"
	"SmartPick/internal/model"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	// WAL mode so dashboards can read while the scanner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL UNIQUE,
			started_at     INTEGER NOT NULL,
			duration_ms    INTEGER,
			status         TEXT,
			instruments    INTEGER,
			fetch_failures INTEGER,
			signals        INTEGER,
			candidates     INTEGER,
			fallbacks      INTEGER,
			result_file    TEXT,
			error          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_candidates (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			rank           INTEGER,
			code           TEXT,
			name           TEXT,
			market         TEXT,
			rule           TEXT,
			signal_type    TEXT,
			position       REAL,
			volume_ratio   REAL,
			pct_chg        REAL,
			score          REAL,
			industry       TEXT,
			cycle_stage    TEXT,
			suggestion     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON scan_candidates(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_code ON scan_candidates(code)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord, candidates []model.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO scan_runs
		(run_id, started_at, duration_ms, status, instruments, fetch_failures,
		 signals, candidates, fallbacks, result_file, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Started.Unix(), rec.Duration.Milliseconds(), rec.Status,
		rec.Instruments, rec.FetchFailures, rec.Signals, rec.Candidates, rec.Fallbacks,
		rec.ResultFile, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	for i, c := range candidates {
		_, err := tx.Exec(`INSERT INTO scan_candidates
			(run_id, rank, code, name, market, rule, signal_type,
			 position, volume_ratio, pct_chg,
			 score, industry, cycle_stage, suggestion)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			rec.RunID, i+1, c.Instrument.Code, c.Instrument.Name, c.Instrument.Market,
			string(c.Rule), string(c.Type),
			c.Metrics.Position, c.Metrics.VolumeRatio, c.Metrics.PctChg,
			c.Enrichment.Score, c.Enrichment.Industry, c.Enrichment.CycleStage, c.Enrichment.Suggestion,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Instrument.Code, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentCycles(limit int) ([]CycleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, started_at, duration_ms, status, instruments,
		fetch_failures, signals, candidates, fallbacks, result_file, error
		FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var (
			rec        CycleRecord
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&rec.RunID, &startedAt, &durationMs, &rec.Status, &rec.Instruments,
			&rec.FetchFailures, &rec.Signals, &rec.Candidates, &rec.Fallbacks, &rec.ResultFile, &rec.Error); err != nil {
			return nil, err
		}
		rec.Started = time.Unix(startedAt, 0)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info("closing sqlite recorder")
	return r.db.Close()
}
