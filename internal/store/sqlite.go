package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	profile     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	years       TEXT NOT NULL,
	entities    INTEGER NOT NULL DEFAULT 0,
	result_rows INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	rank         INTEGER NOT NULL,
	company_code TEXT NOT NULL,
	score        REAL NOT NULL,
	payload      TEXT,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_company ON run_results(company_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, profile string, years []int) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Profile:   profile,
		Status:    RunStatusRunning,
		Years:     years,
		StartedAt: time.Now().UTC(),
	}
	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal years")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, profile, status, years, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Profile, string(run.Status), string(yearsJSON), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, entities, resultRows int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, entities = ?, result_rows = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusCompleted), entities, resultRows, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: complete run")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: fail run")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, rows []ResultRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_results (run_id, rank, company_code, score, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal payload for %s", r.CompanyCode)
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Rank, r.CompanyCode, r.Score, string(payload)); err != nil {
			return eris.Wrapf(err, "sqlite: insert result %s", r.CompanyCode)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit results")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, profile, status, years, entities, result_rows, COALESCE(error, ''), started_at, finished_at
		 FROM runs WHERE id = ?`, runID)
	return scanRun(row.Scan)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, profile, status, years, entities, result_rows, COALESCE(error, ''), started_at, finished_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, company_code, score, COALESCE(payload, '') FROM run_results WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close() //nolint:errcheck

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var payload string
		if err := rows.Scan(&r.Rank, &r.CompanyCode, &r.Score, &payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal payload")
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list results")
}

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var status, yearsJSON string
	var finished sql.NullTime
	if err := scan(&run.ID, &run.Profile, &status, &yearsJSON,
		&run.Entities, &run.ResultRows, &run.Error, &run.StartedAt, &finished); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrap(err, "store: run not found")
		}
		return nil, eris.Wrap(err, "store: scan run")
	}
	run.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(yearsJSON), &run.Years); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal years")
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
