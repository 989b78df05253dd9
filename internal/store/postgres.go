package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to Postgres and pings the pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	profile     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	years       JSONB NOT NULL,
	entities    INTEGER NOT NULL DEFAULT 0,
	result_rows INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	rank         INTEGER NOT NULL,
	company_code TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	payload      JSONB,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_company ON run_results(company_code);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, profile string, years []int) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Profile:   profile,
		Status:    RunStatusRunning,
		Years:     years,
		StartedAt: time.Now().UTC(),
	}
	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal years")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, profile, status, years, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Profile, string(run.Status), string(yearsJSON), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, entities, resultRows int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, entities = $2, result_rows = $3, finished_at = $4 WHERE id = $5`,
		string(RunStatusCompleted), entities, resultRows, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: complete run")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: fail run")
}

func (s *PostgresStore) SaveResults(ctx context.Context, runID string, rows []ResultRow) error {
	for _, r := range rows {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal payload for %s", r.CompanyCode)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO run_results (run_id, rank, company_code, score, payload) VALUES ($1, $2, $3, $4, $5)`,
			runID, r.Rank, r.CompanyCode, r.Score, string(payload),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result %s", r.CompanyCode)
		}
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, profile, status, years::text, entities, result_rows, COALESCE(error, ''), started_at, finished_at
		 FROM runs WHERE id = $1`, runID)
	run, err := scanPgRun(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(err, "postgres: run %s not found", runID)
		}
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, profile, status, years::text, entities, result_rows, COALESCE(error, ''), started_at, finished_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`
	if filter.Limit > 0 {
		if len(args) > 0 {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanPgRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]ResultRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rank, company_code, score, COALESCE(payload::text, '') FROM run_results WHERE run_id = $1 ORDER BY rank`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		var payload string
		if err := rows.Scan(&r.Rank, &r.CompanyCode, &r.Score, &payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal payload")
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list results")
}

func scanPgRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var status, yearsJSON string
	var finished *time.Time
	if err := scan(&run.ID, &run.Profile, &status, &yearsJSON,
		&run.Entities, &run.ResultRows, &run.Error, &run.StartedAt, &finished); err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	run.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(yearsJSON), &run.Years); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal years")
	}
	run.FinishedAt = finished
	return &run, nil
}
