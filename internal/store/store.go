// Package store persists screening runs and their ranked results so past
// screens can be listed and re-inspected.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kvirves/rik-screener/internal/config"
)

// RunStatus tracks a screening run's lifecycle.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded screening run.
type Run struct {
	ID         string     `json:"id"`
	Profile    string     `json:"profile"`
	Status     RunStatus  `json:"status"`
	Years      []int      `json:"years"`
	Entities   int        `json:"entities"`
	ResultRows int        `json:"result_rows"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ResultRow is one ranked company in a run's final table.
type ResultRow struct {
	Rank        int            `json:"rank"`
	CompanyCode string         `json:"company_code"`
	Score       float64        `json:"score"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus
	Limit  int
}

// Store is the run-persistence interface.
type Store interface {
	CreateRun(ctx context.Context, profile string, years []int) (*Run, error)
	CompleteRun(ctx context.Context, runID string, entities, resultRows int) error
	FailRun(ctx context.Context, runID string, cause error) error
	SaveResults(ctx context.Context, runID string, rows []ResultRow) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	ListResults(ctx context.Context, runID string) ([]ResultRow, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
