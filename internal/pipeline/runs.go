package pipeline

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/wb-unit/backend-go/internal/domain"
)

// RunStatus represents the current state of an ingestion run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// IngestRun tracks a single execution of the ingestion for a specific date
type IngestRun struct {
	ID             int64
	Date           time.Time
	Status         RunStatus
	RowsInserted   int
	RowsUpdated    int
	SkippedBatches string
	StartedAt      time.Time
	CompletedAt    *time.Time
	ErrorMessage   string
}

// RunTracker handles database operations for ingestion run tracking
type RunTracker struct {
	db *sql.DB
}

// NewRunTracker creates a new run tracker
func NewRunTracker(db *sql.DB) *RunTracker {
	return &RunTracker{db: db}
}

func (t *RunTracker) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ingest_runs (
			id BIGSERIAL PRIMARY KEY,
			date DATE NOT NULL,
			status TEXT NOT NULL,
			rows_inserted INTEGER NOT NULL DEFAULT 0,
			rows_updated INTEGER NOT NULL DEFAULT 0,
			skipped_batches TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			error_message TEXT NOT NULL DEFAULT ''
		)
	`
	_, err := t.db.ExecContext(ctx, query)
	return err
}

// StartRun records the beginning of an ingestion run
func (t *RunTracker) StartRun(ctx context.Context, date time.Time) (*IngestRun, error) {
	run := &IngestRun{
		Date:      Midnight(date),
		Status:    RunStatusProcessing,
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO ingest_runs (date, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := t.db.QueryRowContext(ctx, query, run.Date, run.Status, run.StartedAt).Scan(&run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun marks a run finished with its summary figures
func (t *RunTracker) CompleteRun(ctx context.Context, run *IngestRun, summary *domain.RunSummary) error {
	now := time.Now().UTC()
	run.Status = RunStatusCompleted
	run.RowsInserted = summary.RowsInserted
	run.RowsUpdated = summary.RowsUpdated
	run.SkippedBatches = strings.Join(summary.SkippedBatches, "; ")
	run.CompletedAt = &now

	query := `
		UPDATE ingest_runs
		SET status = $1, rows_inserted = $2, rows_updated = $3,
		    skipped_batches = $4, completed_at = $5
		WHERE id = $6
	`
	_, err := t.db.ExecContext(ctx, query,
		run.Status, run.RowsInserted, run.RowsUpdated,
		run.SkippedBatches, run.CompletedAt, run.ID,
	)
	return err
}

// FailRun marks a run failed with its error
func (t *RunTracker) FailRun(ctx context.Context, run *IngestRun, runErr error) error {
	now := time.Now().UTC()
	run.Status = RunStatusFailed
	run.ErrorMessage = runErr.Error()
	run.CompletedAt = &now

	query := `
		UPDATE ingest_runs
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4
	`
	_, err := t.db.ExecContext(ctx, query, run.Status, run.ErrorMessage, run.CompletedAt, run.ID)
	return err
}

// LatestRunByDate retrieves the most recent run for a specific date
func (t *RunTracker) LatestRunByDate(ctx context.Context, date time.Time) (*IngestRun, error) {
	query := `
		SELECT id, date, status, rows_inserted, rows_updated,
		       skipped_batches, started_at, completed_at, error_message
		FROM ingest_runs
		WHERE date = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	run := &IngestRun{}
	err := t.db.QueryRowContext(ctx, query, Midnight(date)).Scan(
		&run.ID, &run.Date, &run.Status, &run.RowsInserted, &run.RowsUpdated,
		&run.SkippedBatches, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}
