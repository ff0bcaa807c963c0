package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mharting/servecheck/internal/harness"
)

// Run identifies one harness validation run and its posture.
type Run struct {
	ID         string
	Repository string
	Autofill   bool
	Platform   string
	StartedAt  time.Time
}

// NewRun builds a Run with a fresh time-ordered UUID.
func NewRun(repository string, autofill bool, platform string) Run {
	return Run{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Repository: repository,
		Autofill:   autofill,
		Platform:   platform,
		StartedAt:  time.Now().UTC(),
	}
}

// WriteRun inserts a run record. Duplicate run IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, repository, autofill, platform, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Repository,
		run.Autofill,
		run.Platform,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteModelResult inserts one model's result for a run. Rewriting the
// same (run, model) pair is a no-op, so replaying results is idempotent.
// The referenced run must exist (foreign key constraint).
func (s *Store) WriteModelResult(ctx context.Context, runID string, result harness.ModelResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_results (run_id, model, pass, actual, expected)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, model) DO NOTHING
	`,
		runID,
		result.Model,
		result.Pass,
		result.Actual,
		result.Expected,
	)
	if err != nil {
		return fmt.Errorf("write model result: %w", err)
	}
	return nil
}
