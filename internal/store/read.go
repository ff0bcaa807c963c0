package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mharting/servecheck/internal/harness"
)

// RunSummary is a run with its aggregated pass/fail counts.
type RunSummary struct {
	Run    Run
	Passed int
	Failed int
}

// ReadRunSummary returns a run and its counts, or an error if the run
// does not exist.
func (s *Store) ReadRunSummary(ctx context.Context, runID string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repository, autofill, platform, started_at
		FROM runs
		WHERE id = ?
	`, runID)

	var run Run
	var startedAt string
	if err := row.Scan(&run.ID, &run.Repository, &run.Autofill, &run.Platform, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("read run: invalid started_at %q: %w", startedAt, err)
	}
	run.StartedAt = parsed

	summary := &RunSummary{Run: run}
	rows, err := s.db.QueryContext(ctx, `
		SELECT pass, COUNT(*)
		FROM model_results
		WHERE run_id = ?
		GROUP BY pass
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read run counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pass bool
		var count int
		if err := rows.Scan(&pass, &count); err != nil {
			return nil, fmt.Errorf("read run counts: %w", err)
		}
		if pass {
			summary.Passed = count
		} else {
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read run counts: %w", err)
	}

	return summary, nil
}

// ListModelResults returns every model result for a run in model-name
// order. Returns an empty slice when the run has no results.
func (s *Store) ListModelResults(ctx context.Context, runID string) ([]harness.ModelResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, pass, actual, expected
		FROM model_results
		WHERE run_id = ?
		ORDER BY model ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list model results: %w", err)
	}
	defer rows.Close()

	results := []harness.ModelResult{}
	for rows.Next() {
		var result harness.ModelResult
		if err := rows.Scan(&result.Model, &result.Pass, &result.Actual, &result.Expected); err != nil {
			return nil, fmt.Errorf("list model results: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list model results: %w", err)
	}
	return results, nil
}
