package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pmbright/synclet/internal/models"
)

// GetLastWatermark returns the window end of the most recent successful run,
// or nil when no run has ever succeeded. Partial and failed runs never move
// the watermark, so their windows are re-covered by the next run.
func (s *Store) GetLastWatermark(ctx context.Context) (*time.Time, error) {
	var watermark time.Time
	err := s.db.GetContext(ctx, &watermark,
		"SELECT window_end FROM sync_history WHERE outcome = $1 ORDER BY window_end DESC LIMIT 1",
		models.OutcomeSuccess)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &watermark, nil
}

// RecordSyncRun appends one sync_history entry. History rows are never
// updated or deleted afterwards.
func (s *Store) RecordSyncRun(ctx context.Context, run *models.SyncRun) error {
	query := `
		INSERT INTO sync_history (
			run_id, mode, window_start, window_end,
			pages_fetched, orders_upserted, orders_failed,
			outcome, error_summary, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return s.db.GetContext(ctx, &run.ID, query,
		run.RunID, run.Mode, run.WindowStart, run.WindowEnd,
		run.PagesFetched, run.OrdersUpserted, run.OrdersFailed,
		run.Outcome, run.ErrorSummary, run.StartedAt, run.FinishedAt)
}

// LastRun returns the most recent sync run of any outcome, or nil when the
// history is empty.
func (s *Store) LastRun(ctx context.Context) (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.db.GetContext(ctx, &run,
		"SELECT * FROM sync_history ORDER BY started_at DESC, id DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecentRuns returns the latest sync runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := s.db.SelectContext(ctx, &runs,
		"SELECT * FROM sync_history ORDER BY started_at DESC, id DESC LIMIT $1", limit)
	return runs, err
}
