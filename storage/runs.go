package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"newswire/types"
)

var runColumns = []string{
	"id", "source_type", "status", "articles_fetched", "articles_added",
	"articles_updated", "duplicates_skipped", "execution_time_ms",
	"error_message", "metadata", "started_at", "completed_at",
}

// RunMetrics carries the aggregate counters written on a run's terminal
// transition.
type RunMetrics struct {
	Fetched           int
	Added             int
	Updated           int
	DuplicatesSkipped int
	ExecutionTimeMs   int64
	ErrorMessage      *string
	Metadata          types.Metadata
}

// StartRun inserts a pending FetchRun and returns its id.
func (s *Store) StartRun(ctx context.Context, source types.SourceType) (string, error) {
	id := types.NewRunID()

	query, args, err := s.builder.
		Insert("fetch_runs").
		Columns("id", "source_type", "status", "metadata").
		Values(id, source, types.RunPending, types.Metadata{}).
		ToSql()
	if err != nil {
		return "", opErr("start_run", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", opErr("start_run", err)
	}
	return id, nil
}

// FinishRunByIDOrMostRecentPending finalizes a run exactly once. When
// runID is known it is updated directly; when it is empty, or the update
// matches nothing, the most recent pending run for the source is finalized
// instead; when no pending run exists a terminal run row is inserted so
// the metrics are never dropped on a lookup miss.
func (s *Store) FinishRunByIDOrMostRecentPending(
	ctx context.Context,
	runID string,
	source types.SourceType,
	status types.RunStatus,
	metrics RunMetrics,
) error {
	if runID != "" {
		n, err := s.finishRunWhere(ctx, sq.Eq{"id": runID, "status": types.RunPending}, status, metrics)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		s.logger.Warn("run id not found or not pending, falling back to most recent pending",
			zap.String("run_id", runID), zap.String("source", string(source)))
	}

	n, err := s.finishRunWhere(ctx, sq.Expr(
		`id = (SELECT id FROM fetch_runs WHERE source_type = ? AND status = ? ORDER BY started_at DESC LIMIT 1)`,
		source, types.RunPending,
	), status, metrics)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	return s.insertTerminalRun(ctx, source, status, metrics)
}

func (s *Store) finishRunWhere(ctx context.Context, where any, status types.RunStatus, metrics RunMetrics) (int64, error) {
	query, args, err := s.builder.
		Update("fetch_runs").
		Set("status", status).
		Set("articles_fetched", metrics.Fetched).
		Set("articles_added", metrics.Added).
		Set("articles_updated", metrics.Updated).
		Set("duplicates_skipped", metrics.DuplicatesSkipped).
		Set("execution_time_ms", metrics.ExecutionTimeMs).
		Set("error_message", metrics.ErrorMessage).
		Set("metadata", metrics.Metadata).
		Set("completed_at", sq.Expr("NOW()")).
		Where(where).
		ToSql()
	if err != nil {
		return 0, opErr("finish_run", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, opErr("finish_run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, opErr("finish_run", err)
	}
	return n, nil
}

// insertTerminalRun records a run that was never started, so telemetry
// survives even when the pending row went missing.
func (s *Store) insertTerminalRun(ctx context.Context, source types.SourceType, status types.RunStatus, metrics RunMetrics) error {
	query, args, err := s.builder.
		Insert("fetch_runs").
		Columns("id", "source_type", "status", "articles_fetched", "articles_added",
			"articles_updated", "duplicates_skipped", "execution_time_ms",
			"error_message", "metadata", "completed_at").
		Values(types.NewRunID(), source, status, metrics.Fetched, metrics.Added,
			metrics.Updated, metrics.DuplicatesSkipped, metrics.ExecutionTimeMs,
			metrics.ErrorMessage, metrics.Metadata, time.Now()).
		ToSql()
	if err != nil {
		return opErr("insert_terminal_run", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return opErr("insert_terminal_run", err)
	}
	return nil
}

// ListRuns returns the most recent fetch runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.FetchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := s.builder.
		Select(runColumns...).
		From("fetch_runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, opErr("list_runs", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	runs := []types.FetchRun{}
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, opErr("list_runs", err)
	}
	return runs, nil
}
