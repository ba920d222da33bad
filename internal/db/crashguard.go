package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunCrashGuard marks running ingestion runs whose updated_at is older than
// runningStaleMin minutes as failed. A setup process that was killed leaves
// such rows behind.
func RunCrashGuard(ctx context.Context, pool *pgxpool.Pool, runningStaleMin int) error {
	tag, err := pool.Exec(ctx,
		`UPDATE ingestion_runs
		 SET status = 'failed',
		     error = 'interrupted: setup stopped before finishing',
		     finished_at = now(),
		     updated_at = now()
		 WHERE status = 'running'
		   AND updated_at < now() - make_interval(mins => $1)`,
		runningStaleMin,
	)
	if err != nil {
		return fmt.Errorf("crash guard (running): %w", err)
	}
	if tag.RowsAffected() > 0 {
		slog.Warn("crash guard: marked stale running runs as failed",
			"count", tag.RowsAffected(),
			"stale_minutes", runningStaleMin,
		)
	}

	slog.Info("crash guard complete")
	return nil
}
