package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jharjadi/guides-search/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Recorder writes and reads audit rows.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder creates a Recorder on pool.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Ping checks the database connection.
func (r *Recorder) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// StartRun inserts a running ingestion run.
func (r *Recorder) StartRun(ctx context.Context, runID uuid.UUID, storeName string, filesTotal int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (run_id, store_name, status, files_total)
		 VALUES ($1, $2, 'running', $3)`,
		runID, storeName, filesTotal,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion run: %w", err)
	}
	return nil
}

// FinishRun records the final status and stats of a run.
func (r *Recorder) FinishRun(ctx context.Context, runID uuid.UUID, status string, stats model.RunStats, errMsg string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	var errCol *string
	if errMsg != "" {
		errCol = &errMsg
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE ingestion_runs
		 SET status = $2, stats = $3, error = $4, finished_at = now(), updated_at = now()
		 WHERE run_id = $1`,
		runID, status, statsJSON, errCol,
	)
	if err != nil {
		return fmt.Errorf("finish ingestion run: %w", err)
	}
	return nil
}

// RecordQuery inserts one query log row.
func (r *Recorder) RecordQuery(ctx context.Context, q *model.QueryLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO query_logs (
			query_id, ts, request_id, store_name, question_hash, model, branch,
			num_chunks, num_supports, num_citations, abstained,
			prompt_tokens, completion_tokens, latency_ms_generate, latency_ms_total, http_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		uuid.New(), q.Timestamp, q.RequestID, q.StoreName, q.QuestionHash, q.Model, q.Branch,
		q.NumChunks, q.NumSupports, q.NumCitations, q.Abstained,
		q.PromptTokens, q.CompletionTokens, q.LatencyMSGenerate, q.LatencyMSTotal, q.HTTPStatus,
	)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

// ListRuns returns one page of ingestion runs, newest first, and the total.
func (r *Recorder) ListRuns(ctx context.Context, pg model.Pagination) ([]model.IngestionRunItem, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ingestion_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ingestion runs: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT run_id::text, store_name, status, started_at, finished_at, stats, error
		 FROM ingestion_runs
		 ORDER BY started_at DESC
		 LIMIT $1 OFFSET $2`,
		pg.Limit, pg.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list ingestion runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.IngestionRunItem, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ingestion run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ingestion runs: %w", err)
	}
	return runs, total, nil
}

// GetRun returns one ingestion run or ErrNotFound.
func (r *Recorder) GetRun(ctx context.Context, runID string) (*model.IngestionRunItem, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT run_id::text, store_name, status, started_at, finished_at, stats, error
		 FROM ingestion_runs
		 WHERE run_id = $1`,
		id,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ingestion run: %w", err)
	}
	return &run, nil
}

func scanRun(row pgx.Row) (model.IngestionRunItem, error) {
	var run model.IngestionRunItem
	var stats []byte
	if err := row.Scan(
		&run.RunID, &run.StoreName, &run.Status, &run.StartedAt, &run.FinishedAt,
		&stats, &run.Error,
	); err != nil {
		return run, err
	}
	run.Stats = json.RawMessage(stats)
	if run.FinishedAt != nil {
		durationMS := run.FinishedAt.Sub(run.StartedAt).Milliseconds()
		run.DurationMS = &durationMS
	}
	return run, nil
}

// Noop satisfies the recorder interfaces when no database is configured.
type Noop struct{}

func (Noop) Ping(context.Context) error { return nil }

func (Noop) StartRun(context.Context, uuid.UUID, string, int) error { return nil }

func (Noop) FinishRun(context.Context, uuid.UUID, string, model.RunStats, string) error {
	return nil
}

func (Noop) RecordQuery(context.Context, *model.QueryLog) error { return nil }
