package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

var _ repository.JobStore = (*pgJobStore)(nil)

type pgJobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a PostgreSQL-backed job store.
func NewJobStore(pool *pgxpool.Pool) repository.JobStore {
	return &pgJobStore{pool: pool}
}

const jobColumns = `id, prompt, model_name, parameters, status, retry_count,
	error_message, result_url, file_path, file_size, external_job_id,
	created_at, updated_at, started_at, completed_at`

func (r *pgJobStore) Create(ctx context.Context, job *domain.Job) error {
	params, err := marshalParams(job.Parameters)
	if err != nil {
		return fmt.Errorf("postgres: encode parameters: %w", err)
	}

	query := `
		INSERT INTO generation_jobs
			(id, prompt, model_name, parameters, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, query,
		job.ID, job.Prompt, job.ModelName, params,
		job.Status, job.RetryCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *pgJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: get job by id: %w", err)
	}
	return job, nil
}

// UpdateStatus performs the compare-and-set transition. The WHERE clause
// matches both id and the expected current status, so a lost race leaves
// zero rows affected instead of silently double-writing.
func (r *pgJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.JobStatus, fields repository.JobUpdates) error {
	query := `
		UPDATE generation_jobs
		SET status = $1,
		    updated_at = $2,
		    retry_count = COALESCE($3, retry_count),
		    error_message = COALESCE($4, error_message),
		    result_url = COALESCE($5, result_url),
		    file_path = COALESCE($6, file_path),
		    file_size = COALESCE($7, file_size),
		    external_job_id = COALESCE($8, external_job_id),
		    started_at = COALESCE($9, started_at),
		    completed_at = COALESCE($10, completed_at)
		WHERE id = $11 AND status = $12`

	tag, err := r.pool.Exec(ctx, query,
		next, time.Now().UTC(),
		fields.RetryCount, fields.ErrorMessage,
		fields.ResultURL, fields.FilePath, fields.FileSize, fields.ExternalJobID,
		fields.StartedAt, fields.CompletedAt,
		id, expected,
	)
	if err != nil {
		return fmt.Errorf("postgres: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Disambiguate a lost race from an unknown id.
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM generation_jobs WHERE id = $1)`, id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("postgres: update status: %w", err)
		}
		if !exists {
			return domain.ErrJobNotFound
		}
		return domain.ErrStatusConflict
	}
	return nil
}

func (r *pgJobStore) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs`
	args := []any{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (r *pgJobStore) StuckProcessing(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.StatusProcessing, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: stuck processing: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (r *pgJobStore) CompletedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE status = $1 AND completed_at < $2 AND file_path IS NOT NULL
		ORDER BY completed_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: completed before: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (r *pgJobStore) ClearResult(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE generation_jobs
		SET result_url = NULL, file_path = NULL, updated_at = $1
		WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: clear result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func marshalParams(params map[string]any) (*string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	job := &domain.Job{}
	var params *string
	err := row.Scan(
		&job.ID, &job.Prompt, &job.ModelName, &params, &job.Status, &job.RetryCount,
		&job.ErrorMessage, &job.ResultURL, &job.FilePath, &job.FileSize, &job.ExternalJobID,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if params != nil {
		if err := json.Unmarshal([]byte(*params), &job.Parameters); err != nil {
			return nil, fmt.Errorf("decode parameters: %w", err)
		}
	}
	return job, nil
}

func collectJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate jobs: %w", err)
	}
	return jobs, nil
}
