package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sie-engine/siechat/internal/domain"
)

type SyncJobRepository struct {
	pool *pgxpool.Pool
}

func NewSyncJobRepository(pool *pgxpool.Pool) *SyncJobRepository {
	return &SyncJobRepository{pool: pool}
}

func (r *SyncJobRepository) Create(ctx context.Context, job *domain.SyncJob) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_jobs (id, document_id, status, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.DocumentID, job.Status, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (r *SyncJobRepository) ListPending(ctx context.Context, limit int) ([]*domain.SyncJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, status, error, created_at, updated_at
		 FROM sync_jobs
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		domain.SyncJobPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.SyncJob
	for rows.Next() {
		var j domain.SyncJob
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SyncJobRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.SyncJobCompleted, "")
}

func (r *SyncJobRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	return r.setStatus(ctx, id, domain.SyncJobFailed, errMsg)
}

func (r *SyncJobRepository) setStatus(ctx context.Context, id string, status domain.SyncJobStatus, errMsg string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE sync_jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		status, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSyncJobNotFound
	}
	return nil
}
