package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

// JobRepository persists questionnaire jobs. Row and result sets are stored as
// JSONB blobs since the worker always reads and writes them whole.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.QuestionnaireJob) error {
	rowsJSON, err := json.Marshal(job.Rows)
	if err != nil {
		return fmt.Errorf("marshal job rows: %w", err)
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
INSERT INTO questionnaire_jobs (id, filename, status, rows, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, job.ID, job.Filename, job.Status, rowsJSON, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetJobByID(ctx context.Context, jobID string) (*domain.QuestionnaireJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, status, rows, results, error, created_at, updated_at
FROM questionnaire_jobs
WHERE id = $1
`, jobID)

	var (
		job         domain.QuestionnaireJob
		rowsJSON    []byte
		resultsJSON []byte
	)
	err := row.Scan(&job.ID, &job.Filename, &job.Status, &rowsJSON, &resultsJSON, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errors.New(jobID))
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if len(rowsJSON) > 0 {
		if err := json.Unmarshal(rowsJSON, &job.Rows); err != nil {
			return nil, fmt.Errorf("unmarshal job rows: %w", err)
		}
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &job.Results); err != nil {
			return nil, fmt.Errorf("unmarshal job results: %w", err)
		}
	}
	return &job, nil
}

func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE questionnaire_jobs
SET status = $2, error = $3, updated_at = $4
WHERE id = $1
`, jobID, status, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "update job status", errors.New(jobID))
	}
	return nil
}

func (r *JobRepository) SaveJobResults(ctx context.Context, jobID string, results []domain.BatchResultRow) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal job results: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE questionnaire_jobs
SET results = $2, updated_at = $3
WHERE id = $1
`, jobID, resultsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save job results: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save job results rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "save job results", errors.New(jobID))
	}
	return nil
}
