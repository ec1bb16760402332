package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
)

// JobUseCase runs questionnaire processing asynchronously: the API persists a
// job and publishes its id, the worker consumes the id and executes the same
// batch pipeline.
type JobUseCase struct {
	jobs   ports.JobStore
	queue  ports.JobQueue
	batch  *BatchUseCase
	logger *slog.Logger
}

func NewJobUseCase(jobs ports.JobStore, queue ports.JobQueue, batch *BatchUseCase, logger *slog.Logger) *JobUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobUseCase{
		jobs:   jobs,
		queue:  queue,
		batch:  batch,
		logger: logger,
	}
}

func (uc *JobUseCase) SubmitJob(ctx context.Context, filename string, rows []domain.QuestionnaireRow) (string, error) {
	if len(rows) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "submit job", fmt.Errorf("questionnaire has no rows"))
	}

	now := time.Now().UTC()
	job := &domain.QuestionnaireJob{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    domain.JobPending,
		Rows:      rows,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	if err := uc.queue.PublishJobSubmitted(ctx, job.ID); err != nil {
		if updateErr := uc.jobs.UpdateJobStatus(ctx, job.ID, domain.JobFailed, err.Error()); updateErr != nil {
			uc.logger.Error("job_status_update_failed", "job_id", job.ID, "error", updateErr)
		}
		return "", fmt.Errorf("publish job: %w", err)
	}
	return job.ID, nil
}

func (uc *JobUseCase) JobByID(ctx context.Context, jobID string) (*domain.QuestionnaireJob, error) {
	job, err := uc.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (uc *JobUseCase) ProcessJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	if err := uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobProcessing, ""); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	results := uc.batch.AnswerSheet(ctx, job.Rows)
	if err := ctx.Err(); err != nil {
		// The request context is already dead; the status write gets its own.
		statusCtx := context.WithoutCancel(ctx)
		if updateErr := uc.jobs.UpdateJobStatus(statusCtx, jobID, domain.JobFailed, err.Error()); updateErr != nil {
			uc.logger.Error("job_status_update_failed", "job_id", jobID, "error", updateErr)
		}
		return fmt.Errorf("job interrupted: %w", err)
	}

	if err := uc.jobs.SaveJobResults(ctx, jobID, results); err != nil {
		if updateErr := uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobFailed, err.Error()); updateErr != nil {
			uc.logger.Error("job_status_update_failed", "job_id", jobID, "error", updateErr)
		}
		return fmt.Errorf("save job results: %w", err)
	}
	return uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobDone, "")
}
