package ports

import (
	"context"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for single-question analysis.
type QuestionAnswerer interface {
	Ask(ctx context.Context, userID, threadID, question string) (*domain.Answer, error)
}

// QuestionnaireAnswerer is the inbound contract for batch sheet processing.
type QuestionnaireAnswerer interface {
	AnswerSheet(ctx context.Context, rows []domain.QuestionnaireRow) []domain.BatchResultRow
}

// JobService is the inbound contract for asynchronous questionnaire jobs.
type JobService interface {
	SubmitJob(ctx context.Context, filename string, rows []domain.QuestionnaireRow) (string, error)
	JobByID(ctx context.Context, jobID string) (*domain.QuestionnaireJob, error)
	ProcessJob(ctx context.Context, jobID string) error
}
