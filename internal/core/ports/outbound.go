package ports

import (
	"context"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

// CorpusSearcher wraps one similarity index. Results are ordered ascending by
// distance; implementations must not mutate shared index state.
type CorpusSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.Candidate, error)
}

// Embedder builds a vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator rewrites retrieved context into a user-facing answer.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ThreadStore persists conversation threads and their append-only messages.
type ThreadStore interface {
	CreateThread(ctx context.Context, userID, title string) (*domain.Thread, error)
	ListThreads(ctx context.Context, userID string) ([]domain.Thread, error)
	RenameThread(ctx context.Context, userID, threadID, title string) error
	DeleteThread(ctx context.Context, userID, threadID string) error
	AppendMessage(ctx context.Context, message domain.ThreadMessage) error
	ListMessages(ctx context.Context, threadID string) ([]domain.ThreadMessage, error)
}

// JobStore persists questionnaire jobs and their results.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.QuestionnaireJob) error
	GetJobByID(ctx context.Context, jobID string) (*domain.QuestionnaireJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, errMessage string) error
	SaveJobResults(ctx context.Context, jobID string, results []domain.BatchResultRow) error
}

// JobQueue publishes/consumes submitted questionnaire jobs.
type JobQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}
