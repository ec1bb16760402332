package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

type jobStoreFake struct {
	jobs       map[string]*domain.QuestionnaireJob
	statusLog  []domain.JobStatus
	createErr  error
	resultsErr error
}

func newJobStoreFake() *jobStoreFake {
	return &jobStoreFake{jobs: make(map[string]*domain.QuestionnaireJob)}
}

func (f *jobStoreFake) CreateJob(_ context.Context, job *domain.QuestionnaireJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *jobStoreFake) GetJobByID(_ context.Context, jobID string) (*domain.QuestionnaireJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errors.New(jobID))
	}
	return job, nil
}

func (f *jobStoreFake) UpdateJobStatus(_ context.Context, jobID string, status domain.JobStatus, errMessage string) error {
	f.statusLog = append(f.statusLog, status)
	if job, ok := f.jobs[jobID]; ok {
		job.Status = status
		job.Error = errMessage
	}
	return nil
}

func (f *jobStoreFake) SaveJobResults(_ context.Context, jobID string, results []domain.BatchResultRow) error {
	if f.resultsErr != nil {
		return f.resultsErr
	}
	if job, ok := f.jobs[jobID]; ok {
		job.Results = results
	}
	return nil
}

type jobQueueFake struct {
	published []string
	err       error
}

func (f *jobQueueFake) PublishJobSubmitted(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *jobQueueFake) SubscribeJobSubmitted(context.Context, func(context.Context, string) error) error {
	return nil
}

func newJobFixture(store *jobStoreFake, queue *jobQueueFake) *JobUseCase {
	structured := &corpusFake{candidates: []domain.Candidate{structuredCandidate("Yes", "Policy", 0.1)}}
	batch := newBatchFixture(structured, &corpusFake{}, &generatorFake{})
	return NewJobUseCase(store, queue, batch, nil)
}

func TestSubmitJobPersistsAndPublishes(t *testing.T) {
	store := newJobStoreFake()
	queue := &jobQueueFake{}
	uc := newJobFixture(store, queue)

	jobID, err := uc.SubmitJob(context.Background(), "vendors.xlsx", []domain.QuestionnaireRow{{Question: "q"}})
	if err != nil {
		t.Fatalf("SubmitJob() error = %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != jobID {
		t.Fatalf("published = %v, want [%s]", queue.published, jobID)
	}
	job, err := uc.JobByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("JobByID() error = %v", err)
	}
	if job.Status != domain.JobPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
}

func TestSubmitJobRejectsEmptySheet(t *testing.T) {
	uc := newJobFixture(newJobStoreFake(), &jobQueueFake{})
	_, err := uc.SubmitJob(context.Background(), "empty.csv", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want invalid input kind", err)
	}
}

func TestSubmitJobPublishFailureMarksJobFailed(t *testing.T) {
	store := newJobStoreFake()
	queue := &jobQueueFake{err: errors.New("nats down")}
	uc := newJobFixture(store, queue)

	_, err := uc.SubmitJob(context.Background(), "vendors.csv", []domain.QuestionnaireRow{{Question: "q"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.statusLog) != 1 || store.statusLog[0] != domain.JobFailed {
		t.Fatalf("status log = %v, want [failed]", store.statusLog)
	}
}

func TestProcessJobRunsBatchAndMarksDone(t *testing.T) {
	store := newJobStoreFake()
	queue := &jobQueueFake{}
	uc := newJobFixture(store, queue)

	jobID, err := uc.SubmitJob(context.Background(), "vendors.csv", []domain.QuestionnaireRow{
		{Question: "first"},
		{Question: "second"},
	})
	if err != nil {
		t.Fatalf("SubmitJob() error = %v", err)
	}

	if err := uc.ProcessJob(context.Background(), jobID); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	job := store.jobs[jobID]
	if job.Status != domain.JobDone {
		t.Fatalf("status = %s, want done", job.Status)
	}
	if len(job.Results) != 2 {
		t.Fatalf("results = %d rows, want 2", len(job.Results))
	}
}

func TestProcessJobUnknownID(t *testing.T) {
	uc := newJobFixture(newJobStoreFake(), &jobQueueFake{})
	err := uc.ProcessJob(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("error = %v, want job not found kind", err)
	}
}
