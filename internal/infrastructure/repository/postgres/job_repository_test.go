package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

func TestJobRepositoryCreateJobStoresRowsAsJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("INSERT INTO questionnaire_jobs").
		WithArgs("job-1", "vendor.csv", string(domain.JobPending), []byte(`[{"id":"Q1","question":"Do you encrypt data at rest?"}]`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.CreateJob(context.Background(), &domain.QuestionnaireJob{
		ID:       "job-1",
		Filename: "vendor.csv",
		Status:   domain.JobPending,
		Rows:     []domain.QuestionnaireRow{{ID: "Q1", Question: "Do you encrypt data at rest?"}},
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetJobByIDDecodesResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	rows := sqlmock.NewRows([]string{"id", "filename", "status", "rows", "results", "error", "created_at", "updated_at"}).
		AddRow("job-1", "vendor.csv", string(domain.JobDone),
			[]byte(`[{"id":"Q1","question":"Do you encrypt data at rest?"}]`),
			[]byte(`[{"id":"Q1","question":"Do you encrypt data at rest?","suggestedAnswer":"Yes.","confidence":95,"references":["Encryption Policy"],"all_matches":null}]`),
			"", time.Now(), time.Now())

	mock.ExpectQuery("FROM questionnaire_jobs").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetJobByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJobByID() error = %v", err)
	}
	if job.Status != domain.JobDone {
		t.Fatalf("status = %q", job.Status)
	}
	if len(job.Results) != 1 || job.Results[0].SuggestedAnswer != "Yes." {
		t.Fatalf("unexpected results: %+v", job.Results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetJobByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectQuery("FROM questionnaire_jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "filename", "status", "rows", "results", "error", "created_at", "updated_at"}))

	_, err = repo.GetJobByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryUpdateStatusMissingJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE questionnaire_jobs").
		WithArgs("missing", string(domain.JobFailed), "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateJobStatus(context.Background(), "missing", domain.JobFailed, "boom")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositorySaveJobResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE questionnaire_jobs").
		WithArgs("job-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SaveJobResults(context.Background(), "job-1", []domain.BatchResultRow{
		{ID: "Q1", Question: "q", SuggestedAnswer: "a", Confidence: 95},
	})
	if err != nil {
		t.Fatalf("SaveJobResults() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
