package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

func TestThreadRepositoryCreateThreadUsesDefaultTitle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	mock.ExpectExec("INSERT INTO threads").
		WithArgs(sqlmock.AnyArg(), "u-1", "New Chat", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	thread, err := repo.CreateThread(context.Background(), "u-1", "")
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if thread.Title != "New Chat" {
		t.Fatalf("title = %q", thread.Title)
	}
	if thread.ID == "" {
		t.Fatalf("expected generated thread id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThreadRepositoryListThreadsOrdersByRecency(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}).
		AddRow("th-2", "u-1", "MFA rollout...", time.Now(), time.Now()).
		AddRow("th-1", "u-1", "New Chat", time.Now(), time.Now())

	mock.ExpectQuery("FROM threads").
		WithArgs("u-1").
		WillReturnRows(rows)

	threads, err := repo.ListThreads(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}
	if threads[0].ID != "th-2" {
		t.Fatalf("first thread = %q", threads[0].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThreadRepositoryRenameMissingThread(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	mock.ExpectExec("UPDATE threads").
		WithArgs("u-1", "missing", "renamed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.RenameThread(context.Background(), "u-1", "missing", "renamed")
	if !domain.IsKind(err, domain.ErrThreadNotFound) {
		t.Fatalf("expected thread not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThreadRepositoryDeleteRemovesMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM threads").
		WithArgs("u-1", "th-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM thread_messages").
		WithArgs("th-1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	if err := repo.DeleteThread(context.Background(), "u-1", "th-1"); err != nil {
		t.Fatalf("DeleteThread() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThreadRepositoryAppendUserMessageRetitlesFreshThread(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	mock.ExpectExec("INSERT INTO thread_messages").
		WithArgs(sqlmock.AnyArg(), "th-1", domain.RoleUser, "Do you encrypt backups at rest", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE threads SET updated_at").
		WithArgs("th-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE threads SET title").
		WithArgs("th-1", "Do you encrypt...", "New Chat").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.AppendMessage(context.Background(), domain.ThreadMessage{
		ThreadID: "th-1",
		Role:     domain.RoleUser,
		Content:  "Do you encrypt backups at rest",
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThreadRepositoryAppendSystemMessageKeepsTitle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	mock.ExpectExec("INSERT INTO thread_messages").
		WithArgs(sqlmock.AnyArg(), "th-1", domain.RoleSystem, "Yes. Backups use AES-256.", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE threads SET updated_at").
		WithArgs("th-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.AppendMessage(context.Background(), domain.ThreadMessage{
		ThreadID: "th-1",
		Role:     domain.RoleSystem,
		Content:  "Yes. Backups use AES-256.",
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThreadRepositoryListMessagesOrdersByInsertion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	// One exchange shares a single timestamp, and the answer's random id
	// sorts before the question's; only seq keeps them in insertion order.
	exchangeAt := time.Now()
	rows := sqlmock.NewRows([]string{"id", "thread_id", "role", "content", "created_at"}).
		AddRow("f0e9d8c7", "th-1", domain.RoleUser, "question", exchangeAt).
		AddRow("0a1b2c3d", "th-1", domain.RoleSystem, "answer", exchangeAt)

	mock.ExpectQuery(`(?s)FROM thread_messages.*ORDER BY seq ASC`).
		WithArgs("th-1").
		WillReturnRows(rows)

	messages, err := repo.ListMessages(context.Background(), "th-1")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != domain.RoleUser || messages[1].Role != domain.RoleSystem {
		t.Fatalf("unexpected order: %v %v", messages[0].Role, messages[1].Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
