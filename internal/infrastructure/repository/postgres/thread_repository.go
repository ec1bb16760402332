package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

const defaultThreadTitle = "New Chat"

// ThreadRepository persists conversation threads and their append-only
// message log. Messages are never updated or reordered.
type ThreadRepository struct {
	db *sql.DB
}

func NewThreadRepository(db *sql.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ThreadRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_user ON threads (user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS thread_messages (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	thread_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_thread_messages_thread ON thread_messages (thread_id, seq);

CREATE TABLE IF NOT EXISTS questionnaire_jobs (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	rows JSONB NOT NULL,
	results JSONB,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit()
}

func (r *ThreadRepository) CreateThread(ctx context.Context, userID, title string) (*domain.Thread, error) {
	if title == "" {
		title = defaultThreadTitle
	}
	now := time.Now().UTC()
	thread := &domain.Thread{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO threads (id, user_id, title, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
`, thread.ID, thread.UserID, thread.Title, now)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return thread, nil
}

func (r *ThreadRepository) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, created_at, updated_at
FROM threads
WHERE user_id = $1
ORDER BY updated_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Thread, 0)
	for rows.Next() {
		var thread domain.Thread
		if err := rows.Scan(&thread.ID, &thread.UserID, &thread.Title, &thread.CreatedAt, &thread.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return out, nil
}

func (r *ThreadRepository) RenameThread(ctx context.Context, userID, threadID, title string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE threads
SET title = $3, updated_at = $4
WHERE user_id = $1 AND id = $2
`, userID, threadID, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename thread: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename thread rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrThreadNotFound, "rename thread", errors.New(threadID))
	}
	return nil
}

func (r *ThreadRepository) DeleteThread(ctx context.Context, userID, threadID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE user_id = $1 AND id = $2`, userID, threadID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thread rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrThreadNotFound, "delete thread", errors.New(threadID))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM thread_messages WHERE thread_id = $1`, threadID); err != nil {
		return fmt.Errorf("delete thread messages: %w", err)
	}
	return tx.Commit()
}

func (r *ThreadRepository) AppendMessage(ctx context.Context, message domain.ThreadMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO thread_messages (id, thread_id, role, content, created_at)
VALUES ($1,$2,$3,$4,$5)
`, message.ID, message.ThreadID, message.Role, message.Content, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
UPDATE threads SET updated_at = $2 WHERE id = $1
`, message.ThreadID, message.CreatedAt); err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}

	// A freshly created thread takes its title from the first user message.
	if message.Role == domain.RoleUser {
		if title := deriveTitle(message.Content); title != "" {
			if _, err := r.db.ExecContext(ctx, `
UPDATE threads SET title = $2 WHERE id = $1 AND title = $3
`, message.ThreadID, title, defaultThreadTitle); err != nil {
				return fmt.Errorf("retitle thread: %w", err)
			}
		}
	}
	return nil
}

// ListMessages returns the thread's messages in insertion order. The seq
// column decides ties: a question and its answer share one timestamp.
func (r *ThreadRepository) ListMessages(ctx context.Context, threadID string) ([]domain.ThreadMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, thread_id, role, content, created_at
FROM thread_messages
WHERE thread_id = $1
ORDER BY seq ASC
`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ThreadMessage, 0)
	for rows.Next() {
		var msg domain.ThreadMessage
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func deriveTitle(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ") + "..."
}
