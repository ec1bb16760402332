package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
)

const defaultThreadTitle = "New Chat"

// AskUseCase answers a single question and records the exchange on a
// conversation thread. The thread id is explicit per call; there is no
// process-wide active thread.
type AskUseCase struct {
	resolver    *HybridResolver
	confidence  *ConfidenceNormalizer
	synthesizer *AnswerSynthesizer
	threads     ports.ThreadStore
	logger      *slog.Logger
}

func NewAskUseCase(
	resolver *HybridResolver,
	confidence *ConfidenceNormalizer,
	synthesizer *AnswerSynthesizer,
	threads ports.ThreadStore,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		resolver:    resolver,
		confidence:  confidence,
		synthesizer: synthesizer,
		threads:     threads,
		logger:      logger,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, userID, threadID, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errEmptyQuestion)
	}

	answer, err := uc.answerOnce(ctx, question)
	if err != nil {
		return nil, err
	}

	answer.ThreadID = uc.recordExchange(ctx, userID, threadID, question, answer.Text)
	return answer, nil
}

func (uc *AskUseCase) answerOnce(ctx context.Context, question string) (*domain.Answer, error) {
	resolution, err := uc.resolver.Resolve(ctx, question)
	if err != nil {
		return nil, err
	}
	score := uc.confidence.Score(resolution.WinningDistance)
	return uc.synthesizer.Synthesize(ctx, question, resolution, score)
}

// recordExchange appends the question and answer to the thread store and
// returns the thread id the exchange landed on, so the caller can continue
// a thread that was created for this call. History is best effort: failures
// are logged, never surfaced, and yield an empty id.
func (uc *AskUseCase) recordExchange(ctx context.Context, userID, threadID, question, answerText string) string {
	if uc.threads == nil {
		return ""
	}

	if threadID == "" {
		thread, err := uc.threads.CreateThread(ctx, userID, defaultThreadTitle)
		if err != nil {
			uc.logger.Warn("history_write_failed", "op", "create_thread", "user_id", userID, "error", err)
			return ""
		}
		threadID = thread.ID
	}

	now := time.Now().UTC()
	userMsg := domain.ThreadMessage{
		ThreadID:  threadID,
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: now,
	}
	if err := uc.threads.AppendMessage(ctx, userMsg); err != nil {
		uc.logger.Warn("history_write_failed", "op", "append_user", "thread_id", threadID, "error", err)
		return ""
	}

	systemMsg := domain.ThreadMessage{
		ThreadID:  threadID,
		Role:      domain.RoleSystem,
		Content:   answerText,
		CreatedAt: now,
	}
	if err := uc.threads.AppendMessage(ctx, systemMsg); err != nil {
		uc.logger.Warn("history_write_failed", "op", "append_system", "thread_id", threadID, "error", err)
	}
	return threadID
}
