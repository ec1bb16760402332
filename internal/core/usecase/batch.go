package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

const (
	defaultRowDelay    = 100 * time.Millisecond
	maxRowReferences   = 2
	batchScalingFactor = 100
)

var errEmptyQuestion = errors.New("question is empty")

// BatchUseCase answers an uploaded question sheet row by row with the same
// pipeline as AskUseCase, without thread history side effects. Rows are
// processed strictly in order; one row's failure never aborts the batch.
type BatchUseCase struct {
	resolver    *HybridResolver
	confidence  *ConfidenceNormalizer
	synthesizer *AnswerSynthesizer
	rowDelay    time.Duration
	logger      *slog.Logger
}

func NewBatchUseCase(
	resolver *HybridResolver,
	confidence *ConfidenceNormalizer,
	synthesizer *AnswerSynthesizer,
	rowDelay time.Duration,
	logger *slog.Logger,
) *BatchUseCase {
	if rowDelay < 0 {
		rowDelay = defaultRowDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchUseCase{
		resolver:    resolver,
		confidence:  confidence,
		synthesizer: synthesizer,
		rowDelay:    rowDelay,
		logger:      logger,
	}
}

func (uc *BatchUseCase) AnswerSheet(ctx context.Context, rows []domain.QuestionnaireRow) []domain.BatchResultRow {
	results := make([]domain.BatchResultRow, 0, len(rows))

	for index, row := range rows {
		question := strings.TrimSpace(row.Question)
		if question == "" {
			continue
		}

		id := row.ID
		if id == "" {
			id = fmt.Sprintf("Q%d", index+1)
		}

		results = append(results, uc.answerRow(ctx, id, question))

		// Pacing keeps sequential rows from overwhelming the retrieval and
		// generation backends. Interruptible between rows, never mid-row.
		if !uc.pause(ctx) {
			break
		}
	}
	return results
}

func (uc *BatchUseCase) answerRow(ctx context.Context, id, question string) domain.BatchResultRow {
	resolution, err := uc.resolver.Resolve(ctx, question)
	if err != nil {
		return uc.errorRow(id, question, err)
	}

	score := uc.confidence.Score(resolution.WinningDistance)
	answer, err := uc.synthesizer.Synthesize(ctx, question, resolution, score)
	if err != nil {
		return uc.errorRow(id, question, err)
	}

	references := answer.References
	if len(references) > maxRowReferences {
		references = references[:maxRowReferences]
	}

	return domain.BatchResultRow{
		ID:              id,
		Question:        question,
		SuggestedAnswer: answer.Text,
		Confidence:      math.Round(answer.Confidence * batchScalingFactor),
		References:      references,
		AllMatches:      answer.AllMatches,
	}
}

func (uc *BatchUseCase) errorRow(id, question string, err error) domain.BatchResultRow {
	uc.logger.Warn("questionnaire_row_failed", "row_id", id, "error", err)
	return domain.BatchResultRow{
		ID:              id,
		Question:        question,
		SuggestedAnswer: err.Error(),
		Confidence:      0,
		References:      []string{},
		AllMatches:      []string{},
	}
}

func (uc *BatchUseCase) pause(ctx context.Context) bool {
	if uc.rowDelay == 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(uc.rowDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
