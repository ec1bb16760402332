package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
)

const (
	missingFieldPlaceholder = "No answer available"

	noEvidenceAnswer = "Based on our knowledge base, I don't have enough information to provide a specific answer to that question. Would you like me to forward this to our security team for a detailed response?"
)

// promptTemplates maps each source kind to its generation instruction. Both
// templates take the context block first and the question second.
var promptTemplates = map[domain.SourceKind]string{
	domain.SourceStructured: `You are an InfoSec QA assistant. Answer security and compliance questions using only the provided context.
For each response:

Format the response into a readable paragraph if it is not already in paragraph form.
Do not add, remove, or change any words. Preserve the original wording and meaning exactly.

Response style:
[your formatted response]

Context:
%s
Question:
%s`,
	domain.SourceUnstructured: `You are an InfoSec QA assistant. Answer security and compliance questions using only the provided context.
For each response:

Summarize the answer in no more than 50 words.
Do not add, remove, or change any words other than for summarization.
Include the exact source document name at the end in brackets.
Response style:
[your short refined response]

Context:
%s
Question:
%s`,
}

func buildPrompt(kind domain.SourceKind, contextBlock, question string) string {
	return fmt.Sprintf(promptTemplates[kind], contextBlock, question)
}

// AnswerSynthesizer turns a resolution into the final answer. The structured
// path extracts fields directly; the unstructured path constrains the
// language model to rephrase verbatim content with citations.
type AnswerSynthesizer struct {
	generator ports.AnswerGenerator
}

func NewAnswerSynthesizer(generator ports.AnswerGenerator) *AnswerSynthesizer {
	return &AnswerSynthesizer{generator: generator}
}

func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, res domain.Resolution, confidence float64) (*domain.Answer, error) {
	if res.Empty() {
		return &domain.Answer{
			Text:       noEvidenceAnswer,
			References: []string{},
			Confidence: 0,
			AllMatches: []string{},
		}, nil
	}

	if res.Source == domain.SourceStructured {
		return s.fromStructured(res, confidence), nil
	}
	return s.fromUnstructured(ctx, question, res, confidence)
}

func (s *AnswerSynthesizer) fromStructured(res domain.Resolution, confidence float64) *domain.Answer {
	winner := res.Structured[0]
	for _, ev := range res.Structured[1:] {
		if ev.Distance < winner.Distance {
			winner = ev
		}
	}

	references := make([]string, 0, len(res.Structured))
	seen := make(map[string]struct{}, len(res.Structured))
	for _, ev := range res.Structured {
		category := strings.TrimSpace(ev.Category)
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		references = append(references, category)
	}

	text := normalizeField(winner.Answer) + ". " + normalizeField(winner.Details)
	return &domain.Answer{
		Text:       text,
		References: references,
		Confidence: confidence,
		Source:     domain.SourceStructured,
		AllMatches: res.Matches(),
	}
}

func (s *AnswerSynthesizer) fromUnstructured(ctx context.Context, question string, res domain.Resolution, confidence float64) (*domain.Answer, error) {
	var contextBuilder strings.Builder
	for i, ev := range res.Unstructured {
		if i > 0 {
			contextBuilder.WriteString("\n\n")
		}
		contextBuilder.WriteString(ev.Text)
	}

	references := make([]string, 0, len(res.Unstructured))
	seen := make(map[string]struct{}, len(res.Unstructured))
	for _, ev := range res.Unstructured {
		citation := fmt.Sprintf("%s, Page: %s", ev.DocumentName, ev.PageNumber)
		if _, ok := seen[citation]; ok {
			continue
		}
		seen[citation] = struct{}{}
		references = append(references, citation)
	}

	text, err := s.generator.Generate(ctx, buildPrompt(domain.SourceUnstructured, contextBuilder.String(), question))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailure, "generate answer", err)
	}

	return &domain.Answer{
		Text:       strings.TrimSpace(text),
		References: references,
		Confidence: confidence,
		Source:     domain.SourceUnstructured,
		AllMatches: res.Matches(),
	}, nil
}

// normalizeField substitutes the placeholder for empty slots and for the
// literal "nan" token that tabular ingestion emits for blank cells.
func normalizeField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return missingFieldPlaceholder
	}
	return trimmed
}
