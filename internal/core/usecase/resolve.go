package usecase

import (
	"context"
	"fmt"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
)

// Admissibility selects the direction of the unstructured distance cutoff.
// Historical deployments disagreed on whether a fallback passage needs a low
// or a high distance to be trusted, so the predicate is explicit configuration.
type Admissibility string

const (
	AdmitAtMost  Admissibility = "at_most"
	AdmitAtLeast Admissibility = "at_least"
)

type ResolverConfig struct {
	TopK                      int
	StructuredThreshold       float64
	UnstructuredThreshold     float64
	UnstructuredAdmissibility Admissibility
}

func (c ResolverConfig) normalize() ResolverConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 3
	}
	if out.StructuredThreshold <= 0 {
		out.StructuredThreshold = 0.6
	}
	if out.UnstructuredThreshold <= 0 {
		out.UnstructuredThreshold = 0.6
	}
	if out.UnstructuredAdmissibility != AdmitAtLeast {
		out.UnstructuredAdmissibility = AdmitAtMost
	}
	return out
}

// HybridResolver decides per query whether to trust the structured answer
// bank or fall back to the policy-document corpus. Each corpus is queried at
// most once per resolution; admissible structured evidence short-circuits.
type HybridResolver struct {
	structured   ports.CorpusSearcher
	unstructured ports.CorpusSearcher
	cfg          ResolverConfig
}

func NewHybridResolver(structured, unstructured ports.CorpusSearcher, cfg ResolverConfig) *HybridResolver {
	return &HybridResolver{
		structured:   structured,
		unstructured: unstructured,
		cfg:          cfg.normalize(),
	}
}

func (r *HybridResolver) Resolve(ctx context.Context, query string) (domain.Resolution, error) {
	candidates, err := r.structured.Search(ctx, query, r.cfg.TopK)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("search structured corpus: %w", err)
	}

	structured := admitStructured(candidates, r.cfg.StructuredThreshold)
	if len(structured) > 0 {
		winning := structured[0].Distance
		for _, ev := range structured[1:] {
			if ev.Distance < winning {
				winning = ev.Distance
			}
		}
		return domain.Resolution{
			Source:          domain.SourceStructured,
			Structured:      structured,
			WinningDistance: &winning,
		}, nil
	}

	candidates, err = r.unstructured.Search(ctx, query, r.cfg.TopK)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("search unstructured corpus: %w", err)
	}

	unstructured := admitUnstructured(candidates, r.cfg.UnstructuredThreshold, r.cfg.UnstructuredAdmissibility)
	if len(unstructured) == 0 {
		return domain.Resolution{}, nil
	}

	winning := bestUnstructuredDistance(unstructured, r.cfg.UnstructuredAdmissibility)
	return domain.Resolution{
		Source:          domain.SourceUnstructured,
		Unstructured:    unstructured,
		WinningDistance: &winning,
	}, nil
}

func admitStructured(candidates []domain.Candidate, threshold float64) []domain.StructuredEvidence {
	out := make([]domain.StructuredEvidence, 0, len(candidates))
	for _, c := range candidates {
		if c.Distance > threshold {
			continue
		}
		out = append(out, domain.StructuredEvidence{
			Question: c.Payload["question"],
			Answer:   fieldOrContent(c.Payload["answer"], c.Content),
			Details:  c.Payload["details"],
			Category: c.Payload["category"],
			Distance: c.Distance,
		})
	}
	return out
}

func admitUnstructured(candidates []domain.Candidate, threshold float64, mode Admissibility) []domain.UnstructuredEvidence {
	out := make([]domain.UnstructuredEvidence, 0, len(candidates))
	for _, c := range candidates {
		if mode == AdmitAtLeast {
			if c.Distance < threshold {
				continue
			}
		} else if c.Distance > threshold {
			continue
		}
		out = append(out, domain.UnstructuredEvidence{
			Text:         fieldOrContent(c.Payload["text"], c.Content),
			DocumentName: c.Payload["document_name"],
			PageNumber:   c.Payload["page_number"],
			Distance:     c.Distance,
		})
	}
	return out
}

// bestUnstructuredDistance picks the winning distance under the same ordering
// the admissibility predicate implies, keeping the choice deterministic.
func bestUnstructuredDistance(items []domain.UnstructuredEvidence, mode Admissibility) float64 {
	best := items[0].Distance
	for _, ev := range items[1:] {
		if mode == AdmitAtLeast {
			if ev.Distance > best {
				best = ev.Distance
			}
			continue
		}
		if ev.Distance < best {
			best = ev.Distance
		}
	}
	return best
}

func fieldOrContent(field, content string) string {
	if field != "" {
		return field
	}
	return content
}
