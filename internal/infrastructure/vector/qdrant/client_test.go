package qdrant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

type embedderStub struct {
	err error
}

func (s *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

func TestSearchConvertsScoresToDistances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/qa_bank/points/search" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.9,"payload":{"question":"q1","answer":"Yes","details":"d","category":"Policy"}},
			{"score":0.4,"payload":{"question":"q2","answer":"No","details":"d2","category":"Access","page_number":3}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "qa_bank", &embedderStub{}, nil)
	candidates, err := client.Search(context.Background(), "is access reviewed", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if got := candidates[0].Distance; got < 0.099 || got > 0.101 {
		t.Fatalf("distance = %v, want 1-score = 0.1", got)
	}
	if candidates[0].Distance >= candidates[1].Distance {
		t.Fatalf("candidates not ascending by distance: %v >= %v", candidates[0].Distance, candidates[1].Distance)
	}
	if candidates[0].Payload["answer"] != "Yes" {
		t.Fatalf("payload answer = %q", candidates[0].Payload["answer"])
	}
	if candidates[1].Payload["page_number"] != "3" {
		t.Fatalf("numeric payload = %q, want \"3\"", candidates[1].Payload["page_number"])
	}
}

func TestSearchWrapsBackendFailureAsRetrievalUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "qa_bank", &embedderStub{}, nil)
	_, err := client.Search(context.Background(), "q", 1)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("error = %v, want retrieval unavailable kind", err)
	}
}

func TestSearchEmbedFailure(t *testing.T) {
	client := New("http://localhost:0", "qa_bank", &embedderStub{err: errors.New("embed down")}, nil)
	_, err := client.Search(context.Background(), "q", 1)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("error = %v, want retrieval unavailable kind", err)
	}
}
