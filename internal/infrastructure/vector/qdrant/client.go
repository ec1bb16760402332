package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
	"github.com/secomply/questionnaire-assistant/internal/core/ports"
	"github.com/secomply/questionnaire-assistant/internal/infrastructure/resilience"
)

// Client is a read-only corpus accessor over one Qdrant collection. Queries
// are embedded first, then searched; results come back ordered ascending by
// distance. Index mutation is owned by the offline indexing pipeline.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	embedder   ports.Embedder
	executor   *resilience.Executor
}

func New(baseURL, collection string, embedder ports.Embedder, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		embedder:   embedder,
		executor:   executor,
	}
}

func (c *Client) Search(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	if k <= 0 {
		k = 1
	}

	queryVector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, wrapUnavailable("embed query", err)
	}

	var candidates []domain.Candidate
	call := func(callCtx context.Context) error {
		var searchErr error
		candidates, searchErr = c.search(callCtx, queryVector, k)
		return searchErr
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search."+c.collection, call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapUnavailable("qdrant search", err)
	}
	return candidates, nil
}

func (c *Client) search(ctx context.Context, queryVector []float32, k int) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, point := range searchResp.Result {
		payload := make(map[string]string, len(point.Payload))
		for key, value := range point.Payload {
			payload[key] = payloadString(value)
		}
		out = append(out, domain.Candidate{
			Content: contentOf(payload),
			// Qdrant reports cosine similarity; the pipeline works in
			// distances where lower means closer.
			Distance: 1 - point.Score,
			Payload:  payload,
		})
	}
	return out, nil
}

func contentOf(payload map[string]string) string {
	if text := payload["text"]; text != "" {
		return text
	}
	return payload["answer"]
}

func payloadString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func wrapUnavailable(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		return err
	}
	return domain.WrapError(domain.ErrRetrievalUnavailable, operation, err)
}
