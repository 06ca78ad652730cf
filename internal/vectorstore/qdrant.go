package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/practisage/medassist/config"
)

const qdrantDefaultTimeout = 30 * time.Second

// QdrantStore implements Store against Qdrant's REST API.
type QdrantStore struct {
	client     *http.Client
	baseURL    string
	collection string
	apiKey     string
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore builds a Qdrant-backed store. It does not touch the
// server; collection lifecycle is explicit via Delete/CreateCollection.
func NewQdrantStore(cfg config.QdrantConfig) (*QdrantStore, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = qdrantDefaultTimeout
	}
	return &QdrantStore{
		client:     &http.Client{Timeout: timeout},
		baseURL:    base,
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
	}, nil
}

// DeleteCollection removes the collection. A missing collection is not
// an error; rebuilds start from a clean slate either way.
func (q *QdrantStore) DeleteCollection(ctx context.Context) error {
	err := q.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", q.collection), nil, nil)
	if err != nil && strings.Contains(err.Error(), "404") {
		return nil
	}
	return err
}

// CreateCollection creates the collection with the given vector size
// and distance metric.
func (q *QdrantStore) CreateCollection(ctx context.Context, vectorSize int, distance string) error {
	if distance == "" {
		distance = "Cosine"
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": distance,
		},
	}
	return q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collection), body, nil)
}

// Upsert writes the given records into the collection.
func (q *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]any, 0, len(records))
	for _, rec := range records {
		points = append(points, map[string]any{
			"id":      rec.ID,
			"vector":  rec.Vector,
			"payload": rec.Payload,
		})
	}
	body := map[string]any{"points": points}
	return q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points", q.collection), body, nil)
}

// tagFilter builds the disjunctive filter: a record matches when any
// keyword appears in its consistent tags or its specific tags.
func tagFilter(keywords []string) map[string]any {
	if len(keywords) == 0 {
		return nil
	}
	return map[string]any{
		"should": []any{
			map[string]any{
				"key":   "metadata.consistent_tags",
				"match": map[string]any{"any": keywords},
			},
			map[string]any{
				"key":   "metadata.specific_tags",
				"match": map[string]any{"any": keywords},
			},
		},
	}
}

// qdrantScoredPoint captures the fields returned by search responses.
type qdrantScoredPoint struct {
	ID      int     `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// Search runs a filtered nearest-neighbor query, best matches first.
func (q *QdrantStore) Search(ctx context.Context, vector []float32, topK int, filterKeywords []string) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	request := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter := tagFilter(filterKeywords); filter != nil {
		request["filter"] = filter
	}

	var response struct {
		Result []qdrantScoredPoint `json:"result"`
	}
	searchPath := fmt.Sprintf("/collections/%s/points/search", q.collection)
	if err := q.doRequest(ctx, http.MethodPost, searchPath, request, &response); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(response.Result))
	for _, res := range response.Result {
		matches = append(matches, Match{ID: res.ID, Score: res.Score, Payload: res.Payload})
	}
	return matches, nil
}

// Scroll pages through stored points without their vectors.
func (q *QdrantStore) Scroll(ctx context.Context, offset, limit int) ([]Point, error) {
	request := map[string]any{
		"offset":       offset,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	var response struct {
		Result struct {
			Points []struct {
				ID      int     `json:"id"`
				Payload Payload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	scrollPath := fmt.Sprintf("/collections/%s/points/scroll", q.collection)
	if err := q.doRequest(ctx, http.MethodPost, scrollPath, request, &response); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(response.Result.Points))
	for _, p := range response.Result.Points {
		points = append(points, Point{ID: p.ID, Payload: p.Payload})
	}
	return points, nil
}

func (q *QdrantStore) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var buf *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		buf = bytes.NewReader(payload)
	} else {
		buf = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, readErr)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Status struct {
				Error string `json:"error"`
			} `json:"status"`
		}
		if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Status.Error != "" {
			return fmt.Errorf("%w: %s (%d)", ErrUnavailable, apiErr.Status.Error, resp.StatusCode)
		}
		return fmt.Errorf("%w: request failed with status %d", ErrUnavailable, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return nil
}
