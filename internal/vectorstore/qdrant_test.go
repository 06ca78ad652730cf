package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/practisage/medassist/config"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *QdrantStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	st, err := NewQdrantStore(config.QdrantConfig{URL: srv.URL, Collection: "procedures"})
	if err != nil {
		t.Fatalf("NewQdrantStore: %v", err)
	}
	return st
}

func TestDeleteCollection_MissingCollectionIsNotAnError(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Collection procedures not found"}}`))
	})
	if err := st.DeleteCollection(context.Background()); err != nil {
		t.Fatalf("expected nil for missing collection, got %v", err)
	}
}

func TestCreateCollection_SendsSizeAndDistance(t *testing.T) {
	var got map[string]any
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/procedures" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	})
	if err := st.CreateCollection(context.Background(), 3072, "Cosine"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	vectors, ok := got["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("missing vectors config in %v", got)
	}
	if vectors["size"].(float64) != 3072 || vectors["distance"] != "Cosine" {
		t.Fatalf("unexpected vectors config: %v", vectors)
	}
}

func TestUpsert_CarriesPayloadShape(t *testing.T) {
	var got struct {
		Points []struct {
			ID      int       `json:"id"`
			Vector  []float32 `json:"vector"`
			Payload Payload   `json:"payload"`
		} `json:"points"`
	}
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/procedures/points" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":{},"status":"ok"}`))
	})

	rec := Record{
		ID:     7,
		Vector: []float32{0.1, 0.2},
		Payload: Payload{
			Text: "chunk text",
			Metadata: Metadata{
				Procedure:      "knee-arthroscopy",
				Type:           "aftercare",
				ChunkIndex:     2,
				TotalChunks:    5,
				SourceFile:     "data/knee-arthroscopy/aftercare.md",
				ConsistentTags: []string{"a", "b", "c", "d", "e"},
				SpecificTags:   []string{"x", "y", "z"},
			},
		},
	}
	if err := st.Upsert(context.Background(), []Record{rec}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(got.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got.Points))
	}
	p := got.Points[0]
	if p.ID != 7 || p.Payload.Text != "chunk text" || p.Payload.Metadata.Procedure != "knee-arthroscopy" {
		t.Fatalf("payload mangled in transit: %+v", p)
	}
	if len(p.Payload.Metadata.ConsistentTags) != 5 || len(p.Payload.Metadata.SpecificTags) != 3 {
		t.Fatalf("tag arrays mangled: %+v", p.Payload.Metadata)
	}
}

func TestSearch_BuildsDisjunctiveTagFilter(t *testing.T) {
	var got map[string]any
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/procedures/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":[{"id":1,"score":0.9,"payload":{"text":"hit","metadata":{"procedure":"p"}}}],"status":"ok"}`))
	})

	matches, err := st.Search(context.Background(), []float32{0.5}, 5, []string{"billing", "aftercare"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Payload.Text != "hit" {
		t.Fatalf("unexpected matches: %+v", matches)
	}

	filter, ok := got["filter"].(map[string]any)
	if !ok {
		t.Fatalf("expected filter in request, got %v", got)
	}
	should, ok := filter["should"].([]any)
	if !ok || len(should) != 2 {
		t.Fatalf("expected two should conditions, got %v", filter)
	}
	keys := map[string]bool{}
	for _, cond := range should {
		c := cond.(map[string]any)
		keys[c["key"].(string)] = true
		match := c["match"].(map[string]any)
		if _, ok := match["any"]; !ok {
			t.Fatalf("condition missing match-any: %v", c)
		}
	}
	if !keys["metadata.consistent_tags"] || !keys["metadata.specific_tags"] {
		t.Fatalf("filter must target both tag fields, got %v", keys)
	}
}

func TestSearch_NoKeywordsMeansNoFilter(t *testing.T) {
	var got map[string]any
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":[],"status":"ok"}`))
	})
	if _, err := st.Search(context.Background(), []float32{0.5}, 5, nil); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := got["filter"]; ok {
		t.Fatal("unrestricted search must not carry a filter")
	}
}

func TestSearch_ServerErrorIsUnavailable(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":{"error":"boom"}}`))
	})
	_, err := st.Search(context.Background(), []float32{0.5}, 5, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestScroll_ReturnsPointsWithoutVectors(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/procedures/points/scroll" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result":{"points":[{"id":0,"payload":{"text":"first","metadata":{"procedure":"p","chunk_index":1,"total_chunks":2}}},{"id":1,"payload":{"text":"second","metadata":{"procedure":"p","chunk_index":2,"total_chunks":2}}}]},"status":"ok"}`))
	})
	points, err := st.Scroll(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if len(points) != 2 || points[0].Payload.Text != "first" || points[1].ID != 1 {
		t.Fatalf("unexpected points: %+v", points)
	}
}
