package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coverly/docqa/internal/core/domain"
)

func TestIndexChunksCreatesCollectionAndUpserts(t *testing.T) {
	var gotCreate, gotUpsert map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/doc_chunks":
			_ = json.NewDecoder(r.Body).Decode(&gotCreate)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/doc_chunks/points":
			_ = json.NewDecoder(r.Body).Decode(&gotUpsert)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := New(server.URL, "doc_chunks")
	chunks := []domain.Chunk{{
		ID: "c-1", DocumentID: "d-1", Ordinal: 0, PageNumber: 2,
		Type: domain.ChunkTypeTable, Text: "| a | b |", Summary: "summary",
		Region: &domain.BoundingBox{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4},
	}}
	vectors := [][]float32{{0.1, 0.2, 0.3}}

	if err := client.IndexChunks(context.Background(), "t-1", chunks, vectors); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	vecCfg := gotCreate["vectors"].(map[string]any)
	if vecCfg["size"].(float64) != 3 || vecCfg["distance"].(string) != "Cosine" {
		t.Fatalf("collection config = %+v", vecCfg)
	}

	points := gotUpsert["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	if payload["tenant_id"] != "t-1" || payload["doc_id"] != "d-1" || payload["summary"] != "summary" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestIndexChunksToleratesExistingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/doc_chunks" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "doc_chunks")
	chunks := []domain.Chunk{{ID: "c-1", DocumentID: "d-1", Text: "text"}}

	if err := client.IndexChunks(context.Background(), "t-1", chunks, [][]float32{{0.1}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
}

func TestSearchFiltersByTenantAndDocument(t *testing.T) {
	var gotSearch map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/doc_chunks/points/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotSearch)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{{
				"score": 0.92,
				"payload": map[string]any{
					"chunk_id": "c-1", "doc_id": "d-1", "ordinal": 4, "page": 7,
					"chunk_type": "text", "text": "Deductible: $500.",
				},
			}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "doc_chunks")
	hits, err := client.Search(context.Background(), "t-1", "d-1", []float32{0.1, 0.2}, 20)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	must := gotSearch["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("filter must have tenant and doc clauses: %+v", must)
	}

	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	hit := hits[0]
	if hit.VectorScore == nil || *hit.VectorScore != 0.92 {
		t.Fatalf("vector score = %v", hit.VectorScore)
	}
	if hit.Chunk.ID != "c-1" || hit.Chunk.PageNumber != 7 || hit.Chunk.Ordinal != 4 {
		t.Fatalf("chunk = %+v", hit.Chunk)
	}
	if hit.LexicalScore != nil {
		t.Fatalf("vector hits must not carry lexical scores")
	}
}

func TestSearchSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "doc_chunks")
	if _, err := client.Search(context.Background(), "t-1", "d-1", []float32{0.1}, 20); err == nil {
		t.Fatalf("expected error for 500")
	}
}
