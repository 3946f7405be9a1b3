package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

func TestSearchBuildsTopicAndMarkerFilter(t *testing.T) {
	var payload map[string]any
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/rag/points/search" {
			http.NotFound(w, r)
			return
		}
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":"6f1c","score":0.91,"payload":{"text":"chunk","topic":"chunking"}},
			{"id":42,"score":0.5,"payload":{"text":"other"}}
		],"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "rag", "secret", nil)
	got, err := client.Search(context.Background(), []float32{0.1}, 24, domain.SearchFilter{Topics: []string{"chunking", "retrieval"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "6f1c" || got[1].ID != "42" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if got[0].Payload["topic"] != "chunking" {
		t.Fatalf("expected payload preserved")
	}
	if apiKey != "secret" {
		t.Fatalf("expected api-key header")
	}
	if payload["with_vector"] != false || payload["limit"] != float64(24) {
		t.Fatalf("unexpected body: %v", payload)
	}

	filter, _ := payload["filter"].(map[string]any)
	mustNot, _ := filter["must_not"].([]any)
	if len(mustNot) != 1 {
		t.Fatalf("expected doc marker exclusion, got %v", filter)
	}
	must, _ := filter["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("expected topic condition, got %v", filter)
	}
	cond := must[0].(map[string]any)
	match := cond["match"].(map[string]any)
	if cond["key"] != "topic" || len(match["any"].([]any)) != 2 {
		t.Fatalf("unexpected topic condition: %v", cond)
	}
}

func TestSearchWithoutTopicsOmitsMust(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	got, err := New(server.URL, "rag", "", nil).Search(context.Background(), []float32{0.1}, 20, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates")
	}
	filter := payload["filter"].(map[string]any)
	if _, ok := filter["must"]; ok {
		t.Fatalf("unexpected must condition: %v", filter)
	}
}

func TestSearchStatusErrorExposesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"Wrong input: Vector dimension error: expected dim: 512, got 768"},"time":0.001}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "rag", "", nil).Search(context.Background(), []float32{0.1}, 20, domain.SearchFilter{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusDetail() != "Wrong input: Vector dimension error: expected dim: 512, got 768" {
		t.Fatalf("unexpected detail %q", statusErr.StatusDetail())
	}
	if !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected 400 status")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary")
	}
}

func TestPingMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/collections/rag" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection rag doesn't exist!"}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	err := New(server.URL, "rag", "", nil).Ping(context.Background())
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 status error, got %v", err)
	}
}
