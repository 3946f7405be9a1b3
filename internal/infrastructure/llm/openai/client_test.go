package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/infrastructure/resilience"
)

func TestEmbedQuerySendsDimensionsAndHeaders(t *testing.T) {
	var payload map[string]any
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL, APIKey: "sk", HeliconeAPIKey: "hk"}, nil)
	vec, err := client.EmbedQuery(context.Background(), "chunk size")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("expected 2 dims, got %d", len(vec))
	}
	if payload["dimensions"] != float64(DefaultDimensions) || payload["model"] != DefaultEmbedModel {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if headers.Get("Authorization") != "Bearer sk" {
		t.Fatalf("expected bearer auth, got %q", headers.Get("Authorization"))
	}
	if headers.Get("Helicone-Auth") != "Bearer hk" || headers.Get("Helicone-Cache-Enabled") != "true" {
		t.Fatalf("expected helicone headers, got %v", headers)
	}
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	var request chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"## Goal"}}]}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL}, nil)
	text, err := client.Complete(context.Background(), domain.CompletionRequest{System: "sys", Prompt: "user", Temperature: 0.2})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "## Goal" {
		t.Fatalf("unexpected text %q", text)
	}
	if len(request.Messages) != 2 || request.Messages[0].Role != "system" || request.Messages[1].Content != "user" {
		t.Fatalf("unexpected messages: %+v", request.Messages)
	}
	if request.Model != DefaultChatModel || request.Temperature != 0.2 {
		t.Fatalf("unexpected request: %+v", request)
	}
}

func TestCompleteWithoutChoicesReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	text, err := New(Options{BaseURL: server.URL}, nil).Complete(context.Background(), domain.CompletionRequest{Prompt: "p"})
	if err != nil || text != "" {
		t.Fatalf("expected empty text, got %q, %v", text, err)
	}
}

func TestStatusErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}, nil).EmbedQuery(context.Background(), "q")
	var statusErr *resilience.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || !strings.Contains(statusErr.Body, "invalid api key") {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("401 must not be temporary")
	}
}
