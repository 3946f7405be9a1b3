package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/query":    "/api/query",
		"/v1/rag/query": "/v1/rag/query",
		"/healthz":      "/healthz",
		"/api/unknown":  "/api/{other}",
		"/favicon.ico":  "other",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareCountsStatus(t *testing.T) {
	m := NewHTTPServerMetrics("rag-api")
	h := m.Middleware("rag-api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/query", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("rag-api", http.MethodPost, "/api/query", "418"))
	if got != 1 {
		t.Fatalf("expected one counted request, got %v", got)
	}
}

func TestRecordQuery(t *testing.T) {
	m := NewHTTPServerMetrics("rag-api")
	m.RecordQuery("rag-api", QueryObservation{
		Endpoint:       "/api/query",
		State:          "answer",
		Agent:          "default",
		Citations:      3,
		FallbackUsed:   true,
		RerankDegraded: true,
		Duration:       20 * time.Millisecond,
	})
	m.RecordQuery("rag-api", QueryObservation{Endpoint: "/api/query", State: "deny"})

	if got := testutil.ToFloat64(m.answersTotal.WithLabelValues("rag-api", "/api/query", "answer", "default")); got != 1 {
		t.Fatalf("expected one answer, got %v", got)
	}
	if got := testutil.ToFloat64(m.answersTotal.WithLabelValues("rag-api", "/api/query", "deny", "unknown")); got != 1 {
		t.Fatalf("expected one deny with unknown agent, got %v", got)
	}
	if got := testutil.ToFloat64(m.retrievalFallback.WithLabelValues("rag-api", "/api/query")); got != 1 {
		t.Fatalf("expected fallback counted, got %v", got)
	}
	if got := testutil.ToFloat64(m.rerankDegradedTotal.WithLabelValues("rag-api", "/api/query")); got != 1 {
		t.Fatalf("expected degraded counted, got %v", got)
	}

	expected := `
# HELP rag_citations Distribution of citations per answered query.
# TYPE rag_citations histogram
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="0"} 0
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="1"} 0
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="2"} 0
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="3"} 1
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="4"} 1
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="5"} 1
rag_citations_bucket{endpoint="/api/query",service="rag-api",le="+Inf"} 1
rag_citations_sum{endpoint="/api/query",service="rag-api"} 3
rag_citations_count{endpoint="/api/query",service="rag-api"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "rag_citations"); err != nil {
		t.Fatalf("unexpected citations histogram: %v", err)
	}
}
