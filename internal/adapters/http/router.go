package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/rag-builder-assistant/internal/config"
	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
	"github.com/kirillkom/rag-builder-assistant/internal/core/usecase"
	"github.com/kirillkom/rag-builder-assistant/internal/observability/metrics"
)

const (
	serviceName  = "rag-api"
	maxBodyBytes = 1 << 20
)

type Router struct {
	cfg     config.Config
	queries ports.QueryService
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, queries ports.QueryService, m *metrics.HTTPServerMetrics) *Router {
	if m == nil {
		m = metrics.NewHTTPServerMetrics(serviceName)
	}
	return &Router{
		cfg:     cfg,
		queries: queries,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	query := rt.trafficControl(http.HandlerFunc(rt.queryRAG))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.Handle("/api/query", query)
	mux.Handle("/v1/rag/query", query)

	var handler http.Handler = rt.metrics.Middleware(serviceName, mux)
	if rt.cfg.OTelEnabled {
		handler = otelhttp.NewHandler(handler, serviceName)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) trafficControl(next http.Handler) http.Handler {
	wait := time.Duration(rt.cfg.APIBackpressureWaitMS) * time.Millisecond
	next = backpressureMiddleware(next, rt.cfg.APIMaxInFlight, wait, rt.rejected("backpressure"))
	return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.rejected("rate_limit"))
}

func (rt *Router) rejected(reason string) func() {
	return func() { rt.metrics.RecordRejected(serviceName, reason) }
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query *string `json:"query"`
	Agent string  `json:"agent"`
	Debug bool    `json:"debug"`
}

// queryResponse covers deny, ask_to_reframe and not_covered.
type queryResponse struct {
	State   domain.QueryState `json:"state"`
	Message string            `json:"message,omitempty"`
	Example string            `json:"example,omitempty"`
}

// answerResponse keeps citations present even when empty.
type answerResponse struct {
	State     domain.QueryState   `json:"state"`
	Answer    string              `json:"answer"`
	Citations []domain.Citation   `json:"citations"`
	Trace     []domain.TraceEntry `json:"trace,omitempty"`
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "query" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": usecase.MissingQueryMessage})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Query == nil || strings.TrimSpace(*req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": usecase.MissingQueryMessage})
		return
	}

	start := time.Now()
	result, err := rt.queries.Ask(r.Context(), domain.QueryRequest{
		Query: *req.Query,
		Agent: domain.Agent(req.Agent),
		Debug: req.Debug,
	})
	if err != nil {
		status, body := queryFailure(err)
		if status >= http.StatusInternalServerError {
			slog.Error("query_failed",
				"request_id", domain.RequestIDFromContext(r.Context()),
				"stage", domain.StageOf(err),
				"temporary", domain.IsKind(err, domain.ErrTemporary),
				"error", err.Error(),
			)
			rt.metrics.RecordQuery(serviceName, metrics.QueryObservation{
				Endpoint: r.URL.Path,
				State:    "error",
				Agent:    agentLabel(req.Agent),
				Duration: time.Since(start),
			})
		}
		writeJSON(w, status, body)
		return
	}

	rt.metrics.RecordQuery(serviceName, metrics.QueryObservation{
		Endpoint:       r.URL.Path,
		State:          string(result.State),
		Agent:          agentLabel(req.Agent),
		Citations:      len(result.Citations),
		FallbackUsed:   result.Diagnostics.FallbackUsed,
		RerankDegraded: result.Diagnostics.RerankDegraded,
		Duration:       time.Since(start),
	})
	writeJSON(w, http.StatusOK, toResponse(result))
}

func toResponse(result *domain.QueryResult) any {
	if result.State == domain.QueryAnswer {
		citations := result.Citations
		if citations == nil {
			citations = []domain.Citation{}
		}
		return answerResponse{
			State:     result.State,
			Answer:    result.Answer,
			Citations: citations,
			Trace:     result.Trace,
		}
	}
	return queryResponse{
		State:   result.State,
		Message: result.Message,
		Example: result.Example,
	}
}

func agentLabel(raw string) string {
	if agent, ok := domain.ParseAgent(raw); ok {
		return string(agent)
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
