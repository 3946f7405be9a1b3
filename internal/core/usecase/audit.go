package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
)

// AuditedQueryService records a QueryEvent for every request that reaches a
// terminal state. Sink failures are logged and never fail the request.
type AuditedQueryService struct {
	next   ports.QueryService
	sinks  []ports.QueryEventSink
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditedQueryService(next ports.QueryService, logger *slog.Logger, sinks ...ports.QueryEventSink) *AuditedQueryService {
	if logger == nil {
		logger = slog.Default()
	}
	active := make([]ports.QueryEventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	return &AuditedQueryService{next: next, sinks: active, logger: logger, now: time.Now}
}

func (s *AuditedQueryService) Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := s.now()
	result, err := s.next.Ask(ctx, req)
	if err != nil || len(s.sinks) == 0 {
		return result, err
	}

	agent, _ := domain.ParseAgent(string(req.Agent))
	event := domain.QueryEvent{
		RequestID:      domain.RequestIDFromContext(ctx),
		Query:          req.Query,
		State:          result.State,
		Agent:          agent,
		MatchedTopics:  result.Diagnostics.MatchedTopics,
		CandidateCount: result.Diagnostics.CandidateCount,
		FallbackUsed:   result.Diagnostics.FallbackUsed,
		RerankDegraded: result.Diagnostics.RerankDegraded,
		CitationCount:  len(result.Citations),
		DurationMS:     float64(s.now().Sub(start).Microseconds()) / 1000.0,
		CreatedAt:      start.UTC(),
	}

	// Events outlive request cancellation.
	recordCtx := context.WithoutCancel(ctx)
	var errs []error
	for _, sink := range s.sinks {
		if sinkErr := sink.RecordQuery(recordCtx, event); sinkErr != nil {
			errs = append(errs, sinkErr)
		}
	}
	if joined := errors.Join(errs...); joined != nil {
		s.logger.Warn("query_event_record_failed",
			"request_id", event.RequestID,
			"state", event.State,
			"error", joined,
		)
	}
	return result, nil
}
