package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

type queryServiceFake struct {
	result *domain.QueryResult
	err    error
}

func (f *queryServiceFake) Ask(context.Context, domain.QueryRequest) (*domain.QueryResult, error) {
	return f.result, f.err
}

type sinkFake struct {
	events []domain.QueryEvent
	err    error
}

func (f *sinkFake) RecordQuery(_ context.Context, event domain.QueryEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func TestAuditedQueryServiceRecordsEvent(t *testing.T) {
	next := &queryServiceFake{result: &domain.QueryResult{
		State:     domain.QueryAnswer,
		Citations: []domain.Citation{{Ref: "#1"}, {Ref: "#2"}},
		Diagnostics: domain.Diagnostics{
			MatchedTopics:  []string{"chunking"},
			CandidateCount: 9,
			FallbackUsed:   true,
		},
	}}
	failing := &sinkFake{err: errors.New("nats down")}
	ok := &sinkFake{}
	svc := NewAuditedQueryService(next, nil, failing, nil, ok)
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 15 * time.Millisecond)
	}

	ctx := domain.WithRequestID(context.Background(), "req-9")
	got, err := svc.Ask(ctx, domain.QueryRequest{Query: "chunk size"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryAnswer {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(ok.events) != 1 || len(failing.events) != 1 {
		t.Fatalf("expected every sink called once")
	}
	event := ok.events[0]
	if event.RequestID != "req-9" || event.Agent != domain.AgentRAG || event.CitationCount != 2 {
		t.Fatalf("unexpected event: %+v", event)
	}
	if !event.FallbackUsed || event.CandidateCount != 9 || event.DurationMS != 15 {
		t.Fatalf("unexpected diagnostics in event: %+v", event)
	}
}

func TestAuditedQueryServiceSkipsErrors(t *testing.T) {
	sink := &sinkFake{}
	svc := NewAuditedQueryService(&queryServiceFake{err: errors.New("boom")}, nil, sink)

	if _, err := svc.Ask(context.Background(), domain.QueryRequest{Query: "q"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no events for failed requests")
	}
}
