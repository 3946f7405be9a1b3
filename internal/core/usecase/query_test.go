package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

type queryFixture struct {
	embedder  *embedderFake
	store     *vectorStoreFake
	completer *completerFake
	rerank    *rerankClientFake
	uc        *QueryUseCase
}

func newQueryFixture(results [][]domain.Candidate, opts QueryOptions) *queryFixture {
	f := &queryFixture{
		embedder:  &embedderFake{},
		store:     &vectorStoreFake{results: results},
		completer: &completerFake{text: "## Goal\nAnswer."},
	}
	f.uc = NewQueryUseCase(
		NewScopeClassifier(domain.DefaultTaxonomy()),
		NewCandidateRetriever(f.embedder, f.store, nil),
		nil,
		NewAnswerSynthesizer(f.completer),
		NewEssaySynthesizer(f.completer),
		opts,
		nil,
	)
	return f
}

func chunkCandidates() []domain.Candidate {
	return []domain.Candidate{
		candidate("a", 0.9, map[string]any{"chunk_key": "k1", "text": "Chunk size guidance.", "title": "Chunking"}),
		candidate("b", 0.8, map[string]any{"chunk_key": "k1", "text": "Duplicate.", "title": "Chunking"}),
		candidate("c", 0.7, map[string]any{"chunk_key": "k2", "text": "Overlap guidance.", "title": "Overlap"}),
	}
}

func TestQueryUseCaseDenySkipsRetrieval(t *testing.T) {
	f := newQueryFixture(nil, QueryOptions{})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "What is the capital of Spain?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryDeny || got.Message != DenyMessage {
		t.Fatalf("unexpected result: %+v", got)
	}
	if f.embedder.calls != 0 || len(f.store.calls) != 0 {
		t.Fatalf("expected no retrieval for deny")
	}
}

func TestQueryUseCaseReframe(t *testing.T) {
	f := newQueryFixture(nil, QueryOptions{})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "How do LLMs work?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryAskToReframe || got.Example != ReframeExample || got.Message != ReframeMessage {
		t.Fatalf("unexpected result: %+v", got)
	}
	if f.embedder.calls != 0 {
		t.Fatalf("expected no retrieval for reframe")
	}
}

func TestQueryUseCaseAnswer(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{chunkCandidates()}, QueryOptions{TopK: 4})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "How do I choose chunk size for RAG?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryAnswer || got.Answer != "## Goal\nAnswer." {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.Citations) != 2 {
		t.Fatalf("expected 2 citations after dedupe, got %d", len(got.Citations))
	}
	if f.store.calls[0].limit != 20 {
		t.Fatalf("expected candidate limit max(3*4, 20)=20, got %d", f.store.calls[0].limit)
	}
	if len(f.store.calls[0].filter.Topics) == 0 {
		t.Fatalf("expected topic filter on first retrieval")
	}
	if got.Diagnostics.CandidateCount != 3 || got.Diagnostics.DedupedCount != 2 {
		t.Fatalf("unexpected diagnostics: %+v", got.Diagnostics)
	}
	if got.Trace != nil {
		t.Fatalf("trace must be omitted unless enabled and requested")
	}
}

func TestQueryUseCaseCandidateLimitScalesWithTopK(t *testing.T) {
	f := newQueryFixture(nil, QueryOptions{TopK: 10})
	if got := f.uc.CandidateLimit(); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
}

func TestQueryUseCaseFallbackWithoutTopicFilter(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{nil, chunkCandidates()}, QueryOptions{})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "How do I choose chunk size for RAG?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(f.store.calls) != 2 {
		t.Fatalf("expected two searches, got %d", len(f.store.calls))
	}
	if len(f.store.calls[1].filter.Topics) != 0 {
		t.Fatalf("expected unfiltered fallback search, got %v", f.store.calls[1].filter.Topics)
	}
	if got.State != domain.QueryAnswer || !got.Diagnostics.FallbackUsed {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestQueryUseCaseNotCoveredAfterFallback(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{nil}, QueryOptions{})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "How do I choose chunk size for RAG?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryNotCovered || got.Message != NotCoveredMessage {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(f.store.calls) != 2 {
		t.Fatalf("expected exactly two searches, got %d", len(f.store.calls))
	}
	if f.completer.calls != 0 {
		t.Fatalf("expected no model call")
	}
}

func TestQueryUseCaseVectorErrorPropagates(t *testing.T) {
	f := newQueryFixture(nil, QueryOptions{})
	f.store.err = errors.New("connection refused")

	_, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "chunk overlap"})
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(f.store.calls) != 1 {
		t.Fatalf("expected no fallback after error, got %d calls", len(f.store.calls))
	}
}

func TestQueryUseCaseCompletionErrorPropagates(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{chunkCandidates()}, QueryOptions{})
	f.completer.err = errors.New("500")

	_, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "chunk overlap"})
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestQueryUseCaseInputErrors(t *testing.T) {
	f := newQueryFixture(nil, QueryOptions{})

	for _, req := range []domain.QueryRequest{
		{Query: "   "},
		{Query: "chunk overlap", Agent: "poet"},
	} {
		_, err := f.uc.Ask(context.Background(), req)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Ask(%+v) expected invalid input, got %v", req, err)
		}
	}
}

func TestQueryUseCaseDebugTrace(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{chunkCandidates()}, QueryOptions{DebugTrace: true})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "chunk overlap", Debug: true})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(got.Trace) != 2 {
		t.Fatalf("expected trace per ranked chunk, got %d", len(got.Trace))
	}
	if got.Trace[0].RetrievalScore == nil || *got.Trace[0].RetrievalScore != 0.9 {
		t.Fatalf("expected retrieval score in trace")
	}
}

func TestQueryUseCaseEssayAgent(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{chunkCandidates()}, QueryOptions{})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "chunk overlap", Agent: domain.AgentRAGEssay})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryAnswer {
		t.Fatalf("unexpected state %s", got.State)
	}
	if f.completer.req.System == "" {
		t.Fatalf("expected essay system prompt")
	}
}

func TestQueryUseCaseVagueBoostPrefersSummaries(t *testing.T) {
	results := [][]domain.Candidate{{
		candidate("detail", 0.80, map[string]any{"chunk_key": "d", "text": "detail"}),
		candidate("summary", 0.75, map[string]any{"chunk_key": "s", "text": "summary", "chunk_role": "section_summary"}),
	}}
	f := newQueryFixture(results, QueryOptions{TopK: 1, VagueBoost: true, SummaryBoostFactor: 1.2, DebugTrace: true})

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "chunking overview", Debug: true})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !got.Diagnostics.VagueBoosted {
		t.Fatalf("expected vague boost applied")
	}
	if len(got.Trace) != 1 || got.Trace[0].ID != "summary" {
		t.Fatalf("expected summary chunk ranked first, got %+v", got.Trace)
	}
}

func TestQueryUseCaseDegradedRerankStillAnswers(t *testing.T) {
	f := newQueryFixture([][]domain.Candidate{chunkCandidates()}, QueryOptions{})
	f.uc.reranker = NewServiceReranker(&rerankClientFake{err: errors.New("down")}, nil)

	got, err := f.uc.Ask(context.Background(), domain.QueryRequest{Query: "chunk overlap"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.State != domain.QueryAnswer || !got.Diagnostics.RerankDegraded {
		t.Fatalf("unexpected result: %+v", got)
	}
}
