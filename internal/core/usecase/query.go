package usecase

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
)

const (
	DenyMessage    = "This assistant is limited to questions about building RAG systems (retrieval, chunking, evaluation, etc.)."
	ReframeMessage = "This assistant focuses on how to build RAG systems. Please reframe your question as a RAG-building question."

	DefaultTopK      = 8
	minCandidatePool = 20
)

var tracer = otel.Tracer("github.com/kirillkom/rag-builder-assistant/internal/core/usecase")

type QueryOptions struct {
	TopK int
	// VagueBoost enables the section-summary boost for vague queries.
	VagueBoost         bool
	SummaryBoostFactor float64
	// DebugTrace allows callers to request a ranking trace.
	DebugTrace bool
}

type QueryUseCase struct {
	classifier  ports.ScopeClassifier
	retriever   *CandidateRetriever
	reranker    Reranker
	synthesizer map[domain.Agent]Synthesizer
	opts        QueryOptions
	logger      *slog.Logger
}

func NewQueryUseCase(
	classifier ports.ScopeClassifier,
	retriever *CandidateRetriever,
	reranker Reranker,
	answer Synthesizer,
	essay Synthesizer,
	opts QueryOptions,
	logger *slog.Logger,
) *QueryUseCase {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.SummaryBoostFactor <= 0 {
		opts.SummaryBoostFactor = DefaultSummaryBoost
	}
	if reranker == nil {
		reranker = NewPassthroughReranker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	synthesizers := map[domain.Agent]Synthesizer{domain.AgentRAG: answer}
	if essay != nil {
		synthesizers[domain.AgentRAGEssay] = essay
	}
	return &QueryUseCase{
		classifier:  classifier,
		retriever:   retriever,
		reranker:    reranker,
		synthesizer: synthesizers,
		opts:        opts,
		logger:      logger,
	}
}

// CandidateLimit is the number of raw candidates fetched per retrieval.
func (uc *QueryUseCase) CandidateLimit() int {
	return max(3*uc.opts.TopK, minCandidatePool)
}

// Ask runs classify, retrieve, dedupe, rerank and synthesize. Deny, reframe
// and not-covered outcomes are results, not errors.
func (uc *QueryUseCase) Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errMissingQuery)
	}
	agent, ok := domain.ParseAgent(string(req.Agent))
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errUnknownAgent(req.Agent))
	}
	synth, ok := uc.synthesizer[agent]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errUnknownAgent(req.Agent))
	}

	ctx, span := tracer.Start(ctx, "rag.ask", trace.WithAttributes(attribute.String("rag.agent", string(agent))))
	defer span.End()

	decision := uc.classifier.Classify(query)
	span.SetAttributes(
		attribute.String("rag.scope", string(decision.State)),
		attribute.StringSlice("rag.topics", decision.MatchedTopics),
	)
	diag := domain.Diagnostics{MatchedTopics: decision.MatchedTopics}

	switch decision.State {
	case domain.ScopeDeny:
		return &domain.QueryResult{State: domain.QueryDeny, Message: DenyMessage, Diagnostics: diag}, nil
	case domain.ScopeAskToReframe:
		return &domain.QueryResult{
			State:       domain.QueryAskToReframe,
			Message:     ReframeMessage,
			Example:     decision.Example,
			Diagnostics: diag,
		}, nil
	}

	candidates, err := uc.collect(ctx, query, decision.MatchedTopics, &diag)
	if err == nil && len(candidates) == 0 && len(decision.MatchedTopics) > 0 {
		uc.logger.Info("retrieval_fallback", "topics", decision.MatchedTopics)
		diag.FallbackUsed = true
		candidates, err = uc.collect(ctx, query, nil, &diag)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, err
	}
	if len(candidates) == 0 {
		return &domain.QueryResult{State: domain.QueryNotCovered, Message: NotCoveredMessage, Diagnostics: diag}, nil
	}

	_, rerankSpan := tracer.Start(ctx, "rag.rerank")
	outcome := uc.reranker.Rerank(ctx, query, candidates, uc.opts.TopK)
	rerankSpan.SetAttributes(attribute.Int("rag.ranked", len(outcome.Chunks)), attribute.Bool("rag.degraded", outcome.Degraded))
	rerankSpan.End()
	diag.RerankDegraded = outcome.Degraded

	answer, err := synth.Synthesize(ctx, query, outcome.Chunks)
	if err != nil {
		uc.logger.Error("synthesize_failed", "agent", agent, "chunks", len(outcome.Chunks), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return nil, err
	}

	result := &domain.QueryResult{Diagnostics: diag}
	if answer.State == domain.AnswerNotCovered {
		result.State = domain.QueryNotCovered
		result.Message = answer.Message
		return result, nil
	}
	result.State = domain.QueryAnswer
	result.Answer = answer.Text
	result.Citations = answer.Citations
	if req.Debug && uc.opts.DebugTrace {
		scores := make(map[string]float64, len(candidates))
		for _, candidate := range candidates {
			scores[candidate.ID] = candidate.Score
		}
		result.Trace = BuildTrace(outcome.Chunks, scores)
	}
	span.SetAttributes(attribute.Int("rag.citations", len(result.Citations)))
	return result, nil
}

// collect retrieves, optionally boosts and deduplicates candidates.
func (uc *QueryUseCase) collect(ctx context.Context, query string, topics []string, diag *domain.Diagnostics) ([]domain.Candidate, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(attribute.Int("rag.topic_filter", len(topics))))
	defer span.End()

	candidates, err := uc.retriever.Retrieve(ctx, query, uc.CandidateLimit(), topics)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieve failed")
		return nil, err
	}
	if uc.opts.VagueBoost && IsVagueQuery(query) {
		candidates = BoostSectionSummaries(candidates, uc.opts.SummaryBoostFactor)
		diag.VagueBoosted = true
	}
	deduped := DedupeCandidates(candidates)
	diag.CandidateCount = len(candidates)
	diag.DedupedCount = len(deduped)
	span.SetAttributes(attribute.Int("rag.candidates", len(candidates)), attribute.Int("rag.deduped", len(deduped)))
	return deduped, nil
}
