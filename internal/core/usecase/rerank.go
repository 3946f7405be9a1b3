package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
)

// Reranker orders deduplicated candidates by relevance. The implementation
// is chosen once at startup: NewPassthroughReranker when no reranking
// service is configured, NewServiceReranker otherwise.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) RerankOutcome
}

// RerankOutcome carries the ranked chunks. Degraded is set when a configured
// service failed and similarity order was used instead.
type RerankOutcome struct {
	Chunks   []domain.RankedChunk
	Degraded bool
}

type PassthroughReranker struct{}

func NewPassthroughReranker() PassthroughReranker {
	return PassthroughReranker{}
}

// Rerank keeps similarity order and truncates to topK.
func (PassthroughReranker) Rerank(_ context.Context, _ string, candidates []domain.Candidate, topK int) RerankOutcome {
	return RerankOutcome{Chunks: passthrough(candidates, topK)}
}

type ServiceReranker struct {
	client ports.RerankClient
	logger *slog.Logger
}

func NewServiceReranker(client ports.RerankClient, logger *slog.Logger) *ServiceReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceReranker{client: client, logger: logger}
}

// Rerank submits every candidate text, empty ones included, so returned
// indices map back onto candidates. Candidates the service does not return
// are dropped.
func (r *ServiceReranker) Rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) RerankOutcome {
	topN := clampTopK(topK, len(candidates))
	if topN == 0 {
		return RerankOutcome{Chunks: []domain.RankedChunk{}}
	}

	documents := make([]string, len(candidates))
	for i, candidate := range candidates {
		documents[i] = domain.NormalizePayload(candidate.Payload).Text
	}

	hits, err := r.client.Rerank(ctx, query, documents, topN)
	if err != nil {
		r.logger.Warn("rerank_degraded",
			"operation", "rerank",
			"candidates", len(candidates),
			"top_n", topN,
			"error", err,
		)
		return RerankOutcome{Chunks: passthrough(candidates, topK), Degraded: true}
	}

	out := make([]domain.RankedChunk, 0, topN)
	used := make(map[int]struct{}, len(hits))
	for _, hit := range hits {
		if len(out) == topN {
			break
		}
		if hit.Index < 0 || hit.Index >= len(candidates) {
			continue
		}
		if _, dup := used[hit.Index]; dup {
			continue
		}
		used[hit.Index] = struct{}{}

		score := hit.RelevanceScore
		chunk := toRankedChunk(candidates[hit.Index], documents[hit.Index])
		chunk.RerankScore = &score
		out = append(out, chunk)
	}
	return RerankOutcome{Chunks: out}
}

func passthrough(candidates []domain.Candidate, topK int) []domain.RankedChunk {
	n := clampTopK(topK, len(candidates))
	out := make([]domain.RankedChunk, 0, n)
	for _, candidate := range candidates[:n] {
		out = append(out, toRankedChunk(candidate, domain.NormalizePayload(candidate.Payload).Text))
	}
	return out
}

func toRankedChunk(candidate domain.Candidate, text string) domain.RankedChunk {
	return domain.RankedChunk{
		ID:      candidate.ID,
		Text:    text,
		Score:   candidate.Score,
		Payload: candidate.Payload,
	}
}

func clampTopK(topK, n int) int {
	if topK < 0 {
		return 0
	}
	if topK > n {
		return n
	}
	return topK
}
