package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
	"github.com/kirillkom/rag-builder-assistant/internal/core/ports"
)

// DefaultSummaryBoost is applied to section-summary chunks for vague queries.
const DefaultSummaryBoost = 1.2

const vagueMaxTokens = 6

var vaguePatterns = []string{"what is", "explain", "overview", "introduction", "basics"}

// statusDetailer is implemented by vector store errors that carry a
// provider status payload.
type statusDetailer interface {
	StatusDetail() string
}

type CandidateRetriever struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	logger   *slog.Logger
}

func NewCandidateRetriever(embedder ports.Embedder, vectorDB ports.VectorStore, logger *slog.Logger) *CandidateRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateRetriever{
		embedder: embedder,
		vectorDB: vectorDB,
		logger:   logger,
	}
}

// Retrieve embeds the query and returns up to limit raw candidates. A
// non-empty topics list restricts results to those topics.
func (r *CandidateRetriever) Retrieve(ctx context.Context, query string, limit int, topics []string) ([]domain.Candidate, error) {
	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Error("embed_query_failed", "operation", "embed_query", "error", err)
		return nil, wrapUpstream("embed query", err)
	}

	candidates, err := r.vectorDB.Search(ctx, queryVector, limit, domain.SearchFilter{Topics: topics})
	if err != nil {
		attrs := []any{
			"operation", "vector_search",
			"limit", limit,
			"topics", topics,
			"error", err,
		}
		var detailed statusDetailer
		if errors.As(err, &detailed) {
			attrs = append(attrs, "status_detail", detailed.StatusDetail())
		}
		r.logger.Error("vector_search_failed", attrs...)
		return nil, wrapUpstream("search vector db", err)
	}
	return candidates, nil
}

// IsVagueQuery reports short or generic questions that benefit from
// high-level summary chunks.
func IsVagueQuery(query string) bool {
	if len(strings.Fields(query)) <= vagueMaxTokens {
		return true
	}
	q := strings.ToLower(query)
	for _, pattern := range vaguePatterns {
		if strings.Contains(q, pattern) {
			return true
		}
	}
	return false
}

// BoostSectionSummaries multiplies the score of section-summary chunks by
// factor and re-sorts by score descending. The input slice is not modified.
func BoostSectionSummaries(candidates []domain.Candidate, factor float64) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)
	if factor <= 1 {
		return out
	}
	for i := range out {
		if domain.NormalizePayload(out[i].Payload).IsSectionSummary() {
			out[i].Score *= factor
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func wrapUpstream(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrUpstream) {
		return err
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}
