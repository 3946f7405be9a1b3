package ports

import (
	"context"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// Embedder builds the query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore performs nearest-neighbor search over the chunk corpus.
type VectorStore interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
}

// RerankClient scores documents against a query. Hits are ordered by
// relevance and index into documents.
type RerankClient interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RerankHit, error)
}

// Completer runs a single-turn language-model completion.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// QueryEventSink records audit events for answered requests.
type QueryEventSink interface {
	RecordQuery(ctx context.Context, event domain.QueryEvent) error
}
