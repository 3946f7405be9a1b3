package ports

import (
	"context"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// QueryService is the inbound contract for the retrieval-to-answer pipeline.
type QueryService interface {
	Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}

// ScopeClassifier decides whether a query is in scope.
type ScopeClassifier interface {
	Classify(query string) domain.ScopeDecision
}
