package usecase

import (
	"strings"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// ReframeExample is offered to callers whose query is adjacent to the domain.
const ReframeExample = "How does retrieval reduce hallucinations in a RAG system?"

// adjacencyTriggers flag generic-AI questions that are close to, but not
// framed as, RAG building. Keep the list fixed: additions need product sign-off.
var adjacencyTriggers = []string{"llm", "hallucination"}

type ScopeClassifier struct {
	taxonomy domain.Taxonomy
}

func NewScopeClassifier(taxonomy domain.Taxonomy) *ScopeClassifier {
	return &ScopeClassifier{taxonomy: taxonomy}
}

// Classify matches keywords by substring, so short keywords can hit inside
// unrelated words. That precision/recall tradeoff is accepted.
func (c *ScopeClassifier) Classify(query string) domain.ScopeDecision {
	q := strings.ToLower(query)

	if matched := c.taxonomy.Match(q); len(matched) > 0 {
		return domain.ScopeDecision{State: domain.ScopeAllow, MatchedTopics: matched}
	}

	for _, trigger := range adjacencyTriggers {
		if strings.Contains(q, trigger) {
			return domain.ScopeDecision{
				State:         domain.ScopeAskToReframe,
				MatchedTopics: []string{},
				Example:       ReframeExample,
			}
		}
	}

	return domain.ScopeDecision{State: domain.ScopeDeny, MatchedTopics: []string{}}
}
