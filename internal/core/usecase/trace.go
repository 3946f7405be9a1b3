package usecase

import "github.com/kirillkom/rag-builder-assistant/internal/core/domain"

// BuildTrace describes the ranked chunks for debug responses and evals.
// retrievalScores maps candidate ids to similarity scores after boosting.
func BuildTrace(chunks []domain.RankedChunk, retrievalScores map[string]float64) []domain.TraceEntry {
	out := make([]domain.TraceEntry, 0, len(chunks))
	for i, chunk := range chunks {
		meta := domain.NormalizePayload(chunk.Payload)
		entry := domain.TraceEntry{
			RerankRank:  i + 1,
			ID:          chunk.ID,
			Title:       meta.Title,
			SectionPath: meta.SectionPath,
			URL:         meta.URL,
		}
		if chunk.RerankScore != nil {
			score := *chunk.RerankScore
			entry.RerankScore = &score
		} else {
			score := chunk.Score
			entry.RerankScore = &score
		}
		if score, ok := retrievalScores[chunk.ID]; ok {
			entry.RetrievalScore = &score
		}
		out = append(out, entry)
	}
	return out
}
