package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const ChunkRoleSectionSummary = "section_summary"

// SearchFilter narrows a vector search. Doc markers are always excluded.
type SearchFilter struct {
	Topics []string
}

// Candidate is one similarity-search hit. It is also the shape of a
// deduplicated candidate.
type Candidate struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ChunkMeta is the normalized view of a candidate payload. Every field is
// optional; nil means absent.
type ChunkMeta struct {
	Text              string
	DocID             *string
	Title             *string
	URL               *string
	SectionPath       *string
	Publisher         *string
	PublishedDate     *string
	PublishedDateText *string
	RetrievedAt       *string
	ChunkIndex        *int
	ChunkKey          *string
	Topic             *string
	ChunkRole         *string
}

// NormalizePayload resolves legacy aliases (url/source, retrieved_at/fetched_at,
// text/content) and loose value types into a ChunkMeta.
func NormalizePayload(payload map[string]any) ChunkMeta {
	meta := ChunkMeta{
		DocID:             firstString(payload, "doc_id"),
		Title:             firstString(payload, "title"),
		URL:               firstString(payload, "url", "source"),
		SectionPath:       firstString(payload, "section_path"),
		Publisher:         firstString(payload, "publisher"),
		PublishedDate:     firstString(payload, "published_date"),
		PublishedDateText: firstString(payload, "published_date_text"),
		RetrievedAt:       firstString(payload, "retrieved_at", "fetched_at"),
		ChunkIndex:        firstInt(payload, "chunk_index"),
		ChunkKey:          firstString(payload, "chunk_key"),
		Topic:             firstString(payload, "topic"),
		ChunkRole:         firstString(payload, "chunk_role"),
	}
	if text := firstString(payload, "text", "content"); text != nil {
		meta.Text = *text
	}
	return meta
}

// IsSectionSummary reports whether the chunk was ingested as a section-level
// summary.
func (m ChunkMeta) IsSectionSummary() bool {
	return m.ChunkRole != nil && *m.ChunkRole == ChunkRoleSectionSummary
}

// RankedChunk is a candidate after reranking. Score keeps the similarity
// score; RerankScore is set only when a reranking service scored it.
type RankedChunk struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Score       float64        `json:"score"`
	RerankScore *float64       `json:"rerank_score,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// RerankHit is one result from a reranking service: an index into the
// submitted documents plus its relevance score.
type RerankHit struct {
	Index          int
	RelevanceScore float64
}

// TraceEntry describes one ranked chunk for debugging responses and evals.
type TraceEntry struct {
	RerankRank     int      `json:"rerank_rank"`
	RerankScore    *float64 `json:"rerank_score"`
	RetrievalScore *float64 `json:"retrieval_score"`
	ID             string   `json:"id"`
	Title          *string  `json:"title"`
	SectionPath    *string  `json:"section_path"`
	URL            *string  `json:"url"`
}

func firstString(payload map[string]any, keys ...string) *string {
	for _, key := range keys {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch tv := v.(type) {
		case string:
			s = tv
		case float64:
			s = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			s = fmt.Sprintf("%v", tv)
		}
		return &s
	}
	return nil
}

func firstInt(payload map[string]any, keys ...string) *int {
	for _, key := range keys {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		var n int
		switch tv := v.(type) {
		case int:
			n = tv
		case int64:
			n = int(tv)
		case float64:
			if tv != math.Trunc(tv) {
				continue
			}
			n = int(tv)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(tv))
			if err != nil {
				continue
			}
			n = parsed
		default:
			continue
		}
		return &n
	}
	return nil
}
