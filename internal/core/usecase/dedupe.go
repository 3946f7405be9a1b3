package usecase

import (
	"fmt"
	"strconv"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// DedupeCandidates keeps the first candidate for each chunk key and
// preserves input order.
func DedupeCandidates(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := ChunkKey(candidate.Payload)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// ChunkKey is the logical identity of a chunk. An explicit chunk_key wins;
// otherwise doc::section::chunk:index with sentinel defaults.
func ChunkKey(payload map[string]any) string {
	meta := domain.NormalizePayload(payload)
	if meta.ChunkKey != nil && *meta.ChunkKey != "" {
		return *meta.ChunkKey
	}

	doc := "unknown_doc"
	switch {
	case meta.DocID != nil && *meta.DocID != "":
		doc = *meta.DocID
	case meta.URL != nil && *meta.URL != "":
		doc = *meta.URL
	}
	section := "unknown_section"
	if meta.SectionPath != nil && *meta.SectionPath != "" {
		section = *meta.SectionPath
	}
	index := "x"
	if meta.ChunkIndex != nil {
		index = strconv.Itoa(*meta.ChunkIndex)
	}
	return fmt.Sprintf("%s::%s::chunk:%s", doc, section, index)
}
