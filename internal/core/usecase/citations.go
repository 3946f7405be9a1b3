package usecase

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// MaxCitations caps the citation list returned with an answer.
const MaxCitations = 5

type rankedCitation struct {
	citation domain.Citation
	rank     int
	date     time.Time
	dated    bool
}

// BuildCitations maps ranked chunks to citations, drops duplicates by
// (canonical URL, section path, title), sorts dated citations newest first
// ahead of undated ones and truncates to MaxCitations. Undated citations
// keep rank order.
func BuildCitations(chunks []domain.RankedChunk) []domain.Citation {
	seen := make(map[string]struct{}, len(chunks))
	items := make([]rankedCitation, 0, len(chunks))
	for i, chunk := range chunks {
		meta := domain.NormalizePayload(chunk.Payload)
		key := citationKey(meta)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		item := rankedCitation{
			citation: domain.Citation{
				Ref:               "#" + strconv.Itoa(i+1),
				Publisher:         meta.Publisher,
				Title:             meta.Title,
				URL:               meta.URL,
				SectionPath:       meta.SectionPath,
				PublishedDate:     meta.PublishedDate,
				PublishedDateText: meta.PublishedDateText,
				RetrievedAt:       meta.RetrievedAt,
				ChunkIndex:        meta.ChunkIndex,
			},
			rank: i,
		}
		item.date, item.dated = citationDate(meta)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.dated && b.dated:
			if !a.date.Equal(b.date) {
				return a.date.After(b.date)
			}
			return a.rank < b.rank
		case a.dated != b.dated:
			return a.dated
		default:
			return a.rank < b.rank
		}
	})

	if len(items) > MaxCitations {
		items = items[:MaxCitations]
	}
	out := make([]domain.Citation, 0, len(items))
	for _, item := range items {
		out = append(out, item.citation)
	}
	return out
}

// CanonicalURL lowercases the host and drops the fragment and trailing
// slashes of the path. Missing
// or unparseable URLs, including ones without scheme or host, yield "".
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func citationKey(meta domain.ChunkMeta) string {
	return CanonicalURL(deref(meta.URL)) + "::" +
		strings.TrimSpace(deref(meta.SectionPath)) + "::" +
		strings.TrimSpace(deref(meta.Title))
}

func citationDate(meta domain.ChunkMeta) (time.Time, bool) {
	for _, raw := range []*string{meta.PublishedDate, meta.RetrievedAt} {
		if raw == nil || strings.TrimSpace(*raw) == "" {
			continue
		}
		parsed, err := dateparse.ParseAny(strings.TrimSpace(*raw))
		if err != nil {
			continue
		}
		return parsed, true
	}
	return time.Time{}, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
