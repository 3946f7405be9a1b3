package domain

import "strings"

// Topic is a keyword-defined subject bucket used for scope checks and
// retrieval filtering. Keywords are lowercase.
type Topic struct {
	ID       string   `json:"topic" yaml:"topic"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Taxonomy is an ordered, immutable set of topics. Build it once with
// NewTaxonomy and share it read-only.
type Taxonomy struct {
	topics []Topic
}

// NewTaxonomy copies topics, lowercasing and de-duplicating keywords per
// topic. Topics without an id or without keywords are skipped.
func NewTaxonomy(topics []Topic) Taxonomy {
	out := make([]Topic, 0, len(topics))
	seenTopic := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			continue
		}
		if _, ok := seenTopic[id]; ok {
			continue
		}
		keywords := dedupeKeywords(t.Keywords)
		if len(keywords) == 0 {
			continue
		}
		seenTopic[id] = struct{}{}
		out = append(out, Topic{ID: id, Keywords: keywords})
	}
	return Taxonomy{topics: out}
}

// Topics returns a copy of the topics in declaration order.
func (t Taxonomy) Topics() []Topic {
	out := make([]Topic, len(t.topics))
	for i, topic := range t.topics {
		out[i] = Topic{ID: topic.ID, Keywords: append([]string(nil), topic.Keywords...)}
	}
	return out
}

func (t Taxonomy) Len() int {
	return len(t.topics)
}

// IDs returns topic identifiers in declaration order.
func (t Taxonomy) IDs() []string {
	out := make([]string, len(t.topics))
	for i, topic := range t.topics {
		out[i] = topic.ID
	}
	return out
}

// Match returns the ids of every topic with at least one keyword that is a
// substring of text. text must already be lowercase.
func (t Taxonomy) Match(text string) []string {
	var matched []string
	for _, topic := range t.topics {
		for _, keyword := range topic.Keywords {
			if strings.Contains(text, keyword) {
				matched = append(matched, topic.ID)
				break
			}
		}
	}
	return matched
}

func dedupeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		lower := strings.ToLower(strings.TrimSpace(k))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

// DefaultTaxonomy is the built-in RAG-building topic table.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy([]Topic{
		{
			ID:       "ingestion",
			Keywords: []string{"rss", "scrape", "ingest", "parsing", "dedup", "version", "rag", "html", "pdf"},
		},
		{
			ID:       "chunking",
			Keywords: []string{"chunk", "overlap", "split", "section-based", "rag", "section", "splitting"},
		},
		{
			ID:       "embeddings",
			Keywords: []string{"embedding", "embeddings", "dimension", "tokenizer", "rag", "vector", "vector dimension"},
		},
		{
			ID: "vector_storage",
			Keywords: []string{
				"qdrant", "payload", "filter", "collection", "index", "rag", "vector",
				"collections", "storage", "cluster", "pinecone",
			},
		},
		{
			ID: "retrieval",
			Keywords: []string{
				"retrieval", "search", "top-k", "hybrid", "bm25", "mmr", "rag", "database", "db", "vector",
			},
		},
		{
			ID: "reranking",
			Keywords: []string{
				"rerank", "reranking", "cross-encoder", "cohere", "rag", "sorting", "ranking", "relevance",
				"score", "reranker", "reranking model", "reranking algorithm", "reranking function",
				"reranking pipeline", "reranking system", "reranking architecture", "reranking design",
				"reranking implementation", "reranking optimization", "reranking performance",
				"reranking scalability", "reranking reliability", "reranking robustness", "reranking safety",
			},
		},
		{
			ID: "prompting_grounding",
			Keywords: []string{
				"grounding", "context", "citations", "hallucination", "rag", "prompting", "context window",
				"context length", "context size", "context embedding", "context vector",
				"context representation", "citation",
			},
		},
		{
			ID: "evaluation",
			Keywords: []string{
				"evaluation", "eval", "benchmark", "mteb", "metrics", "rag", "analysis", "reliability",
				"robustness", "safety", "regression",
			},
		},
		{
			ID: "production_ops",
			Keywords: []string{
				"latency", "throughput", "cost", "monitoring", "cache", "rag", "performance", "optimization", "scaling",
			},
		},
	})
}
