package domain

import "time"

// Citation is a user-facing provenance record derived from a ranked chunk.
type Citation struct {
	Ref               string  `json:"ref"`
	Publisher         *string `json:"publisher,omitempty"`
	Title             *string `json:"title,omitempty"`
	URL               *string `json:"url,omitempty"`
	SectionPath       *string `json:"section_path,omitempty"`
	PublishedDate     *string `json:"published_date,omitempty"`
	PublishedDateText *string `json:"published_date_text,omitempty"`
	RetrievedAt       *string `json:"retrieved_at,omitempty"`
	ChunkIndex        *int    `json:"chunk_index,omitempty"`
}

type AnswerState string

const (
	AnswerNotCovered AnswerState = "not_covered"
	AnswerReady      AnswerState = "answer"
)

// AnswerResult is the synthesizer output: either a not-covered message or
// answer text with citations.
type AnswerResult struct {
	State     AnswerState `json:"state"`
	Message   string      `json:"message,omitempty"`
	Text      string      `json:"answer,omitempty"`
	Citations []Citation  `json:"citations,omitempty"`
}

// Agent selects the answer style.
type Agent string

const (
	AgentRAG      Agent = "rag"
	AgentRAGEssay Agent = "rag_essay"
)

func ParseAgent(raw string) (Agent, bool) {
	switch Agent(raw) {
	case "", AgentRAG:
		return AgentRAG, true
	case AgentRAGEssay:
		return AgentRAGEssay, true
	default:
		return "", false
	}
}

type QueryRequest struct {
	Query string
	Agent Agent
	Debug bool
}

type QueryState string

const (
	QueryDeny         QueryState = "deny"
	QueryAskToReframe QueryState = "ask_to_reframe"
	QueryNotCovered   QueryState = "not_covered"
	QueryAnswer       QueryState = "answer"
)

// Diagnostics records how the pipeline reached its result. It is not part of
// the public response.
type Diagnostics struct {
	MatchedTopics  []string
	CandidateCount int
	DedupedCount   int
	FallbackUsed   bool
	RerankDegraded bool
	VagueBoosted   bool
}

// QueryResult is the orchestrator's terminal state for one request.
type QueryResult struct {
	State       QueryState
	Message     string
	Example     string
	Answer      string
	Citations   []Citation
	Trace       []TraceEntry
	Diagnostics Diagnostics
}

// CompletionRequest is a single-turn language-model call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
}

// QueryEvent is the audit record emitted after each answered request.
type QueryEvent struct {
	RequestID      string     `json:"request_id"`
	Query          string     `json:"query"`
	State          QueryState `json:"state"`
	Agent          Agent      `json:"agent"`
	MatchedTopics  []string   `json:"matched_topics"`
	CandidateCount int        `json:"candidate_count"`
	FallbackUsed   bool       `json:"fallback_used"`
	RerankDegraded bool       `json:"rerank_degraded"`
	CitationCount  int        `json:"citation_count"`
	DurationMS     float64    `json:"duration_ms"`
	CreatedAt      time.Time  `json:"created_at"`
}
