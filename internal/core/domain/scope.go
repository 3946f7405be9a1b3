package domain

type ScopeState string

const (
	ScopeAllow        ScopeState = "allow"
	ScopeAskToReframe ScopeState = "ask_to_reframe"
	ScopeDeny         ScopeState = "deny"
)

// ScopeDecision is the classifier verdict for one query. MatchedTopics is
// empty unless State is ScopeAllow.
type ScopeDecision struct {
	State         ScopeState `json:"state"`
	MatchedTopics []string   `json:"matched_topics"`
	Example       string     `json:"example,omitempty"`
}
