package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

const goodAnswer = "## Goal\nx\n## Steps\nx\n## Pitfalls\nx\n## How to test\nx"

func answerCase() Case {
	return Case{
		ID:                 "chunk-size-choice",
		Query:              "How do I choose chunk size for RAG?",
		ExpectedState:      "answer",
		ExpectedPublishers: []string{"Pinecone", "Qdrant"},
		MustHaveHeadings:   true,
	}
}

func TestCheckPassesGoodAnswer(t *testing.T) {
	res := Check(answerCase(), &Response{
		State:  "answer",
		Answer: goodAnswer,
		Citations: []Citation{
			{Ref: "#1", Publisher: strPtr(" Qdrant "), URL: strPtr("https://qdrant.tech/a")},
			{Ref: "#2", Publisher: strPtr("Medium"), URL: strPtr("https://medium.com/b")},
		},
	}, nil)

	assert.True(t, res.Passed, res.Failures)
	assert.Empty(t, res.Notes)
	assert.Equal(t, "answer", res.State)
}

func TestCheckReportsEveryFailure(t *testing.T) {
	res := Check(answerCase(), &Response{
		State:     "answer",
		Answer:    "## Goal only",
		Citations: []Citation{{Ref: "#1", Publisher: strPtr("Medium")}},
	}, nil)

	assert.False(t, res.Passed)
	assert.Contains(t, res.Failures, "format: missing required headings")
	assert.Contains(t, res.Failures, "citations: expected >=1 publisher in [Pinecone, Qdrant] got=[Medium]")
}

func TestCheckEmptyCitationsFail(t *testing.T) {
	c := answerCase()
	c.ExpectedPublishers = nil
	res := Check(c, &Response{State: "answer", Answer: goodAnswer}, nil)

	assert.False(t, res.Passed)
	assert.Equal(t, []string{"citations: empty"}, res.Failures)
}

func TestCheckDuplicateCitationsOnlyNoted(t *testing.T) {
	c := answerCase()
	c.ExpectedPublishers = nil
	dup := Citation{Publisher: strPtr("Qdrant"), URL: strPtr("https://qdrant.tech/a"), Title: strPtr("A")}
	res := Check(c, &Response{State: "answer", Answer: goodAnswer, Citations: []Citation{dup, dup}}, nil)

	assert.True(t, res.Passed)
	assert.Equal(t, []string{"citations not unique (1/2)"}, res.Notes)
}

func TestCheckStateMismatch(t *testing.T) {
	res := Check(Case{ID: "deny-travel", ExpectedState: "deny"}, &Response{State: "answer", Answer: goodAnswer}, nil)

	assert.False(t, res.Passed)
	assert.Contains(t, res.Failures, "state: expected=deny got=answer")
}

func TestCheckNonAnswerSkipsCitationChecks(t *testing.T) {
	res := Check(Case{ID: "deny-travel", ExpectedState: "deny"}, &Response{State: "deny", Message: "limited"}, nil)

	assert.True(t, res.Passed)
	assert.Empty(t, res.Failures)
}

func TestCheckRequestError(t *testing.T) {
	res := Check(answerCase(), nil, errors.New("connection refused"))

	assert.False(t, res.Passed)
	assert.Equal(t, []string{"request_failed: connection refused"}, res.Failures)
}
