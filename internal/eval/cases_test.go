package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCasesCoverGuardrailControls(t *testing.T) {
	cases := BuiltinCases()
	require.Len(t, cases, 22)

	byID := make(map[string]Case, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
	}
	assert.Equal(t, "ask_to_reframe", byID["ask-to-reframe-llm-general"].ExpectedState)
	assert.Equal(t, "deny", byID["deny-travel"].ExpectedState)
	assert.True(t, byID["chunk-size-choice"].MustHaveHeadings)
	assert.Equal(t, []string{"Pinecone", "Qdrant", "LangChain"}, byID["chunk-size-choice"].ExpectedPublishers)
}

func TestLoadCasesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cases:
  - id: one
    query: How do I choose chunk size?
    expected_state: answer
    must_have_headings: true
`), 0o600))

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "one", cases[0].ID)
	assert.True(t, cases[0].MustHaveHeadings)
}

func TestLoadCasesEmptyPathUsesBuiltin(t *testing.T) {
	cases, err := LoadCases("  ")
	require.NoError(t, err)
	assert.Len(t, cases, len(BuiltinCases()))
}

func TestParseCasesRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"empty":     `cases: []`,
		"state":     "cases:\n  - id: a\n    query: q\n    expected_state: maybe\n",
		"duplicate": "cases:\n  - id: a\n    query: q\n    expected_state: deny\n  - id: a\n    query: q\n    expected_state: deny\n",
		"no query":  "cases:\n  - id: a\n    expected_state: deny\n",
		"yaml":      "cases: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCases([]byte(data))
			assert.Error(t, err)
		})
	}
}
