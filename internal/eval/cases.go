// Package eval runs regression cases against a running query API and
// reports which expectations each response met.
package eval

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cases.yaml
var builtinCases []byte

type Case struct {
	ID                 string   `yaml:"id"`
	Query              string   `yaml:"query"`
	ExpectedState      string   `yaml:"expected_state"`
	ExpectedPublishers []string `yaml:"expected_publishers,omitempty"`
	MustHaveHeadings   bool     `yaml:"must_have_headings,omitempty"`
}

type caseFile struct {
	Cases []Case `yaml:"cases"`
}

var validStates = map[string]bool{
	"answer":         true,
	"not_covered":    true,
	"deny":           true,
	"ask_to_reframe": true,
}

// BuiltinCases returns the curated case set shipped with the binary.
func BuiltinCases() []Case {
	cases, err := ParseCases(builtinCases)
	if err != nil {
		panic(fmt.Sprintf("eval: builtin cases: %v", err))
	}
	return cases
}

// LoadCases reads a YAML case file. An empty path yields the builtin set.
func LoadCases(path string) ([]Case, error) {
	if strings.TrimSpace(path) == "" {
		return BuiltinCases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", path, err)
	}
	return ParseCases(data)
}

func ParseCases(data []byte) ([]Case, error) {
	var file caseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse cases: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, errors.New("parse cases: no cases defined")
	}

	seen := make(map[string]bool, len(file.Cases))
	for i, c := range file.Cases {
		if c.ID == "" || strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("case %d: id and query are required", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("case %s: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if !validStates[c.ExpectedState] {
			return nil, fmt.Errorf("case %s: unknown expected_state %q", c.ID, c.ExpectedState)
		}
	}
	return file.Cases, nil
}
