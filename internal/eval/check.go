package eval

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

var requiredHeadings = []string{"## Goal", "## Steps", "## Pitfalls", "## How to test"}

type Result struct {
	Case     Case
	State    string
	Passed   bool
	Failures []string
	Notes    []string
	Duration time.Duration
}

// Check compares one response with its case. A nil response with err set
// fails the case with the request error.
func Check(c Case, resp *Response, err error) Result {
	res := Result{Case: c, Passed: true}
	fail := func(format string, args ...any) {
		res.Passed = false
		res.Failures = append(res.Failures, fmt.Sprintf(format, args...))
	}

	if err != nil {
		fail("request_failed: %v", err)
		return res
	}
	res.State = resp.State

	if resp.State != c.ExpectedState {
		fail("state: expected=%s got=%s", c.ExpectedState, resp.State)
	}
	if resp.State != "answer" {
		return res
	}

	if c.MustHaveHeadings && !HasRequiredHeadings(resp.Answer) {
		fail("format: missing required headings")
	}

	publishers := citationPublishers(resp.Citations)
	if len(c.ExpectedPublishers) > 0 {
		hit := slices.ContainsFunc(c.ExpectedPublishers, func(p string) bool {
			return slices.Contains(publishers, p)
		})
		if !hit {
			got := strings.Join(uniqueStrings(publishers), ", ")
			if got == "" {
				got = "(none)"
			}
			fail("citations: expected >=1 publisher in [%s] got=[%s]", strings.Join(c.ExpectedPublishers, ", "), got)
		}
	}

	if len(resp.Citations) == 0 {
		fail("citations: empty")
	} else if unique := uniqueCitations(resp.Citations); unique != len(resp.Citations) {
		res.Notes = append(res.Notes, fmt.Sprintf("citations not unique (%d/%d)", unique, len(resp.Citations)))
	}
	return res
}

func HasRequiredHeadings(md string) bool {
	for _, h := range requiredHeadings {
		if !strings.Contains(md, h) {
			return false
		}
	}
	return true
}

func citationPublishers(citations []Citation) []string {
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		if p := strings.TrimSpace(deref(c.Publisher)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func uniqueCitations(citations []Citation) int {
	seen := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		seen[deref(c.URL)+"::"+deref(c.SectionPath)+"::"+deref(c.Title)] = struct{}{}
	}
	return len(seen)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
