package rules

import (
	"fmt"
	"strings"
)

// Finding is one lint observation about a ruleset.
type Finding struct {
	Code   string // contradiction, overlap, dead, match-all
	Detail string
}

// LintReport collects findings for CI enforcement.
type LintReport struct {
	Findings []Finding
}

// Lint validates the ruleset and then looks for warning-grade problems the
// engine resolves silently: contradictory exclusive pairs (where last-wins
// applies), move combined with archive or trash (overlapping label moves),
// and vacuous condition lists.
func Lint(rs Ruleset) (LintReport, error) {
	c, err := compile(rs)
	if err != nil {
		return LintReport{}, err
	}

	var report LintReport
	groups := map[string]map[ActionKind]struct{}{}
	kinds := map[ActionKind]struct{}{}
	for _, act := range c.actions {
		kind, _ := parseActionKind(string(act.Kind))
		kinds[kind] = struct{}{}
		if g := exclusiveGroup(kind); g != "" {
			if groups[g] == nil {
				groups[g] = map[ActionKind]struct{}{}
			}
			groups[g][kind] = struct{}{}
		}
	}
	for g, members := range groups {
		if len(members) > 1 {
			report.Findings = append(report.Findings, Finding{
				Code:   "contradiction",
				Detail: fmt.Sprintf("both %s actions present; only the last applies", g),
			})
		}
	}
	if _, ok := kinds[ActionMove]; ok {
		if _, archived := kinds[ActionArchive]; archived {
			report.Findings = append(report.Findings, Finding{
				Code:   "overlap",
				Detail: "move and archive both change the inbox label",
			})
		}
		if _, trashed := kinds[ActionTrash]; trashed {
			report.Findings = append(report.Findings, Finding{
				Code:   "overlap",
				Detail: "move and trash both relocate the message",
			})
		}
	}
	if len(c.matchers) == 0 {
		switch c.combinator {
		case CombinatorAll:
			report.Findings = append(report.Findings, Finding{
				Code:   "match-all",
				Detail: "no conditions under match policy all: every record matches",
			})
		case CombinatorAny:
			report.Findings = append(report.Findings, Finding{
				Code:   "dead",
				Detail: "no conditions under match policy any: no record can match",
			})
		}
	}
	return report, nil
}

// ShouldFail reports whether any of the requested finding codes are present.
func (lr LintReport) ShouldFail(failOn []string) bool {
	present := map[string]bool{}
	for _, f := range lr.Findings {
		present[f.Code] = true
	}
	for _, code := range failOn {
		code = strings.TrimSpace(strings.ToLower(code))
		if code == "" {
			continue
		}
		if present[code] {
			return true
		}
	}
	return false
}

// HumanSummary renders a concise CLI summary.
func (lr LintReport) HumanSummary() string {
	if len(lr.Findings) == 0 {
		return "no findings\n"
	}
	builder := &strings.Builder{}
	for _, f := range lr.Findings {
		fmt.Fprintf(builder, "%s: %s\n", f.Code, f.Detail)
	}
	return builder.String()
}

// ParseFailOn splits a comma separated list into canonical tokens.
func ParseFailOn(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
