package rules

import (
	"reflect"
	"testing"
)

func findingCodes(report LintReport) []string {
	codes := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestLintFindings(t *testing.T) {
	cond := Condition{Field: FieldSubject, Predicate: PredContains, Value: "x"}

	tests := []struct {
		name string
		rs   Ruleset
		want []string
	}{
		{
			name: "clean",
			rs: Ruleset{
				Combinator: CombinatorAll,
				Conditions: []Condition{cond},
				Actions:    []Action{{Kind: ActionMarkRead}, {Kind: ActionArchive}},
			},
			want: []string{},
		},
		{
			name: "read-contradiction",
			rs: Ruleset{
				Combinator: CombinatorAll,
				Conditions: []Condition{cond},
				Actions:    []Action{{Kind: ActionMarkRead}, {Kind: ActionMarkUnread}},
			},
			want: []string{"contradiction"},
		},
		{
			name: "star-contradiction",
			rs: Ruleset{
				Combinator: CombinatorAll,
				Conditions: []Condition{cond},
				Actions:    []Action{{Kind: ActionStar}, {Kind: ActionUnstar}},
			},
			want: []string{"contradiction"},
		},
		{
			name: "move-archive-overlap",
			rs: Ruleset{
				Combinator: CombinatorAll,
				Conditions: []Condition{cond},
				Actions:    []Action{{Kind: ActionMove, Destination: "updates"}, {Kind: ActionArchive}},
			},
			want: []string{"overlap"},
		},
		{
			name: "move-trash-overlap",
			rs: Ruleset{
				Combinator: CombinatorAll,
				Conditions: []Condition{cond},
				Actions:    []Action{{Kind: ActionMove, Destination: "updates"}, {Kind: ActionTrash}},
			},
			want: []string{"overlap"},
		},
		{
			name: "empty-any-is-dead",
			rs:   Ruleset{Combinator: CombinatorAny},
			want: []string{"dead"},
		},
		{
			name: "empty-all-matches-everything",
			rs:   Ruleset{Combinator: CombinatorAll},
			want: []string{"match-all"},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			report, err := Lint(tc.rs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := findingCodes(report)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("codes = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLintRejectsInvalidRuleset(t *testing.T) {
	rs := Ruleset{Combinator: CombinatorAll, Actions: []Action{{Kind: "bounce"}}}
	if _, err := Lint(rs); err == nil {
		t.Fatalf("expected error")
	}
}

func TestShouldFail(t *testing.T) {
	report := LintReport{Findings: []Finding{{Code: "contradiction"}, {Code: "match-all"}}}

	if !report.ShouldFail([]string{"contradiction"}) {
		t.Fatalf("expected failure on present code")
	}
	if report.ShouldFail([]string{"dead", "overlap"}) {
		t.Fatalf("did not expect failure on absent codes")
	}
	if report.ShouldFail(nil) {
		t.Fatalf("no fail-on codes should never fail")
	}
}

func TestParseFailOn(t *testing.T) {
	got := ParseFailOn(" Contradiction, ,overlap ,")
	want := []string{"contradiction", "overlap"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if ParseFailOn("  ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}
