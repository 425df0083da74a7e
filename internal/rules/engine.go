package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/mailsift/mailsift/internal/email"
)

// monthDays is the calendar-month approximation used for the months unit.
const monthDays = 30

// Match pairs a record with the actions resolved for it. Matches preserve the
// relative order of the input record sequence.
type Match struct {
	Record  email.Record
	Actions []Action
}

type matcher struct {
	field     Field
	predicate Predicate
	value     string        // pre-folded per case policy, text predicates only
	threshold time.Duration // date predicates only
	fold      bool
}

type compiled struct {
	combinator Combinator
	matchers   []matcher
	actions    []Action
}

// compile validates the ruleset and lowers it into matchers. All enumeration
// and magnitude problems surface here, before any record is touched.
func compile(rs Ruleset) (compiled, error) {
	combinator, ok := parseCombinator(string(rs.Combinator))
	if !ok {
		return compiled{}, &InvalidRuleError{
			Part:   "condition",
			Index:  -1,
			Reason: "unknown match policy " + strconv.Quote(string(rs.Combinator)),
		}
	}

	matchers := make([]matcher, 0, len(rs.Conditions))
	for i, cond := range rs.Conditions {
		field, ok := parseField(string(cond.Field))
		if !ok {
			return compiled{}, conditionErr(i, "unknown field %q", string(cond.Field))
		}
		predicate, ok := parsePredicate(string(cond.Predicate))
		if !ok {
			return compiled{}, conditionErr(i, "unknown predicate %q", string(cond.Predicate))
		}

		m := matcher{field: field, predicate: predicate, fold: !rs.CaseSensitive}
		if IsDatePredicate(predicate) {
			if field != FieldReceived {
				return compiled{}, conditionErr(i, "predicate %q requires the received field", predicate)
			}
			unit, ok := parseUnit(string(cond.Unit))
			if !ok {
				return compiled{}, conditionErr(i, "unknown unit %q", string(cond.Unit))
			}
			magnitude, err := strconv.Atoi(strings.TrimSpace(cond.Value))
			if err != nil || magnitude <= 0 {
				return compiled{}, conditionErr(i, "magnitude %q is not a positive integer", cond.Value)
			}
			days := magnitude
			if unit == UnitMonths {
				days *= monthDays
			}
			m.threshold = time.Duration(days) * 24 * time.Hour
		} else {
			if field == FieldReceived {
				return compiled{}, conditionErr(i, "predicate %q cannot apply to the received field", predicate)
			}
			m.value = cond.Value
			if m.fold {
				m.value = strings.ToLower(m.value)
			}
		}
		matchers = append(matchers, m)
	}

	for i, act := range rs.Actions {
		kind, ok := parseActionKind(string(act.Kind))
		if !ok {
			return compiled{}, actionErr(i, "unknown action %q", string(act.Kind))
		}
		if kind == ActionMove && strings.TrimSpace(act.Destination) == "" {
			return compiled{}, actionErr(i, "move action requires a destination")
		}
	}

	return compiled{combinator: combinator, matchers: matchers, actions: rs.Actions}, nil
}

// Evaluate matches every record against the ruleset and returns the plan: one
// Match per matching record, in input order, carrying the resolved actions.
// The now baseline is fixed for the whole call so one evaluation run sees one
// consistent notion of message age. Evaluate never mutates records and never
// talks to a provider; applying the plan is the caller's job.
func Evaluate(rs Ruleset, records []email.Record, now time.Time) ([]Match, error) {
	c, err := compile(rs)
	if err != nil {
		return nil, err
	}

	resolved := ResolveActions(c.actions)
	var matches []Match
	for _, rec := range records {
		if c.matches(rec, now) {
			matches = append(matches, Match{Record: rec, Actions: resolved})
		}
	}
	return matches, nil
}

// matches applies the combinator with short-circuit semantics. An empty
// condition list is vacuously true under all and vacuously false under any.
func (c compiled) matches(rec email.Record, now time.Time) bool {
	if c.combinator == CombinatorAll {
		for _, m := range c.matchers {
			if !m.matches(rec, now) {
				return false
			}
		}
		return true
	}
	for _, m := range c.matchers {
		if m.matches(rec, now) {
			return true
		}
	}
	return false
}

func (m matcher) matches(rec email.Record, now time.Time) bool {
	if m.field == FieldReceived {
		if rec.ReceivedAt.IsZero() {
			// no usable date: matches neither direction
			return false
		}
		age := now.Sub(rec.ReceivedAt)
		if m.predicate == PredOlderThan {
			return age > m.threshold
		}
		return age < m.threshold
	}

	value := textField(rec, m.field)
	if m.fold {
		value = strings.ToLower(value)
	}
	switch m.predicate {
	case PredContains:
		return value != "" && strings.Contains(value, m.value)
	case PredNotContains:
		return value == "" || !strings.Contains(value, m.value)
	case PredEquals:
		return value != "" && value == m.value
	case PredNotEquals:
		return value == "" || value != m.value
	default:
		return false
	}
}

func textField(rec email.Record, f Field) string {
	switch f {
	case FieldFrom:
		return rec.From
	case FieldTo:
		return rec.To
	case FieldSubject:
		return rec.Subject
	case FieldBody:
		return rec.Snippet
	default:
		return ""
	}
}

// exclusiveGroup returns a key shared by mutually exclusive action kinds, or
// "" for kinds that do not participate in a pair.
func exclusiveGroup(kind ActionKind) string {
	switch kind {
	case ActionMarkRead, ActionMarkUnread:
		return "read"
	case ActionStar, ActionUnstar:
		return "star"
	default:
		return ""
	}
}

// ResolveActions applies the last-wins policy within the mark-read/mark-unread
// and star/unstar pairs: only the last member of each pair survives, at its
// original position. All other actions keep their order untouched.
func ResolveActions(actions []Action) []Action {
	lastInGroup := map[string]int{}
	for i, act := range actions {
		kind, ok := parseActionKind(string(act.Kind))
		if !ok {
			continue
		}
		if group := exclusiveGroup(kind); group != "" {
			lastInGroup[group] = i
		}
	}

	resolved := make([]Action, 0, len(actions))
	for i, act := range actions {
		kind, ok := parseActionKind(string(act.Kind))
		if !ok {
			continue
		}
		if group := exclusiveGroup(kind); group != "" && lastInGroup[group] != i {
			continue
		}
		normalized := act
		normalized.Kind = kind
		resolved = append(resolved, normalized)
	}
	return resolved
}
