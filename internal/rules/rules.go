// Package rules implements the rule model and the evaluation engine: a
// combinator over typed conditions matched against stored email records,
// producing an ordered action plan per matching record.
package rules

import (
	"fmt"
	"strings"
)

// Field names an email attribute a condition can test.
type Field string

const (
	FieldFrom     Field = "from"
	FieldTo       Field = "to"
	FieldSubject  Field = "subject"
	FieldReceived Field = "received"
	FieldBody     Field = "body"
)

// Predicate is the comparison a condition performs. Text predicates apply to
// from/to/subject/body; date predicates apply to received only.
type Predicate string

const (
	PredContains    Predicate = "contains"
	PredNotContains Predicate = "does not contain"
	PredEquals      Predicate = "equals"
	PredNotEquals   Predicate = "does not equal"
	PredOlderThan   Predicate = "older than"
	PredNewerThan   Predicate = "newer than"
)

// Unit scales the magnitude of a date condition.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitMonths Unit = "months"
)

// Combinator aggregates condition results.
type Combinator string

const (
	CombinatorAll Combinator = "all"
	CombinatorAny Combinator = "any"
)

// ActionKind identifies a provider-level mutation.
type ActionKind string

const (
	ActionMarkRead   ActionKind = "mark as read"
	ActionMarkUnread ActionKind = "mark as unread"
	ActionMove       ActionKind = "move message"
	ActionStar       ActionKind = "star"
	ActionUnstar     ActionKind = "unstar"
	ActionArchive    ActionKind = "archive"
	ActionTrash      ActionKind = "trash"
)

// Condition is one predicate test against one email field. Value holds the
// comparison text for text predicates and the decimal magnitude for date
// predicates; Unit applies to date predicates only.
type Condition struct {
	Field     Field     `json:"field"`
	Predicate Predicate `json:"predicate"`
	Value     string    `json:"value"`
	Unit      Unit      `json:"unit,omitempty"`
}

// Action is one mutation to apply to a matching email. Destination is only
// meaningful for move actions.
type Action struct {
	Kind        ActionKind `json:"action"`
	Destination string     `json:"destination,omitempty"`
}

// Ruleset is a combinator over ordered conditions plus the ordered actions to
// apply when the combinator matches. Zero conditions under "all" match every
// record; under "any" they match none.
type Ruleset struct {
	Combinator    Combinator  `json:"match_policy"`
	CaseSensitive bool        `json:"case_sensitive,omitempty"`
	Conditions    []Condition `json:"rules"`
	Actions       []Action    `json:"actions"`
}

// InvalidRuleError reports a malformed ruleset: an unknown field, predicate,
// unit or action kind, or a date magnitude that is not a positive integer.
// Evaluate raises it before touching any record.
type InvalidRuleError struct {
	Part   string // "condition" or "action"
	Index  int    // position within the ruleset's sequence
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule: %s %d: %s", e.Part, e.Index, e.Reason)
}

func conditionErr(index int, format string, args ...any) error {
	return &InvalidRuleError{Part: "condition", Index: index, Reason: fmt.Sprintf(format, args...)}
}

func actionErr(index int, format string, args ...any) error {
	return &InvalidRuleError{Part: "action", Index: index, Reason: fmt.Sprintf(format, args...)}
}

// parseField canonicalizes a field token, accepting the legacy ruleset
// spellings ("Received Date/Time", "Message") alongside the short forms.
func parseField(raw string) (Field, bool) {
	switch canonical(raw) {
	case "from", "sender":
		return FieldFrom, true
	case "to", "recipient":
		return FieldTo, true
	case "subject":
		return FieldSubject, true
	case "received", "received date", "received date/time":
		return FieldReceived, true
	case "body", "message":
		return FieldBody, true
	}
	return "", false
}

func parsePredicate(raw string) (Predicate, bool) {
	switch canonical(raw) {
	case "contains":
		return PredContains, true
	case "does not contain", "not contains":
		return PredNotContains, true
	case "equals":
		return PredEquals, true
	case "does not equal", "not equals":
		return PredNotEquals, true
	case "older than", "greater than":
		return PredOlderThan, true
	case "newer than", "less than":
		return PredNewerThan, true
	}
	return "", false
}

func parseUnit(raw string) (Unit, bool) {
	switch canonical(raw) {
	case "days", "day", "":
		// unit defaults to days, as the legacy processor did
		return UnitDays, true
	case "months", "month":
		return UnitMonths, true
	}
	return "", false
}

func parseCombinator(raw string) (Combinator, bool) {
	switch canonical(raw) {
	case "all":
		return CombinatorAll, true
	case "any":
		return CombinatorAny, true
	}
	return "", false
}

func parseActionKind(raw string) (ActionKind, bool) {
	switch canonical(raw) {
	case "mark as read", "mark read":
		return ActionMarkRead, true
	case "mark as unread", "mark unread":
		return ActionMarkUnread, true
	case "move message", "move":
		return ActionMove, true
	case "star":
		return ActionStar, true
	case "unstar":
		return ActionUnstar, true
	case "archive":
		return ActionArchive, true
	case "trash":
		return ActionTrash, true
	}
	return "", false
}

func canonical(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsDatePredicate reports whether p compares message age rather than text.
func IsDatePredicate(p Predicate) bool {
	switch p {
	case PredOlderThan, PredNewerThan:
		return true
	case PredContains, PredNotContains, PredEquals, PredNotEquals:
		return false
	default:
		return false
	}
}

// Validate checks every condition and action against the closed enumerations
// and returns the first problem as an *InvalidRuleError.
func (rs Ruleset) Validate() error {
	_, err := compile(rs)
	return err
}
