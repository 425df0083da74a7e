package rules

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a ruleset file, decodes it and validates it. The file format is
// the JSON layout the legacy processor wrote: match_policy, rules, actions.
func Load(path string) (Ruleset, error) {
	raw, err := os.ReadFile(path) // #nosec G304 - path comes from user config
	if err != nil {
		return Ruleset{}, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	rs, err := Parse(raw)
	if err != nil {
		return Ruleset{}, fmt.Errorf("ruleset %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates a JSON ruleset.
func Parse(raw []byte) (Ruleset, error) {
	var rs Ruleset
	if err := json.Unmarshal(raw, &rs); err != nil {
		return Ruleset{}, fmt.Errorf("decode ruleset: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return Ruleset{}, err
	}
	return rs, nil
}

// Canonical returns a copy of the ruleset with every legacy token spelling
// ("Received Date/Time", "less than", "Mark as Read", ...) rewritten to its
// canonical form. The condition and action sequences are otherwise untouched.
func (rs Ruleset) Canonical() (Ruleset, error) {
	if err := rs.Validate(); err != nil {
		return Ruleset{}, err
	}
	out := rs
	out.Combinator, _ = parseCombinator(string(rs.Combinator))

	out.Conditions = make([]Condition, len(rs.Conditions))
	for i, cond := range rs.Conditions {
		field, _ := parseField(string(cond.Field))
		predicate, _ := parsePredicate(string(cond.Predicate))
		canon := Condition{Field: field, Predicate: predicate, Value: cond.Value}
		if IsDatePredicate(predicate) {
			canon.Unit, _ = parseUnit(string(cond.Unit))
		}
		out.Conditions[i] = canon
	}

	out.Actions = make([]Action, len(rs.Actions))
	for i, act := range rs.Actions {
		kind, _ := parseActionKind(string(act.Kind))
		out.Actions[i] = Action{Kind: kind, Destination: act.Destination}
	}
	return out, nil
}

// Save writes the ruleset back out in the same indented JSON layout.
func Save(rs Ruleset, path string) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("encode ruleset: %w", err)
	}
	return nil
}
