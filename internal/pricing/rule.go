// Package pricing implements the rule evaluator and the price engine.
// Everything in this package is pure: given the same court, interval,
// add-ons and rule set, Compute reproduces the same result bit for bit,
// which is what allows a stored pricing snapshot to be verified later.
package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StackBehavior selects how a percentage modifier combines with the
// running total during the fold.
type StackBehavior string

const (
	StackAdditive       StackBehavior = "additive"
	StackMultiplicative StackBehavior = "multiplicative"
	StackMax            StackBehavior = "max"
)

// ModifierKind is the tagged variant discriminator for rule modifiers.
type ModifierKind string

const (
	ModifierPercentage ModifierKind = "percentage"
	ModifierAbsolute   ModifierKind = "absolute"
)

// Modifier is a price adjustment.  Percentage values are interpreted
// against the running total; absolute values are added directly.
type Modifier struct {
	Kind  ModifierKind
	Value float64
}

// Match holds the optional applicability clauses of a rule.  A zero
// Match matches every interval.
type Match struct {
	Days  []string // day-of-week set, matched on the first 3 letters, case-insensitive
	Start string   // "HH:MM" window start, inclusive
	End   string   // "HH:MM" window end, exclusive
}

// Rule is one pricing rule as evaluated by the engine.  Rules are
// decoded from their persisted JSON form by ParseRule.
type Rule struct {
	Name      string
	Enabled   bool
	Priority  int
	Match     Match
	AppliesTo string // court category filter; "" or "all" matches any
	Modifier  Modifier
	Stack     StackBehavior
}

// Target describes what a rule is being matched against.
type Target struct {
	Category string // court category, e.g. "indoor"
}

// Applies reports whether the rule matches the target for an interval
// beginning at start.  Only the start instant is tested against the
// time-of-day window: a booking that begins just before a peak window
// and ends inside it is not treated as peak.
func (r Rule) Applies(target Target, start time.Time) bool {
	if len(r.Match.Days) > 0 {
		weekday := strings.ToLower(start.Weekday().String()[:3])
		found := false
		for _, d := range r.Match.Days {
			d = strings.ToLower(strings.TrimSpace(d))
			if len(d) >= 3 && d[:3] == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.Match.Start != "" && r.Match.End != "" {
		st, okS := parseClock(r.Match.Start)
		et, okE := parseClock(r.Match.End)
		if okS && okE {
			t := start.Hour()*60 + start.Minute()
			if !(st <= t && t < et) {
				return false
			}
		}
	}
	if r.AppliesTo != "" && r.AppliesTo != "all" && target.Category != "" {
		if r.AppliesTo != target.Category {
			return false
		}
	}
	return true
}

// parseClock converts a zero-padded "HH:MM" string to minutes since
// midnight.  Malformed values report ok=false and the clause is skipped.
func parseClock(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// ruleDoc mirrors the JSON document stored in pricing_rules.rule.
type ruleDoc struct {
	Match struct {
		Days  []string `json:"days"`
		Start string   `json:"start"`
		End   string   `json:"end"`
	} `json:"match"`
	AppliesTo string `json:"applies_to"`
	Modifier  struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
	} `json:"modifier"`
	StackBehavior string `json:"stack_behavior"`
}

// ParseRule decodes the persisted JSON rule document into a typed Rule.
// Unknown modifier types are rejected so a malformed rule fails loudly
// at load time instead of silently pricing to zero.
func ParseRule(name string, enabled bool, priority int, doc []byte) (Rule, error) {
	var d ruleDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", name, err)
	}
	r := Rule{
		Name:     name,
		Enabled:  enabled,
		Priority: priority,
		Match: Match{
			Days:  d.Match.Days,
			Start: d.Match.Start,
			End:   d.Match.End,
		},
		AppliesTo: d.AppliesTo,
	}
	switch d.Modifier.Type {
	case "percentage":
		r.Modifier = Modifier{Kind: ModifierPercentage, Value: d.Modifier.Value}
	case "absolute":
		r.Modifier = Modifier{Kind: ModifierAbsolute, Value: d.Modifier.Value}
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown modifier type %q", name, d.Modifier.Type)
	}
	switch StackBehavior(d.StackBehavior) {
	case StackMultiplicative:
		r.Stack = StackMultiplicative
	case StackMax:
		r.Stack = StackMax
	case StackAdditive, "":
		r.Stack = StackAdditive
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown stack behavior %q", name, d.StackBehavior)
	}
	return r, nil
}
