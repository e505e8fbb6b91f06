package pricing

import (
	"testing"
	"time"
)

// mondayAt returns a fixed Monday (2025-12-15) at the given clock time.
func mondayAt(hour, min int) time.Time {
	return time.Date(2025, 12, 15, hour, min, 0, 0, time.UTC)
}

func TestAppliesDaySet(t *testing.T) {
	rule := Rule{Name: "weekend", Enabled: true, Match: Match{Days: []string{"sat", "sun"}}}

	if rule.Applies(Target{}, mondayAt(10, 0)) {
		t.Fatalf("weekend rule matched a Monday")
	}
	saturday := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	if !rule.Applies(Target{}, saturday) {
		t.Fatalf("weekend rule did not match a Saturday")
	}
}

func TestAppliesDaySetCaseAndFullNames(t *testing.T) {
	// Day sets may carry full names in any case; only the first three
	// letters count.
	rule := Rule{Name: "mon", Enabled: true, Match: Match{Days: []string{"Monday"}}}
	if !rule.Applies(Target{}, mondayAt(9, 0)) {
		t.Fatalf("full-name day did not match")
	}
	rule.Match.Days = []string{"MON"}
	if !rule.Applies(Target{}, mondayAt(9, 0)) {
		t.Fatalf("upper-case day did not match")
	}
}

func TestAppliesTimeWindow(t *testing.T) {
	rule := Rule{Name: "peak", Enabled: true, Match: Match{Start: "18:00", End: "21:00"}}

	cases := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{"before window", mondayAt(17, 59), false},
		{"window start", mondayAt(18, 0), true},
		{"inside window", mondayAt(19, 30), true},
		{"window end is exclusive", mondayAt(21, 0), false},
		// Only the start instant is examined: a booking beginning at
		// 17:30 and running into the window is still off-peak.
		{"straddling start", mondayAt(17, 30), false},
	}
	for _, tc := range cases {
		if got := rule.Applies(Target{}, tc.start); got != tc.want {
			t.Errorf("%s: Applies=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestAppliesCategory(t *testing.T) {
	rule := Rule{Name: "indoor premium", Enabled: true, AppliesTo: "indoor"}

	if !rule.Applies(Target{Category: "indoor"}, mondayAt(10, 0)) {
		t.Fatalf("indoor rule did not match indoor court")
	}
	if rule.Applies(Target{Category: "outdoor"}, mondayAt(10, 0)) {
		t.Fatalf("indoor rule matched outdoor court")
	}

	wildcard := Rule{Name: "any", Enabled: true, AppliesTo: "all"}
	if !wildcard.Applies(Target{Category: "outdoor"}, mondayAt(10, 0)) {
		t.Fatalf("wildcard category did not match")
	}
}

func TestAppliesEmptyRuleMatchesEverything(t *testing.T) {
	rule := Rule{Name: "blanket", Enabled: true}
	if !rule.Applies(Target{Category: "outdoor"}, mondayAt(3, 12)) {
		t.Fatalf("clause-less rule should match everything")
	}
}

func TestParseRule(t *testing.T) {
	doc := []byte(`{
		"match": {"days": ["mon","tue"], "start": "18:00", "end": "21:00"},
		"applies_to": "indoor",
		"modifier": {"type": "percentage", "value": 20},
		"stack_behavior": "multiplicative"
	}`)
	r, err := ParseRule("peak", true, 10, doc)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if r.Modifier.Kind != ModifierPercentage || r.Modifier.Value != 20 {
		t.Fatalf("modifier = %+v", r.Modifier)
	}
	if r.Stack != StackMultiplicative {
		t.Fatalf("stack = %q", r.Stack)
	}
	if len(r.Match.Days) != 2 || r.Match.Start != "18:00" {
		t.Fatalf("match = %+v", r.Match)
	}
}

func TestParseRuleDefaultsAndErrors(t *testing.T) {
	r, err := ParseRule("flat", true, 0, []byte(`{"modifier":{"type":"absolute","value":150}}`))
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if r.Stack != StackAdditive {
		t.Fatalf("missing stack_behavior should default to additive, got %q", r.Stack)
	}

	if _, err := ParseRule("bad", true, 0, []byte(`{"modifier":{"type":"discount","value":5}}`)); err == nil {
		t.Fatalf("unknown modifier type should be rejected")
	}
	if _, err := ParseRule("bad", true, 0, []byte(`{"modifier":{"type":"percentage"},"stack_behavior":"stacked"}`)); err == nil {
		t.Fatalf("unknown stack behavior should be rejected")
	}
}
