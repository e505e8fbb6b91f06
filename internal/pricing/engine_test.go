package pricing

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/iliyamo/court-booking/internal/model"
)

func indoorCourt() *model.Court {
	return &model.Court{ID: 1, Name: "Court 1 (Indoor)", Type: model.CourtTypeIndoor, BaseHourly: 600, Enabled: true}
}

func pct(name string, priority int, value float64, stack StackBehavior) Rule {
	return Rule{
		Name:     name,
		Enabled:  true,
		Priority: priority,
		Modifier: Modifier{Kind: ModifierPercentage, Value: value},
		Stack:    stack,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeBaseOnly(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	res := Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil, nil)

	if !approx(res.Base, 600) || !approx(res.Total, 600) {
		t.Fatalf("base=%v total=%v, want 600/600", res.Base, res.Total)
	}
	if len(res.LineItems) != 1 || res.LineItems[0].Name != "Court Court 1 (Indoor) base" {
		t.Fatalf("line items = %+v", res.LineItems)
	}
	if len(res.RuleBreakdown) != 0 {
		t.Fatalf("unexpected breakdown %+v", res.RuleBreakdown)
	}
}

func TestComputeProRatesDuration(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	res := Compute(indoorCourt(), start, start.Add(90*time.Minute), nil, nil, nil)
	if !approx(res.Base, 900) {
		t.Fatalf("90 min base = %v, want 900", res.Base)
	}
}

func TestAdditiveStacking(t *testing.T) {
	start := time.Date(2025, 12, 15, 19, 0, 0, 0, time.UTC)

	// base=600, one additive +20% rule -> 720
	res := Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{pct("peak", 10, 20, StackAdditive)})
	if !approx(res.Total, 720) {
		t.Fatalf("+20%% total = %v, want 720", res.Total)
	}
	if len(res.RuleBreakdown) != 1 || res.RuleBreakdown[0].Modifier != "20%" {
		t.Fatalf("breakdown = %+v", res.RuleBreakdown)
	}

	// base=600, one additive +25% rule -> 750
	res = Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{pct("premium", 8, 25, StackAdditive)})
	if !approx(res.Total, 750) {
		t.Fatalf("+25%% total = %v, want 750", res.Total)
	}

	// Two additive rules compound sequentially on the running total:
	// 600 * 1.25 = 750, then 750 * 1.20 = 900, not 600 + 150 + 120.
	res = Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{pct("premium", 8, 25, StackAdditive), pct("peak", 5, 20, StackAdditive)})
	if !approx(res.Total, 900) {
		t.Fatalf("compounded total = %v, want 900", res.Total)
	}
	if !approx(res.RuleBreakdown[0].After, 750) || !approx(res.RuleBreakdown[1].After, 900) {
		t.Fatalf("running totals = %+v", res.RuleBreakdown)
	}
}

func TestPriorityOrdersTheFold(t *testing.T) {
	start := time.Date(2025, 12, 15, 19, 0, 0, 0, time.UTC)
	flat := Rule{Name: "flat fee", Enabled: true, Priority: 1,
		Modifier: Modifier{Kind: ModifierAbsolute, Value: 100}, Stack: StackAdditive}

	// +20% before +100: 600 -> 720 -> 820.
	res := Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{flat, pct("peak", 10, 20, StackAdditive)})
	if !approx(res.Total, 820) {
		t.Fatalf("total = %v, want 820", res.Total)
	}
	if res.RuleBreakdown[0].RuleName != "peak" {
		t.Fatalf("higher priority rule should fold first: %+v", res.RuleBreakdown)
	}

	// Reversed priorities: +100 first, then +20%: 600 -> 700 -> 840.
	flat.Priority = 20
	res = Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{flat, pct("peak", 10, 20, StackAdditive)})
	if !approx(res.Total, 840) {
		t.Fatalf("total = %v, want 840", res.Total)
	}
}

func TestMultiplicativeAndMaxStacking(t *testing.T) {
	start := time.Date(2025, 12, 15, 19, 0, 0, 0, time.UTC)

	res := Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{pct("mult", 10, 10, StackMultiplicative)})
	if !approx(res.Total, 660) {
		t.Fatalf("multiplicative total = %v, want 660", res.Total)
	}

	// Max never lowers the total: a negative percentage is a no-op.
	res = Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{pct("floor", 10, -50, StackMax)})
	if !approx(res.Total, 600) {
		t.Fatalf("max with negative value should not lower total, got %v", res.Total)
	}
	if len(res.RuleBreakdown) != 1 {
		t.Fatalf("no-op max rule must still appear in the breakdown")
	}

	res = Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil,
		[]Rule{pct("raise", 10, 30, StackMax)})
	if !approx(res.Total, 780) {
		t.Fatalf("max total = %v, want 780", res.Total)
	}
}

func TestDisabledAndInapplicableRulesSkipped(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC) // Monday morning
	disabled := pct("off", 10, 50, StackAdditive)
	disabled.Enabled = false
	weekend := pct("weekend", 5, 15, StackAdditive)
	weekend.Match.Days = []string{"sat", "sun"}

	res := Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil, []Rule{disabled, weekend})
	if !approx(res.Total, 600) || len(res.RuleBreakdown) != 0 {
		t.Fatalf("total=%v breakdown=%+v, want untouched base", res.Total, res.RuleBreakdown)
	}
}

func TestEquipmentCharges(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	override := 100.0
	equipment := []EquipmentCharge{
		{SKU: "racket", Quantity: 2, FeeOverride: &override},
		{SKU: "shoes", Quantity: 1, DefaultFee: 50},
		{SKU: "shuttlecock", Quantity: 3}, // no fee anywhere -> free, no line item
	}

	res := Compute(indoorCourt(), start, start.Add(time.Hour), equipment, nil, nil)
	if !approx(res.Total, 600+200+50) {
		t.Fatalf("total = %v, want 850", res.Total)
	}
	if len(res.LineItems) != 3 { // base + racket + shoes
		t.Fatalf("line items = %+v", res.LineItems)
	}
	if res.LineItems[1].Name != "Equipment racket" || !approx(res.LineItems[1].Amount, 200) {
		t.Fatalf("racket line = %+v", res.LineItems[1])
	}
}

func TestCoachFee(t *testing.T) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	coach := &model.Coach{ID: 3, Name: "Alex", HourlyRate: 300, Active: true}

	res := Compute(indoorCourt(), start, start.Add(2*time.Hour), nil, coach, nil)
	if !approx(res.Total, 1200+600) {
		t.Fatalf("total = %v, want 1800", res.Total)
	}
	last := res.LineItems[len(res.LineItems)-1]
	if last.Name != "Coach Alex" || !approx(last.Amount, 600) {
		t.Fatalf("coach line = %+v", last)
	}
}

func TestPeakWindowScenario(t *testing.T) {
	// One hour inside an all-days 18:00-21:00 +20% additive window.
	doc := []byte(`{
		"match": {"days": ["mon","tue","wed","thu","fri","sat","sun"], "start": "18:00", "end": "21:00"},
		"applies_to": "all",
		"modifier": {"type": "percentage", "value": 20},
		"stack_behavior": "additive"
	}`)
	rule, err := ParseRule("Peak Hours (6-9 PM)", true, 10, doc)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}

	start := time.Date(2025, 12, 15, 19, 0, 0, 0, time.UTC)
	res := Compute(indoorCourt(), start, start.Add(time.Hour), nil, nil, []Rule{rule})
	if !approx(res.Base, 600) {
		t.Fatalf("base = %v", res.Base)
	}
	if res.Total < 720 {
		t.Fatalf("total = %v, want >= 720", res.Total)
	}
	if len(res.RuleBreakdown) != 1 {
		t.Fatalf("breakdown length = %d, want 1", len(res.RuleBreakdown))
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	start := time.Date(2025, 12, 20, 19, 0, 0, 0, time.UTC) // Saturday evening
	rules := []Rule{
		pct("peak", 10, 20, StackAdditive),
		pct("indoor premium", 8, 25, StackAdditive),
		pct("weekend", 5, 15, StackAdditive),
	}
	coach := &model.Coach{Name: "Sarah", HourlyRate: 250}
	equipment := []EquipmentCharge{{SKU: "racket", Quantity: 2, DefaultFee: 100}}

	a := Compute(indoorCourt(), start, start.Add(time.Hour), equipment, coach, rules)
	b := Compute(indoorCourt(), start, start.Add(time.Hour), equipment, coach, rules)

	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		t.Fatalf("marshal: %v %v", errA, errB)
	}
	if string(ja) != string(jb) {
		t.Fatalf("identical inputs produced different snapshots:\n%s\n%s", ja, jb)
	}
}
