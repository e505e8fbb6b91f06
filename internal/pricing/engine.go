package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/court-booking/internal/model"
)

// LineItem is one priced component of a booking: the court base, a
// non-zero equipment charge, or a coach fee.
type LineItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// RuleLine records one step of the rule fold for the breakdown.  After
// is the running total once the rule has been applied, so the whole
// computation can be replayed and checked against a stored snapshot.
type RuleLine struct {
	RuleName string  `json:"name"`
	Modifier string  `json:"modifier"`
	After    float64 `json:"after"`
}

// Result is the full output of a price computation.  It is persisted
// verbatim as the booking's pricing snapshot.
type Result struct {
	Base          float64    `json:"base"`
	RuleBreakdown []RuleLine `json:"rule_breakdown"`
	LineItems     []LineItem `json:"line_items"`
	Total         float64    `json:"total"`
}

// EquipmentCharge is one equipment line as seen by the engine.  The
// per-unit fee is FeeOverride when supplied, else DefaultFee (the
// item's catalog fee), else zero.
type EquipmentCharge struct {
	SKU         string
	Quantity    int
	FeeOverride *float64
	DefaultFee  float64
}

func (e EquipmentCharge) fee() float64 {
	if e.FeeOverride != nil {
		return *e.FeeOverride
	}
	return e.DefaultFee
}

// DurationHours returns the length of [start, end) in fractional hours.
func DurationHours(start, end time.Time) float64 {
	return end.Sub(start).Seconds() / 3600.0
}

// Compute prices a booking.  The fold applies enabled, applicable
// rules in descending priority order (stable on ties) to a running
// total seeded with the court base, then adds equipment and coach
// charges.  Pure: no clocks, no stores, no mutation of its inputs.
func Compute(court *model.Court, start, end time.Time, equipment []EquipmentCharge, coach *model.Coach, rules []Rule) Result {
	hours := DurationHours(start, end)
	base := court.BaseHourly * hours
	res := Result{
		Base:          base,
		RuleBreakdown: []RuleLine{},
		LineItems:     []LineItem{{Name: fmt.Sprintf("Court %s base", court.Name), Amount: base}},
		Total:         base,
	}

	target := Target{Category: court.Type}
	applicable := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled && r.Applies(target, start) {
			applicable = append(applicable, r)
		}
	}
	// Stable sort: equal priorities keep input order.  Callers must not
	// rely on tie order.
	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority > applicable[j].Priority
	})

	for _, r := range applicable {
		switch r.Modifier.Kind {
		case ModifierPercentage:
			factor := r.Modifier.Value / 100.0
			switch r.Stack {
			case StackMultiplicative:
				res.Total = res.Total * (1 + factor)
			case StackMax:
				if scaled := res.Total * (1 + factor); scaled > res.Total {
					res.Total = scaled
				}
			default: // additive
				res.Total += res.Total * factor
			}
			res.RuleBreakdown = append(res.RuleBreakdown, RuleLine{
				RuleName: r.Name,
				Modifier: fmt.Sprintf("%g%%", r.Modifier.Value),
				After:    res.Total,
			})
		case ModifierAbsolute:
			res.Total += r.Modifier.Value
			res.RuleBreakdown = append(res.RuleBreakdown, RuleLine{
				RuleName: r.Name,
				Modifier: fmt.Sprintf("%g", r.Modifier.Value),
				After:    res.Total,
			})
		}
	}

	for _, e := range equipment {
		amount := e.fee() * float64(e.Quantity)
		if amount != 0 {
			res.LineItems = append(res.LineItems, LineItem{
				Name:   fmt.Sprintf("Equipment %s", e.SKU),
				Amount: amount,
			})
		}
		res.Total += amount
	}

	if coach != nil {
		fee := coach.HourlyRate * hours
		res.LineItems = append(res.LineItems, LineItem{
			Name:   fmt.Sprintf("Coach %s", coach.Name),
			Amount: fee,
		})
		res.Total += fee
	}

	return res
}
