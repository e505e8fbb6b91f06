package model

import "time"

// PricingRule is the persisted form of a pricing rule.  The Rule
// column stores the match/modifier document as JSON; the repository
// decodes it into the typed pricing.Rule used by the engine, so the
// schema-less shape never leaks past the storage layer.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – rule name shown in price breakdowns.
//  Enabled   – disabled rules are never evaluated.
//  Priority  – higher priorities are applied first.
//  Rule      – JSON document: {"match": {...}, "applies_to": ...,
//              "modifier": {...}, "stack_behavior": ...}.
//  CreatedAt – creation timestamp.
type PricingRule struct {
	ID        uint64    // pricing_rules.id
	Name      string    // pricing_rules.name
	Enabled   bool      // pricing_rules.enabled
	Priority  int       // pricing_rules.priority
	Rule      []byte    // pricing_rules.rule (JSON)
	CreatedAt time.Time // pricing_rules.created_at
}
