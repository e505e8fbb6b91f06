package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/pricing"
)

// ErrRuleNotFound is returned when a pricing rule cannot be found.
var ErrRuleNotFound = errors.New("pricing rule not found")

// RuleRepo encapsulates database queries for pricing rules.  Rules are
// stored as rows carrying a JSON match/modifier document; the typed
// pricing.Rule only ever exists in memory.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo constructs a RuleRepo with the provided DB handle.
func NewRuleRepo(db *sql.DB) *RuleRepo {
	return &RuleRepo{db: db}
}

// Create inserts a new rule after validating that the document decodes.
// Rejecting malformed documents at write time keeps the evaluation path
// free of surprises.
func (r *RuleRepo) Create(ctx context.Context, rule *model.PricingRule) error {
	if _, err := pricing.ParseRule(rule.Name, rule.Enabled, rule.Priority, rule.Rule); err != nil {
		return err
	}
	const q = "INSERT INTO pricing_rules (name, enabled, priority, rule) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, rule.Name, rule.Enabled, rule.Priority, rule.Rule)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = uint64(id)
	return nil
}

// GetByID fetches a rule row by id.
func (r *RuleRepo) GetByID(ctx context.Context, id uint64) (*model.PricingRule, error) {
	const q = "SELECT id, name, enabled, priority, rule, created_at FROM pricing_rules WHERE id = ?"
	var m model.PricingRule
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Name, &m.Enabled, &m.Priority, &m.Rule, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns all rule rows in priority order for the admin console.
func (r *RuleRepo) List(ctx context.Context) ([]model.PricingRule, error) {
	const q = "SELECT id, name, enabled, priority, rule, created_at FROM pricing_rules ORDER BY priority DESC, id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PricingRule
	for rows.Next() {
		var m model.PricingRule
		if err := rows.Scan(&m.ID, &m.Name, &m.Enabled, &m.Priority, &m.Rule, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update rewrites a rule row, validating the document first.
func (r *RuleRepo) Update(ctx context.Context, rule *model.PricingRule) error {
	if _, err := pricing.ParseRule(rule.Name, rule.Enabled, rule.Priority, rule.Rule); err != nil {
		return err
	}
	const q = "UPDATE pricing_rules SET name = ?, enabled = ?, priority = ?, rule = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, rule.Name, rule.Enabled, rule.Priority, rule.Rule, rule.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pricing_rules WHERE id = ?)", rule.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrRuleNotFound
		}
	}
	return nil
}

// Delete removes a rule.  Historical bookings are untouched: their
// snapshots carry the prices the rule produced.
func (r *RuleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pricing_rules WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Enabled returns all enabled rules decoded into engine form, in
// primary-key order.  Rows that fail to decode (edited by hand, or
// written before Create started validating) are logged and skipped so a
// single bad row cannot take the whole booking path down.
func (r *RuleRepo) Enabled(ctx context.Context) ([]pricing.Rule, error) {
	const q = "SELECT id, name, enabled, priority, rule FROM pricing_rules WHERE enabled = 1 ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Rule
	for rows.Next() {
		var m model.PricingRule
		if err := rows.Scan(&m.ID, &m.Name, &m.Enabled, &m.Priority, &m.Rule); err != nil {
			return nil, err
		}
		rule, err := pricing.ParseRule(m.Name, m.Enabled, m.Priority, m.Rule)
		if err != nil {
			log.Printf("pricing_rules: skipping malformed rule id=%d name=%q: %v", m.ID, m.Name, err)
			continue
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
