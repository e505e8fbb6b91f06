// Package repository contains data access logic separated from HTTP handlers.
// This file defines repository methods for CRUD and lookup operations over
// courts. A court is the primary bookable resource; each confirmed booking
// holds exactly one court allocation.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to define custom error values

	"github.com/iliyamo/court-booking/internal/model"
)

// ErrCourtNotFound is returned when a court cannot be found in the DB.
var ErrCourtNotFound = errors.New("court not found")

// CourtRepo encapsulates all database queries related to courts.  It
// depends on a sql.DB connection which should be configured elsewhere.
type CourtRepo struct {
	db *sql.DB
}

// NewCourtRepo constructs a CourtRepo with the provided DB handle.
func NewCourtRepo(db *sql.DB) *CourtRepo {
	return &CourtRepo{db: db}
}

// Create inserts a new court into the database.  On success the court's
// ID field will be populated with the auto-generated value and a follow-up
// SELECT populates the CreatedAt field so callers receive a fully
// populated record.
func (r *CourtRepo) Create(ctx context.Context, c *model.Court) error {
	const qInsert = "INSERT INTO courts (name, type, base_hourly, enabled) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, c.Name, c.Type, c.BaseHourly, c.Enabled)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	const qSelect = "SELECT name, type, base_hourly, enabled, created_at FROM courts WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, c.ID).Scan(&c.Name, &c.Type, &c.BaseHourly, &c.Enabled, &c.CreatedAt)
}

// GetByID fetches a court by its ID.  It returns ErrCourtNotFound if no
// row is found.
func (r *CourtRepo) GetByID(ctx context.Context, id uint64) (*model.Court, error) {
	const q = "SELECT id, name, type, base_hourly, enabled, created_at FROM courts WHERE id = ?"
	var c model.Court
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Type, &c.BaseHourly, &c.Enabled, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all courts.  When enabledOnly is true, disabled courts
// are filtered out; the public browse endpoints use that form while the
// admin console lists everything.
func (r *CourtRepo) List(ctx context.Context, enabledOnly bool) ([]model.Court, error) {
	q := "SELECT id, name, type, base_hourly, enabled, created_at FROM courts ORDER BY id"
	if enabledOnly {
		q = "SELECT id, name, type, base_hourly, enabled, created_at FROM courts WHERE enabled = 1 ORDER BY id"
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Court
	for rows.Next() {
		var c model.Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.BaseHourly, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of an existing court.  It returns
// ErrCourtNotFound when the court does not exist.
func (r *CourtRepo) Update(ctx context.Context, c *model.Court) error {
	const q = "UPDATE courts SET name = ?, type = ?, base_hourly = ?, enabled = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Type, c.BaseHourly, c.Enabled, c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from an update that changed nothing.
		var exists bool
		if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM courts WHERE id = ?)", c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrCourtNotFound
		}
	}
	return nil
}

// Delete removes a court.  Deletion is refused with ErrConflict while
// confirmed bookings still hold allocations on the court; disabling the
// court is the way to retire it without touching history.
func (r *CourtRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings b
		JOIN booking_allocations a ON a.booking_id = b.id
		WHERE a.resource_type = 'court' AND a.resource_ref = CAST(? AS CHAR)
		  AND b.status = 'confirmed'`, id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		err = ErrConflict
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM courts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrCourtNotFound
	}
	return err
}
