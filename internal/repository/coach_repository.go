package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/court-booking/internal/model"
)

// ErrCoachNotFound is returned when a coach cannot be found in the DB.
var ErrCoachNotFound = errors.New("coach not found")

// CoachRepo encapsulates database queries for coaches and their
// recurring weekday availability windows.
type CoachRepo struct {
	db *sql.DB
}

// NewCoachRepo constructs a CoachRepo with the provided DB handle.
func NewCoachRepo(db *sql.DB) *CoachRepo {
	return &CoachRepo{db: db}
}

// Create inserts a new coach, populating its ID.
func (r *CoachRepo) Create(ctx context.Context, c *model.Coach) error {
	const q = "INSERT INTO coaches (name, bio, hourly_rate, active) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Bio, c.HourlyRate, c.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a coach by id, returning ErrCoachNotFound when absent.
func (r *CoachRepo) GetByID(ctx context.Context, id uint64) (*model.Coach, error) {
	const q = "SELECT id, name, bio, hourly_rate, active FROM coaches WHERE id = ?"
	var c model.Coach
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Bio, &c.HourlyRate, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all coaches, optionally only active ones.
func (r *CoachRepo) List(ctx context.Context, activeOnly bool) ([]model.Coach, error) {
	q := "SELECT id, name, bio, hourly_rate, active FROM coaches ORDER BY id"
	if activeOnly {
		q = "SELECT id, name, bio, hourly_rate, active FROM coaches WHERE active = 1 ORDER BY id"
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Coach
	for rows.Next() {
		var c model.Coach
		if err := rows.Scan(&c.ID, &c.Name, &c.Bio, &c.HourlyRate, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of a coach.
func (r *CoachRepo) Update(ctx context.Context, c *model.Coach) error {
	const q = "UPDATE coaches SET name = ?, bio = ?, hourly_rate = ?, active = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Bio, c.HourlyRate, c.Active, c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM coaches WHERE id = ?)", c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrCoachNotFound
		}
	}
	return nil
}

// Delete removes a coach, refusing with ErrConflict while confirmed
// bookings still allocate them.
func (r *CoachRepo) Delete(ctx context.Context, id uint64) (err error) {
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
		WHERE a.resource_type = 'coach' AND a.resource_ref = CAST(? AS CHAR)
		  AND b.status = 'confirmed'`, id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		err = ErrConflict
		return err
	}

	// Windows go with the coach.
	if _, err = tx.ExecContext(ctx, "DELETE FROM coach_windows WHERE coach_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM coaches WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrCoachNotFound
	}
	return err
}

// ListWindows returns a coach's availability windows ordered by weekday
// then start time.
func (r *CoachRepo) ListWindows(ctx context.Context, coachID uint64) ([]model.CoachWindow, error) {
	const q = `SELECT id, coach_id, day_of_week, start_time, end_time FROM coach_windows
		WHERE coach_id = ?
		ORDER BY FIELD(day_of_week,'monday','tuesday','wednesday','thursday','friday','saturday','sunday'), start_time`
	rows, err := r.db.QueryContext(ctx, q, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CoachWindow
	for rows.Next() {
		var w model.CoachWindow
		if err := rows.Scan(&w.ID, &w.CoachID, &w.DayOfWeek, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceWindows swaps a coach's full window set in one transaction.
// The admin console always submits the complete weekly schedule, so a
// wholesale replace is simpler and safer than per-row edits.
func (r *CoachRepo) ReplaceWindows(ctx context.Context, coachID uint64, windows []model.CoachWindow) (err error) {
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

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM coaches WHERE id = ?)", coachID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		err = ErrCoachNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM coach_windows WHERE coach_id = ?", coachID); err != nil {
		return err
	}
	if len(windows) == 0 {
		return nil
	}

	query := "INSERT INTO coach_windows (coach_id, day_of_week, start_time, end_time) VALUES "
	args := make([]interface{}, 0, len(windows)*4)
	for i, w := range windows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, coachID, w.DayOfWeek, w.StartTime, w.EndTime)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
