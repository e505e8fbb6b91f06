package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/court-booking/internal/booking"
	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/pricing"
)

// BookingRepo persists bookings, allocations, waitlist entries and audit
// events, and implements the admission controller's storage contract on
// top of the catalog repositories.  Overlap queries compare half-open
// intervals: two intervals overlap when each starts before the other
// ends.  Only confirmed bookings count; cancelled rows keep their
// allocations for history but never block a slot.
type BookingRepo struct {
	db        *sql.DB
	courts    *CourtRepo
	equipment *EquipmentRepo
	coaches   *CoachRepo
	rules     *RuleRepo
}

var _ booking.Store = (*BookingRepo)(nil)

// NewBookingRepo constructs a BookingRepo and panics if any dependency
// is nil.
func NewBookingRepo(db *sql.DB, courts *CourtRepo, equipment *EquipmentRepo, coaches *CoachRepo, rules *RuleRepo) *BookingRepo {
	if db == nil || courts == nil || equipment == nil || coaches == nil || rules == nil {
		panic("nil dependency passed to NewBookingRepo")
	}
	return &BookingRepo{db: db, courts: courts, equipment: equipment, coaches: coaches, rules: rules}
}

// CourtByID resolves a court for the admission path.
func (r *BookingRepo) CourtByID(ctx context.Context, id uint64) (*model.Court, error) {
	c, err := r.courts.GetByID(ctx, id)
	if errors.Is(err, ErrCourtNotFound) {
		return nil, booking.ErrNotFound
	}
	return c, err
}

// CoachByID resolves a coach for the admission path.
func (r *BookingRepo) CoachByID(ctx context.Context, id uint64) (*model.Coach, error) {
	c, err := r.coaches.GetByID(ctx, id)
	if errors.Is(err, ErrCoachNotFound) {
		return nil, booking.ErrNotFound
	}
	return c, err
}

// EquipmentBySKU resolves an equipment item for the admission path.
func (r *BookingRepo) EquipmentBySKU(ctx context.Context, sku string) (*model.EquipmentItem, error) {
	e, err := r.equipment.GetBySKU(ctx, sku)
	if errors.Is(err, ErrEquipmentNotFound) {
		return nil, booking.ErrNotFound
	}
	return e, err
}

// CoachWindow returns the coach's window for a lowercase weekday name.
func (r *BookingRepo) CoachWindow(ctx context.Context, coachID uint64, dayOfWeek string) (*model.CoachWindow, error) {
	const q = "SELECT id, coach_id, day_of_week, start_time, end_time FROM coach_windows WHERE coach_id = ? AND day_of_week = ? LIMIT 1"
	var w model.CoachWindow
	if err := r.db.QueryRowContext(ctx, q, coachID, dayOfWeek).Scan(&w.ID, &w.CoachID, &w.DayOfWeek, &w.StartTime, &w.EndTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// EnabledRules returns the decoded active rule set.
func (r *BookingRepo) EnabledRules(ctx context.Context) ([]pricing.Rule, error) {
	return r.rules.Enabled(ctx)
}

// CourtHasOverlap reports whether a confirmed booking already holds the
// court for any part of [start, end).
func (r *BookingRepo) CourtHasOverlap(ctx context.Context, courtID uint64, start, end time.Time) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM bookings b
		JOIN booking_allocations a ON a.booking_id = b.id
		WHERE b.status = 'confirmed'
		  AND a.resource_type = 'court' AND a.resource_ref = ?
		  AND b.start_ts < ? AND ? < b.end_ts)`
	var taken bool
	err := r.db.QueryRowContext(ctx, q, strconv.FormatUint(courtID, 10), end, start).Scan(&taken)
	return taken, err
}

// EquipmentAllocated sums confirmed overlapping allocation quantities
// for an equipment SKU.
func (r *BookingRepo) EquipmentAllocated(ctx context.Context, sku string, start, end time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(a.quantity), 0) FROM bookings b
		JOIN booking_allocations a ON a.booking_id = b.id
		WHERE b.status = 'confirmed'
		  AND a.resource_type = 'equipment' AND a.resource_ref = ?
		  AND b.start_ts < ? AND ? < b.end_ts`
	var used int
	err := r.db.QueryRowContext(ctx, q, sku, end, start).Scan(&used)
	return used, err
}

// CoachHasOverlap reports whether a confirmed booking already holds the
// coach for any part of [start, end).
func (r *BookingRepo) CoachHasOverlap(ctx context.Context, coachID uint64, start, end time.Time) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM bookings b
		JOIN booking_allocations a ON a.booking_id = b.id
		WHERE b.status = 'confirmed'
		  AND a.resource_type = 'coach' AND a.resource_ref = ?
		  AND b.start_ts < ? AND ? < b.end_ts)`
	var busy bool
	err := r.db.QueryRowContext(ctx, q, strconv.FormatUint(coachID, 10), end, start).Scan(&busy)
	return busy, err
}

// AddWaitlist appends a FIFO waitlist entry and returns its ID.
func (r *BookingRepo) AddWaitlist(ctx context.Context, slotHash string, userID uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO waitlist_entries (slot_hash, user_id) VALUES (?, ?)",
		slotHash, userID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateConfirmed persists the booking, its allocations and the
// "confirmed" audit event in one transaction, populating b.ID and
// b.CreatedAt.
func (r *BookingRepo) CreateConfirmed(ctx context.Context, b *model.Booking, allocs []model.Allocation, auditPayload []byte) (err error) {
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

	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (user_id, start_ts, end_ts, status, total_price, pricing_snapshot) VALUES (?, ?, ?, ?, ?, ?)",
		b.UserID, b.StartTS, b.EndTS, b.Status, b.TotalPrice, b.PricingSnapshot)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(allocs) > 0 {
		query := "INSERT INTO booking_allocations (booking_id, resource_type, resource_ref, quantity) VALUES "
		args := make([]interface{}, 0, len(allocs)*4)
		for i, a := range allocs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, b.ID, a.ResourceType, a.ResourceRef, a.Quantity)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO audit_events (booking_id, event_type, payload) VALUES (?, 'confirmed', ?)",
		b.ID, auditPayload); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, "SELECT created_at FROM bookings WHERE id = ?", b.ID).Scan(&b.CreatedAt)
	return err
}

// BookingWithAllocations loads a booking and its allocations.
func (r *BookingRepo) BookingWithAllocations(ctx context.Context, id uint64) (*model.Booking, []model.Allocation, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, start_ts, end_ts, status, total_price, pricing_snapshot, created_at FROM bookings WHERE id = ?",
		id).Scan(&b.ID, &b.UserID, &b.StartTS, &b.EndTS, &b.Status, &b.TotalPrice, &b.PricingSnapshot, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	allocs, err := r.allocationsFor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &b, allocs, nil
}

func (r *BookingRepo) allocationsFor(ctx context.Context, bookingID uint64) ([]model.Allocation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, booking_id, resource_type, resource_ref, quantity FROM booking_allocations WHERE booking_id = ? ORDER BY id",
		bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Allocation
	for rows.Next() {
		var a model.Allocation
		if err := rows.Scan(&a.ID, &a.BookingID, &a.ResourceType, &a.ResourceRef, &a.Quantity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CancelAndPeekWaitlist marks the booking cancelled, reads the earliest
// waitlist entry for the slot within the same transaction and appends
// the "cancelled" audit event.  The FOR UPDATE on the waitlist read
// keeps two concurrent cancellations that share a fingerprint from
// reporting the same entry while the other is mid-flight.
func (r *BookingRepo) CancelAndPeekWaitlist(ctx context.Context, bookingID uint64, slotHash string) (next *model.WaitlistEntry, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status = 'confirmed'", bookingID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		err = booking.ErrNotFound
		return nil, err
	}

	var e model.WaitlistEntry
	err = tx.QueryRowContext(ctx,
		"SELECT id, slot_hash, user_id, created_at FROM waitlist_entries WHERE slot_hash = ? ORDER BY created_at, id LIMIT 1 FOR UPDATE",
		slotHash).Scan(&e.ID, &e.SlotHash, &e.UserID, &e.CreatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		next = &e
	}

	payload := "{}"
	if next != nil {
		payload = fmt.Sprintf(`{"next_waitlist_user_id":%d}`, next.UserID)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO audit_events (booking_id, event_type, payload) VALUES (?, 'cancelled', ?)", bookingID, payload)
	return next, err
}

// BookingSummary is the listing shape returned for customer booking
// history.  Allocations are folded into a count so the list stays one
// query; details come from the detail endpoint.
type BookingSummary struct {
	ID         uint64    `json:"id"`
	StartTS    time.Time `json:"start_ts"`
	EndTS      time.Time `json:"end_ts"`
	Status     string    `json:"status"`
	TotalPrice float64   `json:"total_price"`
	Resources  int       `json:"resources"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingSummary, error) {
	const q = `SELECT b.id, b.start_ts, b.end_ts, b.status, b.total_price, COUNT(a.id), b.created_at
		FROM bookings b
		LEFT JOIN booking_allocations a ON a.booking_id = b.id
		WHERE b.user_id = ?
		GROUP BY b.id
		ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingSummary
	for rows.Next() {
		var s BookingSummary
		if err := rows.Scan(&s.ID, &s.StartTS, &s.EndTS, &s.Status, &s.TotalPrice, &s.Resources, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetForUser loads a booking with its allocations, enforcing ownership.
// Admins may read any booking.
func (r *BookingRepo) GetForUser(ctx context.Context, id, userID uint64, isAdmin bool) (*model.Booking, []model.Allocation, error) {
	b, allocs, err := r.BookingWithAllocations(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !isAdmin && b.UserID != userID {
		return nil, nil, ErrForbidden
	}
	return b, allocs, nil
}

// CourtInterval is one confirmed court hold inside a queried range,
// used by the public availability views.
type CourtInterval struct {
	CourtID uint64
	StartTS time.Time
	EndTS   time.Time
}

// ConfirmedCourtIntervals returns every confirmed court hold touching
// [from, to), ordered by court then start.
func (r *BookingRepo) ConfirmedCourtIntervals(ctx context.Context, from, to time.Time) ([]CourtInterval, error) {
	const q = `SELECT a.resource_ref, b.start_ts, b.end_ts FROM bookings b
		JOIN booking_allocations a ON a.booking_id = b.id
		WHERE b.status = 'confirmed' AND a.resource_type = 'court'
		  AND b.start_ts < ? AND ? < b.end_ts
		ORDER BY a.resource_ref, b.start_ts`
	rows, err := r.db.QueryContext(ctx, q, to, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CourtInterval
	for rows.Next() {
		var ref string
		var iv CourtInterval
		if err := rows.Scan(&ref, &iv.StartTS, &iv.EndTS); err != nil {
			return nil, err
		}
		if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
			iv.CourtID = id
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}
