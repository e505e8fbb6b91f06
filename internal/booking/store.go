package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/pricing"
)

// ErrNotFound is returned by Store lookups when the requested row does
// not exist.  The SQL implementation maps sql.ErrNoRows onto it.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract the admission controller runs
// against.  Overlap and allocation queries consider confirmed bookings
// only; cancelled bookings keep their allocation rows for history but
// never block a slot.  CreateConfirmed and CancelAndPeekWaitlist are
// each one atomic unit; on error nothing they write may be visible.
type Store interface {
	CourtByID(ctx context.Context, id uint64) (*model.Court, error)
	CoachByID(ctx context.Context, id uint64) (*model.Coach, error)
	EquipmentBySKU(ctx context.Context, sku string) (*model.EquipmentItem, error)

	// CoachWindow returns the coach's availability window for a
	// lowercase full weekday name, or ErrNotFound when the coach does
	// not work that day.
	CoachWindow(ctx context.Context, coachID uint64, dayOfWeek string) (*model.CoachWindow, error)

	// EnabledRules returns all enabled pricing rules, decoded, in
	// primary-key order.  The engine re-sorts by priority; ties keep
	// this order.
	EnabledRules(ctx context.Context) ([]pricing.Rule, error)

	// CourtHasOverlap reports whether any confirmed booking holds a
	// court allocation overlapping [start, end) on the given court.
	CourtHasOverlap(ctx context.Context, courtID uint64, start, end time.Time) (bool, error)

	// EquipmentAllocated sums confirmed overlapping allocation
	// quantities for an equipment SKU.
	EquipmentAllocated(ctx context.Context, sku string, start, end time.Time) (int, error)

	// CoachHasOverlap reports whether any confirmed booking holds a
	// coach allocation overlapping [start, end) for the given coach.
	CoachHasOverlap(ctx context.Context, coachID uint64, start, end time.Time) (bool, error)

	// AddWaitlist appends a FIFO waitlist entry for a slot fingerprint
	// and returns its ID.
	AddWaitlist(ctx context.Context, slotHash string, userID uint64) (uint64, error)

	// CreateConfirmed persists the booking, its allocations and the
	// "confirmed" audit event atomically, populating b.ID.
	CreateConfirmed(ctx context.Context, b *model.Booking, allocs []model.Allocation, auditPayload []byte) error

	// BookingWithAllocations loads a booking and its allocations.
	BookingWithAllocations(ctx context.Context, id uint64) (*model.Booking, []model.Allocation, error)

	// CancelAndPeekWaitlist marks the booking cancelled, reads the
	// earliest waitlist entry for the slot fingerprint within the same
	// transaction, and appends the "cancelled" audit event.  Returns
	// nil when nobody is waiting.
	CancelAndPeekWaitlist(ctx context.Context, bookingID uint64, slotHash string) (*model.WaitlistEntry, error)
}
