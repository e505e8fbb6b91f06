package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/pricing"
)

// Outcome statuses for one booking attempt.
const (
	StatusConfirmed  = "confirmed"
	StatusWaitlisted = "waitlisted"
	StatusRejected   = "rejected"
)

// Machine-readable rejection reason codes.  Callers use these to
// distinguish "try another court" from "try again later" from
// "contact support".
const (
	ReasonInvalidInterval      = "invalid_interval"
	ReasonCourtUnavailable     = "court_unavailable"
	ReasonEquipmentUnavailable = "equipment_unavailable"
	ReasonCoachConflict        = "coach_conflict"
	ReasonCoachUnavailable     = "coach_unavailable"
	ReasonLockTimeout          = "lock_timeout"
	ReasonStorageError         = "storage_error"
	ReasonNotFound             = "not_found"
)

// EquipmentRequest is one requested equipment line.  Fee optionally
// overrides the catalog per-unit fee; Quantity below 1 is treated as 1.
type EquipmentRequest struct {
	SKU      string
	Quantity int
	Fee      *float64
}

// Request carries everything one booking attempt needs.  CoachID zero
// means no coach.
type Request struct {
	UserID    uint64
	CourtID   uint64
	Start     time.Time
	End       time.Time
	Equipment []EquipmentRequest
	CoachID   uint64
}

// Outcome is the result of Book.  Exactly one of the three statuses is
// set; Pricing is populated only for confirmed outcomes, WaitlistID
// only for waitlisted ones, Reason/Detail only for rejections.
type Outcome struct {
	Status     string
	BookingID  uint64
	Total      float64
	Pricing    *pricing.Result
	WaitlistID uint64
	Reason     string
	Detail     string
}

func rejected(reason, detail string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason, Detail: detail}
}

// CancelResult reports a completed cancellation.  NextWaitlistUserID is
// the earliest-queued user for the freed slot, zero when nobody waits.
// Promotion is advisory only: the controller never books on their
// behalf.
type CancelResult struct {
	BookingID          uint64
	NextWaitlistUserID uint64
}

// Notifier is the change-notifier collaborator, called after each
// committed transition.  Best effort: implementations must not block
// the booking path and the controller consumes no return value.
type Notifier interface {
	Notify(dateKey, eventKind string, bookingID uint64)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(dateKey, eventKind string, bookingID uint64)

func (f NotifierFunc) Notify(dateKey, eventKind string, bookingID uint64) {
	f(dateKey, eventKind, bookingID)
}

// DefaultLockWait bounds how long one booking attempt waits for the
// slot gate before giving up with a lock_timeout rejection.
const DefaultLockWait = 5 * time.Second

// Controller executes booking attempts and cancellations.  All state
// lives in the Store; the controller itself is safe for concurrent use.
type Controller struct {
	store    Store
	gate     Gate
	notifier Notifier
	lockWait time.Duration
}

// NewController wires an admission controller.  notifier may be nil.
func NewController(store Store, gate Gate, notifier Notifier) *Controller {
	if store == nil || gate == nil {
		panic("nil store or gate passed to NewController")
	}
	return &Controller{store: store, gate: gate, notifier: notifier, lockWait: DefaultLockWait}
}

// SetLockWait overrides the gate wait bound; values <= 0 are ignored.
func (ctl *Controller) SetLockWait(d time.Duration) {
	if d > 0 {
		ctl.lockWait = d
	}
}

// Book runs one admission attempt end to end:
//
//	validate court -> acquire slot gate -> conflict check (waitlist on
//	conflict) -> equipment capacity -> coach availability -> price ->
//	atomic confirm -> notify.
//
// The conflict-check-and-write sequence runs entirely under the slot
// gate, so of any two concurrent attempts for the same fingerprint at
// most one confirms; the loser observes the winner's write and is
// waitlisted.
func (ctl *Controller) Book(ctx context.Context, req Request) Outcome {
	if !req.Start.Before(req.End) {
		return rejected(ReasonInvalidInterval, "interval start must precede end")
	}

	court, err := ctl.store.CourtByID(ctx, req.CourtID)
	if errors.Is(err, ErrNotFound) {
		return rejected(ReasonCourtUnavailable, fmt.Sprintf("court %d does not exist", req.CourtID))
	}
	if err != nil {
		return rejected(ReasonStorageError, "failed to load court")
	}
	if !court.Enabled {
		return rejected(ReasonCourtUnavailable, fmt.Sprintf("court %d is disabled", req.CourtID))
	}

	courtRef := strconv.FormatUint(req.CourtID, 10)
	slotHash := SlotFingerprint(req.Start, req.End, courtRef)

	release, err := ctl.gate.Acquire(ctx, slotHash, ctl.lockWait)
	if errors.Is(err, ErrGateTimeout) {
		return rejected(ReasonLockTimeout, "slot is contended, retry shortly")
	}
	if err != nil {
		return rejected(ReasonStorageError, "failed to acquire slot gate")
	}
	defer release()

	taken, err := ctl.store.CourtHasOverlap(ctx, req.CourtID, req.Start, req.End)
	if err != nil {
		return rejected(ReasonStorageError, "overlap check failed")
	}
	if taken {
		// Slot already confirmed: queue the caller.  Equipment and
		// coach are deliberately not evaluated on this branch.
		wid, err := ctl.store.AddWaitlist(ctx, slotHash, req.UserID)
		if err != nil {
			return rejected(ReasonStorageError, "failed to join waitlist")
		}
		return Outcome{Status: StatusWaitlisted, WaitlistID: wid}
	}

	allocs := []model.Allocation{{
		ResourceType: model.ResourceCourt,
		ResourceRef:  courtRef,
		Quantity:     1,
	}}

	charges := make([]pricing.EquipmentCharge, 0, len(req.Equipment))
	for _, line := range req.Equipment {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		item, err := ctl.store.EquipmentBySKU(ctx, line.SKU)
		if errors.Is(err, ErrNotFound) {
			return rejected(ReasonEquipmentUnavailable, fmt.Sprintf("equipment %s not available", line.SKU))
		}
		if err != nil {
			return rejected(ReasonStorageError, "failed to load equipment")
		}
		if !item.Active {
			return rejected(ReasonEquipmentUnavailable, fmt.Sprintf("equipment %s not available", line.SKU))
		}
		used, err := ctl.store.EquipmentAllocated(ctx, line.SKU, req.Start, req.End)
		if err != nil {
			return rejected(ReasonStorageError, "equipment capacity check failed")
		}
		available := item.TotalQuantity - used
		if qty > available {
			return rejected(ReasonEquipmentUnavailable,
				fmt.Sprintf("insufficient %s availability: requested %d, available %d", line.SKU, qty, available))
		}
		charges = append(charges, pricing.EquipmentCharge{
			SKU:         line.SKU,
			Quantity:    qty,
			FeeOverride: line.Fee,
			DefaultFee:  item.RentalFee,
		})
		allocs = append(allocs, model.Allocation{
			ResourceType: model.ResourceEquipment,
			ResourceRef:  line.SKU,
			Quantity:     qty,
		})
	}

	var coach *model.Coach
	if req.CoachID != 0 {
		coach, err = ctl.store.CoachByID(ctx, req.CoachID)
		if errors.Is(err, ErrNotFound) {
			return rejected(ReasonCoachConflict, "coach not available")
		}
		if err != nil {
			return rejected(ReasonStorageError, "failed to load coach")
		}
		if !coach.Active {
			return rejected(ReasonCoachConflict, "coach not available")
		}
		busy, err := ctl.store.CoachHasOverlap(ctx, req.CoachID, req.Start, req.End)
		if err != nil {
			return rejected(ReasonStorageError, "coach conflict check failed")
		}
		if busy {
			return rejected(ReasonCoachConflict, "coach already booked for this time slot")
		}
		weekday := strings.ToLower(req.Start.Weekday().String())
		window, err := ctl.store.CoachWindow(ctx, req.CoachID, weekday)
		if errors.Is(err, ErrNotFound) {
			return rejected(ReasonCoachUnavailable, fmt.Sprintf("coach not available on %s", weekday))
		}
		if err != nil {
			return rejected(ReasonStorageError, "coach availability check failed")
		}
		// "HH:MM" strings compare correctly as strings.
		if req.Start.Format("15:04") < window.StartTime || req.End.Format("15:04") > window.EndTime {
			return rejected(ReasonCoachUnavailable,
				fmt.Sprintf("coach availability is %s-%s on %s", window.StartTime, window.EndTime, weekday))
		}
		allocs = append(allocs, model.Allocation{
			ResourceType: model.ResourceCoach,
			ResourceRef:  strconv.FormatUint(req.CoachID, 10),
			Quantity:     1,
		})
	}

	rules, err := ctl.store.EnabledRules(ctx)
	if err != nil {
		return rejected(ReasonStorageError, "failed to load pricing rules")
	}
	price := pricing.Compute(court, req.Start, req.End, charges, coach, rules)
	snapshot, err := json.Marshal(price)
	if err != nil {
		return rejected(ReasonStorageError, "failed to encode pricing snapshot")
	}

	b := &model.Booking{
		UserID:          req.UserID,
		StartTS:         req.Start.UTC(),
		EndTS:           req.End.UTC(),
		Status:          model.BookingStatusConfirmed,
		TotalPrice:      price.Total,
		PricingSnapshot: snapshot,
	}
	auditPayload, _ := json.Marshal(map[string]any{"user_id": req.UserID})
	if err := ctl.store.CreateConfirmed(ctx, b, allocs, auditPayload); err != nil {
		return rejected(ReasonStorageError, "failed to persist booking")
	}

	ctl.notify(req.Start, "confirmed", b.ID)
	return Outcome{Status: StatusConfirmed, BookingID: b.ID, Total: price.Total, Pricing: &price}
}

// Cancel marks a booking cancelled and identifies (without promoting)
// the next waitlisted user for the freed slot.  The waitlist read and
// the status write happen in one transaction so two cancellations
// sharing a fingerprint cannot double-report the same entry as next.
func (ctl *Controller) Cancel(ctx context.Context, bookingID uint64) (CancelResult, error) {
	b, allocs, err := ctl.store.BookingWithAllocations(ctx, bookingID)
	if err != nil {
		return CancelResult{}, err
	}

	primaryRef := "unknown"
	for _, a := range allocs {
		if a.ResourceType == model.ResourceCourt {
			primaryRef = a.ResourceRef
			break
		}
	}
	slotHash := SlotFingerprint(b.StartTS, b.EndTS, primaryRef)

	next, err := ctl.store.CancelAndPeekWaitlist(ctx, bookingID, slotHash)
	if err != nil {
		return CancelResult{}, err
	}

	ctl.notify(b.StartTS, "cancelled", bookingID)

	res := CancelResult{BookingID: bookingID}
	if next != nil {
		res.NextWaitlistUserID = next.UserID
	}
	return res, nil
}

func (ctl *Controller) notify(start time.Time, kind string, bookingID uint64) {
	if ctl.notifier == nil {
		return
	}
	ctl.notifier.Notify(start.UTC().Format("2006-01-02"), kind, bookingID)
}
