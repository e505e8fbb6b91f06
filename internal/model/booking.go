package model

import "time"

// Booking statuses.  A booking is created confirmed by the admission
// path and may only transition to cancelled; rows are never deleted.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Allocation resource types.  Each confirmed booking owns exactly one
// court allocation, zero or more equipment allocations and at most one
// coach allocation.
const (
	ResourceCourt     = "court"
	ResourceEquipment = "equipment"
	ResourceCoach     = "coach"
)

// Booking records a user's confirmed (or later cancelled) claim on a
// court for a half-open interval [StartTS, EndTS).  The pricing
// snapshot is the full price engine output serialized as JSON at
// confirmation time and is never recomputed afterwards.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who made the booking.
//  StartTS, EndTS  – UTC interval bounds, end exclusive.
//  Status          – confirmed or cancelled.
//  TotalPrice      – total from the pricing snapshot.
//  PricingSnapshot – serialized pricing.Result (receipt/audit).
//  CreatedAt       – creation timestamp.
type Booking struct {
	ID              uint64    // bookings.id
	UserID          uint64    // bookings.user_id
	StartTS         time.Time // bookings.start_ts
	EndTS           time.Time // bookings.end_ts
	Status          string    // bookings.status
	TotalPrice      float64   // bookings.total_price
	PricingSnapshot []byte    // bookings.pricing_snapshot (JSON)
	CreatedAt       time.Time // bookings.created_at
}

// Allocation is a claim by one booking on one resource for the
// booking's interval.  Quantity is 1 for courts and coaches and the
// requested unit count for equipment.  ResourceRef holds the court or
// coach ID rendered as a string, or the equipment SKU.
type Allocation struct {
	ID           uint64 // booking_allocations.id
	BookingID    uint64 // booking_allocations.booking_id
	ResourceType string // booking_allocations.resource_type
	ResourceRef  string // booking_allocations.resource_ref
	Quantity     int    // booking_allocations.quantity
}

// WaitlistEntry queues a user for a slot that was already taken at
// admission time.  Entries are ordered FIFO by CreatedAt within a slot
// hash and are read (never consumed) by the cancellation path.
type WaitlistEntry struct {
	ID        uint64    // waitlist_entries.id
	SlotHash  string    // waitlist_entries.slot_hash
	UserID    uint64    // waitlist_entries.user_id
	CreatedAt time.Time // waitlist_entries.created_at
}

// AuditEvent is an append-only record of a booking state transition.
// Payload is a small JSON document for later analysis.
type AuditEvent struct {
	ID        uint64    // audit_events.id
	BookingID uint64    // audit_events.booking_id
	EventType string    // audit_events.event_type ("confirmed", "cancelled")
	Payload   []byte    // audit_events.payload (JSON)
	CreatedAt time.Time // audit_events.created_at
}
