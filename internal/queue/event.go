// Package queue defines message payloads exchanged over the message broker.
package queue

// AvailabilityChangedEvent is published whenever a slot's availability
// changes, either because a booking was confirmed or because one was
// cancelled.  It deliberately carries only coarse identifiers: consumers
// that care about details (notification fan-out, cache invalidation,
// analytics) query the primary database themselves.
type AvailabilityChangedEvent struct {
	DateKey   string `json:"date_key"`   // calendar day of the slot, "2006-01-02"
	EventKind string `json:"event_kind"` // "confirmed" or "cancelled"
	BookingID uint64 `json:"booking_id"`
	EmittedAt string `json:"emitted_at"` // RFC3339 UTC publish time
}
