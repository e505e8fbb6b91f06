// Package booking contains the admission controller: the serialized
// state machine that turns a booking request into a confirmed,
// waitlisted or rejected outcome, and the cancellation path that
// identifies the next waitlisted user for a freed slot.
package booking

import (
	"fmt"
	"time"
)

// SlotFingerprint derives the deterministic key that identifies one
// bookable slot: the interval plus the primary resource reference.
// Concurrent booking attempts are serialized per fingerprint, and
// waitlist entries are queued under it.  The format must stay stable
// across releases because persisted waitlist rows carry it.
func SlotFingerprint(start, end time.Time, resourceRef string) string {
	return fmt.Sprintf("%s_%s_%s",
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		resourceRef)
}
