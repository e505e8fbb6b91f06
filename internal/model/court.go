package model

import "time"

// Court types distinguish indoor and outdoor courts for pricing rules
// that apply only to one category.
const (
	CourtTypeIndoor  = "indoor"
	CourtTypeOutdoor = "outdoor"
)

// Court is a capacity-1 bookable resource.  At most one confirmed
// booking may hold an allocation on a court for any overlapping
// interval.  Disabled courts are rejected at admission time.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name (e.g. "Court 1 (Indoor)").
//  Type       – court category, indoor or outdoor.
//  BaseHourly – base price per hour before rules apply.
//  Enabled    – whether the court accepts new bookings.
//  CreatedAt  – creation timestamp.
type Court struct {
	ID         uint64    // courts.id
	Name       string    // courts.name
	Type       string    // courts.type
	BaseHourly float64   // courts.base_hourly
	Enabled    bool      // courts.enabled
	CreatedAt  time.Time // courts.created_at
}
