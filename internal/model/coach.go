package model

// Coach is a capacity-1 resource that can be bundled with a court
// booking.  A coach may only be allocated inside one of their
// recurring weekday availability windows.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – coach name.
//  Bio        – free-form description.
//  HourlyRate – fee per hour added to the booking total.
//  Active     – whether the coach accepts new bookings.
type Coach struct {
	ID         uint64  // coaches.id
	Name       string  // coaches.name
	Bio        string  // coaches.bio
	HourlyRate float64 // coaches.hourly_rate
	Active     bool    // coaches.active
}

// CoachWindow is one recurring availability window for a coach on a
// given weekday.  Times are "HH:MM" strings compared lexically, which
// is correct for zero-padded 24h clock values.
//
// Fields:
//  ID        – primary key identifier.
//  CoachID   – owning coach.
//  DayOfWeek – lowercase full weekday name ("monday".."sunday").
//  StartTime – window start, inclusive.
//  EndTime   – window end, inclusive for the booking's end instant.
type CoachWindow struct {
	ID        uint64 // coach_windows.id
	CoachID   uint64 // coach_windows.coach_id
	DayOfWeek string // coach_windows.day_of_week
	StartTime string // coach_windows.start_time
	EndTime   string // coach_windows.end_time
}
