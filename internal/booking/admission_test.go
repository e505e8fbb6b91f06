package booking

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/pricing"
)

// memStore is an in-memory Store used to exercise the admission
// controller without a database.  All methods take the internal mutex;
// checkDelay optionally widens the window between the overlap check
// and the confirm write so a missing gate would be caught by the
// concurrency tests.
type memStore struct {
	mu         sync.Mutex
	courts     map[uint64]*model.Court
	coaches    map[uint64]*model.Coach
	windows    map[uint64]map[string]*model.CoachWindow
	equipment  map[string]*model.EquipmentItem
	rules      []pricing.Rule
	bookings   map[uint64]*model.Booking
	allocs     map[uint64][]model.Allocation
	waitlist   []model.WaitlistEntry
	audits     []model.AuditEvent
	nextID     uint64
	checkDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		courts:    map[uint64]*model.Court{},
		coaches:   map[uint64]*model.Coach{},
		windows:   map[uint64]map[string]*model.CoachWindow{},
		equipment: map[string]*model.EquipmentItem{},
		bookings:  map[uint64]*model.Booking{},
		allocs:    map[uint64][]model.Allocation{},
	}
}

func (s *memStore) id() uint64 { s.nextID++; return s.nextID }

func (s *memStore) CourtByID(_ context.Context, id uint64) (*model.Court, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memStore) CoachByID(_ context.Context, id uint64) (*model.Coach, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coaches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memStore) EquipmentBySKU(_ context.Context, sku string) (*model.EquipmentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.equipment[sku]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *memStore) CoachWindow(_ context.Context, coachID uint64, day string) (*model.CoachWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[coachID][day]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

func (s *memStore) EnabledRules(_ context.Context) ([]pricing.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pricing.Rule(nil), s.rules...), nil
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (s *memStore) allocatedOverlap(resType, ref string, start, end time.Time) int {
	total := 0
	for id, b := range s.bookings {
		if b.Status != model.BookingStatusConfirmed || !overlaps(b.StartTS, b.EndTS, start, end) {
			continue
		}
		for _, a := range s.allocs[id] {
			if a.ResourceType == resType && a.ResourceRef == ref {
				total += a.Quantity
			}
		}
	}
	return total
}

func (s *memStore) CourtHasOverlap(_ context.Context, courtID uint64, start, end time.Time) (bool, error) {
	s.mu.Lock()
	n := s.allocatedOverlap(model.ResourceCourt, strconv.FormatUint(courtID, 10), start, end)
	s.mu.Unlock()
	if s.checkDelay > 0 {
		time.Sleep(s.checkDelay)
	}
	return n > 0, nil
}

func (s *memStore) EquipmentAllocated(_ context.Context, sku string, start, end time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocatedOverlap(model.ResourceEquipment, sku, start, end), nil
}

func (s *memStore) CoachHasOverlap(_ context.Context, coachID uint64, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocatedOverlap(model.ResourceCoach, strconv.FormatUint(coachID, 10), start, end) > 0, nil
}

func (s *memStore) AddWaitlist(_ context.Context, slotHash string, userID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := model.WaitlistEntry{ID: s.id(), SlotHash: slotHash, UserID: userID, CreatedAt: time.Now().UTC()}
	s.waitlist = append(s.waitlist, e)
	return e.ID, nil
}

func (s *memStore) CreateConfirmed(_ context.Context, b *model.Booking, allocs []model.Allocation, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	b.CreatedAt = time.Now().UTC()
	s.bookings[b.ID] = b
	for i := range allocs {
		allocs[i].ID = s.id()
		allocs[i].BookingID = b.ID
	}
	s.allocs[b.ID] = allocs
	s.audits = append(s.audits, model.AuditEvent{
		ID: s.id(), BookingID: b.ID, EventType: "confirmed", Payload: payload,
	})
	return nil
}

func (s *memStore) BookingWithAllocations(_ context.Context, id uint64) (*model.Booking, []model.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return b, append([]model.Allocation(nil), s.allocs[id]...), nil
}

func (s *memStore) CancelAndPeekWaitlist(_ context.Context, id uint64, slotHash string) (*model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Status = model.BookingStatusCancelled
	var next *model.WaitlistEntry
	for i := range s.waitlist {
		e := &s.waitlist[i]
		if e.SlotHash != slotHash {
			continue
		}
		if next == nil || e.CreatedAt.Before(next.CreatedAt) || (e.CreatedAt.Equal(next.CreatedAt) && e.ID < next.ID) {
			next = e
		}
	}
	payload := []byte(`{}`)
	s.audits = append(s.audits, model.AuditEvent{
		ID: s.id(), BookingID: id, EventType: "cancelled", Payload: payload,
	})
	return next, nil
}

// fixture returns a store seeded with one indoor court, an equipment
// pool and a coach available Monday through Saturday.
func fixture() *memStore {
	s := newMemStore()
	s.courts[1] = &model.Court{ID: 1, Name: "Court 1 (Indoor)", Type: model.CourtTypeIndoor, BaseHourly: 600, Enabled: true}
	s.courts[2] = &model.Court{ID: 2, Name: "Court 2 (Indoor)", Type: model.CourtTypeIndoor, BaseHourly: 600, Enabled: true}
	s.courts[3] = &model.Court{ID: 3, Name: "Court 3 (Outdoor)", Type: model.CourtTypeOutdoor, BaseHourly: 400, Enabled: false}
	s.equipment["racket"] = &model.EquipmentItem{ID: 1, SKU: "racket", Name: "Badminton Racket", TotalQuantity: 4, RentalFee: 100, Active: true}
	s.coaches[7] = &model.Coach{ID: 7, Name: "Alex", HourlyRate: 300, Active: true}
	s.windows[7] = map[string]*model.CoachWindow{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		s.windows[7][day] = &model.CoachWindow{CoachID: 7, DayOfWeek: day, StartTime: "08:00", EndTime: "20:00"}
	}
	return s
}

func controllerOver(s Store) *Controller {
	ctl := NewController(s, NewKeyedMutex(), nil)
	ctl.SetLockWait(2 * time.Second)
	return ctl
}

// slot returns a 1-hour Monday-morning interval.
func slot() (time.Time, time.Time) {
	start := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestBookConfirmsFreeSlot(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	out := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end})
	if out.Status != StatusConfirmed {
		t.Fatalf("outcome = %+v, want confirmed", out)
	}
	if out.Total != 600 {
		t.Fatalf("total = %v, want 600", out.Total)
	}
	b := s.bookings[out.BookingID]
	if b == nil || b.Status != model.BookingStatusConfirmed {
		t.Fatalf("booking not persisted confirmed: %+v", b)
	}
	if len(b.PricingSnapshot) == 0 {
		t.Fatalf("pricing snapshot not persisted")
	}
	if len(s.allocs[b.ID]) != 1 || s.allocs[b.ID][0].ResourceType != model.ResourceCourt {
		t.Fatalf("allocations = %+v", s.allocs[b.ID])
	}
	if len(s.audits) != 1 || s.audits[0].EventType != "confirmed" {
		t.Fatalf("audit trail = %+v", s.audits)
	}
}

func TestBookRejectsBadRequests(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	out := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: end, End: start})
	if out.Status != StatusRejected || out.Reason != ReasonInvalidInterval {
		t.Fatalf("inverted interval: %+v", out)
	}
	out = ctl.Book(context.Background(), Request{UserID: 1, CourtID: 99, Start: start, End: end})
	if out.Reason != ReasonCourtUnavailable {
		t.Fatalf("unknown court: %+v", out)
	}
	out = ctl.Book(context.Background(), Request{UserID: 1, CourtID: 3, Start: start, End: end})
	if out.Reason != ReasonCourtUnavailable {
		t.Fatalf("disabled court: %+v", out)
	}
}

func TestSecondBookingIsWaitlisted(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	first := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end})
	if first.Status != StatusConfirmed {
		t.Fatalf("first: %+v", first)
	}
	second := ctl.Book(context.Background(), Request{UserID: 2, CourtID: 1, Start: start, End: end})
	if second.Status != StatusWaitlisted || second.WaitlistID == 0 {
		t.Fatalf("second: %+v", second)
	}
	// A partially overlapping interval conflicts too.
	third := ctl.Book(context.Background(), Request{UserID: 3, CourtID: 1, Start: start.Add(30 * time.Minute), End: end.Add(30 * time.Minute)})
	if third.Status != StatusWaitlisted {
		t.Fatalf("overlapping interval: %+v", third)
	}
}

func TestDifferentCourtsDoNotConflict(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	a := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end})
	b := ctl.Book(context.Background(), Request{UserID: 2, CourtID: 2, Start: start, End: end})
	if a.Status != StatusConfirmed || b.Status != StatusConfirmed {
		t.Fatalf("same interval, different courts: %+v / %+v", a, b)
	}
}

func TestConcurrentBookingOnlyOneConfirms(t *testing.T) {
	s := fixture()
	s.checkDelay = 5 * time.Millisecond // widen the check-then-write window
	ctl := controllerOver(s)
	start, end := slot()

	const attempts = 8
	outcomes := make([]Outcome, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = ctl.Book(context.Background(), Request{
				UserID: uint64(i + 1), CourtID: 1, Start: start, End: end,
			})
		}(i)
	}
	wg.Wait()

	confirmed, waitlisted := 0, 0
	for _, out := range outcomes {
		switch out.Status {
		case StatusConfirmed:
			confirmed++
		case StatusWaitlisted:
			waitlisted++
		default:
			t.Fatalf("unexpected outcome %+v", out)
		}
	}
	if confirmed != 1 {
		t.Fatalf("confirmed = %d, want exactly 1", confirmed)
	}
	if waitlisted != attempts-1 {
		t.Fatalf("waitlisted = %d, want %d", waitlisted, attempts-1)
	}
}

func TestEquipmentCapacityConserved(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	// Pool of 4 rackets: 3 on court 1, then 2 more on court 2 must fail.
	a := ctl.Book(context.Background(), Request{
		UserID: 1, CourtID: 1, Start: start, End: end,
		Equipment: []EquipmentRequest{{SKU: "racket", Quantity: 3}},
	})
	if a.Status != StatusConfirmed {
		t.Fatalf("first equipment booking: %+v", a)
	}
	b := ctl.Book(context.Background(), Request{
		UserID: 2, CourtID: 2, Start: start, End: end,
		Equipment: []EquipmentRequest{{SKU: "racket", Quantity: 2}},
	})
	if b.Status != StatusRejected || b.Reason != ReasonEquipmentUnavailable {
		t.Fatalf("over-allocation: %+v", b)
	}
	if b.Detail != "insufficient racket availability: requested 2, available 1" {
		t.Fatalf("detail = %q", b.Detail)
	}
	// The remaining unit is still bookable.
	c := ctl.Book(context.Background(), Request{
		UserID: 3, CourtID: 2, Start: start, End: end,
		Equipment: []EquipmentRequest{{SKU: "racket", Quantity: 1}},
	})
	if c.Status != StatusConfirmed {
		t.Fatalf("last unit: %+v", c)
	}
	// A non-overlapping interval sees the full pool again.
	d := ctl.Book(context.Background(), Request{
		UserID: 4, CourtID: 1, Start: end, End: end.Add(time.Hour),
		Equipment: []EquipmentRequest{{SKU: "racket", Quantity: 4}},
	})
	if d.Status != StatusConfirmed {
		t.Fatalf("disjoint interval: %+v", d)
	}
}

func TestUnknownEquipmentRejected(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	out := ctl.Book(context.Background(), Request{
		UserID: 1, CourtID: 1, Start: start, End: end,
		Equipment: []EquipmentRequest{{SKU: "net", Quantity: 1}},
	})
	if out.Reason != ReasonEquipmentUnavailable {
		t.Fatalf("unknown SKU: %+v", out)
	}
}

func TestCoachChecks(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	// Happy path inside the window.
	a := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end, CoachID: 7})
	if a.Status != StatusConfirmed {
		t.Fatalf("coach booking: %+v", a)
	}
	if a.Total != 900 { // 600 court + 300 coach
		t.Fatalf("total with coach = %v, want 900", a.Total)
	}

	// Same coach, same interval, different court: coach_conflict.
	b := ctl.Book(context.Background(), Request{UserID: 2, CourtID: 2, Start: start, End: end, CoachID: 7})
	if b.Reason != ReasonCoachConflict {
		t.Fatalf("double-booked coach: %+v", b)
	}

	// Sunday is outside the coach's schedule.
	sunday := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	c := ctl.Book(context.Background(), Request{UserID: 3, CourtID: 2, Start: sunday, End: sunday.Add(time.Hour), CoachID: 7})
	if c.Reason != ReasonCoachUnavailable {
		t.Fatalf("off-day coach: %+v", c)
	}

	// Ending past the window edge is rejected with the window detail.
	late := time.Date(2025, 12, 16, 19, 30, 0, 0, time.UTC)
	d := ctl.Book(context.Background(), Request{UserID: 4, CourtID: 2, Start: late, End: late.Add(time.Hour), CoachID: 7})
	if d.Reason != ReasonCoachUnavailable {
		t.Fatalf("window overrun: %+v", d)
	}
	if d.Detail != "coach availability is 08:00-20:00 on tuesday" {
		t.Fatalf("detail = %q", d.Detail)
	}

	// Inactive coach.
	s.coaches[7].Active = false
	e := ctl.Book(context.Background(), Request{UserID: 5, CourtID: 2, Start: start.Add(2 * time.Hour), End: end.Add(2 * time.Hour), CoachID: 7})
	if e.Reason != ReasonCoachConflict {
		t.Fatalf("inactive coach: %+v", e)
	}
}

func TestWaitlistBranchSkipsEquipmentChecks(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	if out := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end}); out.Status != StatusConfirmed {
		t.Fatalf("setup: %+v", out)
	}
	// Even an impossible equipment request is waitlisted, not rejected:
	// the conflict branch never evaluates add-ons.
	out := ctl.Book(context.Background(), Request{
		UserID: 2, CourtID: 1, Start: start, End: end,
		Equipment: []EquipmentRequest{{SKU: "racket", Quantity: 100}},
	})
	if out.Status != StatusWaitlisted {
		t.Fatalf("conflict branch: %+v", out)
	}
}

func TestCancelReportsNextWaitlistedFIFO(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	start, end := slot()

	a := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end})
	if a.Status != StatusConfirmed {
		t.Fatalf("setup: %+v", a)
	}
	if out := ctl.Book(context.Background(), Request{UserID: 2, CourtID: 1, Start: start, End: end}); out.Status != StatusWaitlisted {
		t.Fatalf("setup waitlist: %+v", out)
	}
	if out := ctl.Book(context.Background(), Request{UserID: 3, CourtID: 1, Start: start, End: end}); out.Status != StatusWaitlisted {
		t.Fatalf("setup waitlist: %+v", out)
	}

	res, err := ctl.Cancel(context.Background(), a.BookingID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.NextWaitlistUserID != 2 {
		t.Fatalf("next waitlisted = %d, want user 2 (FIFO)", res.NextWaitlistUserID)
	}
	if s.bookings[a.BookingID].Status != model.BookingStatusCancelled {
		t.Fatalf("booking status = %q", s.bookings[a.BookingID].Status)
	}
	// Promotion is advisory: user 2 has no confirmed booking.
	for _, b := range s.bookings {
		if b.UserID == 2 {
			t.Fatalf("waitlisted user was auto-promoted: %+v", b)
		}
	}
	// The freed slot is open to whoever books next.
	again := ctl.Book(context.Background(), Request{UserID: 9, CourtID: 1, Start: start, End: end})
	if again.Status != StatusConfirmed {
		t.Fatalf("freed slot: %+v", again)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	s := fixture()
	ctl := controllerOver(s)
	if _, err := ctl.Cancel(context.Background(), 12345); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotImmutableAfterRuleChange(t *testing.T) {
	s := fixture()
	s.rules = []pricing.Rule{{
		Name: "peak", Enabled: true, Priority: 10,
		Modifier: pricing.Modifier{Kind: pricing.ModifierPercentage, Value: 20},
		Stack:    pricing.StackAdditive,
	}}
	ctl := controllerOver(s)
	start, end := slot()

	out := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end})
	if out.Status != StatusConfirmed || out.Total != 720 {
		t.Fatalf("outcome = %+v", out)
	}
	snapshot := string(s.bookings[out.BookingID].PricingSnapshot)

	// Rules change afterwards; the persisted snapshot must not.
	s.rules[0].Modifier.Value = 50
	if got := string(s.bookings[out.BookingID].PricingSnapshot); got != snapshot {
		t.Fatalf("snapshot changed after rule update")
	}
}

func TestNotifierCalledAfterTransitions(t *testing.T) {
	s := fixture()
	var mu sync.Mutex
	var events []string
	notifier := NotifierFunc(func(dateKey, kind string, id uint64) {
		mu.Lock()
		events = append(events, dateKey+"/"+kind)
		mu.Unlock()
	})
	ctl := NewController(s, NewKeyedMutex(), notifier)
	start, end := slot()

	out := ctl.Book(context.Background(), Request{UserID: 1, CourtID: 1, Start: start, End: end})
	if out.Status != StatusConfirmed {
		t.Fatalf("book: %+v", out)
	}
	if _, err := ctl.Cancel(context.Background(), out.BookingID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"2025-12-15/confirmed", "2025-12-15/cancelled"}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
}
