package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/pricing"
	"github.com/iliyamo/court-booking/internal/repository"
)

// Operating hours for the slot grid.  Bookings outside the grid are
// still accepted; the grid is a browse convenience, not a constraint.
const (
	openHour  = 8
	closeHour = 22
)

// PublicHandler serves the unauthenticated browse surface: the per-day
// slot grid, point availability queries and pure price quotes.
type PublicHandler struct {
	Courts    *repository.CourtRepo
	Equipment *repository.EquipmentRepo
	Coaches   *repository.CoachRepo
	Rules     *repository.RuleRepo
	Bookings  *repository.BookingRepo
}

func NewPublicHandler(courts *repository.CourtRepo, equipment *repository.EquipmentRepo, coaches *repository.CoachRepo, rules *repository.RuleRepo, bookings *repository.BookingRepo) *PublicHandler {
	if courts == nil || equipment == nil || coaches == nil || rules == nil || bookings == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Courts: courts, Equipment: equipment, Coaches: coaches, Rules: rules, Bookings: bookings}
}

type slotPart struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type courtSlotsPart struct {
	CourtID   uint64     `json:"court_id"`
	CourtName string     `json:"court_name"`
	Type      string     `json:"type"`
	Slots     []slotPart `json:"slots"`
}

// Slots handles GET /v1/slots/:date.  It returns, per enabled court,
// the day's hour grid with availability derived from confirmed
// bookings.
func (h *PublicHandler) Slots(c echo.Context) error {
	day, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ctx := c.Request().Context()

	courts, err := h.Courts.List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	taken, err := h.Bookings.ConfirmedCourtIntervals(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	byCourt := make(map[uint64][]repository.CourtInterval)
	for _, iv := range taken {
		byCourt[iv.CourtID] = append(byCourt[iv.CourtID], iv)
	}

	out := make([]courtSlotsPart, 0, len(courts))
	for _, court := range courts {
		part := courtSlotsPart{CourtID: court.ID, CourtName: court.Name, Type: court.Type}
		for hour := openHour; hour < closeHour; hour++ {
			start := dayStart.Add(time.Duration(hour) * time.Hour)
			end := start.Add(time.Hour)
			free := true
			for _, iv := range byCourt[court.ID] {
				if iv.StartTS.Before(end) && start.Before(iv.EndTS) {
					free = false
					break
				}
			}
			part.Slots = append(part.Slots, slotPart{Start: start, End: end, Available: free})
		}
		out = append(out, part)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": c.Param("date"), "courts": out})
}

// Availability handles GET /v1/availability: a point query over one
// court and interval, with optional equipment (?sku=) and coach
// (?coach_id=) checks folded into the answer.
func (h *PublicHandler) Availability(c echo.Context) error {
	courtID, err := strconv.ParseUint(c.QueryParam("court_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "court_id required"})
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil || !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be RFC3339 and after start"})
	}
	ctx := c.Request().Context()

	court, err := h.Courts.GetByID(ctx, courtID)
	if errors.Is(err, repository.ErrCourtNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	taken, err := h.Bookings.CourtHasOverlap(ctx, courtID, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := echo.Map{
		"court_id":  court.ID,
		"available": court.Enabled && !taken,
	}

	if sku := c.QueryParam("sku"); sku != "" {
		item, err := h.Equipment.GetBySKU(ctx, sku)
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "equipment not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		used, err := h.Bookings.EquipmentAllocated(ctx, sku, start, end)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		remaining := item.TotalQuantity - used
		if !item.Active {
			remaining = 0
		}
		resp["equipment"] = echo.Map{"sku": sku, "remaining": remaining}
	}

	if raw := c.QueryParam("coach_id"); raw != "" {
		coachID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coach_id"})
		}
		coach, err := h.Coaches.GetByID(ctx, coachID)
		if errors.Is(err, repository.ErrCoachNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coach not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		busy, err := h.Bookings.CoachHasOverlap(ctx, coachID, start, end)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		inWindow := false
		weekday := strings.ToLower(start.Weekday().String())
		if win, err := h.Bookings.CoachWindow(ctx, coachID, weekday); err == nil {
			inWindow = start.Format("15:04") >= win.StartTime && end.Format("15:04") <= win.EndTime
		}
		resp["coach"] = echo.Map{
			"coach_id":  coachID,
			"available": coach.Active && !busy && inWindow,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// parseEquipmentParam decodes "racket:2,ball" into equipment charges
// with catalog default fees.  Quantity defaults to 1.
func (h *PublicHandler) parseEquipmentParam(c echo.Context, raw string) ([]pricing.EquipmentCharge, error) {
	var charges []pricing.EquipmentCharge
	for _, piece := range strings.Split(raw, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		sku, qtyStr, hasQty := strings.Cut(piece, ":")
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(qtyStr)
			if err != nil || n < 1 {
				return nil, errors.New("invalid equipment quantity")
			}
			qty = n
		}
		item, err := h.Equipment.GetBySKU(c.Request().Context(), sku)
		if err != nil {
			return nil, errors.New("unknown equipment " + sku)
		}
		charges = append(charges, pricing.EquipmentCharge{
			SKU:        item.SKU,
			Quantity:   qty,
			DefaultFee: item.RentalFee,
		})
	}
	return charges, nil
}

// SimulatePrice handles GET /v1/simulate-price: a pure quote through
// the price engine with the live rule set.  Nothing is reserved and no
// gate is taken.
func (h *PublicHandler) SimulatePrice(c echo.Context) error {
	courtID, err := strconv.ParseUint(c.QueryParam("court_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "court_id required"})
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil || !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be RFC3339 and after start"})
	}
	ctx := c.Request().Context()

	court, err := h.Courts.GetByID(ctx, courtID)
	if errors.Is(err, repository.ErrCourtNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	var charges []pricing.EquipmentCharge
	if raw := c.QueryParam("equipment"); raw != "" {
		charges, err = h.parseEquipmentParam(c, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}

	var coach *model.Coach
	if raw := c.QueryParam("coach_id"); raw != "" {
		coachID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coach_id"})
		}
		coach, err = h.Coaches.GetByID(ctx, coachID)
		if errors.Is(err, repository.ErrCoachNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coach not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}

	rules, err := h.Rules.Enabled(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	result := pricing.Compute(court, start, end, charges, coach, rules)
	return c.JSON(http.StatusOK, result)
}
