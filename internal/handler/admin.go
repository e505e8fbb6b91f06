package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/repository"
)

// AdminHandler bundles the catalog repositories for the admin console:
// courts, equipment, coaches with their windows, and pricing rules.
type AdminHandler struct {
	Courts    *repository.CourtRepo
	Equipment *repository.EquipmentRepo
	Coaches   *repository.CoachRepo
	Rules     *repository.RuleRepo
}

// NewAdminHandler constructs an AdminHandler and panics if any
// dependency is nil.
func NewAdminHandler(courts *repository.CourtRepo, equipment *repository.EquipmentRepo, coaches *repository.CoachRepo, rules *repository.RuleRepo) *AdminHandler {
	if courts == nil || equipment == nil || coaches == nil || rules == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Courts: courts, Equipment: equipment, Coaches: coaches, Rules: rules}
}

// ----- courts -----

type courtReq struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"` // indoor | outdoor
	BaseHourly float64 `json:"base_hourly"`
	Enabled    *bool   `json:"enabled"`
}

func (r *courtReq) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if r.Name == "" {
		return errors.New("name required")
	}
	if r.Type != model.CourtTypeIndoor && r.Type != model.CourtTypeOutdoor {
		return errors.New("type must be indoor or outdoor")
	}
	if r.BaseHourly < 0 {
		return errors.New("base_hourly must be non-negative")
	}
	return nil
}

func (h *AdminHandler) CreateCourt(c echo.Context) error {
	var req courtReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	court := model.Court{Name: req.Name, Type: req.Type, BaseHourly: req.BaseHourly, Enabled: true}
	if req.Enabled != nil {
		court.Enabled = *req.Enabled
	}
	if err := h.Courts.Create(c.Request().Context(), &court); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create court failed"})
	}
	return c.JSON(http.StatusCreated, court)
}

func (h *AdminHandler) ListCourts(c echo.Context) error {
	courts, err := h.Courts.List(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if courts == nil {
		courts = []model.Court{}
	}
	return c.JSON(http.StatusOK, echo.Map{"courts": courts})
}

func (h *AdminHandler) GetCourt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	court, err := h.Courts.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrCourtNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, court)
}

func (h *AdminHandler) UpdateCourt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req courtReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	court := model.Court{ID: id, Name: req.Name, Type: req.Type, BaseHourly: req.BaseHourly, Enabled: true}
	if req.Enabled != nil {
		court.Enabled = *req.Enabled
	}
	if err := h.Courts.Update(c.Request().Context(), &court); err != nil {
		if errors.Is(err, repository.ErrCourtNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update court failed"})
	}
	return c.JSON(http.StatusOK, court)
}

func (h *AdminHandler) DeleteCourt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Courts.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrCourtNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "court has confirmed bookings"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete court failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- equipment -----

type equipmentReq struct {
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	TotalQuantity int     `json:"total_quantity"`
	RentalFee     float64 `json:"rental_fee"`
	Active        *bool   `json:"active"`
}

func (r *equipmentReq) validate(requireSKU bool) error {
	r.SKU = strings.TrimSpace(r.SKU)
	r.Name = strings.TrimSpace(r.Name)
	if requireSKU && r.SKU == "" {
		return errors.New("sku required")
	}
	if r.Name == "" {
		return errors.New("name required")
	}
	if r.TotalQuantity < 0 {
		return errors.New("total_quantity must be non-negative")
	}
	if r.RentalFee < 0 {
		return errors.New("rental_fee must be non-negative")
	}
	return nil
}

func (h *AdminHandler) CreateEquipment(c echo.Context) error {
	var req equipmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(true); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	item := model.EquipmentItem{SKU: req.SKU, Name: req.Name, TotalQuantity: req.TotalQuantity, RentalFee: req.RentalFee, Active: true}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if err := h.Equipment.Create(c.Request().Context(), &item); err != nil {
		if errors.Is(err, repository.ErrSKUExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sku already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create equipment failed"})
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *AdminHandler) ListEquipment(c echo.Context) error {
	items, err := h.Equipment.List(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []model.EquipmentItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"equipment": items})
}

func (h *AdminHandler) UpdateEquipment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	existing, err := h.Equipment.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrEquipmentNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "equipment not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	var req equipmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(false); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	item := model.EquipmentItem{ID: id, SKU: existing.SKU, Name: req.Name, TotalQuantity: req.TotalQuantity, RentalFee: req.RentalFee, Active: existing.Active}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if err := h.Equipment.Update(c.Request().Context(), &item); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update equipment failed"})
	}
	return c.JSON(http.StatusOK, item)
}

func (h *AdminHandler) DeleteEquipment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Equipment.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrEquipmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "equipment not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "equipment has confirmed allocations"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete equipment failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- coaches -----

type coachReq struct {
	Name       string  `json:"name"`
	Bio        string  `json:"bio"`
	HourlyRate float64 `json:"hourly_rate"`
	Active     *bool   `json:"active"`
}

type windowReq struct {
	DayOfWeek string `json:"day_of_week"` // lowercase full name
	StartTime string `json:"start_time"`  // "HH:MM"
	EndTime   string `json:"end_time"`
}

var validDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := s[:2]
	mm := s[3:]
	return hh >= "00" && hh <= "23" && mm >= "00" && mm <= "59"
}

func (h *AdminHandler) CreateCoach(c echo.Context) error {
	var req coachReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.HourlyRate < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required, hourly_rate non-negative"})
	}
	coach := model.Coach{Name: req.Name, Bio: req.Bio, HourlyRate: req.HourlyRate, Active: true}
	if req.Active != nil {
		coach.Active = *req.Active
	}
	if err := h.Coaches.Create(c.Request().Context(), &coach); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create coach failed"})
	}
	return c.JSON(http.StatusCreated, coach)
}

func (h *AdminHandler) ListCoaches(c echo.Context) error {
	coaches, err := h.Coaches.List(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if coaches == nil {
		coaches = []model.Coach{}
	}
	return c.JSON(http.StatusOK, echo.Map{"coaches": coaches})
}

func (h *AdminHandler) UpdateCoach(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req coachReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.HourlyRate < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required, hourly_rate non-negative"})
	}
	coach := model.Coach{ID: id, Name: req.Name, Bio: req.Bio, HourlyRate: req.HourlyRate, Active: true}
	if req.Active != nil {
		coach.Active = *req.Active
	}
	if err := h.Coaches.Update(c.Request().Context(), &coach); err != nil {
		if errors.Is(err, repository.ErrCoachNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coach not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update coach failed"})
	}
	return c.JSON(http.StatusOK, coach)
}

func (h *AdminHandler) DeleteCoach(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Coaches.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrCoachNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "coach not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "coach has confirmed bookings"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete coach failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) ListCoachWindows(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	windows, err := h.Coaches.ListWindows(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if windows == nil {
		windows = []model.CoachWindow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"windows": windows})
}

// ReplaceCoachWindows swaps the coach's full weekly schedule in one
// call; the body is the complete window set.
func (h *AdminHandler) ReplaceCoachWindows(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var reqs []windowReq
	if err := c.Bind(&reqs); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	windows := make([]model.CoachWindow, 0, len(reqs))
	for _, w := range reqs {
		day := strings.ToLower(strings.TrimSpace(w.DayOfWeek))
		if !validDays[day] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day_of_week " + w.DayOfWeek})
		}
		if !validClock(w.StartTime) || !validClock(w.EndTime) || w.StartTime >= w.EndTime {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "window times must be HH:MM with start before end"})
		}
		windows = append(windows, model.CoachWindow{CoachID: id, DayOfWeek: day, StartTime: w.StartTime, EndTime: w.EndTime})
	}
	if err := h.Coaches.ReplaceWindows(c.Request().Context(), id, windows); err != nil {
		if errors.Is(err, repository.ErrCoachNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coach not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "replace windows failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"windows": windows})
}

// ----- pricing rules -----

type ruleReq struct {
	Name     string          `json:"name"`
	Enabled  *bool           `json:"enabled"`
	Priority int             `json:"priority"`
	Rule     json.RawMessage `json:"rule"`
}

type rulePart struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Priority  int             `json:"priority"`
	Rule      json.RawMessage `json:"rule"`
	CreatedAt interface{}     `json:"created_at,omitempty"`
}

func (h *AdminHandler) CreateRule(c echo.Context) error {
	var req ruleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Rule) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and rule required"})
	}
	rule := model.PricingRule{Name: req.Name, Enabled: true, Priority: req.Priority, Rule: req.Rule}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if err := h.Rules.Create(c.Request().Context(), &rule); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule document: " + err.Error()})
	}
	return c.JSON(http.StatusCreated, rulePart{ID: rule.ID, Name: rule.Name, Enabled: rule.Enabled, Priority: rule.Priority, Rule: rule.Rule})
}

func (h *AdminHandler) ListRules(c echo.Context) error {
	rules, err := h.Rules.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]rulePart, 0, len(rules))
	for _, r := range rules {
		out = append(out, rulePart{ID: r.ID, Name: r.Name, Enabled: r.Enabled, Priority: r.Priority, Rule: r.Rule, CreatedAt: r.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"rules": out})
}

func (h *AdminHandler) GetRule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	r, err := h.Rules.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrRuleNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, rulePart{ID: r.ID, Name: r.Name, Enabled: r.Enabled, Priority: r.Priority, Rule: r.Rule, CreatedAt: r.CreatedAt})
}

func (h *AdminHandler) UpdateRule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req ruleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Rule) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and rule required"})
	}
	rule := model.PricingRule{ID: id, Name: req.Name, Enabled: true, Priority: req.Priority, Rule: req.Rule}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if err := h.Rules.Update(c.Request().Context(), &rule); err != nil {
		if errors.Is(err, repository.ErrRuleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule document: " + err.Error()})
	}
	return c.JSON(http.StatusOK, rulePart{ID: rule.ID, Name: rule.Name, Enabled: rule.Enabled, Priority: rule.Priority, Rule: rule.Rule})
}

func (h *AdminHandler) DeleteRule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Rules.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrRuleNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete rule failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
