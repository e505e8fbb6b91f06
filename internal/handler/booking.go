package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-booking/internal/booking"
	"github.com/iliyamo/court-booking/internal/model"
	"github.com/iliyamo/court-booking/internal/repository"
)

// BookingHandler exposes the customer booking surface: create, list,
// inspect and cancel.  Creation delegates to the admission controller;
// the handler's job is request decoding, idempotency replay and mapping
// outcomes onto HTTP statuses.
type BookingHandler struct {
	Ctl      *booking.Controller
	Bookings *repository.BookingRepo
	Idem     *booking.IdempotencyCache
}

// NewBookingHandler constructs a BookingHandler and panics on nil
// controller or repository.  Idem may be nil (no replay).
func NewBookingHandler(ctl *booking.Controller, repo *repository.BookingRepo, idem *booking.IdempotencyCache) *BookingHandler {
	if ctl == nil || repo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Ctl: ctl, Bookings: repo, Idem: idem}
}

type equipmentLineReq struct {
	SKU      string   `json:"sku"`
	Quantity int      `json:"quantity"`
	Fee      *float64 `json:"fee,omitempty"`
}

type createBookingReq struct {
	CourtID   uint64             `json:"court_id"`
	Start     string             `json:"start"` // RFC3339
	End       string             `json:"end"`   // RFC3339
	Equipment []equipmentLineReq `json:"equipment,omitempty"`
	CoachID   uint64             `json:"coach_id,omitempty"`
}

type outcomeResp struct {
	Status     string      `json:"status"`
	BookingID  uint64      `json:"booking_id,omitempty"`
	Total      float64     `json:"total,omitempty"`
	Pricing    interface{} `json:"pricing,omitempty"`
	WaitlistID uint64      `json:"waitlist_id,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// statusForReason maps rejection reason codes onto HTTP statuses.
// Resource-state rejections are 409s: the request was well-formed but
// the world disagrees.
func statusForReason(reason string) int {
	switch reason {
	case booking.ReasonInvalidInterval:
		return http.StatusBadRequest
	case booking.ReasonCourtUnavailable,
		booking.ReasonEquipmentUnavailable,
		booking.ReasonCoachConflict,
		booking.ReasonCoachUnavailable:
		return http.StatusConflict
	case booking.ReasonLockTimeout:
		return http.StatusServiceUnavailable
	case booking.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Create handles POST /v1/bookings.  A repeated request carrying the
// same Idempotency-Key header replays the stored response body instead
// of running admission again.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	idemKey := c.Request().Header.Get("Idempotency-Key")
	ctx := c.Request().Context()
	if body, ok := h.Idem.Get(ctx, uid, idemKey); ok {
		c.Response().Header().Set("Idempotency-Replayed", "true")
		return c.JSONBlob(http.StatusOK, body)
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be RFC3339"})
	}

	breq := booking.Request{
		UserID:  uid,
		CourtID: req.CourtID,
		Start:   start,
		End:     end,
		CoachID: req.CoachID,
	}
	for _, line := range req.Equipment {
		breq.Equipment = append(breq.Equipment, booking.EquipmentRequest{
			SKU:      line.SKU,
			Quantity: line.Quantity,
			Fee:      line.Fee,
		})
	}

	out := h.Ctl.Book(ctx, breq)
	resp := outcomeResp{
		Status:     out.Status,
		BookingID:  out.BookingID,
		Total:      out.Total,
		WaitlistID: out.WaitlistID,
		Reason:     out.Reason,
		Detail:     out.Detail,
	}
	if out.Pricing != nil {
		resp.Pricing = out.Pricing
	}

	status := http.StatusCreated
	switch out.Status {
	case booking.StatusWaitlisted:
		status = http.StatusAccepted
	case booking.StatusRejected:
		status = statusForReason(out.Reason)
	}

	// Only settled outcomes are replayable; transient failures must be
	// retried for real.
	if out.Reason != booking.ReasonLockTimeout && out.Reason != booking.ReasonStorageError {
		if body, err := json.Marshal(resp); err == nil {
			h.Idem.Put(ctx, uid, idemKey, body)
		}
	}
	return c.JSON(status, resp)
}

// List handles GET /v1/bookings: the caller's booking history.
func (h *BookingHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []repository.BookingSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

type allocationPart struct {
	ResourceType string `json:"resource_type"`
	ResourceRef  string `json:"resource_ref"`
	Quantity     int    `json:"quantity"`
}

// Get handles GET /v1/bookings/:id, returning the booking, its
// allocations and the pricing snapshot exactly as persisted.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	b, allocs, err := h.Bookings.GetForUser(c.Request().Context(), id, uid, isAdmin(c))
	if errors.Is(err, booking.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	parts := make([]allocationPart, 0, len(allocs))
	for _, a := range allocs {
		parts = append(parts, allocationPart{ResourceType: a.ResourceType, ResourceRef: a.ResourceRef, Quantity: a.Quantity})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          b.ID,
		"start_ts":    b.StartTS,
		"end_ts":      b.EndTS,
		"status":      b.Status,
		"total_price": b.TotalPrice,
		"pricing":     json.RawMessage(b.PricingSnapshot),
		"allocations": parts,
		"created_at":  b.CreatedAt,
	})
}

// Cancel handles POST /v1/bookings/:id/cancel.  Ownership is checked
// before the controller runs; the response names the next waitlisted
// user without promoting them.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx := c.Request().Context()
	b, _, err := h.Bookings.GetForUser(ctx, id, uid, isAdmin(c))
	if errors.Is(err, booking.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.Status != model.BookingStatusConfirmed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not confirmed"})
	}

	res, err := h.Ctl.Cancel(ctx, id)
	if errors.Is(err, booking.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}

	resp := echo.Map{"status": "cancelled", "booking_id": res.BookingID}
	if res.NextWaitlistUserID != 0 {
		resp["next_waitlist_user_id"] = res.NextWaitlistUserID
	}
	return c.JSON(http.StatusOK, resp)
}
