package event

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/transport"
	"github.com/go-chi/chi"
)

// Handler serves /admin/events and /admin/calendar.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type listView struct {
	Events []Event `json:"events"`
	Stale  bool    `json:"stale"`
}

type calendarView struct {
	Month
	Upcoming []Event `json:"upcoming"`
	Stale    bool    `json:"stale"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.Service.Load(r.Context(), Filter{Status: Status(q.Get("status")), Type: Type(q.Get("type"))})
	if errors.Is(err, context.Canceled) {
		return
	}
	h.WriteJSON(w, http.StatusOK, listView{Events: h.Service.Events(), Stale: err != nil})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	ev, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"event": ev})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateEventDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	ev, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"event": ev})
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	var req statusRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}

	ev, err := h.Service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"event": ev})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Calendar renders ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := ParseMonth(r.URL.Query().Get("month"), h.Service.Today())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	grid, err := h.Service.Calendar(r.Context(), year, month)
	if errors.Is(err, context.Canceled) {
		return
	}
	h.WriteJSON(w, http.StatusOK, calendarView{Month: grid, Upcoming: h.Service.Upcoming(), Stale: err != nil})
}

// ParseMonth reads YYYY-MM. An empty value selects the month of today.
func ParseMonth(raw string, today time.Time) (int, time.Month, error) {
	if raw == "" {
		return today.Year(), today.Month(), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, internal.NewValidationFieldError("month", "month must be in YYYY-MM format", internal.ErrCodeInvalidInput)
	}
	return t.Year(), t.Month(), nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError("id", "id must be a positive integer", internal.ErrCodeInvalidInput)
	}
	return id, nil
}
