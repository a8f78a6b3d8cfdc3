package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
)

// AvailabilityReader расчёт свободных слотов
type AvailabilityReader interface {
	GetAvailability(ctx context.Context) (*service.AvailabilityView, error)
}

// Bookings приём заявок и управление бронями
type Bookings interface {
	AcceptBooking(ctx context.Context, req service.BookingRequest) (*service.BookingResult, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	SetBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.Booking, error)
	RescheduleBooking(ctx context.Context, id uuid.UUID, newStartAt, meetingTypeID string) (*model.Booking, error)
}

// Schedule настройки расписания и закрытые интервалы
type Schedule interface {
	GetScheduleConfig(ctx context.Context) (model.ScheduleConfig, error)
	UpdateScheduleConfig(ctx context.Context, cfg model.ScheduleConfig) (*model.ScheduleConfig, error)
	ListBlockedRanges(ctx context.Context) ([]*model.BlockedRange, error)
	CreateBlockedRange(ctx context.Context, req service.BlockedRangeRequest) (*model.BlockedRange, error)
	DeleteBlockedRange(ctx context.Context, id uuid.UUID) error
}

// defaultListWindow окно списка броней, если from/to не переданы
const defaultListWindow = 31 * 24 * time.Hour

// Handler HTTP-обработчики публичных и админских маршрутов
type Handler struct {
	availability AvailabilityReader
	bookings     Bookings
	schedule     Schedule
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandler(availability AvailabilityReader, bookings Bookings, schedule Schedule, logger *zap.Logger) *Handler {
	return &Handler{
		availability: availability,
		bookings:     bookings,
		schedule:     schedule,
		now:          time.Now,
		logger:       logger,
	}
}

// GetAvailability GET /availability
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	view, err := h.availability.GetAvailability(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", view)
}

// CreateBooking POST /bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	res, err := h.bookings.AcceptBooking(r.Context(), req)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "booking confirmed", res)
}

// GetSchedule GET /admin/schedule
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.schedule.GetScheduleConfig(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", cfg)
}

// UpdateSchedule PUT /admin/schedule
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	// Без maxDaysAhead в теле берётся значение по умолчанию, явный 0 сохраняется
	cfg := model.ScheduleConfig{MaxDaysAhead: model.DefaultMaxDaysAhead}
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	saved, err := h.schedule.UpdateScheduleConfig(r.Context(), cfg)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "schedule updated", saved)
}

// ListBlockedRanges GET /admin/blocked-ranges
func (h *Handler) ListBlockedRanges(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.schedule.ListBlockedRanges(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if blocks == nil {
		blocks = []*model.BlockedRange{}
	}
	writeSuccess(w, http.StatusOK, "", blocks)
}

// CreateBlockedRange POST /admin/blocked-ranges
func (h *Handler) CreateBlockedRange(w http.ResponseWriter, r *http.Request) {
	var req service.BlockedRangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	block, err := h.schedule.CreateBlockedRange(r.Context(), req)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "blocked range created", block)
}

// DeleteBlockedRange DELETE /admin/blocked-ranges/{id}
func (h *Handler) DeleteBlockedRange(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.schedule.DeleteBlockedRange(r.Context(), id); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "blocked range deleted", nil)
}

// ListBookings GET /admin/bookings?from=&to=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.listWindow(r)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	bookings, err := h.bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	writeSuccess(w, http.StatusOK, "", bookings)
}

// GetBooking GET /admin/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", booking)
}

// CancelBooking POST /admin/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.CancelBooking(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "booking cancelled", booking)
}

type statusRequest struct {
	Status model.BookingStatus `json:"status"`
}

// SetBookingStatus POST /admin/bookings/{id}/status
func (h *Handler) SetBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	booking, err := h.bookings.SetBookingStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "booking updated", booking)
}

type rescheduleRequest struct {
	StartAt       string `json:"startAt"`
	MeetingTypeID string `json:"meetingTypeId"`
}

// RescheduleBooking POST /admin/bookings/{id}/reschedule
func (h *Handler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	booking, err := h.bookings.RescheduleBooking(r.Context(), id, req.StartAt, req.MeetingTypeID)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "booking rescheduled", booking)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, string(service.CodeInvalidInput), "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) listWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	from := h.now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &service.BookingError{Code: service.CodeInvalidInput, Message: "from must be an RFC 3339 instant", Err: err}
		}
		from = t
	}

	to := from.Add(defaultListWindow)
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &service.BookingError{Code: service.CodeInvalidInput, Message: "to must be an RFC 3339 instant", Err: err}
		}
		to = t
	}

	return from, to, nil
}
