package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name            string                   `json:"name"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	MaxParticipants *int                     `json:"max_participants,omitempty"`
	AllowGuests     bool                     `json:"allow_guests"`
	Form            *domain.SubscriptionForm `json:"subscription_form,omitempty"`
	BasePrice       *int64                   `json:"base_price,omitempty"` // cents; omit for a free event
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.StartTime.IsZero() {
		errs = append(errs, "start_time is required")
	}
	if c.EndTime.IsZero() {
		errs = append(errs, "end_time is required")
	}
	if !c.StartTime.IsZero() && !c.EndTime.IsZero() && c.EndTime.Before(c.StartTime) {
		errs = append(errs, "end_time must not be before start_time")
	}
	if c.MaxParticipants != nil && *c.MaxParticipants < 1 {
		errs = append(errs, "max_participants must be at least 1")
	}
	if c.BasePrice != nil && *c.BasePrice < 0 {
		errs = append(errs, "base_price must not be negative")
	}
	return errs
}

// ParticipantsResponse is the response body for GET /events/{eventID}/participants.
type ParticipantsResponse struct {
	Participants []*domain.RSVP         `json:"participants"`
	Pagination   helpers.PaginationMeta `json:"pagination"`
}

// ParticipantCountResponse is the response body for GET /events/{eventID}/participants/count.
type ParticipantCountResponse struct {
	EventID string `json:"event_id"`
	Count   int    `json:"count"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create an event. Include base_price (cents) to make it a paid event, and subscription_form to require a filled form on every registration.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := &domain.Event{
		Name:             strings.TrimSpace(req.Name),
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		MaxParticipants:  req.MaxParticipants,
		AllowGuests:      req.AllowGuests,
		SubscriptionForm: req.Form,
	}
	if req.BasePrice != nil {
		event.Payment = &domain.PaymentParameters{BasePrice: *req.BasePrice}
	}
	created, err := c.Service.CreateEvent(r.Context(), event)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, created)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events
// @Tags events
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains the event list"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ListEvents(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListParticipants godoc
// @Summary List event participants
// @Description List the non-canceled registrations for an event, paginated.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains participants and pagination"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants [get]
func (c *EventController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if _, err := c.Service.GetEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	p := helpers.ParsePagination(r)
	participants, err := c.Service.ListParticipants(r.Context(), eventID, p.Limit(), p.Offset())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ParticipantsResponse{
		Participants: participants,
		Pagination:   helpers.NewPaginationMeta(p, len(participants)),
	})
}

// ParticipantCount godoc
// @Summary Get the participant count for an event
// @Description Return the attendance total: each non-canceled registration counts for itself plus its guests, identified or not.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the count"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants/count [get]
func (c *EventController) ParticipantCount(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if _, err := c.Service.GetEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	count, err := c.Service.ParticipantCount(r.Context(), eventID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ParticipantCountResponse{EventID: eventID, Count: count})
}
