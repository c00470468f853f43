package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/domain"
	"eventrsvp/internal/payments"
)

// RSVPRequest is the request body for POST /events/{eventID}/rsvp and
// POST /events/{eventID}/rsvp/guests. PaymentMode is only honored on paid
// events and defaults to card; FormData is required when the event has a
// subscription form and rejected when it does not.
type RSVPRequest struct {
	PaymentMode string            `json:"payment_mode,omitempty"`
	FormData    map[string]string `json:"form_data,omitempty"`
}

// Validate implements Validator.
func (r RSVPRequest) Validate() []string {
	var errs []string
	if r.PaymentMode != "" {
		if _, ok := payments.GetMode(r.PaymentMode); !ok {
			errs = append(errs, "unknown payment mode")
		}
	}
	return errs
}

// GuestCountRequest is the request body for PUT /events/{eventID}/rsvp/guests/count.
type GuestCountRequest struct {
	Guests int `json:"guests"`
}

// Validate implements Validator.
func (r GuestCountRequest) Validate() []string {
	if r.Guests < 0 {
		return []string{"guests must not be negative"}
	}
	return nil
}

// RSVPStatusResponse is the response body for GET /events/{eventID}/rsvp.
type RSVPStatusResponse struct {
	Participating bool         `json:"participating"`
	RSVP          *domain.RSVP `json:"rsvp,omitempty"`
}

// PaymentDueResponse is returned when a registration requires a payment: the
// client must take the person through the gateway flow for this payment.
type PaymentDueResponse struct {
	Payment *domain.Payment `json:"payment"`
}

type RSVPController struct {
	Logger      *slog.Logger
	RSVPs       domain.RSVPService
	Events      domain.EventService
	Submissions domain.FormSubmissionRepository
}

func NewRSVPController(logger *slog.Logger, rsvps domain.RSVPService, events domain.EventService, subs domain.FormSubmissionRepository) *RSVPController {
	return &RSVPController{
		Logger:      logger,
		RSVPs:       rsvps,
		Events:      events,
		Submissions: subs,
	}
}

// writeRegistrationError maps a recoverable registration failure to an HTTP
// response, using the failure's stable code in the error envelope. Returns
// false when err is not a RegistrationError.
func writeRegistrationError(w http.ResponseWriter, err error) bool {
	var regErr *domain.RegistrationError
	if !errors.As(err, &regErr) {
		return false
	}
	status := http.StatusBadRequest
	switch regErr {
	case domain.ErrEventFull, domain.ErrAlreadyRegistered, domain.ErrPaymentModeNotCancelable:
		status = http.StatusConflict
	case domain.ErrNotRegistered:
		status = http.StatusNotFound
	}
	helpers.WriteJSONError(w, status, regErr.Code, regErr.Message)
	return true
}

// loadEvent fetches the event for the request path, writing 404 on a missing
// event and 500 on storage failure. Returns nil when a response was written.
func (c *RSVPController) loadEvent(w http.ResponseWriter, r *http.Request) *domain.Event {
	event, err := c.Events.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return nil
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return nil
	}
	return event
}

// buildSubmission persists a form submission for the event's subscription
// form when form data was sent. Returns (nil, true) when the event has no
// form or no data was sent; the service layer enforces that the two match.
func (c *RSVPController) buildSubmission(w http.ResponseWriter, r *http.Request, event *domain.Event, personID string, data map[string]string) (*domain.FormSubmission, bool) {
	if event.SubscriptionForm == nil || data == nil {
		return nil, true
	}
	sub := &domain.FormSubmission{
		FormID:   event.SubscriptionForm.ID,
		PersonID: personID,
		Data:     data,
	}
	if err := c.Submissions.Create(r.Context(), sub); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return nil, false
	}
	return sub, true
}

// Register godoc
// @Summary Register for an event
// @Description Register the authenticated person. On a free event the registration is confirmed immediately and returned. On a paid event the response carries the payment to complete; confirmation happens when the gateway reports it.
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body RSVPRequest true "Registration data"
// @Success 201 {object} helpers.APIResponse "data contains the confirmed rsvp (free) or the pending payment (paid)"
// @Failure 400 {object} helpers.APIResponse "error.code: event_finished, submission_mismatch, ..."
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: event_full, already_registered"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvp [post]
func (c *RSVPController) Register(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req RSVPRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := c.loadEvent(w, r)
	if event == nil {
		return
	}
	submission, ok := c.buildSubmission(w, r, event, personID, req.FormData)
	if !ok {
		return
	}

	if event.IsFree() {
		rsvp, err := c.RSVPs.RSVPToFreeEvent(r.Context(), event, personID, submission)
		if err != nil {
			if writeRegistrationError(w, err) {
				return
			}
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
			return
		}
		helpers.WriteJSONSuccess(w, http.StatusCreated, rsvp)
		return
	}

	mode := req.PaymentMode
	if mode == "" {
		mode = payments.DefaultMode
	}
	payment, err := c.RSVPs.RSVPToPaidEvent(r.Context(), event, personID, mode, submission)
	if err != nil {
		if writeRegistrationError(w, err) {
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, PaymentDueResponse{Payment: payment})
}

// Quit godoc
// @Summary Withdraw from an event
// @Description Withdraw the authenticated person's registration. Allowed while the event has not ended, whatever the registration status.
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains {\"quit\": true}"
// @Failure 400 {object} helpers.APIResponse "error.code: event_finished"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found, not_registered"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvp [delete]
func (c *RSVPController) Quit(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := c.loadEvent(w, r)
	if event == nil {
		return
	}
	if err := c.RSVPs.Quit(r.Context(), event, personID); err != nil {
		if writeRegistrationError(w, err) {
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"quit": true})
}

// GetRegistration godoc
// @Summary Get the caller's registration for an event
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains participating and, when registered, the rsvp"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvp [get]
func (c *RSVPController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := c.loadEvent(w, r)
	if event == nil {
		return
	}
	rsvp, err := c.RSVPs.GetRegistration(r.Context(), event.ID, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONSuccess(w, http.StatusOK, RSVPStatusResponse{Participating: false})
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RSVPStatusResponse{Participating: rsvp.IsParticipating(), RSVP: rsvp})
}

// AddGuest godoc
// @Summary Add an identified guest
// @Description Add an individually tracked guest to the authenticated person's registration. On a paid event the response carries the payment for the guest's seat; resending the same submission returns the same pending payment instead of creating a second guest.
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body RSVPRequest true "Guest data"
// @Success 201 {object} helpers.APIResponse "data contains the guest (free) or the pending payment (paid)"
// @Failure 400 {object} helpers.APIResponse "error.code: guests_not_allowed, submission_mismatch, ..."
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found, not_registered"
// @Failure 409 {object} helpers.APIResponse "error.code: event_full"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvp/guests [post]
func (c *RSVPController) AddGuest(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req RSVPRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := c.loadEvent(w, r)
	if event == nil {
		return
	}
	submission, ok := c.buildSubmission(w, r, event, personID, req.FormData)
	if !ok {
		return
	}

	if event.IsFree() {
		guest, err := c.RSVPs.AddFreeIdentifiedGuest(r.Context(), event, personID, submission)
		if err != nil {
			if writeRegistrationError(w, err) {
				return
			}
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
			return
		}
		helpers.WriteJSONSuccess(w, http.StatusCreated, guest)
		return
	}

	mode := req.PaymentMode
	if mode == "" {
		mode = payments.DefaultMode
	}
	payment, err := c.RSVPs.AddPaidIdentifiedGuest(r.Context(), event, personID, mode, submission)
	if err != nil {
		if writeRegistrationError(w, err) {
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, PaymentDueResponse{Payment: payment})
}

// SetGuestCount godoc
// @Summary Set the anonymous guest count
// @Description Set the number of unnamed extra guests on the authenticated person's confirmed registration. Only available on free events without a subscription form.
// @Tags rsvp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body GuestCountRequest true "Guest count"
// @Success 200 {object} helpers.APIResponse "data contains the updated rsvp"
// @Failure 400 {object} helpers.APIResponse "error.code: guests_not_allowed, individual_guests_required, ..."
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found, not_registered"
// @Failure 409 {object} helpers.APIResponse "error.code: event_full"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvp/guests/count [put]
func (c *RSVPController) SetGuestCount(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req GuestCountRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := c.loadEvent(w, r)
	if event == nil {
		return
	}
	rsvp, err := c.RSVPs.SetGuestNumber(r.Context(), event, personID, req.Guests)
	if err != nil {
		if writeRegistrationError(w, err) {
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rsvp)
}

// GetMeeting godoc
// @Summary Get the caller's online meeting room for an event
// @Description Return the Jitsi meeting assigned to the authenticated person's registration, assigning one if needed. Requires a participating registration.
// @Tags rsvp
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the meeting"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvp/meeting [get]
func (c *RSVPController) GetMeeting(w http.ResponseWriter, r *http.Request) {
	personID, ok := middleware.PersonIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := c.loadEvent(w, r)
	if event == nil {
		return
	}
	rsvp, err := c.RSVPs.GetRegistration(r.Context(), event.ID, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "no registration for this event")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	if !rsvp.IsParticipating() {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "registration is not active")
		return
	}
	meeting, err := c.RSVPs.AssignJitsiMeeting(r.Context(), rsvp)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, meeting)
}
