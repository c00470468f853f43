package domain

import "errors"

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// RegistrationError is a recoverable, user-facing registration failure.
// Code is a stable message key the delivery layer can translate; Message is a
// default English rendering.
type RegistrationError struct {
	Code    string
	Message string
}

func (e *RegistrationError) Error() string { return e.Message }

// Registration failure taxonomy. All are returned synchronously by the RSVP
// service and must be handled by the calling layer; none is an internal fault.
var (
	ErrEventFinished = &RegistrationError{
		Code:    "event_finished",
		Message: "this event has already ended",
	}
	ErrEventFull = &RegistrationError{
		Code:    "event_full",
		Message: "this event is full",
	}
	ErrAlreadyRegistered = &RegistrationError{
		Code:    "already_registered",
		Message: "you are already registered for this event",
	}
	ErrGuestsNotAllowed = &RegistrationError{
		Code:    "guests_not_allowed",
		Message: "this event does not allow guests",
	}
	ErrIndividualGuestsRequired = &RegistrationError{
		Code:    "individual_guests_required",
		Message: "this event requires guests to be registered individually",
	}
	ErrNotRegistered = &RegistrationError{
		Code:    "not_registered",
		Message: "you are not registered for this event",
	}
	ErrSubmissionMismatch = &RegistrationError{
		Code:    "submission_mismatch",
		Message: "there was a problem with the registration form, please try again",
	}
	ErrPaymentModeNotCancelable = &RegistrationError{
		Code:    "payment_mode_not_cancelable",
		Message: "this payment mode does not allow cancellation",
	}
	ErrEventNotFree = &RegistrationError{
		Code:    "event_not_free",
		Message: "this event is not free: a payment is required",
	}
	ErrEventFree = &RegistrationError{
		Code:    "event_free",
		Message: "this event is free: no payment is needed",
	}
)

// Payment sentinel errors.
var (
	ErrPaymentAlreadyCompleted = errors.New("payment has already been completed")
	ErrPaymentAlreadyCanceled  = errors.New("payment has already been canceled")
	// ErrDuplicateGuest is returned by the store when an identified guest with
	// the same (rsvp, submission) pair already exists. This is what makes guest
	// addition idempotent under retried requests.
	ErrDuplicateGuest = errors.New("identified guest already exists for this submission")
)
