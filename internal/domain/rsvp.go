package domain

import (
	"context"
	"time"
)

// RSVPStatus is the lifecycle status of a registration. IdentifiedGuest shares
// the same status set.
type RSVPStatus string

const (
	RSVPStatusAwaitingPayment RSVPStatus = "awaiting_payment"
	RSVPStatusConfirmed       RSVPStatus = "confirmed"
	RSVPStatusCanceled        RSVPStatus = "canceled"
)

// RSVP represents one person's registration for one event. There is at most
// one RSVP per (event, person) pair; a canceled row is reused on
// re-registration instead of being replaced.
// swagger:model RSVP
type RSVP struct {
	ID       string     `json:"id"`
	EventID  string     `json:"event_id"`
	PersonID string     `json:"person_id"`
	Status   RSVPStatus `json:"status"`

	// Guests counts anonymous additional attendees. Only used for free events
	// without a subscription form; form-gated events track guests individually
	// as IdentifiedGuest rows.
	Guests int `json:"guests"`

	// FormSubmissionID is set exactly when the event defines a subscription form.
	FormSubmissionID *string `json:"form_submission_id,omitempty"`
	// PaymentID is set when the event is not free.
	PaymentID *string `json:"payment_id,omitempty"`
	// JitsiMeetingID is the assigned online meeting room, if any.
	JitsiMeetingID *string `json:"jitsi_meeting_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsParticipating reports whether the registration currently counts towards
// the event's attendance.
func (r *RSVP) IsParticipating() bool {
	return r.Status == RSVPStatusConfirmed || r.Status == RSVPStatusAwaitingPayment
}

// IdentifiedGuest is an additional, individually tracked attendee brought by
// an existing registrant. The (rsvp, submission) pair is unique so that a
// retried "add guest" request cannot create a duplicate.
// swagger:model IdentifiedGuest
type IdentifiedGuest struct {
	ID           string     `json:"id"`
	RSVPID       string     `json:"rsvp_id"`
	SubmissionID *string    `json:"submission_id,omitempty"`
	Status       RSVPStatus `json:"status"`
	PaymentID    *string    `json:"payment_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// JitsiMeeting is an online meeting room assigned to registrations of an event.
type JitsiMeeting struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
	Members int    `json:"members"`
}

// RegistrationStore is the persistence boundary of the registration core.
//
// All mutating flows run inside InTx: the transaction re-reads the RSVP row
// with a row-level lock, so concurrent attempts by the same person for the
// same event are serialized. Capacity across different persons is checked but
// not serialized (see the RSVP service).
type RegistrationStore interface {
	// InTx runs fn inside a single database transaction and commits if fn
	// returns nil. Any error from fn rolls the transaction back.
	InTx(ctx context.Context, fn func(tx RegistrationTx) error) error

	GetByEventAndPerson(ctx context.Context, eventID, personID string) (*RSVP, error)
	// ParticipantCount returns SUM(1 + guests) over non-canceled registrations.
	ParticipantCount(ctx context.Context, eventID string) (int, error)
	ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*RSVP, error)
	ListByPerson(ctx context.Context, personID string) ([]*RSVP, error)

	// Reverse lookups used by payment reconciliation.
	RSVPByPaymentID(ctx context.Context, paymentID string) (*RSVP, error)
	GuestByPaymentID(ctx context.Context, paymentID string) (*IdentifiedGuest, error)
}

// RegistrationTx is the transactional view of the store.
type RegistrationTx interface {
	// RSVPForUpdate loads the registration row with a row-level lock, or
	// ErrNotFound when the person has never registered.
	RSVPForUpdate(ctx context.Context, eventID, personID string) (*RSVP, error)
	CreateRSVP(ctx context.Context, rsvp *RSVP) error
	UpdateRSVP(ctx context.Context, rsvp *RSVP) error
	DeleteRSVP(ctx context.Context, id string) error
	ParticipantCount(ctx context.Context, eventID string) (int, error)

	// CreateGuest returns ErrDuplicateGuest when a guest with the same
	// (rsvp, submission) pair already exists. Guests without a submission are
	// never duplicates.
	CreateGuest(ctx context.Context, guest *IdentifiedGuest) error
	UpdateGuest(ctx context.Context, guest *IdentifiedGuest) error
	GuestBySubmission(ctx context.Context, rsvpID string, submissionID *string) (*IdentifiedGuest, error)

	CreatePayment(ctx context.Context, payment *Payment) error
	UpdatePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)

	// Meeting room assignment.
	MeetingWithRoom(ctx context.Context, eventID string, maxMembers int) (*JitsiMeeting, error)
	CreateMeeting(ctx context.Context, meeting *JitsiMeeting) error
	SetRSVPMeeting(ctx context.Context, rsvpID, meetingID string) error
}

// RSVPService orchestrates registration state for events: the five external
// intents plus the simple guest counter of free form-less events.
type RSVPService interface {
	// RSVPToFreeEvent registers the person and confirms immediately.
	RSVPToFreeEvent(ctx context.Context, event *Event, personID string, submission *FormSubmission) (*RSVP, error)
	// RSVPToPaidEvent registers the person with status awaiting payment and
	// returns the Payment the caller must redirect to.
	RSVPToPaidEvent(ctx context.Context, event *Event, personID, modeID string, submission *FormSubmission) (*Payment, error)
	// AddFreeIdentifiedGuest adds an individually tracked guest to the
	// caller's existing registration on a free event.
	AddFreeIdentifiedGuest(ctx context.Context, event *Event, personID string, submission *FormSubmission) (*IdentifiedGuest, error)
	// AddPaidIdentifiedGuest adds a guest on a paid event and returns the
	// payment for the guest's seat.
	AddPaidIdentifiedGuest(ctx context.Context, event *Event, personID, modeID string, submission *FormSubmission) (*Payment, error)
	// SetGuestNumber sets the anonymous guest count on a free form-less event.
	SetGuestNumber(ctx context.Context, event *Event, personID string, guests int) (*RSVP, error)
	// Quit withdraws the person's registration while the event has not ended.
	Quit(ctx context.Context, event *Event, personID string) error

	// GetRegistration returns the person's registration for the event, in any
	// status. ErrNotFound when the person never registered.
	GetRegistration(ctx context.Context, eventID, personID string) (*RSVP, error)
	IsParticipant(ctx context.Context, eventID, personID string) (bool, error)
	AssignJitsiMeeting(ctx context.Context, rsvp *RSVP) (*JitsiMeeting, error)
}

// PaymentReconciler consumes a payment that reached a terminal status and
// applies the effect to the registration it was created for.
type PaymentReconciler interface {
	// HandleStatusChange must be safe to call more than once for the same
	// payment, and must not fail when no correlated record exists: it runs
	// inside the gateway's webhook request, which has to return 200.
	HandleStatusChange(ctx context.Context, payment *Payment) error
}
