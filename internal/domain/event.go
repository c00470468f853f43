package domain

import (
	"context"
	"time"
)

// Event represents a gathering people can register for. It is created and
// edited by organizers elsewhere; the registration core reads it and queries
// its participant count.
// swagger:model Event
type Event struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
	AllowGuests     bool      `json:"allow_guests"`

	// SubscriptionForm is nil when the event has no registration form.
	// When set, every registration (and every identified guest) must carry a
	// form submission.
	SubscriptionForm *SubscriptionForm `json:"subscription_form,omitempty"`

	// Payment is nil for free events.
	Payment *PaymentParameters `json:"payment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentParameters holds pricing for a paid event. BasePrice is in minor
// currency units (cents).
type PaymentParameters struct {
	BasePrice int64 `json:"base_price"`
}

// IsFree reports whether no payment is needed to attend.
func (e *Event) IsFree() bool {
	return e.Payment == nil
}

// IsPast reports whether the event has already ended at the given instant.
func (e *Event) IsPast(now time.Time) bool {
	return e.EndTime.Before(now)
}

// Price computes the price in minor currency units for the given submission
// data. Choice deltas from the subscription form's pricing rule are added to
// the base price. Free events always price to zero.
func (e *Event) Price(data map[string]string) int64 {
	if e.Payment == nil {
		return 0
	}
	price := e.Payment.BasePrice
	if e.SubscriptionForm != nil {
		price += e.SubscriptionForm.priceDelta(data)
	}
	if price < 0 {
		price = 0
	}
	return price
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
}

// EventService defines organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	// ListParticipants returns the non-canceled registrations for an event.
	ListParticipants(ctx context.Context, eventID string, limit, offset int) ([]*RSVP, error)
	// ParticipantCount returns SUM(1 + guests) over non-canceled registrations
	// plus non-canceled identified guests.
	ParticipantCount(ctx context.Context, eventID string) (int, error)
}
