package domain

import (
	"context"
	"time"
)

// PaymentStatus is the lifecycle status of a payment as reported by the
// payment gateway.
type PaymentStatus string

const (
	PaymentStatusWaiting   PaymentStatus = "waiting"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusAbandoned PaymentStatus = "abandoned"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusRefused   PaymentStatus = "refused"
)

// IsTerminal reports whether the gateway will not change this status again.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusAbandoned, PaymentStatusCanceled, PaymentStatusRefused:
		return true
	}
	return false
}

// PaymentMeta is the correlation bag attached to a payment at creation time.
// It round-trips unchanged through the gateway and is the sole mechanism used
// during reconciliation to locate the registration or guest the payment was
// created for.
//
// Version "2" is the current schema. Payments created before identified
// guests existed carry no version tag ("version 1") and are handled by a
// compatibility branch in the reconciler.
type PaymentMeta struct {
	Version      string  `json:"version,omitempty"`
	EventID      string  `json:"event_id"`
	EventName    string  `json:"event_name,omitempty"`
	SubmissionID *string `json:"submission_id"`
	IsGuest      bool    `json:"is_guest"`
}

// MetaVersion2 tags metadata written by the current registration flow.
const MetaVersion2 = "2"

// Payment represents one payment attempt. Price is in minor currency units.
// swagger:model Payment
type Payment struct {
	ID       string        `json:"id"`
	PersonID string        `json:"person_id"`
	Type     string        `json:"type"` // payment type tag, e.g. "event"
	Mode     string        `json:"mode"` // payment mode id, e.g. "card"
	Price    int64         `json:"price"`
	Status   PaymentStatus `json:"status"`
	Meta     PaymentMeta   `json:"meta"`

	// GatewayID is the correlation id shared with the payment gateway; the
	// webhook identifies the payment by it.
	GatewayID string `json:"gateway_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentRepository defines storage operations for payments outside the
// registration transaction (webhook-side lookups and status writes).
type PaymentRepository interface {
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*Payment, error)
	UpdateStatus(ctx context.Context, id string, status PaymentStatus) error
}

// PaymentService applies gateway status reports to stored payments.
type PaymentService interface {
	// Complete marks the payment completed. Fails with
	// ErrPaymentAlreadyCanceled when the payment was canceled first.
	Complete(ctx context.Context, payment *Payment) error
	// Cancel marks the payment canceled. Fails with
	// ErrPaymentAlreadyCompleted when the payment already went through.
	Cancel(ctx context.Context, payment *Payment) error
	// MarkTerminal records a terminal gateway status (refused, abandoned, ...).
	MarkTerminal(ctx context.Context, payment *Payment, status PaymentStatus) error
}
