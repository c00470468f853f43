package payments

import (
	"context"
	"fmt"
	"log/slog"

	"eventrsvp/internal/domain"
)

// StatusListener is notified when a payment of the given type reaches a new
// status. Listeners run inside webhook handling and should degrade to logged
// no-ops instead of failing.
type StatusListener func(ctx context.Context, payment *domain.Payment) error

// DescriptionGenerator produces a human-readable description of a payment for
// receipts and the back office.
type DescriptionGenerator func(payment *domain.Payment) string

// Type binds a payment type tag to the handlers of the subsystem that created
// the payment.
type Type struct {
	ID                   string
	Label                string
	StatusListener       StatusListener
	DescriptionGenerator DescriptionGenerator
}

var types = map[string]Type{}

// RegisterType adds a payment type to the registry. It must only be called
// during process startup, before any webhook traffic; the registry is not
// synchronized.
func RegisterType(t Type) error {
	if t.ID == "" {
		return fmt.Errorf("payment type id is empty")
	}
	if _, exists := types[t.ID]; exists {
		return fmt.Errorf("payment type %q already registered", t.ID)
	}
	types[t.ID] = t
	return nil
}

// GetType returns the registered payment type with the given tag.
func GetType(id string) (Type, bool) {
	t, ok := types[id]
	return t, ok
}

// NotifyStatusChange dispatches a payment status change to the listener
// registered for the payment's type. Unknown types are logged and skipped.
func NotifyStatusChange(ctx context.Context, logger *slog.Logger, payment *domain.Payment) error {
	t, ok := types[payment.Type]
	if !ok || t.StatusListener == nil {
		logger.WarnContext(ctx, "no status listener for payment type",
			"payment_id", payment.ID, "type", payment.Type)
		return nil
	}
	return t.StatusListener(ctx, payment)
}

// DescribePayment renders the registered description for the payment, or a
// generic one when the type is unknown.
func DescribePayment(payment *domain.Payment) string {
	if t, ok := types[payment.Type]; ok && t.DescriptionGenerator != nil {
		return t.DescriptionGenerator(payment)
	}
	return fmt.Sprintf("Payment of %d.%02d", payment.Price/100, payment.Price%100)
}
