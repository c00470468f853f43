// Package payments holds the static payment mode and payment type registries.
// Both maps are populated at process start and read-only afterwards.
package payments

import "eventrsvp/internal/domain"

// Mode describes a way of paying and what the gateway allows for it. A card
// payment can be re-submitted while waiting; a payment by check cannot be
// retried online.
type Mode struct {
	ID        string
	Label     string
	CanRetry  bool
	CanCancel bool
}

// Built-in payment modes.
const (
	ModeCard  = "card"
	ModeCheck = "check"
)

// DefaultMode is used when the caller does not specify one.
const DefaultMode = ModeCard

var modes = map[string]Mode{
	ModeCard:  {ID: ModeCard, Label: "Credit card", CanRetry: true, CanCancel: true},
	ModeCheck: {ID: ModeCheck, Label: "Payment by check", CanRetry: false, CanCancel: true},
}

// GetMode returns the mode with the given id.
func GetMode(id string) (Mode, bool) {
	m, ok := modes[id]
	return m, ok
}

// CanRetry reports whether the payment can be re-submitted as-is: its mode
// must be retryable and the payment still waiting.
func CanRetry(p *domain.Payment) bool {
	m, ok := modes[p.Mode]
	return ok && m.CanRetry && p.Status == domain.PaymentStatusWaiting
}

// CanCancel reports whether the payment can still be canceled.
func CanCancel(p *domain.Payment) bool {
	m, ok := modes[p.Mode]
	return ok && m.CanCancel && p.Status != domain.PaymentStatusCompleted
}
