package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"eventrsvp/internal/domain"
)

func payment(mode string, status domain.PaymentStatus) *domain.Payment {
	return &domain.Payment{ID: "p1", Mode: mode, Status: status, Price: 2500}
}

func TestCanRetry(t *testing.T) {
	tests := []struct {
		name    string
		payment *domain.Payment
		want    bool
	}{
		{"waiting card", payment(ModeCard, domain.PaymentStatusWaiting), true},
		{"waiting check", payment(ModeCheck, domain.PaymentStatusWaiting), false},
		{"completed card", payment(ModeCard, domain.PaymentStatusCompleted), false},
		{"canceled card", payment(ModeCard, domain.PaymentStatusCanceled), false},
		{"unknown mode", payment("wire", domain.PaymentStatusWaiting), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRetry(tt.payment); got != tt.want {
				t.Errorf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanCancel(t *testing.T) {
	tests := []struct {
		name    string
		payment *domain.Payment
		want    bool
	}{
		{"waiting card", payment(ModeCard, domain.PaymentStatusWaiting), true},
		{"waiting check", payment(ModeCheck, domain.PaymentStatusWaiting), true},
		{"completed card", payment(ModeCard, domain.PaymentStatusCompleted), false},
		{"unknown mode", payment("wire", domain.PaymentStatusWaiting), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanCancel(tt.payment); got != tt.want {
				t.Errorf("CanCancel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func resetTypes(t *testing.T) {
	t.Helper()
	saved := types
	types = map[string]Type{}
	t.Cleanup(func() { types = saved })
}

func TestRegisterType(t *testing.T) {
	resetTypes(t)

	if err := RegisterType(Type{ID: "donation", Label: "Donation"}); err != nil {
		t.Fatalf("RegisterType() error = %v", err)
	}
	if _, ok := GetType("donation"); !ok {
		t.Fatal("GetType() did not find registered type")
	}
	if err := RegisterType(Type{ID: "donation"}); err == nil {
		t.Error("RegisterType() accepted a duplicate id")
	}
	if err := RegisterType(Type{}); err == nil {
		t.Error("RegisterType() accepted an empty id")
	}
}

func TestNotifyStatusChange(t *testing.T) {
	resetTypes(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen *domain.Payment
	listenerErr := errors.New("listener failed")
	err := RegisterType(Type{
		ID: "event",
		StatusListener: func(_ context.Context, p *domain.Payment) error {
			seen = p
			return listenerErr
		},
	})
	if err != nil {
		t.Fatalf("RegisterType() error = %v", err)
	}

	p := payment(ModeCard, domain.PaymentStatusCompleted)
	p.Type = "event"
	if err := NotifyStatusChange(context.Background(), logger, p); !errors.Is(err, listenerErr) {
		t.Errorf("NotifyStatusChange() error = %v, want %v", err, listenerErr)
	}
	if seen != p {
		t.Error("listener did not receive the payment")
	}

	p.Type = "unknown"
	if err := NotifyStatusChange(context.Background(), logger, p); err != nil {
		t.Errorf("NotifyStatusChange() for unknown type = %v, want nil", err)
	}
}

func TestDescribePayment(t *testing.T) {
	resetTypes(t)

	err := RegisterType(Type{
		ID:                   "event",
		DescriptionGenerator: func(p *domain.Payment) string { return "Registration" },
	})
	if err != nil {
		t.Fatalf("RegisterType() error = %v", err)
	}

	p := payment(ModeCard, domain.PaymentStatusWaiting)
	p.Type = "event"
	if got := DescribePayment(p); got != "Registration" {
		t.Errorf("DescribePayment() = %q", got)
	}

	p.Type = "unknown"
	if got := DescribePayment(p); got != "Payment of 25.00" {
		t.Errorf("DescribePayment() fallback = %q", got)
	}
}
