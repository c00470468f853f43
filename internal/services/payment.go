package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventrsvp/internal/domain"
)

// createPaymentInTx inserts a waiting payment inside the registration
// transaction. The metadata bag is stored as-is and round-trips unchanged to
// the reconciler.
func createPaymentInTx(ctx context.Context, tx domain.RegistrationTx, personID, typ, mode string, price int64, meta domain.PaymentMeta) (*domain.Payment, error) {
	now := time.Now()
	payment := &domain.Payment{
		PersonID:  personID,
		Type:      typ,
		Mode:      mode,
		Price:     price,
		Status:    domain.PaymentStatusWaiting,
		Meta:      meta,
		GatewayID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

// cancelPaymentInTx cancels a pending payment inside the registration
// transaction. A completed payment can no longer be canceled.
func cancelPaymentInTx(ctx context.Context, tx domain.RegistrationTx, payment *domain.Payment) error {
	if payment.Status == domain.PaymentStatusCompleted {
		return domain.ErrPaymentAlreadyCompleted
	}
	payment.Status = domain.PaymentStatusCanceled
	payment.UpdatedAt = time.Now()
	if err := tx.UpdatePayment(ctx, payment); err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}
	return nil
}

type paymentService struct {
	payments domain.PaymentRepository
}

// NewPaymentService creates the webhook-side payment status writer.
func NewPaymentService(payments domain.PaymentRepository) domain.PaymentService {
	return &paymentService{payments: payments}
}

func (s *paymentService) Complete(ctx context.Context, payment *domain.Payment) error {
	switch payment.Status {
	case domain.PaymentStatusCanceled:
		return domain.ErrPaymentAlreadyCanceled
	case domain.PaymentStatusCompleted:
		return nil
	}
	if err := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCompleted); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	payment.Status = domain.PaymentStatusCompleted
	return nil
}

func (s *paymentService) Cancel(ctx context.Context, payment *domain.Payment) error {
	switch payment.Status {
	case domain.PaymentStatusCompleted:
		return domain.ErrPaymentAlreadyCompleted
	case domain.PaymentStatusCanceled:
		return nil
	}
	if err := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCanceled); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	payment.Status = domain.PaymentStatusCanceled
	return nil
}

func (s *paymentService) MarkTerminal(ctx context.Context, payment *domain.Payment, status domain.PaymentStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal payment status", domain.ErrInvalidInput, status)
	}
	switch status {
	case domain.PaymentStatusCompleted:
		return s.Complete(ctx, payment)
	case domain.PaymentStatusCanceled:
		return s.Cancel(ctx, payment)
	}
	if payment.Status == status {
		return nil
	}
	if payment.Status == domain.PaymentStatusCompleted {
		return domain.ErrPaymentAlreadyCompleted
	}
	if err := s.payments.UpdateStatus(ctx, payment.ID, status); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	payment.Status = status
	return nil
}
