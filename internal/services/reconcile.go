package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventrsvp/internal/domain"
)

type paymentReconciler struct {
	store         domain.RegistrationStore
	events        domain.EventRepository
	persons       domain.PersonRepository
	notifications domain.NotificationService
	cache         ParticipantCache
	logger        *slog.Logger
}

// NewPaymentReconciler creates the listener that applies terminal payment
// statuses back onto registrations and identified guests. It is registered as
// the status listener of the "event" payment type.
func NewPaymentReconciler(
	store domain.RegistrationStore,
	events domain.EventRepository,
	persons domain.PersonRepository,
	notifications domain.NotificationService,
	cache ParticipantCache,
	logger *slog.Logger,
) domain.PaymentReconciler {
	if cache == nil {
		cache = NoopParticipantCache{}
	}
	return &paymentReconciler{
		store:         store,
		events:        events,
		persons:       persons,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
	}
}

// HandleStatusChange runs inside webhook handling: the gateway delivers
// statuses at least once and retries on errors, so a missing correlated
// record is logged and swallowed rather than surfaced.
func (r *paymentReconciler) HandleStatusChange(ctx context.Context, payment *domain.Payment) error {
	if !payment.Status.IsTerminal() {
		r.logger.DebugContext(ctx, "ignoring non-terminal payment status",
			"payment_id", payment.ID, "status", payment.Status)
		return nil
	}

	if payment.Meta.Version == domain.MetaVersion2 {
		if payment.Meta.IsGuest {
			return r.reconcileGuest(ctx, payment)
		}
		return r.reconcileRSVP(ctx, payment)
	}
	return r.reconcileLegacy(ctx, payment)
}

func (r *paymentReconciler) reconcileRSVP(ctx context.Context, payment *domain.Payment) error {
	rsvp, err := r.store.RSVPByPaymentID(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.ErrorContext(ctx, "no registration for payment", "payment_id", payment.ID)
			return nil
		}
		return fmt.Errorf("find registration for payment: %w", err)
	}

	switch payment.Status {
	case domain.PaymentStatusCompleted:
		if rsvp.Status == domain.RSVPStatusConfirmed {
			return nil
		}
		if err := r.setRSVPStatus(ctx, rsvp, domain.RSVPStatusConfirmed); err != nil {
			return err
		}
		r.invalidateCount(ctx, rsvp.EventID)
		r.notifyConfirmed(rsvp.PersonID, payment.Meta.EventID)
		return nil
	default: // refused, canceled, abandoned
		if rsvp.Status == domain.RSVPStatusCanceled {
			return nil
		}
		if err := r.setRSVPStatus(ctx, rsvp, domain.RSVPStatusCanceled); err != nil {
			return err
		}
		r.invalidateCount(ctx, rsvp.EventID)
		return nil
	}
}

func (r *paymentReconciler) reconcileGuest(ctx context.Context, payment *domain.Payment) error {
	guest, err := r.store.GuestByPaymentID(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.ErrorContext(ctx, "no identified guest for payment", "payment_id", payment.ID)
			return nil
		}
		return fmt.Errorf("find guest for payment: %w", err)
	}

	var target domain.RSVPStatus
	if payment.Status == domain.PaymentStatusCompleted {
		target = domain.RSVPStatusConfirmed
	} else {
		target = domain.RSVPStatusCanceled
	}
	if guest.Status == target {
		return nil
	}

	err = r.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		guest.Status = target
		return tx.UpdateGuest(ctx, guest)
	})
	if err != nil {
		return fmt.Errorf("update guest status: %w", err)
	}

	r.invalidateCount(ctx, payment.Meta.EventID)
	if target == domain.RSVPStatusConfirmed {
		r.notifyGuest(payment.PersonID, payment.Meta.EventID)
	}
	return nil
}

// reconcileLegacy handles payments created before identified guests existed:
// their metadata carries no version tag. A completed payment for a person who
// already holds a registration meant "one more guest", not a duplicate.
func (r *paymentReconciler) reconcileLegacy(ctx context.Context, payment *domain.Payment) error {
	if payment.Status != domain.PaymentStatusCompleted {
		return nil
	}

	// At-least-once delivery: if this payment already produced a row, the
	// report was applied before.
	if _, err := r.store.RSVPByPaymentID(ctx, payment.ID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("find registration for payment: %w", err)
	}
	if _, err := r.store.GuestByPaymentID(ctx, payment.ID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("find guest for payment: %w", err)
	}

	event, err := r.events.GetByID(ctx, payment.Meta.EventID)
	if err != nil {
		r.logger.ErrorContext(ctx, "no event for legacy payment",
			"payment_id", payment.ID, "event_id", payment.Meta.EventID)
		return nil
	}
	if event.SubscriptionForm != nil && payment.Meta.SubmissionID == nil {
		r.logger.ErrorContext(ctx, "legacy payment without submission for form event",
			"payment_id", payment.ID, "event_id", event.ID)
		return nil
	}

	err = r.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		rsvp, err := tx.RSVPForUpdate(ctx, event.ID, payment.PersonID)
		if errors.Is(err, domain.ErrNotFound) {
			now := time.Now()
			rsvp = &domain.RSVP{
				EventID:          event.ID,
				PersonID:         payment.PersonID,
				Status:           domain.RSVPStatusConfirmed,
				FormSubmissionID: payment.Meta.SubmissionID,
				PaymentID:        &payment.ID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			return tx.CreateRSVP(ctx, rsvp)
		}
		if err != nil {
			return fmt.Errorf("get registration: %w", err)
		}

		// Existing registration: the payment was for one more guest.
		guest := &domain.IdentifiedGuest{
			RSVPID:       rsvp.ID,
			SubmissionID: payment.Meta.SubmissionID,
			Status:       domain.RSVPStatusConfirmed,
			PaymentID:    &payment.ID,
			CreatedAt:    time.Now(),
		}
		if err := tx.CreateGuest(ctx, guest); err != nil && !errors.Is(err, domain.ErrDuplicateGuest) {
			return fmt.Errorf("create guest: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply legacy payment: %w", err)
	}

	r.invalidateCount(ctx, event.ID)
	r.notifyConfirmed(payment.PersonID, event.ID)
	return nil
}

func (r *paymentReconciler) setRSVPStatus(ctx context.Context, rsvp *domain.RSVP, status domain.RSVPStatus) error {
	err := r.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		locked, err := tx.RSVPForUpdate(ctx, rsvp.EventID, rsvp.PersonID)
		if err != nil {
			return err
		}
		locked.Status = status
		locked.UpdatedAt = time.Now()
		return tx.UpdateRSVP(ctx, locked)
	})
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	rsvp.Status = status
	return nil
}

func (r *paymentReconciler) invalidateCount(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}
	if err := r.cache.Invalidate(ctx, eventID); err != nil {
		r.logger.WarnContext(ctx, "invalidate participant count cache", "event_id", eventID, "err", err)
	}
}

func (r *paymentReconciler) notifyConfirmed(personID, eventID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		person, err := r.persons.GetByID(ctx, personID)
		if err != nil {
			r.logger.Error("load person for rsvp notification", "person_id", personID, "err", err)
			return
		}
		event, err := r.events.GetByID(ctx, eventID)
		if err != nil {
			r.logger.Error("load event for rsvp notification", "event_id", eventID, "err", err)
			return
		}
		data := &domain.RSVPConfirmationData{
			Email:      person.Email,
			FirstName:  person.FirstName,
			EventName:  event.Name,
			EventStart: event.StartTime.Format(time.RFC1123),
		}
		if err := r.notifications.SendRSVPConfirmation(ctx, data); err != nil {
			r.logger.Error("send rsvp confirmation", "person_id", personID, "event_id", eventID, "err", err)
		}
	}()
}

func (r *paymentReconciler) notifyGuest(personID, eventID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		person, err := r.persons.GetByID(ctx, personID)
		if err != nil {
			r.logger.Error("load person for guest notification", "person_id", personID, "err", err)
			return
		}
		event, err := r.events.GetByID(ctx, eventID)
		if err != nil {
			r.logger.Error("load event for guest notification", "event_id", eventID, "err", err)
			return
		}
		data := &domain.GuestConfirmationData{
			Email:     person.Email,
			FirstName: person.FirstName,
			EventName: event.Name,
		}
		if err := r.notifications.SendGuestConfirmation(ctx, data); err != nil {
			r.logger.Error("send guest confirmation", "person_id", personID, "event_id", eventID, "err", err)
		}
	}()
}
