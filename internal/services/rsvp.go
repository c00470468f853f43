package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventrsvp/internal/domain"
	"eventrsvp/internal/payments"
)

// EventPaymentType is the payment type tag attached to every payment created
// by the registration flow. The reconciler is registered under this tag.
const EventPaymentType = "event"

const notifyTimeout = 10 * time.Second

type rsvpService struct {
	store         domain.RegistrationStore
	persons       domain.PersonRepository
	notifications domain.NotificationService
	cache         ParticipantCache
	logger        *slog.Logger
	groupSize     int
}

// NewRSVPService creates the registration state machine. cache may be nil;
// groupSize bounds the members of an auto-assigned meeting room.
func NewRSVPService(
	store domain.RegistrationStore,
	persons domain.PersonRepository,
	notifications domain.NotificationService,
	cache ParticipantCache,
	logger *slog.Logger,
	groupSize int,
) domain.RSVPService {
	if cache == nil {
		cache = NoopParticipantCache{}
	}
	return &rsvpService{
		store:         store,
		persons:       persons,
		notifications: notifications,
		cache:         cache,
		logger:        logger,
		groupSize:     groupSize,
	}
}

// ensureCanAttend applies the capacity policy for `additional` new attendees.
// The check is advisory: the participant count is not serialized across
// different persons, so two admissions racing at exactly the cap can both
// succeed. Same-person attempts are serialized by the row lock taken before
// this runs.
func (s *rsvpService) ensureCanAttend(ctx context.Context, tx domain.RegistrationTx, event *domain.Event, additional int) error {
	if event.IsPast(time.Now()) {
		return domain.ErrEventFinished
	}
	if event.MaxParticipants == nil || additional <= 0 {
		return nil
	}
	count, err := tx.ParticipantCount(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("count participants: %w", err)
	}
	if count+additional > *event.MaxParticipants {
		return domain.ErrEventFull
	}
	return nil
}

// getRSVPForEvent loads or prepares the registration row for a new attempt.
// The row is read with a row-level lock so that concurrent duplicate requests
// by the same person are serialized. Idempotent unless already confirmed.
func (s *rsvpService) getRSVPForEvent(ctx context.Context, tx domain.RegistrationTx, event *domain.Event, personID string, submission *domain.FormSubmission, paying bool) (*domain.RSVP, error) {
	if (event.SubscriptionForm == nil) != (submission == nil) {
		return nil, domain.ErrSubmissionMismatch
	}

	rsvp, err := tx.RSVPForUpdate(ctx, event.ID, personID)
	switch {
	case err == nil:
		if rsvp.Status == domain.RSVPStatusConfirmed {
			return nil, domain.ErrAlreadyRegistered
		}
		if rsvp.Status == domain.RSVPStatusCanceled {
			// Re-registering after cancellation counts as a new attendee.
			if err := s.ensureCanAttend(ctx, tx, event, 1); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, domain.ErrNotFound):
		if err := s.ensureCanAttend(ctx, tx, event, 1); err != nil {
			return nil, err
		}
		now := time.Now()
		rsvp = &domain.RSVP{EventID: event.ID, PersonID: personID, CreatedAt: now}
	default:
		return nil, fmt.Errorf("get registration: %w", err)
	}

	if paying {
		rsvp.Status = domain.RSVPStatusAwaitingPayment
	} else {
		rsvp.Status = domain.RSVPStatusConfirmed
	}
	if submission != nil {
		rsvp.FormSubmissionID = &submission.ID
	} else {
		rsvp.FormSubmissionID = nil
	}
	return rsvp, nil
}

func saveRSVP(ctx context.Context, tx domain.RegistrationTx, rsvp *domain.RSVP) error {
	rsvp.UpdatedAt = time.Now()
	if rsvp.ID == "" {
		return tx.CreateRSVP(ctx, rsvp)
	}
	return tx.UpdateRSVP(ctx, rsvp)
}

func paymentMeta(event *domain.Event, submission *domain.FormSubmission, isGuest bool) domain.PaymentMeta {
	meta := domain.PaymentMeta{
		Version:   domain.MetaVersion2,
		EventID:   event.ID,
		EventName: event.Name,
		IsGuest:   isGuest,
	}
	if submission != nil {
		meta.SubmissionID = &submission.ID
	}
	return meta
}

func (s *rsvpService) RSVPToFreeEvent(ctx context.Context, event *domain.Event, personID string, submission *domain.FormSubmission) (*domain.RSVP, error) {
	if !event.IsFree() {
		return nil, domain.ErrEventNotFree
	}

	var rsvp *domain.RSVP
	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		var err error
		rsvp, err = s.getRSVPForEvent(ctx, tx, event, personID, submission, false)
		if err != nil {
			return err
		}
		return saveRSVP(ctx, tx, rsvp)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCount(ctx, event.ID)
	s.notifyRSVPConfirmed(rsvp.PersonID, event)
	return rsvp, nil
}

func (s *rsvpService) RSVPToPaidEvent(ctx context.Context, event *domain.Event, personID, modeID string, submission *domain.FormSubmission) (*domain.Payment, error) {
	if event.IsFree() {
		return nil, domain.ErrEventFree
	}
	if _, ok := payments.GetMode(modeID); !ok {
		return nil, fmt.Errorf("%w: unknown payment mode %q", domain.ErrInvalidInput, modeID)
	}

	var data map[string]string
	if submission != nil {
		data = submission.Data
	}
	price := event.Price(data)

	var payment *domain.Payment
	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		rsvp, err := s.getRSVPForEvent(ctx, tx, event, personID, submission, true)
		if err != nil {
			return err
		}

		if rsvp.PaymentID != nil {
			existing, err := tx.GetPayment(ctx, *rsvp.PaymentID)
			if err != nil {
				return fmt.Errorf("get existing payment: %w", err)
			}
			if existing.Mode == modeID && payments.CanRetry(existing) {
				// Same mode, still retryable: hand back the pending payment.
				payment = existing
				return nil
			}
			if !payments.CanCancel(existing) {
				return domain.ErrPaymentModeNotCancelable
			}
			if err := cancelPaymentInTx(ctx, tx, existing); err != nil {
				return err
			}
		}

		payment, err = createPaymentInTx(ctx, tx, personID, EventPaymentType, modeID, price, paymentMeta(event, submission, false))
		if err != nil {
			return err
		}
		rsvp.PaymentID = &payment.ID
		return saveRSVP(ctx, tx, rsvp)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCount(ctx, event.ID)
	return payment, nil
}

// addIdentifiedGuest validates the guest sub-flow and returns the parent
// registration plus the unsaved guest row.
func (s *rsvpService) addIdentifiedGuest(ctx context.Context, tx domain.RegistrationTx, event *domain.Event, personID string, submission *domain.FormSubmission, status domain.RSVPStatus) (*domain.RSVP, *domain.IdentifiedGuest, error) {
	if !event.AllowGuests {
		return nil, nil, domain.ErrGuestsNotAllowed
	}
	if (event.SubscriptionForm == nil) != (submission == nil) {
		return nil, nil, domain.ErrSubmissionMismatch
	}

	rsvp, err := tx.RSVPForUpdate(ctx, event.ID, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotRegistered
		}
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	if !rsvp.IsParticipating() {
		return nil, nil, domain.ErrNotRegistered
	}

	if err := s.ensureCanAttend(ctx, tx, event, 1); err != nil {
		return nil, nil, err
	}

	guest := &domain.IdentifiedGuest{
		RSVPID:    rsvp.ID,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if submission != nil {
		guest.SubmissionID = &submission.ID
	}
	return rsvp, guest, nil
}

func (s *rsvpService) AddFreeIdentifiedGuest(ctx context.Context, event *domain.Event, personID string, submission *domain.FormSubmission) (*domain.IdentifiedGuest, error) {
	var guest *domain.IdentifiedGuest
	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		var err error
		_, guest, err = s.addIdentifiedGuest(ctx, tx, event, personID, submission, domain.RSVPStatusConfirmed)
		if err != nil {
			return err
		}
		return tx.CreateGuest(ctx, guest)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCount(ctx, event.ID)
	s.notifyGuestConfirmed(personID, event)
	return guest, nil
}

func (s *rsvpService) AddPaidIdentifiedGuest(ctx context.Context, event *domain.Event, personID, modeID string, submission *domain.FormSubmission) (*domain.Payment, error) {
	if event.IsFree() {
		return nil, domain.ErrEventFree
	}
	if _, ok := payments.GetMode(modeID); !ok {
		return nil, fmt.Errorf("%w: unknown payment mode %q", domain.ErrInvalidInput, modeID)
	}

	var data map[string]string
	if submission != nil {
		data = submission.Data
	}
	price := event.Price(data)

	var payment *domain.Payment
	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		_, guest, err := s.addIdentifiedGuest(ctx, tx, event, personID, submission, domain.RSVPStatusAwaitingPayment)
		if err != nil {
			return err
		}
		payment, err = createPaymentInTx(ctx, tx, personID, EventPaymentType, modeID, price, paymentMeta(event, submission, true))
		if err != nil {
			return err
		}
		guest.PaymentID = &payment.ID
		return tx.CreateGuest(ctx, guest)
	})
	if errors.Is(err, domain.ErrDuplicateGuest) {
		// Retried request: the guest for this submission already exists, hand
		// back the payment created the first time around. Only fires when a
		// submission is attached; without one every request is a new seat.
		return s.existingGuestPayment(ctx, event.ID, personID, submission)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateCount(ctx, event.ID)
	return payment, nil
}

func (s *rsvpService) existingGuestPayment(ctx context.Context, eventID, personID string, submission *domain.FormSubmission) (*domain.Payment, error) {
	rsvp, err := s.store.GetByEventAndPerson(ctx, eventID, personID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	var subID *string
	if submission != nil {
		subID = &submission.ID
	}
	var payment *domain.Payment
	err = s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		guest, err := tx.GuestBySubmission(ctx, rsvp.ID, subID)
		if err != nil {
			return fmt.Errorf("get existing guest: %w", err)
		}
		if guest.PaymentID == nil {
			return fmt.Errorf("existing guest %s has no payment", guest.ID)
		}
		payment, err = tx.GetPayment(ctx, *guest.PaymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *rsvpService) SetGuestNumber(ctx context.Context, event *domain.Event, personID string, guests int) (*domain.RSVP, error) {
	if event.SubscriptionForm != nil || !event.IsFree() {
		return nil, domain.ErrIndividualGuestsRequired
	}
	if guests < 0 {
		return nil, fmt.Errorf("%w: guest count cannot be negative", domain.ErrInvalidInput)
	}

	var rsvp *domain.RSVP
	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		var err error
		rsvp, err = tx.RSVPForUpdate(ctx, event.ID, personID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotRegistered
			}
			return fmt.Errorf("get registration: %w", err)
		}
		if rsvp.Status != domain.RSVPStatusConfirmed {
			return domain.ErrNotRegistered
		}

		// Only the increase beyond the current count is a new admission;
		// lowering the count is always allowed.
		additional := guests - rsvp.Guests
		if additional < 0 {
			additional = 0
		}
		if err := s.ensureCanAttend(ctx, tx, event, additional); err != nil {
			return err
		}
		if additional > 0 && !event.AllowGuests {
			return domain.ErrGuestsNotAllowed
		}

		rsvp.Guests = guests
		return saveRSVP(ctx, tx, rsvp)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCount(ctx, event.ID)
	s.notifyGuestConfirmed(personID, event)
	return rsvp, nil
}

func (s *rsvpService) Quit(ctx context.Context, event *domain.Event, personID string) error {
	if event.IsPast(time.Now()) {
		return domain.ErrEventFinished
	}

	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		rsvp, err := tx.RSVPForUpdate(ctx, event.ID, personID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotRegistered
			}
			return fmt.Errorf("get registration: %w", err)
		}

		// Simple free registrations leave no audit trail worth keeping; rows
		// tied to a payment or a form submission are kept and canceled so the
		// money can be tracked for refunds.
		if event.IsFree() && rsvp.PaymentID == nil && rsvp.FormSubmissionID == nil {
			return tx.DeleteRSVP(ctx, rsvp.ID)
		}
		rsvp.Status = domain.RSVPStatusCanceled
		return saveRSVP(ctx, tx, rsvp)
	})
	if err != nil {
		return err
	}

	s.invalidateCount(ctx, event.ID)
	return nil
}

func (s *rsvpService) GetRegistration(ctx context.Context, eventID, personID string) (*domain.RSVP, error) {
	return s.store.GetByEventAndPerson(ctx, eventID, personID)
}

func (s *rsvpService) IsParticipant(ctx context.Context, eventID, personID string) (bool, error) {
	rsvp, err := s.store.GetByEventAndPerson(ctx, eventID, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get registration: %w", err)
	}
	return rsvp.IsParticipating(), nil
}

func (s *rsvpService) AssignJitsiMeeting(ctx context.Context, rsvp *domain.RSVP) (*domain.JitsiMeeting, error) {
	var meeting *domain.JitsiMeeting
	err := s.store.InTx(ctx, func(tx domain.RegistrationTx) error {
		var err error
		meeting, err = tx.MeetingWithRoom(ctx, rsvp.EventID, s.groupSize)
		if errors.Is(err, domain.ErrNotFound) {
			meeting = &domain.JitsiMeeting{
				EventID: rsvp.EventID,
				RoomID:  uuid.NewString(),
			}
			if err := tx.CreateMeeting(ctx, meeting); err != nil {
				return fmt.Errorf("create meeting: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("find meeting: %w", err)
		}
		return tx.SetRSVPMeeting(ctx, rsvp.ID, meeting.ID)
	})
	if err != nil {
		return nil, err
	}
	rsvp.JitsiMeetingID = &meeting.ID
	return meeting, nil
}

func (s *rsvpService) invalidateCount(ctx context.Context, eventID string) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.logger.WarnContext(ctx, "invalidate participant count cache", "event_id", eventID, "err", err)
	}
}

// notifyRSVPConfirmed sends the registration confirmation in the background.
// The registration transaction has already committed; a failed email must not
// undo it.
func (s *rsvpService) notifyRSVPConfirmed(personID string, event *domain.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		person, err := s.persons.GetByID(ctx, personID)
		if err != nil {
			s.logger.Error("load person for rsvp notification", "person_id", personID, "err", err)
			return
		}
		data := &domain.RSVPConfirmationData{
			Email:      person.Email,
			FirstName:  person.FirstName,
			EventName:  event.Name,
			EventStart: event.StartTime.Format(time.RFC1123),
		}
		if err := s.notifications.SendRSVPConfirmation(ctx, data); err != nil {
			s.logger.Error("send rsvp confirmation", "person_id", personID, "event_id", event.ID, "err", err)
		}
	}()
}

func (s *rsvpService) notifyGuestConfirmed(personID string, event *domain.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		person, err := s.persons.GetByID(ctx, personID)
		if err != nil {
			s.logger.Error("load person for guest notification", "person_id", personID, "err", err)
			return
		}
		data := &domain.GuestConfirmationData{
			Email:     person.Email,
			FirstName: person.FirstName,
			EventName: event.Name,
		}
		if err := s.notifications.SendGuestConfirmation(ctx, data); err != nil {
			s.logger.Error("send guest confirmation", "person_id", personID, "event_id", event.ID, "err", err)
		}
	}()
}
