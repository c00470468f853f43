package services

import (
	"context"
	"testing"
	"time"

	"eventrsvp/internal/domain"
)

func newTestReconciler(store *memStore, events map[string]*domain.Event) domain.PaymentReconciler {
	persons := &mockPersonRepository{persons: map[string]*domain.Person{
		"u1": {ID: "u1", Email: "u1@example.com", FirstName: "Ada"},
	}}
	return NewPaymentReconciler(store, &mockEventRepo{events: events}, persons, &mockNotifications{}, &mockCache{}, testLogger())
}

func v2Payment(id string, status domain.PaymentStatus, isGuest bool) *domain.Payment {
	return &domain.Payment{
		ID:       id,
		PersonID: "u1",
		Type:     EventPaymentType,
		Mode:     "card",
		Price:    1000,
		Status:   status,
		Meta: domain.PaymentMeta{
			Version:   domain.MetaVersion2,
			EventID:   "e1",
			EventName: "Paid event",
			IsGuest:   isGuest,
		},
	}
}

func legacyPayment(id string, status domain.PaymentStatus) *domain.Payment {
	p := v2Payment(id, status, false)
	p.Meta.Version = ""
	return p
}

func awaitingRSVP(store *memStore, paymentID string) *domain.RSVP {
	rsvp := &domain.RSVP{
		ID: "r1", EventID: "e1", PersonID: "u1",
		Status: domain.RSVPStatusAwaitingPayment, PaymentID: &paymentID,
	}
	store.rsvps[rsvpKey("e1", "u1")] = rsvp
	return rsvp
}

func TestReconcileRSVP(t *testing.T) {
	ctx := context.Background()

	t.Run("non-terminal status is ignored", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)
		rsvp := awaitingRSVP(store, "p1")

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusWaiting, false)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rsvp.Status != domain.RSVPStatusAwaitingPayment {
			t.Fatalf("registration must not change, got %s", rsvp.Status)
		}
	})

	t.Run("completed payment confirms the registration", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)
		awaitingRSVP(store, "p1")

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusCompleted, false)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := store.rsvps[rsvpKey("e1", "u1")].Status; got != domain.RSVPStatusConfirmed {
			t.Fatalf("expected confirmed, got %s", got)
		}
	})

	t.Run("redelivered completion is a no-op", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)
		awaitingRSVP(store, "p1")
		payment := v2Payment("p1", domain.PaymentStatusCompleted, false)

		if err := rec.HandleStatusChange(ctx, payment); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := rec.HandleStatusChange(ctx, payment); err != nil {
			t.Fatalf("unexpected error on redelivery: %v", err)
		}
		if got := store.rsvps[rsvpKey("e1", "u1")].Status; got != domain.RSVPStatusConfirmed {
			t.Fatalf("expected confirmed, got %s", got)
		}
	})

	t.Run("failed payment cancels the registration", func(t *testing.T) {
		for _, status := range []domain.PaymentStatus{
			domain.PaymentStatusRefused,
			domain.PaymentStatusCanceled,
			domain.PaymentStatusAbandoned,
		} {
			store := newMemStore()
			rec := newTestReconciler(store, nil)
			awaitingRSVP(store, "p1")

			if err := rec.HandleStatusChange(ctx, v2Payment("p1", status, false)); err != nil {
				t.Fatalf("%s: unexpected error: %v", status, err)
			}
			if got := store.rsvps[rsvpKey("e1", "u1")].Status; got != domain.RSVPStatusCanceled {
				t.Fatalf("%s: expected canceled, got %s", status, got)
			}
		}
	})

	t.Run("a completed payment does not reopen a canceled registration twice", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)
		rsvp := awaitingRSVP(store, "p1")
		rsvp.Status = domain.RSVPStatusCanceled

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusCanceled, false)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rsvp.Status != domain.RSVPStatusCanceled {
			t.Fatalf("expected canceled, got %s", rsvp.Status)
		}
	})

	t.Run("missing registration is swallowed", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusCompleted, false)); err != nil {
			t.Fatalf("reconciler must not fail the webhook, got %v", err)
		}
	})
}

func TestReconcileGuest(t *testing.T) {
	ctx := context.Background()

	addGuest := func(store *memStore, paymentID string, status domain.RSVPStatus) *domain.IdentifiedGuest {
		guest := &domain.IdentifiedGuest{
			ID: "g1", RSVPID: "r1", Status: status, PaymentID: &paymentID,
		}
		store.guests = append(store.guests, guest)
		return guest
	}

	t.Run("completed payment confirms the guest", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)
		guest := addGuest(store, "p1", domain.RSVPStatusAwaitingPayment)

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusCompleted, true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if guest.Status != domain.RSVPStatusConfirmed {
			t.Fatalf("expected confirmed guest, got %s", guest.Status)
		}
	})

	t.Run("failed payment cancels the guest", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)
		guest := addGuest(store, "p1", domain.RSVPStatusAwaitingPayment)

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusRefused, true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if guest.Status != domain.RSVPStatusCanceled {
			t.Fatalf("expected canceled guest, got %s", guest.Status)
		}
	})

	t.Run("missing guest is swallowed", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)

		if err := rec.HandleStatusChange(ctx, v2Payment("p1", domain.PaymentStatusCompleted, true)); err != nil {
			t.Fatalf("reconciler must not fail the webhook, got %v", err)
		}
	})
}

func TestReconcileLegacy(t *testing.T) {
	ctx := context.Background()
	events := func() map[string]*domain.Event {
		return map[string]*domain.Event{"e1": {
			ID:        "e1",
			Name:      "Paid event",
			StartTime: time.Now().Add(24 * time.Hour),
			EndTime:   time.Now().Add(26 * time.Hour),
			Payment:   &domain.PaymentParameters{BasePrice: 1000},
		}}
	}

	t.Run("completed payment without a registration creates one", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, events())

		if err := rec.HandleStatusChange(ctx, legacyPayment("p1", domain.PaymentStatusCompleted)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rsvp := store.rsvps[rsvpKey("e1", "u1")]
		if rsvp == nil || rsvp.Status != domain.RSVPStatusConfirmed {
			t.Fatalf("expected a confirmed registration, got %+v", rsvp)
		}
		if rsvp.PaymentID == nil || *rsvp.PaymentID != "p1" {
			t.Fatalf("registration not correlated to the payment")
		}
	})

	t.Run("completed payment with an existing registration adds a guest", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, events())
		store.rsvps[rsvpKey("e1", "u1")] = &domain.RSVP{
			ID: "r1", EventID: "e1", PersonID: "u1", Status: domain.RSVPStatusConfirmed,
		}

		if err := rec.HandleStatusChange(ctx, legacyPayment("p1", domain.PaymentStatusCompleted)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.guests) != 1 {
			t.Fatalf("expected one guest row, got %d", len(store.guests))
		}
		guest := store.guests[0]
		if guest.Status != domain.RSVPStatusConfirmed || guest.RSVPID != "r1" {
			t.Fatalf("unexpected guest: %+v", guest)
		}
		if guest.PaymentID == nil || *guest.PaymentID != "p1" {
			t.Fatalf("guest not correlated to the payment")
		}
	})

	t.Run("redelivery does not apply twice", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, events())
		payment := legacyPayment("p1", domain.PaymentStatusCompleted)

		if err := rec.HandleStatusChange(ctx, payment); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := rec.HandleStatusChange(ctx, payment); err != nil {
			t.Fatalf("unexpected error on redelivery: %v", err)
		}
		if len(store.rsvps) != 1 {
			t.Fatalf("expected a single registration, got %d", len(store.rsvps))
		}
		if len(store.guests) != 0 {
			t.Fatalf("redelivery must not add a guest, got %d", len(store.guests))
		}
	})

	t.Run("only completed legacy payments are applied", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, events())

		if err := rec.HandleStatusChange(ctx, legacyPayment("p1", domain.PaymentStatusRefused)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.rsvps) != 0 {
			t.Fatalf("refused legacy payment must not create rows")
		}
	})

	t.Run("missing event is swallowed", func(t *testing.T) {
		store := newMemStore()
		rec := newTestReconciler(store, nil)

		if err := rec.HandleStatusChange(ctx, legacyPayment("p1", domain.PaymentStatusCompleted)); err != nil {
			t.Fatalf("reconciler must not fail the webhook, got %v", err)
		}
		if len(store.rsvps) != 0 {
			t.Fatalf("no rows expected without an event")
		}
	})

	t.Run("form event without a submission is swallowed", func(t *testing.T) {
		store := newMemStore()
		evs := events()
		evs["e1"].SubscriptionForm = &domain.SubscriptionForm{ID: "f1"}
		rec := newTestReconciler(store, evs)

		if err := rec.HandleStatusChange(ctx, legacyPayment("p1", domain.PaymentStatusCompleted)); err != nil {
			t.Fatalf("reconciler must not fail the webhook, got %v", err)
		}
		if len(store.rsvps) != 0 {
			t.Fatalf("no rows expected without a submission")
		}
	})
}
