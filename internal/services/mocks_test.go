package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"eventrsvp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory RegistrationStore. The same value serves as the
// transaction view: InTx simply hands fn the store itself, which is enough
// for single-goroutine tests.
type memStore struct {
	rsvps    map[string]*domain.RSVP // key eventID:personID
	guests   []*domain.IdentifiedGuest
	payments map[string]*domain.Payment
	meetings []*domain.JitsiMeeting

	nextID int
	txErr  error // returned by InTx before running fn
}

func newMemStore() *memStore {
	return &memStore{
		rsvps:    map[string]*domain.RSVP{},
		payments: map[string]*domain.Payment{},
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%d", prefix, m.nextID)
}

func rsvpKey(eventID, personID string) string { return eventID + ":" + personID }

func (m *memStore) InTx(ctx context.Context, fn func(tx domain.RegistrationTx) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

func (m *memStore) GetByEventAndPerson(ctx context.Context, eventID, personID string) (*domain.RSVP, error) {
	if rsvp, ok := m.rsvps[rsvpKey(eventID, personID)]; ok {
		return rsvp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ParticipantCount(ctx context.Context, eventID string) (int, error) {
	count := 0
	active := map[string]bool{}
	for _, rsvp := range m.rsvps {
		if rsvp.EventID == eventID && rsvp.Status != domain.RSVPStatusCanceled {
			count += 1 + rsvp.Guests
			active[rsvp.ID] = true
		}
	}
	for _, g := range m.guests {
		if active[g.RSVPID] && g.Status != domain.RSVPStatusCanceled {
			count++
		}
	}
	return count, nil
}

func (m *memStore) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.RSVP, error) {
	var out []*domain.RSVP
	for _, rsvp := range m.rsvps {
		if rsvp.EventID == eventID && rsvp.Status != domain.RSVPStatusCanceled {
			out = append(out, rsvp)
		}
	}
	return out, nil
}

func (m *memStore) ListByPerson(ctx context.Context, personID string) ([]*domain.RSVP, error) {
	var out []*domain.RSVP
	for _, rsvp := range m.rsvps {
		if rsvp.PersonID == personID {
			out = append(out, rsvp)
		}
	}
	return out, nil
}

func (m *memStore) RSVPByPaymentID(ctx context.Context, paymentID string) (*domain.RSVP, error) {
	for _, rsvp := range m.rsvps {
		if rsvp.PaymentID != nil && *rsvp.PaymentID == paymentID {
			return rsvp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) GuestByPaymentID(ctx context.Context, paymentID string) (*domain.IdentifiedGuest, error) {
	for _, g := range m.guests {
		if g.PaymentID != nil && *g.PaymentID == paymentID {
			return g, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Transaction view.

func (m *memStore) RSVPForUpdate(ctx context.Context, eventID, personID string) (*domain.RSVP, error) {
	return m.GetByEventAndPerson(ctx, eventID, personID)
}

func (m *memStore) CreateRSVP(ctx context.Context, rsvp *domain.RSVP) error {
	rsvp.ID = m.id("r")
	m.rsvps[rsvpKey(rsvp.EventID, rsvp.PersonID)] = rsvp
	return nil
}

func (m *memStore) UpdateRSVP(ctx context.Context, rsvp *domain.RSVP) error {
	m.rsvps[rsvpKey(rsvp.EventID, rsvp.PersonID)] = rsvp
	return nil
}

func (m *memStore) DeleteRSVP(ctx context.Context, id string) error {
	for key, rsvp := range m.rsvps {
		if rsvp.ID == id {
			delete(m.rsvps, key)
			return nil
		}
	}
	return domain.ErrNotFound
}

func sameSubmission(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *memStore) CreateGuest(ctx context.Context, guest *domain.IdentifiedGuest) error {
	// The unique pair only bites when a submission is present; guests without
	// one are always distinct rows, as in postgres.
	if guest.SubmissionID != nil {
		for _, g := range m.guests {
			if g.RSVPID == guest.RSVPID && sameSubmission(g.SubmissionID, guest.SubmissionID) {
				return domain.ErrDuplicateGuest
			}
		}
	}
	guest.ID = m.id("g")
	m.guests = append(m.guests, guest)
	return nil
}

func (m *memStore) UpdateGuest(ctx context.Context, guest *domain.IdentifiedGuest) error {
	for i, g := range m.guests {
		if g.ID == guest.ID {
			m.guests[i] = guest
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) GuestBySubmission(ctx context.Context, rsvpID string, submissionID *string) (*domain.IdentifiedGuest, error) {
	for _, g := range m.guests {
		if g.RSVPID == rsvpID && sameSubmission(g.SubmissionID, submissionID) {
			return g, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	payment.ID = m.id("p")
	m.payments[payment.ID] = payment
	return nil
}

func (m *memStore) UpdatePayment(ctx context.Context, payment *domain.Payment) error {
	if _, ok := m.payments[payment.ID]; !ok {
		return domain.ErrNotFound
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *memStore) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	if p, ok := m.payments[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) MeetingWithRoom(ctx context.Context, eventID string, maxMembers int) (*domain.JitsiMeeting, error) {
	for _, meeting := range m.meetings {
		if meeting.EventID == eventID && meeting.Members < maxMembers {
			return meeting, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) CreateMeeting(ctx context.Context, meeting *domain.JitsiMeeting) error {
	meeting.ID = m.id("m")
	m.meetings = append(m.meetings, meeting)
	return nil
}

func (m *memStore) SetRSVPMeeting(ctx context.Context, rsvpID, meetingID string) error {
	for _, rsvp := range m.rsvps {
		if rsvp.ID == rsvpID {
			rsvp.JitsiMeetingID = &meetingID
		}
	}
	for _, meeting := range m.meetings {
		if meeting.ID == meetingID {
			meeting.Members++
		}
	}
	return nil
}

type mockPersonRepository struct {
	persons map[string]*domain.Person
}

func (m *mockPersonRepository) Create(ctx context.Context, person *domain.Person) error { return nil }

func (m *mockPersonRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	if p, ok := m.persons[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockPersonRepository) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	for _, p := range m.persons {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockEventRepo struct {
	events map[string]*domain.Event
}

func (m *mockEventRepo) Create(ctx context.Context, event *domain.Event) error { return nil }

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if ev, ok := m.events[id]; ok {
		return ev, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockEventRepo) List(ctx context.Context) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, ev := range m.events {
		out = append(out, ev)
	}
	return out, nil
}

// mockNotifications records sends; safe for the background notify goroutines.
type mockNotifications struct {
	mu         sync.Mutex
	rsvpSends  []*domain.RSVPConfirmationData
	guestSends []*domain.GuestConfirmationData
}

func (m *mockNotifications) SendRSVPConfirmation(ctx context.Context, data *domain.RSVPConfirmationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rsvpSends = append(m.rsvpSends, data)
	return nil
}

func (m *mockNotifications) SendGuestConfirmation(ctx context.Context, data *domain.GuestConfirmationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guestSends = append(m.guestSends, data)
	return nil
}

// mockCache records invalidations.
type mockCache struct {
	mu          sync.Mutex
	values      map[string]int
	invalidated []string
}

func (m *mockCache) Get(ctx context.Context, eventID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[eventID]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, eventID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]int{}
	}
	m.values[eventID] = count
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, eventID)
	m.invalidated = append(m.invalidated, eventID)
	return nil
}
