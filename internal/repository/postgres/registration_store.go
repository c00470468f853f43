package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eventrsvp/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type registrationStore struct {
	DB *sql.DB
}

// NewRegistrationStore returns the postgres-backed RegistrationStore.
func NewRegistrationStore(db *sql.DB) domain.RegistrationStore {
	return &registrationStore{DB: db}
}

func (s *registrationStore) InTx(ctx context.Context, fn func(tx domain.RegistrationTx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&registrationTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const rsvpColumns = `id, event_id, person_id, status, guests, form_submission_id, payment_id, jitsi_meeting_id, created_at, updated_at`

func scanRSVP(row *sql.Row) (*domain.RSVP, error) {
	r := &domain.RSVP{}
	var submissionID, paymentID, meetingID sql.NullString
	err := row.Scan(
		&r.ID, &r.EventID, &r.PersonID, &r.Status, &r.Guests,
		&submissionID, &paymentID, &meetingID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if submissionID.Valid {
		r.FormSubmissionID = &submissionID.String
	}
	if paymentID.Valid {
		r.PaymentID = &paymentID.String
	}
	if meetingID.Valid {
		r.JitsiMeetingID = &meetingID.String
	}
	return r, nil
}

func (s *registrationStore) GetByEventAndPerson(ctx context.Context, eventID, personID string) (*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND person_id = $2
	`
	return scanRSVP(s.DB.QueryRowContext(ctx, query, eventID, personID))
}

// countParticipants sums direct attendees and their anonymous guests, plus
// individually tracked guests, excluding everything canceled. A guest whose
// parent registration was canceled no longer holds a seat, whatever the guest
// row's own status says.
func countParticipants(ctx context.Context, q querier, eventID string) (int, error) {
	query := `
		SELECT
			COALESCE((
				SELECT SUM(1 + guests) FROM rsvps
				WHERE event_id = $1 AND status <> 'canceled'
			), 0) +
			COALESCE((
				SELECT COUNT(*) FROM identified_guests g
				JOIN rsvps r ON r.id = g.rsvp_id
				WHERE r.event_id = $1 AND g.status <> 'canceled' AND r.status <> 'canceled'
			), 0)
	`
	var count int
	if err := q.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *registrationStore) ParticipantCount(ctx context.Context, eventID string) (int, error) {
	return countParticipants(ctx, s.DB, eventID)
}

func (s *registrationStore) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND status <> 'canceled'
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return queryRSVPs(ctx, s.DB, query, eventID, limit, offset)
}

func (s *registrationStore) ListByPerson(ctx context.Context, personID string) ([]*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE person_id = $1
		ORDER BY created_at DESC
	`
	return queryRSVPs(ctx, s.DB, query, personID)
}

func queryRSVPs(ctx context.Context, q querier, query string, args ...any) ([]*domain.RSVP, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rsvps []*domain.RSVP
	for rows.Next() {
		r := &domain.RSVP{}
		var submissionID, paymentID, meetingID sql.NullString
		if err := rows.Scan(
			&r.ID, &r.EventID, &r.PersonID, &r.Status, &r.Guests,
			&submissionID, &paymentID, &meetingID, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if submissionID.Valid {
			r.FormSubmissionID = &submissionID.String
		}
		if paymentID.Valid {
			r.PaymentID = &paymentID.String
		}
		if meetingID.Valid {
			r.JitsiMeetingID = &meetingID.String
		}
		rsvps = append(rsvps, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if rsvps == nil {
		rsvps = []*domain.RSVP{}
	}
	return rsvps, nil
}

func (s *registrationStore) RSVPByPaymentID(ctx context.Context, paymentID string) (*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE payment_id = $1
	`
	return scanRSVP(s.DB.QueryRowContext(ctx, query, paymentID))
}

func (s *registrationStore) GuestByPaymentID(ctx context.Context, paymentID string) (*domain.IdentifiedGuest, error) {
	query := `
		SELECT id, rsvp_id, submission_id, status, payment_id, created_at
		FROM identified_guests
		WHERE payment_id = $1
	`
	return scanGuestRow(s.DB.QueryRowContext(ctx, query, paymentID))
}

func scanGuestRow(row *sql.Row) (*domain.IdentifiedGuest, error) {
	g := &domain.IdentifiedGuest{}
	var submissionID, paymentID sql.NullString
	err := row.Scan(&g.ID, &g.RSVPID, &submissionID, &g.Status, &paymentID, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if submissionID.Valid {
		g.SubmissionID = &submissionID.String
	}
	if paymentID.Valid {
		g.PaymentID = &paymentID.String
	}
	return g, nil
}

type registrationTx struct {
	tx *sql.Tx
}

func (t *registrationTx) RSVPForUpdate(ctx context.Context, eventID, personID string) (*domain.RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND person_id = $2
		FOR UPDATE
	`
	return scanRSVP(t.tx.QueryRowContext(ctx, query, eventID, personID))
}

func (t *registrationTx) CreateRSVP(ctx context.Context, rsvp *domain.RSVP) error {
	query := `
		INSERT INTO rsvps (event_id, person_id, status, guests, form_submission_id, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return t.tx.QueryRowContext(ctx, query,
		rsvp.EventID, rsvp.PersonID, rsvp.Status, rsvp.Guests,
		rsvp.FormSubmissionID, rsvp.PaymentID, rsvp.CreatedAt, rsvp.UpdatedAt,
	).Scan(&rsvp.ID)
}

func (t *registrationTx) UpdateRSVP(ctx context.Context, rsvp *domain.RSVP) error {
	query := `
		UPDATE rsvps
		SET status = $2, guests = $3, form_submission_id = $4, payment_id = $5, jitsi_meeting_id = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := t.tx.ExecContext(ctx, query,
		rsvp.ID, rsvp.Status, rsvp.Guests, rsvp.FormSubmissionID,
		rsvp.PaymentID, rsvp.JitsiMeetingID, rsvp.UpdatedAt,
	)
	return err
}

func (t *registrationTx) DeleteRSVP(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM rsvps WHERE id = $1`, id)
	return err
}

func (t *registrationTx) ParticipantCount(ctx context.Context, eventID string) (int, error) {
	return countParticipants(ctx, t.tx, eventID)
}

func (t *registrationTx) CreateGuest(ctx context.Context, guest *domain.IdentifiedGuest) error {
	query := `
		INSERT INTO identified_guests (rsvp_id, submission_id, status, payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query,
		guest.RSVPID, guest.SubmissionID, guest.Status, guest.PaymentID, guest.CreatedAt,
	).Scan(&guest.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateGuest
		}
		return err
	}
	return nil
}

func (t *registrationTx) UpdateGuest(ctx context.Context, guest *domain.IdentifiedGuest) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE identified_guests SET status = $2, payment_id = $3 WHERE id = $1`,
		guest.ID, guest.Status, guest.PaymentID,
	)
	return err
}

func (t *registrationTx) GuestBySubmission(ctx context.Context, rsvpID string, submissionID *string) (*domain.IdentifiedGuest, error) {
	query := `
		SELECT id, rsvp_id, submission_id, status, payment_id, created_at
		FROM identified_guests
		WHERE rsvp_id = $1 AND submission_id IS NOT DISTINCT FROM $2
	`
	return scanGuestRow(t.tx.QueryRowContext(ctx, query, rsvpID, submissionID))
}

func (t *registrationTx) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	meta, err := marshalMeta(payment.Meta)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO payments (person_id, type, mode, price, status, meta, gateway_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return t.tx.QueryRowContext(ctx, query,
		payment.PersonID, payment.Type, payment.Mode, payment.Price,
		payment.Status, meta, payment.GatewayID, payment.CreatedAt, payment.UpdatedAt,
	).Scan(&payment.ID)
}

func (t *registrationTx) UpdatePayment(ctx context.Context, payment *domain.Payment) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`,
		payment.ID, payment.Status, payment.UpdatedAt,
	)
	return err
}

func (t *registrationTx) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`
	return scanPayment(t.tx.QueryRowContext(ctx, query, id))
}

func (t *registrationTx) MeetingWithRoom(ctx context.Context, eventID string, maxMembers int) (*domain.JitsiMeeting, error) {
	query := `
		SELECT m.id, m.event_id, m.room_id, COUNT(r.id) AS members
		FROM jitsi_meetings m
		LEFT JOIN rsvps r ON r.jitsi_meeting_id = m.id
		WHERE m.event_id = $1
		GROUP BY m.id, m.event_id, m.room_id
		HAVING COUNT(r.id) < $2
		ORDER BY members
		LIMIT 1
	`
	m := &domain.JitsiMeeting{}
	err := t.tx.QueryRowContext(ctx, query, eventID, maxMembers).
		Scan(&m.ID, &m.EventID, &m.RoomID, &m.Members)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (t *registrationTx) CreateMeeting(ctx context.Context, meeting *domain.JitsiMeeting) error {
	query := `
		INSERT INTO jitsi_meetings (event_id, room_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return t.tx.QueryRowContext(ctx, query, meeting.EventID, meeting.RoomID, time.Now()).
		Scan(&meeting.ID)
}

func (t *registrationTx) SetRSVPMeeting(ctx context.Context, rsvpID, meetingID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE rsvps SET jitsi_meeting_id = $2, updated_at = now() WHERE id = $1`,
		rsvpID, meetingID,
	)
	return err
}
