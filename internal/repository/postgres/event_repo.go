package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventrsvp/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns the postgres-backed EventRepository.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

const eventColumns = `id, name, start_time, end_time, max_participants, allow_guests, subscription_form, base_price, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	var form []byte
	if e.SubscriptionForm != nil {
		raw, err := json.Marshal(e.SubscriptionForm)
		if err != nil {
			return fmt.Errorf("marshal subscription form: %w", err)
		}
		form = raw
	}
	var basePrice *int64
	if e.Payment != nil {
		basePrice = &e.Payment.BasePrice
	}
	query := `
		INSERT INTO events (name, start_time, end_time, max_participants, allow_guests, subscription_form, base_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Name, e.StartTime, e.EndTime, e.MaxParticipants, e.AllowGuests,
		form, basePrice, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func scanEvent(scan func(dest ...any) error) (*domain.Event, error) {
	e := &domain.Event{}
	var maxParticipants sql.NullInt64
	var form []byte
	var basePrice sql.NullInt64
	err := scan(
		&e.ID, &e.Name, &e.StartTime, &e.EndTime, &maxParticipants,
		&e.AllowGuests, &form, &basePrice, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if maxParticipants.Valid {
		v := int(maxParticipants.Int64)
		e.MaxParticipants = &v
	}
	if len(form) > 0 {
		e.SubscriptionForm = &domain.SubscriptionForm{}
		if err := json.Unmarshal(form, e.SubscriptionForm); err != nil {
			return nil, fmt.Errorf("unmarshal subscription form: %w", err)
		}
	}
	if basePrice.Valid {
		e.Payment = &domain.PaymentParameters{BasePrice: basePrice.Int64}
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`
	row := r.DB.QueryRowContext(ctx, query, id)
	return scanEvent(row.Scan)
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY start_time
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}
