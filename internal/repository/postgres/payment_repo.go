package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventrsvp/internal/domain"
)

const paymentColumns = `id, person_id, type, mode, price, status, meta, gateway_id, created_at, updated_at`

func marshalMeta(meta domain.PaymentMeta) ([]byte, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal payment meta: %w", err)
	}
	return raw, nil
}

func scanPayment(row *sql.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	var meta []byte
	err := row.Scan(
		&p.ID, &p.PersonID, &p.Type, &p.Mode, &p.Price,
		&p.Status, &meta, &p.GatewayID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal payment meta: %w", err)
		}
	}
	return p, nil
}

type paymentRepository struct {
	DB *sql.DB
}

// NewPaymentRepository returns the webhook-side payment repository.
func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{DB: db}
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`
	return scanPayment(r.DB.QueryRowContext(ctx, query, id))
}

func (r *paymentRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE gateway_id = $1
	`
	return scanPayment(r.DB.QueryRowContext(ctx, query, gatewayID))
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
