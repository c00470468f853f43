package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventrsvp/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "person_id", "type", "mode", "price", "status", "meta", "gateway_id", "created_at", "updated_at",
	})
}

func TestPaymentRepository_GetByGatewayID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("meta round-trips", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		meta := []byte(`{"version":"2","event_id":"e1","event_name":"Congress","submission_id":"s1","is_guest":true}`)
		mock.ExpectQuery(`SELECT .*\s+FROM payments\s+WHERE gateway_id = \$1`).
			WithArgs("gw-1").
			WillReturnRows(paymentRows().AddRow("p1", "u1", "event", "card", 2500, "waiting", meta, "gw-1", now, now))

		repo := NewPaymentRepository(db)
		payment, err := repo.GetByGatewayID(ctx, "gw-1")
		require.NoError(t, err)
		require.Equal(t, "p1", payment.ID)
		require.Equal(t, domain.PaymentStatusWaiting, payment.Status)
		require.Equal(t, domain.MetaVersion2, payment.Meta.Version)
		require.True(t, payment.Meta.IsGuest)
		require.NotNil(t, payment.Meta.SubmissionID)
		require.Equal(t, "s1", *payment.Meta.SubmissionID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("legacy meta without version", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		meta := []byte(`{"event_id":"e1","event_name":"Congress"}`)
		mock.ExpectQuery(`SELECT .*\s+FROM payments\s+WHERE gateway_id = \$1`).
			WithArgs("gw-1").
			WillReturnRows(paymentRows().AddRow("p1", "u1", "event", "check", 1000, "completed", meta, "gw-1", now, now))

		repo := NewPaymentRepository(db)
		payment, err := repo.GetByGatewayID(ctx, "gw-1")
		require.NoError(t, err)
		require.Empty(t, payment.Meta.Version)
		require.Equal(t, "e1", payment.Meta.EventID)
	})

	t.Run("unknown gateway id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT .*\s+FROM payments`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		repo := NewPaymentRepository(db)
		_, err = repo.GetByGatewayID(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPaymentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE payments SET status = \$2, updated_at = \$3 WHERE id = \$1`).
			WithArgs("p1", domain.PaymentStatusCompleted, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPaymentRepository(db)
		require.NoError(t, repo.UpdateStatus(ctx, "p1", domain.PaymentStatusCompleted))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing payment", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE payments`).
			WithArgs("missing", domain.PaymentStatusCanceled, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPaymentRepository(db)
		require.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.PaymentStatusCanceled), domain.ErrNotFound)
	})
}
