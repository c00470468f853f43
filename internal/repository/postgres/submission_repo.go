package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventrsvp/internal/domain"
)

type formSubmissionRepository struct {
	DB *sql.DB
}

// NewFormSubmissionRepository returns the postgres-backed FormSubmissionRepository.
func NewFormSubmissionRepository(db *sql.DB) domain.FormSubmissionRepository {
	return &formSubmissionRepository{DB: db}
}

func (r *formSubmissionRepository) Create(ctx context.Context, sub *domain.FormSubmission) error {
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return fmt.Errorf("marshal submission data: %w", err)
	}
	query := `
		INSERT INTO form_submissions (form_id, person_id, data)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, sub.FormID, sub.PersonID, data).Scan(&sub.ID)
}

func (r *formSubmissionRepository) GetByID(ctx context.Context, id string) (*domain.FormSubmission, error) {
	query := `
		SELECT id, form_id, person_id, data
		FROM form_submissions
		WHERE id = $1
	`
	sub := &domain.FormSubmission{}
	var data []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&sub.ID, &sub.FormID, &sub.PersonID, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sub.Data); err != nil {
			return nil, fmt.Errorf("unmarshal submission data: %w", err)
		}
	}
	return sub, nil
}
