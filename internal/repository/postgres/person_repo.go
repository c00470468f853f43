package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventrsvp/internal/domain"
)

type personRepository struct {
	DB *sql.DB
}

// NewPersonRepository returns the postgres-backed PersonRepository.
func NewPersonRepository(db *sql.DB) domain.PersonRepository {
	return &personRepository{DB: db}
}

const personColumns = `id, email, first_name, last_name, password_hash, password_salt, created_at, updated_at`

func (r *personRepository) Create(ctx context.Context, p *domain.Person) error {
	query := `
		INSERT INTO persons (email, first_name, last_name, password_hash, password_salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.Email, p.FirstName, p.LastName, p.PasswordHash, p.PasswordSalt, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *personRepository) scanPerson(row *sql.Row) (*domain.Person, error) {
	p := &domain.Person{}
	err := row.Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName,
		&p.PasswordHash, &p.PasswordSalt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM persons
		WHERE id = $1
	`
	return r.scanPerson(r.DB.QueryRowContext(ctx, query, id))
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM persons
		WHERE email = $1
	`
	return r.scanPerson(r.DB.QueryRowContext(ctx, query, email))
}
