package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for person operations.
var (
	ErrPersonNotFound = errors.New("person not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

// Person represents a platform member.
// swagger:model Person
type Person struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PasswordHash string `json:"-"`
	PasswordSalt string `json:"-"`
}

// PersonRepository defines storage operations for persons.
type PersonRepository interface {
	Create(ctx context.Context, person *Person) error
	GetByID(ctx context.Context, id string) (*Person, error)
	GetByEmail(ctx context.Context, email string) (*Person, error)
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated person.
type TokenIssuer interface {
	Issue(personID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated person ID.
type TokenVerifier interface {
	Verify(token string) (personID string, err error)
}

// AuthService handles account creation and login.
type AuthService interface {
	SignUp(ctx context.Context, email, password, firstName, lastName string) (*Person, error)
	// Login returns a signed session token for valid credentials.
	Login(ctx context.Context, email, password string) (token string, person *Person, err error)
}
