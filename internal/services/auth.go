package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eventrsvp/internal/domain"
)

const (
	minPasswordLen = 8
	tokenExpiry    = 24 * time.Hour
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type authService struct {
	persons domain.PersonRepository
	hasher  domain.PasswordHasher
	issuer  domain.TokenIssuer
}

// NewAuthService creates an AuthService with the given repository, hasher and
// token issuer.
func NewAuthService(persons domain.PersonRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer) domain.AuthService {
	return &authService{persons: persons, hasher: hasher, issuer: issuer}
}

func (s *authService) SignUp(ctx context.Context, email, password, firstName, lastName string) (*domain.Person, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	person := &domain.Person{
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.persons.Create(ctx, person); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create person: %w", err)
	}
	return person, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Person, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	person, err := s.persons.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrPersonNotFound) {
			return "", nil, domain.ErrForbidden
		}
		return "", nil, fmt.Errorf("get person: %w", err)
	}
	if err := s.hasher.Compare(person.PasswordHash, person.PasswordSalt, password); err != nil {
		return "", nil, domain.ErrForbidden
	}
	token, err := s.issuer.Issue(person.ID, person.Email, tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, person, nil
}
