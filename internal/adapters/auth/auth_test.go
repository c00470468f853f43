package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTRoundTrip(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")
	verifier := NewJWTVerifier("test-secret")

	token, err := issuer.Issue("u1", "ada@example.org", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	personID, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1", personID)
}

func TestJWTVerifyRejects(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := issuer.Issue("u1", "ada@example.org", time.Hour)
		require.NoError(t, err)

		_, err = NewJWTVerifier("other-secret").Verify(token)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := issuer.Issue("u1", "ada@example.org", -time.Minute)
		require.NoError(t, err)

		_, err = NewJWTVerifier("test-secret").Verify(token)
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := NewJWTVerifier("test-secret").Verify("not.a.token")
		require.Error(t, err)
	})
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	salt, err := hasher.GenerateSalt()
	require.NoError(t, err)
	require.NotEmpty(t, salt)

	hash, err := hasher.Hash(salt, "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, hasher.Compare(hash, salt, "correct horse battery staple"))
	require.Error(t, hasher.Compare(hash, salt, "wrong password"))
	require.Error(t, hasher.Compare(hash, "other-salt", "correct horse battery staple"))
}

func TestHashLongPassword(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	// bcrypt caps input at 72 bytes; the pre-hash keeps longer passwords usable.
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	hash, err := hasher.Hash("salt", string(long))
	require.NoError(t, err)
	require.NoError(t, hasher.Compare(hash, "salt", string(long)))
}
