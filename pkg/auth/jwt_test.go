package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := NewVerifier("secret", "authenticated", "")
	require.NoError(t, err)

	userID := uuid.New()
	token, err := v.Sign(userID, "authenticated", time.Hour)
	require.NoError(t, err)

	claims, err := v.Parse(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerifier_Expired(t *testing.T) {
	v, err := NewVerifier("secret", "", "")
	require.NoError(t, err)
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := v.Sign(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = v.Parse(token)
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
}

func TestVerifier_WrongSecret(t *testing.T) {
	signer, _ := NewVerifier("one", "", "")
	verifier, _ := NewVerifier("two", "", "")

	token, err := signer.Sign(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifier_AudienceMismatch(t *testing.T) {
	signer, _ := NewVerifier("secret", "other", "")
	verifier, _ := NewVerifier("secret", "authenticated", "")

	token, err := signer.Sign(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifier_NonUUIDSubject(t *testing.T) {
	v, _ := NewVerifier("secret", "", "")
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Parse(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("", "", "")
	assert.Error(t, err)
}
