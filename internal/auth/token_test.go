package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	issued, err := IssueToken(secret, Claims{
		UserID:           "usr_1",
		Role:             "student",
		Organization:     "org_1",
		Suborganizations: []string{"usr_sub1", "usr_sub2"},
	}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, issued)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "org_1", claims.Organization)
	assert.Equal(t, []string{"usr_sub1", "usr_sub2"}, claims.Suborganizations)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issued, err := IssueToken([]byte("secret-a"), Claims{UserID: "usr_1", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret-b"), issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseToken([]byte("secret"), "definitely-not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseDistinguishesExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{UserID: "usr_1", Role: "admin"}, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(secret, issued)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{Role: "admin"}, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(secret, issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRefreshToken(t *testing.T) {
	token, hash := NewRefreshToken()
	assert.Len(t, token, 64)
	assert.Equal(t, HashToken(token), hash)
	assert.NotEqual(t, token, hash)

	other, _ := NewRefreshToken()
	assert.NotEqual(t, token, other)
}
