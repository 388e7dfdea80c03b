package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testAccessSecret, 42, "alice@example.com", 3, 15)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	claims, err := ParseAccessToken(testAccessSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, uint64(3), claims.RoleID)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testAccessSecret, 42, "alice@example.com", 3, 15)
	require.NoError(t, err)

	_, err = ParseAccessToken("some-other-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	// A negative TTL produces an already-expired token.
	tok, err := NewAccessToken(testAccessSecret, 42, "alice@example.com", 3, -1)
	require.NoError(t, err)

	_, err = ParseAccessToken(testAccessSecret, tok.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tok, err := NewRefreshToken(testRefreshSecret, 42, 7)
	require.NoError(t, err)

	uid, err := ParseRefreshToken(testRefreshSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	access, err := NewAccessToken(testAccessSecret, 42, "alice@example.com", 3, 15)
	require.NoError(t, err)
	refresh, err := NewRefreshToken(testRefreshSecret, 42, 7)
	require.NoError(t, err)

	// Each kind is signed with its own secret, so verifying one kind
	// with the other kind's material must fail.
	_, err = ParseRefreshToken(testRefreshSecret, access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseAccessToken(testAccessSecret, refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseGarbage(t *testing.T) {
	_, err := ParseAccessToken(testAccessSecret, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("token-a")
	h2 := HashRefreshRaw("token-a")
	h3 := HashRefreshRaw("token-b")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // sha256 hex
}
