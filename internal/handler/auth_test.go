package handler

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	auth := NewAuthenticator("secret", "trivia-wave")

	token, err := auth.IssueToken("alice", time.Hour)
	require.NoError(t, err)

	userID, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)
}

func TestAuthenticator_Rejects(t *testing.T) {
	auth := NewAuthenticator("secret", "trivia-wave")

	expired, err := auth.IssueToken("alice", -time.Minute)
	require.NoError(t, err)

	otherIssuer, err := NewAuthenticator("secret", "someone-else").IssueToken("alice", time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewAuthenticator("other", "trivia-wave").IssueToken("alice", time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice", Issuer: "trivia-wave"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"other issuer": otherIssuer,
		"wrong key":    wrongKey,
		"none alg":     noneAlg,
		"garbage":      "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2, time.Minute)

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("bob"))

	assert.Zero(t, rl.Cleanup(time.Now().Add(-time.Minute)))
	assert.Equal(t, 2, rl.Cleanup(time.Now().Add(time.Second)))

	// A fresh limiter starts with a full burst
	assert.True(t, rl.Allow("alice"))
}
