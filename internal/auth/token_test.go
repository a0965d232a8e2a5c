package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questfeed/backend/internal/auth"
)

const testSecret = "unit-test-secret"

func TestVerify_RoundTrip(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, time.Hour)
	verifier := auth.NewVerifier(testSecret)

	token, err := issuer.Issue("u1", "alice")
	require.NoError(t, err)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestVerify_MissingToken(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)

	_, err := verifier.Verify("")
	assert.ErrorIs(t, err, auth.ErrMissingToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	issuer := auth.NewIssuer(testSecret, -time.Minute)
	verifier := auth.NewVerifier(testSecret)

	token, err := issuer.Issue("u1", "alice")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := auth.NewIssuer("some-other-secret", time.Hour)
	verifier := auth.NewVerifier(testSecret)

	token, err := issuer.Issue("u1", "alice")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_GarbageToken(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)

	_, err := verifier.Verify("definitely.not.a.jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
