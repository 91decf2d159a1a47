package aap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(TokenConfig{Secret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	return s
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: "tooshort"})
	require.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestIssueAndVerifyRoundTrips(t *testing.T) {
	s := testService(t)

	token, err := s.IssueToken("dtn://node1/echo", false, "sssh")
	require.NoError(t, err)

	claims, err := s.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "dtn://node1/echo", claims.SinkID)
	require.False(t, claims.IsSubscriber)
	require.Equal(t, "sssh", claims.Secret)
}

func TestVerifyDetectsSinkMismatch(t *testing.T) {
	s := testService(t)

	token, err := s.IssueToken("dtn://node1/echo", false, "sssh")
	require.NoError(t, err)

	_, err = s.Verify("dtn://node1/other", false, token)
	require.ErrorIs(t, err, ErrSinkMismatch)

	_, err = s.Verify("dtn://node1/echo", true, token)
	require.ErrorIs(t, err, ErrSinkMismatch)
}

func TestVerifyReturnsUnderlyingSecretOnMatch(t *testing.T) {
	s := testService(t)

	token, err := s.IssueToken("dtn://node1/echo", true, "sssh")
	require.NoError(t, err)

	secret, err := s.Verify("dtn://node1/echo", true, token)
	require.NoError(t, err)
	require.Equal(t, "sssh", secret)
}

func TestVerifyTokenRejectsWrongSigningSecret(t *testing.T) {
	s := testService(t)
	other, err := NewTokenService(TokenConfig{Secret: "fedcba9876543210fedcba9876543210"})
	require.NoError(t, err)

	token, err := s.IssueToken("dtn://node1/echo", false, "sssh")
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	s, err := NewTokenService(TokenConfig{
		Secret:        "0123456789abcdef0123456789abcdef",
		TokenDuration: time.Nanosecond,
	})
	require.NoError(t, err)

	token, err := s.IssueToken("dtn://node1/echo", false, "sssh")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = s.VerifyToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}
