// Package aap provides signed-token shared-secret verification for the
// Application Agent Protocol's registration calls (AGENT_REGISTER,
// AGENT_REGISTER_RPC). The AAP sockets themselves — and the wire grammar
// that carries register/send/receive/deregister calls over them — are
// explicitly out of scope (spec §1 Non-goals); this package covers the one
// piece SPEC_FULL.md pulls in-scope: authenticating the shared secret a
// registering agent presents, the way the teacher's
// pkg/controlplane/api/auth issues and verifies user-session JWTs, adapted
// from session tokens to per-sink registration tokens.
package aap

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by TokenService.
var (
	ErrInvalidToken        = errors.New("aap: invalid token")
	ErrExpiredToken        = errors.New("aap: token has expired")
	ErrSinkMismatch        = errors.New("aap: token was not issued for this sink id/role")
	ErrInvalidSecretLength = errors.New("aap: signing secret must be at least 32 characters")
)

// Claims is the JWT payload for one agent registration token: which sink
// id and role (subscriber vs RPC agent) it authorizes, and the underlying
// shared secret the Bundle Processor's agent registry cross-checks between
// a sink's subscriber and RPC-agent registrations (spec §3).
type Claims struct {
	jwt.RegisteredClaims

	SinkID       string `json:"sink_id"`
	IsSubscriber bool   `json:"is_subscriber"`
	Secret       string `json:"secret"`
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string

	// Issuer is the token issuer claim. Default: "bpa".
	Issuer string

	// TokenDuration is how long an issued registration token remains
	// valid. Default: 1 hour.
	TokenDuration time.Duration
}

// TokenService issues and verifies agent registration tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService constructs a TokenService, applying defaults the way the
// teacher's NewJWTService does.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if config.Issuer == "" {
		config.Issuer = "bpa"
	}
	if config.TokenDuration == 0 {
		config.TokenDuration = time.Hour
	}
	return &TokenService{config: config}, nil
}

// IssueToken mints a signed registration token for sinkID/isSubscriber,
// embedding secret as the claim the registry's cross-role match compares.
func (s *TokenService) IssueToken(sinkID string, isSubscriber bool, secret string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   sinkID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
		},
		SinkID:       sinkID,
		IsSubscriber: isSubscriber,
		Secret:       secret,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("aap: failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates tokenString's signature and expiry and returns its
// claims.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify validates tokenString and confirms it authorizes sinkID/
// isSubscriber, returning the underlying shared secret on success. This is
// the shape internal/bpa.TokenVerifier expects; cmd/bpa wires it in as
// processor.SetAgentTokenVerifier(tokenService.Verify).
func (s *TokenService) Verify(sinkID string, isSubscriber bool, tokenString string) (string, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.SinkID != sinkID || claims.IsSubscriber != isSubscriber {
		return "", ErrSinkMismatch
	}
	return claims.Secret, nil
}
