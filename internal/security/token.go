package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing          = errors.New("session token missing")
	ErrTokenMalformed        = errors.New("session token malformed")
	ErrTokenExpired          = errors.New("session token expired")
	ErrTokenSignatureInvalid = errors.New("session token signature invalid")
)

var signingMethod = jwt.SigningMethodHS512

type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type TokenOption func(*SessionTokens)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(t *SessionTokens) {
		t.now = now
	}
}

// SessionTokens issues and verifies stateless session credentials. It holds no
// mutable state and is safe for concurrent use.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration, opts ...TokenOption) *SessionTokens {
	t := &SessionTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SessionTokens) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the user id carried by a valid token. The signature and
// algorithm are checked before any claim is read; expiry is checked after.
func (t *SessionTokens) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrTokenMissing
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", classifyTokenError(err)
	}

	if claims.UserID == "" || claims.UserID != claims.Subject {
		return "", ErrTokenMalformed
	}
	return claims.UserID, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		// claim shape problems such as a missing exp or a future iat
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
