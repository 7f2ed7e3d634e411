package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultUnlockTokenTTL is how long a just-unlocked capability stays valid.
const DefaultUnlockTokenTTL = 30 * time.Minute

const unlockAudience = "scan-unlock"

var ErrInvalidUnlockToken = errors.New("invalid unlock token")

// UnlockTokens issues and checks the capability handed out right after a
// Pro scan is created. Holding a valid token for a scan shows it unlocked
// without re-authenticating.
type UnlockTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewUnlockTokens creates an issuer signing with secret.
func NewUnlockTokens(secret string, ttl time.Duration) (*UnlockTokens, error) {
	if len(secret) < 32 {
		return nil, errors.New("unlock token secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultUnlockTokenTTL
	}
	return &UnlockTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token bound to scanID.
func (u *UnlockTokens) Issue(scanID uuid.UUID) (string, error) {
	now := u.now()
	claims := jwt.RegisteredClaims{
		Subject:   scanID.String(),
		Audience:  jwt.ClaimStrings{unlockAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("sign unlock token: %w", err)
	}
	return signed, nil
}

// Verify returns nil when token is a live capability for scanID.
func (u *UnlockTokens) Verify(token string, scanID uuid.UUID) error {
	if token == "" {
		return ErrInvalidUnlockToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return u.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(unlockAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidUnlockToken, err)
	}

	if claims.Subject != scanID.String() {
		return fmt.Errorf("%w: token is for another scan", ErrInvalidUnlockToken)
	}
	return nil
}
