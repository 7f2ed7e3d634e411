package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultLeeway = 30 * time.Second

var (
	ErrInvalidToken   = errors.New("invalid identity token")
	ErrInvalidSubject = errors.New("identity token subject is not a user id")
)

// VerifierConfig selects how identity tokens are checked. Exactly one of
// Secret (HS256, the auth service's shared JWT secret) or JWKSURL must be set.
type VerifierConfig struct {
	Secret   string
	JWKSURL  string
	Issuer   string
	Audience string
}

// Verifier validates access tokens issued by the identity provider and
// turns them into a domain.Viewer.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// identityClaims are the claims the app reads from an access token.
type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewVerifier builds a verifier from cfg.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	var kf jwt.Keyfunc
	switch {
	case cfg.Secret != "" && cfg.JWKSURL != "":
		return nil, errors.New("set either a JWT secret or a JWKS URL, not both")
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		kf = func(*jwt.Token) (interface{}, error) { return secret, nil }
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	case cfg.JWKSURL != "":
		provider, err := keyfunc.NewDefault([]string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
		}
		kf = provider.Keyfunc
		opts = append(opts, jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Name,
			jwt.SigningMethodES256.Name,
		}))
	default:
		return nil, errors.New("a JWT secret or a JWKS URL is required")
	}

	return &Verifier{
		keyfunc: kf,
		parser:  jwt.NewParser(opts...),
	}, nil
}

// Verify parses and validates tokenString.
func (v *Verifier) Verify(tokenString string) (*domain.Viewer, error) {
	var claims identityClaims
	token, err := v.parser.ParseWithClaims(tokenString, &claims, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSubject
	}

	return &domain.Viewer{
		ID:    id,
		Email: strings.TrimSpace(claims.Email),
	}, nil
}

// ExtractBearerToken returns the token from an "Authorization: Bearer" header value.
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
