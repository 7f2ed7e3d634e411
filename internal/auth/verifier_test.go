package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signIdentity(t *testing.T, secret string, claims identityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) identityClaims {
	return identityClaims{
		Email: "viewer@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://auth.example.com",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifier_Verify(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{
		Secret:   testSecret,
		Issuer:   "https://auth.example.com",
		Audience: "authenticated",
	})
	require.NoError(t, err)

	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		viewer, err := v.Verify(signIdentity(t, testSecret, validClaims(userID.String())))
		require.NoError(t, err)
		assert.Equal(t, userID, viewer.ID)
		assert.Equal(t, "viewer@example.com", viewer.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(signIdentity(t, "another-secret-that-is-also-long-enough", validClaims(userID.String())))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims(userID.String())
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, err := v.Verify(signIdentity(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := validClaims(userID.String())
		claims.ExpiresAt = nil
		_, err := v.Verify(signIdentity(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := validClaims(userID.String())
		claims.Issuer = "https://evil.example.com"
		_, err := v.Verify(signIdentity(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims(userID.String())
		claims.Audience = jwt.ClaimStrings{"anon"}
		_, err := v.Verify(signIdentity(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		_, err := v.Verify(signIdentity(t, testSecret, validClaims("auth0|12345")))
		assert.ErrorIs(t, err, ErrInvalidSubject)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewVerifier_RequiresOneKeySource(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{})
	assert.Error(t, err)

	_, err = NewVerifier(VerifierConfig{Secret: testSecret, JWKSURL: "https://example.com/jwks.json"})
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractBearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
