package server

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/jonathan/hr-portal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	cfg, err := config.NewJWTConfig(&config.Backend{JWTSecret: backendtest.JWTSecret})
	require.NoError(t, err)
	return NewJWTService(cfg)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestValidateToken_Valid(t *testing.T) {
	fake := backendtest.New(t)
	service := newTestJWTService(t)

	claims, err := service.ValidateToken(fake.IssueToken("user-123", "ana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)

	id := claims.Identity()
	assert.Equal(t, "user-123", id.UserID)
	assert.Equal(t, "ana@example.com", id.Email)
}

func TestValidateToken_Rejected(t *testing.T) {
	secret := []byte(backendtest.JWTSecret)
	now := time.Now()
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "user-123",
			"aud": config.DefaultTokenAudience,
			"exp": now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "empty",
			token:   func(*testing.T) string { return "" },
			wantErr: "token string is empty",
		},
		{
			name:    "malformed",
			token:   func(*testing.T) string { return "not-a-jwt" },
			wantErr: "malformed token",
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("another-secret-that-is-long-enough!!"), valid())
			},
			wantErr: "invalid token signature",
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				c := valid()
				c["exp"] = now.Add(-time.Minute).Unix()
				return sign(t, jwt.SigningMethodHS256, secret, c)
			},
			wantErr: "token expired",
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				c := valid()
				delete(c, "exp")
				return sign(t, jwt.SigningMethodHS256, secret, c)
			},
			wantErr: "failed to parse token",
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				c := valid()
				c["aud"] = "anon"
				return sign(t, jwt.SigningMethodHS256, secret, c)
			},
			wantErr: "failed to parse token",
		},
		{
			name: "no subject",
			token: func(t *testing.T) string {
				c := valid()
				delete(c, "sub")
				return sign(t, jwt.SigningMethodHS256, secret, c)
			},
			wantErr: "token has no subject",
		},
		{
			name: "unsigned",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())
			},
			wantErr: "failed to parse token",
		},
	}

	service := newTestJWTService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token(t))
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAsTokenValidator(t *testing.T) {
	fake := backendtest.New(t)
	validator := newTestJWTService(t).AsTokenValidator()

	id, err := validator.ValidateToken(context.Background(), fake.IssueToken("user-9", "hr@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "user-9", id.UserID)

	_, err = validator.ValidateToken(context.Background(), "garbage")
	assert.Error(t, err)
}
