package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/groupdesk/realtime/internal/core"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestVerify(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	ctx := context.Background()

	t.Run("valid token resolves the identity", func(t *testing.T) {
		token := signToken(t, Claims{
			UserID: "u1",
			Name:   "Alice",
			Email:  "alice@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		identity, err := v.Verify(ctx, token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if identity.UserID != "u1" || identity.Name != "Alice" || identity.Email != "alice@example.com" {
			t.Errorf("identity = %+v", identity)
		}
	})

	t.Run("name falls back to the user id", func(t *testing.T) {
		token := signToken(t, Claims{UserID: "u1"}, testSecret)
		identity, err := v.Verify(ctx, token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if identity.Name != "u1" {
			t.Errorf("name = %q, want u1", identity.Name)
		}
	})

	t.Run("empty credential", func(t *testing.T) {
		_, err := v.Verify(ctx, "")
		var authErr *core.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want AuthenticationError", err)
		}
		if authErr.Reason != "missing token" {
			t.Errorf("reason = %q, want missing token", authErr.Reason)
		}
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signToken(t, Claims{UserID: "u1"}, "some-other-secret")
		_, err := v.Verify(ctx, token)
		var authErr *core.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want AuthenticationError", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}, testSecret)

		_, err := v.Verify(ctx, token)
		var authErr *core.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want AuthenticationError", err)
		}
		if authErr.Reason != "token expired" {
			t.Errorf("reason = %q, want token expired", authErr.Reason)
		}
	})

	t.Run("missing user id claim", func(t *testing.T) {
		token := signToken(t, Claims{Name: "nobody"}, testSecret)
		_, err := v.Verify(ctx, token)
		var authErr *core.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want AuthenticationError", err)
		}
		if authErr.Reason != "malformed claims" {
			t.Errorf("reason = %q, want malformed claims", authErr.Reason)
		}
	})
}
