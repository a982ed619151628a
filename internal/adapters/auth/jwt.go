// Package auth resolves client credentials to verified identities.
package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/groupdesk/realtime/internal/core"
	"github.com/groupdesk/realtime/internal/domain"
)

// Claims carried by an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed access tokens issued by the main
// platform and maps them to identities.
type JWTVerifier struct {
	secretKey []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secretKey: []byte(secret)}
}

var _ core.IdentityVerifier = (*JWTVerifier)(nil)

func (v *JWTVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, &core.AuthenticationError{Reason: "missing token"}
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secretKey, nil
	})
	if err != nil {
		reason := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "token expired"
		}
		return domain.Identity{}, &core.AuthenticationError{Reason: reason, Err: err}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return domain.Identity{}, &core.AuthenticationError{Reason: "malformed claims"}
	}

	name := claims.Name
	if name == "" {
		name = claims.UserID
	}
	identity, err := domain.NewIdentity(domain.UserID(claims.UserID), name, claims.Email)
	if err != nil {
		return domain.Identity{}, &core.AuthenticationError{Reason: "malformed claims", Err: err}
	}
	return identity, nil
}
