// Package authtest signs learner tokens for tests of the authenticated routes
package authtest

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/auth"
)

// Token signs a token for identity that expires after ttl
func Token(t testing.TB, ju *auth.JWTUtil, identity *domain.Identity, ttl time.Duration) string {
	t.Helper()
	token, err := ju.Sign(&auth.AppTokenClaims{
		UID:   identity.DocumentID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
