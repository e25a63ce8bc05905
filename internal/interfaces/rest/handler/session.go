package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/auth"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/driver"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/logging"
	"go.uber.org/zap"
)

const blacklistPrefix = "jsninja:blacklist:"

// BlacklistKey kv key of a signed out token
func BlacklistKey(token string) string {
	return blacklistPrefix + token
}

// IdentityManager owner of the current identity
type IdentityManager interface {
	Establish(ctx context.Context, identity *domain.Identity) error
	Clear()
}

// SessionHandler identity lifecycle endpoints
type SessionHandler struct {
	jwtUtil    *auth.JWTUtil
	kv         driver.KeyValueDB
	identities IdentityManager
}

// NewSessionHandler .
func NewSessionHandler(jwtUtil *auth.JWTUtil, kv driver.KeyValueDB, identities IdentityManager) *SessionHandler {
	return &SessionHandler{jwtUtil: jwtUtil, kv: kv, identities: identities}
}

type sessionResponse struct {
	DocumentID string      `json:"documentId"`
	Email      string      `json:"email,omitempty"`
	Name       string      `json:"name,omitempty"`
	Role       domain.Role `json:"role"`
}

// HandleEstablish make the token's user the current identity
func (sh *SessionHandler) HandleEstablish(c echo.Context) error {
	ju := sh.jwtUtil
	claims := ju.GetContextToken(c)
	if claims == nil {
		return c.NoContent(http.StatusUnauthorized)
	}

	identity := claims.Identity(ju.GetContextRawToken(c))
	if err := sh.identities.Establish(c.Request().Context(), identity); err != nil {
		if errors.Is(err, domain.ErrNoIdentity) {
			return replyError(c, http.StatusBadRequest, "token carries no user document ID")
		}
		return err
	}
	return c.JSON(http.StatusOK, &sessionResponse{
		DocumentID: identity.DocumentID,
		Email:      identity.Email,
		Name:       identity.Name,
		Role:       identity.Role,
	})
}

// HandleClear drop the identity and black-list its token until it expires
func (sh *SessionHandler) HandleClear(c echo.Context) error {
	ju := sh.jwtUtil
	ctx := c.Request().Context()
	sh.identities.Clear()

	if claims := ju.GetContextToken(c); claims != nil {
		if remaining := claims.TimeRemaining(); remaining > 0 {
			token := ju.GetContextRawToken(c)
			if err := sh.kv.SetEX(ctx, BlacklistKey(token), claims.UID, remaining); err != nil {
				return err
			}
			logging.ExtractLoggerFromContext(ctx, zap.NewNop()).Debug("Token black-listed",
				zap.String("user.id", claims.UID),
				zap.Duration("ttl", remaining),
			)
		}
	}
	ju.ClearClientToken(c)
	return c.NoContent(http.StatusNoContent)
}
