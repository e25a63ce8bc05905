package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, ju *JWTUtil, uid string) string {
	t.Helper()
	tokenStr, err := ju.Sign(&AppTokenClaims{
		UID:            uid,
		Email:          "a@b.c",
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	require.NoError(t, err)
	return tokenStr
}

func TestJWTUtil_RoundTrip(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "jsninja_token", time.Hour)
	tokenStr := sign(t, ju, "u1")

	claims, err := ju.Validate(tokenStr)
	require.NoError(t, err)
	assert.Greater(t, claims.TimeRemaining(), 59*time.Minute)

	identity := claims.Identity(tokenStr)
	assert.Equal(t, "u1", identity.DocumentID)
	assert.Equal(t, domain.RoleLearner, identity.Role)
	assert.Equal(t, tokenStr, identity.Token)
	assert.True(t, identity.Known())
}

func TestJWTUtil_ValidateWrongSecret(t *testing.T) {
	tokenStr := sign(t, NewJWTUtil("HS256", "secret", "t", time.Hour), "u1")

	_, err := NewJWTUtil("HS256", "other", "t", time.Hour).Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTUtil_ExtractToken(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "jsninja_token", time.Hour)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "jsninja_token", Value: "from-cookie"})
	token, err := ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer from-header")
	token, err = ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "from-header", token)

	_, err = ju.ExtractToken(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	assert.Error(t, err)
}
