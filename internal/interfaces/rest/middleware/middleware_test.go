package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/auth"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/auth/authtest"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const tokenName = "jsninja_token"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestVerifyToken(t *testing.T) {
	ju := auth.NewJWTUtil("HS256", "secret", tokenName, time.Hour)
	valid := authtest.Token(t, ju, &domain.Identity{DocumentID: "u1"}, time.Hour)
	revoked := authtest.Token(t, ju, &domain.Identity{DocumentID: "u2"}, time.Hour)
	forged := authtest.Token(t, auth.NewJWTUtil("HS256", "other", tokenName, time.Hour), &domain.Identity{DocumentID: "u1"}, time.Hour)

	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, ju.GetContextToken(c).UID+":"+ju.GetContextRawToken(c))
	}, VerifyToken(ju, &ValidateTokenOption{
		InBlackList: func(_ context.Context, token string) (bool, error) {
			return token == revoked, nil
		},
	}))

	tests := []struct {
		name     string
		cookie   string
		bearer   string
		wantCode int
	}{
		{"cookie", valid, "", http.StatusOK},
		{"bearer header", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"black-listed", revoked, "", http.StatusUnauthorized},
		{"bad signature", forged, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: tokenName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.bearer)
			}
			rec := serve(e, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "u1:"+valid, rec.Body.String())
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	tests := []struct {
		name        string
		lifetime    time.Duration
		wantRefresh bool
	}{
		{"about to expire", time.Minute, true},
		{"fresh", time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := auth.NewJWTUtil("HS256", "secret", tokenName, tt.lifetime)
			token := authtest.Token(t, issuer, &domain.Identity{DocumentID: "u1"}, tt.lifetime)

			ju := auth.NewJWTUtil("HS256", "secret", tokenName, 24*time.Hour)
			e := echo.New()
			e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, VerifyToken(ju), RefreshToken(ju))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: tokenName, Value: token})
			rec := serve(e, req)
			assert.Equal(t, http.StatusOK, rec.Code)

			cookies := rec.Result().Cookies()
			if !tt.wantRefresh {
				assert.Empty(t, cookies)
				return
			}
			require.Len(t, cookies, 1)
			claims, err := ju.Validate(cookies[0].Value)
			require.NoError(t, err)
			assert.Greater(t, claims.TimeRemaining(), time.Hour)
		})
	}
}

func TestErrorHandling(t *testing.T) {
	tests := []struct {
		name     string
		handler  echo.HandlerFunc
		wantCode int
		wantBody string
	}{
		{"plain error", func(echo.Context) error { return errors.New("boom") }, http.StatusTeapot, "boom"},
		{"http error", func(echo.Context) error { return echo.ErrForbidden }, http.StatusForbidden, `{"code":403,"title":"Forbidden"}`},
		{"committed response", func(c echo.Context) error {
			c.NoContent(http.StatusAccepted)
			return errors.New("late")
		}, http.StatusAccepted, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(ErrorHandling(&ErrorHandlingOption{
				Handler: func(c echo.Context, err error) {
					c.String(http.StatusTeapot, err.Error())
				},
			}))
			e.GET("/", tt.handler)

			rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusForbidden {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestPanicHandling(t *testing.T) {
	for _, value := range []interface{}{errors.New("boom"), "boom"} {
		core, logs := observer.New(zapcore.ErrorLevel)
		e := echo.New()
		var recovered error
		e.Use(PanicHandling(&PanicHandlingOption{
			Logger: zap.New(core),
			Handler: func(c echo.Context, err error) {
				recovered = err
				c.NoContent(http.StatusInternalServerError)
			},
		}))
		e.GET("/", func(echo.Context) error { panic(value) })

		rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Error(t, recovered)
		assert.Equal(t, "boom", recovered.Error())
		assert.Equal(t, 1, logs.Len())
	}
}

func TestAbortRequest(t *testing.T) {
	e := echo.New()
	e.Use(AbortRequest(&AbortRequestOption{
		Timeout: time.Second,
		Skipper: func(c echo.Context) bool { return c.Path() == "/ws" },
	}))
	deadline := func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			return c.String(http.StatusOK, "bounded")
		}
		return c.String(http.StatusOK, "unbounded")
	}
	e.GET("/api", deadline)
	e.GET("/ws", deadline)

	assert.Equal(t, "bounded", serve(e, httptest.NewRequest(http.MethodGet, "/api", nil)).Body.String())
	assert.Equal(t, "unbounded", serve(e, httptest.NewRequest(http.MethodGet, "/ws", nil)).Body.String())
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(Logging(zap.New(core), &LoggingConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/healthz" },
	}))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/fail", func(c echo.Context) error { return c.NoContent(http.StatusBadGateway) })

	serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusBadGateway), entries[1].ContextMap()["http.response.status_code"])
}

func TestSetTraceLogger(t *testing.T) {
	base := zaptest.NewLogger(t)
	e := echo.New()
	e.Use(SetTraceLogger(base))
	e.GET("/", func(c echo.Context) error {
		logger := logging.ExtractLoggerFromContext(c.Request().Context(), nil)
		assert.NotSame(t, base, logger)
		return c.NoContent(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestNoRouteMatched(t *testing.T) {
	e := echo.New()
	e.Use(NoRouteMatched())
	e.GET("/lessons/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "no such session")
	})
	e.GET("/gone", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusGone)
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"title":"Not Found","path":"/missing"}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/lessons/s1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"title":"Not Found","path":"/lessons/s1"}`, rec.Body.String())

	// other errors pass through to the error handler
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestNoRouteMatched_customHandler(t *testing.T) {
	e := echo.New()
	e.Use(NoRouteMatched(&NoRouteMatchedOption{
		Handler: func(c echo.Context) error {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "nothing here"})
		},
	}))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"nothing here"}`, rec.Body.String())
}
