package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// LoggingConfig ...
type LoggingConfig struct {
	// Skipper defines a function to skip middleware.
	Skipper middleware.Skipper
}

// Logging create a logging middleware with zap logger, server errors are logged as warnings
func Logging(base *zap.Logger, options ...*LoggingConfig) echo.MiddlewareFunc {
	cfg := &LoggingConfig{
		Skipper: middleware.DefaultSkipper,
	}
	if len(options) > 0 {
		option := options[0]
		if option.Skipper != nil {
			cfg.Skipper = option.Skipper
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			req := c.Request()
			logger := base.With(
				zap.String("trace.id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("url.path", req.RequestURI),
				zap.String("client.address", req.RemoteAddr),
				zap.String("http.request.method", req.Method),
				zap.Int64("http.request.body.bytes", req.ContentLength),
				zap.Duration("event.duration", time.Since(start)),
			)
			if len(c.ParamNames()) > 0 {
				logger = logger.With(
					zap.Strings("route.params.name", c.ParamNames()),
					zap.Strings("route.params.value", c.ParamValues()),
				)
			}
			code := c.Response().Status
			if code >= http.StatusInternalServerError {
				logger.Warn(http.StatusText(code), zap.Int("http.response.status_code", code))
			} else {
				logger.Debug(http.StatusText(code), zap.Int("http.response.status_code", code))
			}
			return err
		}
	}
}

// SetTraceLogger set logger binding with trace ID into context
func SetTraceLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			logger := base.With(zap.String("trace.id", c.Response().Header().Get(echo.HeaderXRequestID)))
			c.SetRequest(r.WithContext(logging.SetLoggerInContext(r.Context(), logger)))
			return next(c)
		}
	}
}
