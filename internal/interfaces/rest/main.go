package rest

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/feed"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/auth"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/driver"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/uuid"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/validate"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/interfaces/rest/handler"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/interfaces/rest/middleware"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/notification"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

// shutdownTimeout grace period of in-flight requests
const shutdownTimeout = 10 * time.Second

// Deps collaborators of the http server
type Deps struct {
	Config        *infra.AppConfig
	KV            driver.KeyValueDB
	Registry      handler.TrackerRegistry
	Players       handler.PlayerHub
	Identities    handler.IdentityManager
	Notifications *notification.Service
	Realtime      handler.RealtimeStatus
	Feed          *feed.Hub
	IDs           uuid.Generator
	Logger        *zap.Logger
}

// NewServer create http transport server
func NewServer(deps *Deps) *echo.Echo {
	var (
		option    = deps.Config
		logger    = deps.Logger
		rdb       = deps.KV
		app       = echo.New()
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket()
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName,
			option.Security.SessionTimeout)
		jwtMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: func(ctx context.Context, token string) (bool, error) {
				return rdb.Exists(ctx, handler.BlacklistKey(token))
			},
		})
		refreshMiddleware = middleware.RefreshToken(jwtUtil)
	)
	app.HideBanner = true
	app.HidePort = true

	registerLivenessProbe(app, rdb)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)

		app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
			Skipper: func(e echo.Context) bool {
				return strings.HasPrefix(e.Request().RequestURI, "/healthz")
			},
		}))
	}
	app.Use(middleware.PanicHandling(&middleware.PanicHandlingOption{
		Logger: logger,
		Handler: func(c echo.Context, err error) {
			traceID := c.Response().Header().Get(echo.HeaderXRequestID)
			c.JSON(http.StatusInternalServerError,
				handler.NewRESTStandardError(http.StatusInternalServerError, "").SetTraceID(traceID),
			)
		},
	}))
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				c.JSON(http.StatusInternalServerError,
					handler.NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
				)
				logger.Error(err.Error(), zap.String("trace.id", traceID))
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return strings.Contains(c.Request().URL.Path, "/ws/")
		},
	}))
	app.Use(middleware.NoRouteMatched(&middleware.NoRouteMatchedOption{
		Handler: func(c echo.Context) error {
			traceID := c.Response().Header().Get(echo.HeaderXRequestID)
			return c.JSON(http.StatusNotFound,
				handler.NewRESTStandardError(http.StatusNotFound, c.Request().URL.Path).SetTraceID(traceID),
			)
		},
	}))

	var (
		SessionHandler      = handler.NewSessionHandler(jwtUtil, rdb, deps.Identities)
		LessonHandler       = handler.NewLessonHandler(deps.Registry, validator)
		NotificationHandler = handler.NewNotificationHandler(deps.Notifications, validator)
		SocketHandler       = handler.NewSocketHandler(deps.Players, deps.Feed, deps.Notifications.Store(), deps.IDs)
	)

	createEndpoint(app,
		&endpoint{
			apiVersion:  "api/v1",
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix:      "/session",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware},
					routes: []*route{
						{"PUT", "", SessionHandler.HandleEstablish, []echo.MiddlewareFunc{refreshMiddleware}},
						{"DELETE", "", SessionHandler.HandleClear, nil},
					},
				},
				{
					prefix:      "/lessons",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware},
					routes: []*route{
						{"POST", "/video", LessonHandler.HandleMountVideo, nil},
						{"POST", "/text", LessonHandler.HandleMountText, nil},
						{"GET", "/:id", LessonHandler.HandleGetState, nil},
						{"POST", "/:id/complete", LessonHandler.HandleComplete, nil},
						{"DELETE", "/:id", LessonHandler.HandleUnmount, nil},
						{"POST", "/:id/unload", LessonHandler.HandleUnload, nil},
					},
				},
				{
					prefix:      "/notifications",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware},
					routes: []*route{
						{"GET", "", NotificationHandler.HandleList, nil},
						{"PUT", "/read-all", NotificationHandler.HandleMarkAllRead, nil},
						{"PUT", "/:documentId/read", NotificationHandler.HandleMarkRead, nil},
					},
				},
				{
					prefix:      "/realtime",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware},
					routes: []*route{
						{"GET", "/status", handler.HandleRealtimeStatus(deps.Realtime), nil},
					},
				},
				{
					prefix: "/ws",
					routes: []*route{
						// the session ID is the player page's credential
						{"GET", "/player/:id", websocket.WithHeartbeat(SocketHandler.HandlePlayer), nil},
						{"GET", "/feed", websocket.WithHeartbeat(SocketHandler.HandleFeed), []echo.MiddlewareFunc{jwtMiddleware}},
					},
				},
			},
		}, logger)
	return app
}

// Serve listen on addr until ctx is done, then shut down gracefully
func Serve(ctx context.Context, app *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func registerLivenessProbe(app *echo.Echo, rdb driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		if rdb.Ping(c.Request().Context()) == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
