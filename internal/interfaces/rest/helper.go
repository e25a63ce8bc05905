package rest

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type endpoint struct {
	apiVersion  string
	middlewares []echo.MiddlewareFunc
	groups      []*apiGroup
}

type apiGroup struct {
	prefix      string
	middlewares []echo.MiddlewareFunc
	routes      []*route
}

type route struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
}

type registerFunc func(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route

func methodsOf(g *echo.Group) map[string]registerFunc {
	return map[string]registerFunc{
		"GET":    g.GET,
		"POST":   g.POST,
		"PUT":    g.PUT,
		"PATCH":  g.PATCH,
		"DELETE": g.DELETE,
		"HEAD":   g.HEAD,
	}
}

// createEndpoint register the endpoint table under its api version, panics on an unknown method
func createEndpoint(app *echo.Echo, def *endpoint, logger *zap.Logger) []*echo.Route {
	root := app.Group("/"+strings.TrimPrefix(def.apiVersion, "/"), def.middlewares...)

	var registered []*echo.Route
	for _, group := range def.groups {
		echoGroup := root.Group(group.prefix, group.middlewares...)
		methods := methodsOf(echoGroup)
		for _, api := range group.routes {
			register, ok := methods[api.method]
			if !ok {
				panic(fmt.Errorf("createEndpoint: unknown method %s", api.method))
			}
			r := register(api.path, api.handler, api.middlewares...)
			logger.Debug("Registered route", zap.String("method", r.Method), zap.String("path", r.Path))
			registered = append(registered, r)
		}
	}
	return registered
}
