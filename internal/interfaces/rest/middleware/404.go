package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// NoRouteMatchedOption options for unmatched routes
type NoRouteMatchedOption struct {
	// Handler writes the not-found reply, the default is a {code,title,path} body
	Handler func(c echo.Context) error
}

// NoRouteMatched reply to unknown routes and missing resources with an error body
// instead of echo's plain message
func NoRouteMatched(options ...*NoRouteMatchedOption) echo.MiddlewareFunc {
	handler := func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"code":  http.StatusNotFound,
			"title": http.StatusText(http.StatusNotFound),
			"path":  c.Request().URL.Path,
		})
	}
	if len(options) > 0 && options[0].Handler != nil {
		handler = options[0].Handler
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if v, ok := err.(*echo.HTTPError); ok && v.Code == http.StatusNotFound && !c.Response().Committed {
				return handler(c)
			}
			return err
		}
	}
}
