package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/validate"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewRESTStandardError .
func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

// SetTraceID .
func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

// NewRESTValidationError .
func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

// SetTraceID .
func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

func traceID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// replyError write a standard error carrying the request trace id
func replyError(c echo.Context, code int, detail string) error {
	return c.JSON(code, NewRESTStandardError(code, detail).SetTraceID(traceID(c)))
}

// replyInvalid write a validation error carrying the request trace id
func replyInvalid(c echo.Context, detail string, params []*validate.FieldError) error {
	return c.JSON(http.StatusBadRequest,
		NewRESTValidationError(http.StatusBadRequest, detail, params).SetTraceID(traceID(c)))
}
