package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/validate"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/notification"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/realtime"
)

// NotificationHandler notification list endpoints
type NotificationHandler struct {
	service   *notification.Service
	validator validate.Validator
}

// NewNotificationHandler .
func NewNotificationHandler(service *notification.Service, validator validate.Validator) *NotificationHandler {
	return &NotificationHandler{service: service, validator: validator}
}

// HandleList list and unread count
func (nh *NotificationHandler) HandleList(c echo.Context) error {
	return c.JSON(http.StatusOK, nh.service.Store().Snapshot())
}

// HandleMarkRead mark one notification as read, a failed server call shows up as a toast
func (nh *NotificationHandler) HandleMarkRead(c echo.Context) error {
	documentID := c.Param("documentId")
	if errs := nh.validator.Empty("documentId", documentID); errs != nil {
		return replyInvalid(c, "Failed to validate params", errs)
	}
	if err := nh.service.MarkRead(c.Request().Context(), documentID); err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			return replyError(c, http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, nh.service.Store().Snapshot())
}

// HandleMarkAllRead mark every notification as read
func (nh *NotificationHandler) HandleMarkAllRead(c echo.Context) error {
	nh.service.MarkAllRead(c.Request().Context())
	return c.JSON(http.StatusOK, nh.service.Store().Snapshot())
}

// RealtimeStatus state of the realtime connection
type RealtimeStatus interface {
	State() realtime.State
	IsConnected() bool
}

type realtimeStatusResponse struct {
	State       realtime.State `json:"state"`
	IsConnected bool           `json:"isConnected"`
}

// HandleRealtimeStatus passive connection indicator
func HandleRealtimeStatus(status RealtimeStatus) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, &realtimeStatusResponse{
			State:       status.State(),
			IsConnected: status.IsConnected(),
		})
	}
}
