package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/validate"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/tracker"
)

// TrackerRegistry live tracker sessions
type TrackerRegistry interface {
	MountVideo(lesson tracker.Lesson) (tracker.Tracker, error)
	MountText(lesson tracker.Lesson) (tracker.Tracker, error)
	Get(id string) (tracker.Tracker, error)
	Unmount(id string, reason string) error
}

// LessonHandler lesson tracking endpoints
type LessonHandler struct {
	registry  TrackerRegistry
	validator validate.Validator
}

// NewLessonHandler .
func NewLessonHandler(registry TrackerRegistry, validator validate.Validator) *LessonHandler {
	return &LessonHandler{registry: registry, validator: validator}
}

type mountResponse struct {
	SessionID string               `json:"sessionId"`
	State     *domain.TrackerState `json:"state"`
}

type completeResponse struct {
	Completed bool                 `json:"completed"` // false when the completion was reported before
	State     *domain.TrackerState `json:"state"`
}

// HandleMountVideo mount a video lesson tracker
func (lh *LessonHandler) HandleMountVideo(c echo.Context) error {
	return lh.mount(c, lh.registry.MountVideo)
}

// HandleMountText mount a text lesson tracker
func (lh *LessonHandler) HandleMountText(c echo.Context) error {
	return lh.mount(c, lh.registry.MountText)
}

func (lh *LessonHandler) mount(c echo.Context, mount func(tracker.Lesson) (tracker.Tracker, error)) error {
	lesson := new(tracker.Lesson)
	if err := c.Bind(lesson); err != nil {
		return replyError(c, http.StatusUnprocessableEntity, "Failed to bind lesson")
	}
	if errs := lh.validator.Struct(lesson); errs != nil {
		return replyInvalid(c, "Failed to validate lesson", errs)
	}

	t, err := mount(*lesson)
	if err != nil {
		var ie *domain.IdentifierError
		if errors.As(err, &ie) {
			return replyInvalid(c, "Failed to validate lesson", []*validate.FieldError{
				validate.NewFieldError(ie.Field, err.Error()),
			})
		}
		return err
	}
	return c.JSON(http.StatusCreated, &mountResponse{SessionID: t.ID(), State: t.State()})
}

// HandleGetState read-only tracker state
func (lh *LessonHandler) HandleGetState(c echo.Context) error {
	t, err := lh.registry.Get(c.Param("id"))
	if err != nil {
		return lh.replyLookup(c, err)
	}
	return c.JSON(http.StatusOK, t.State())
}

// HandleComplete manual completion
func (lh *LessonHandler) HandleComplete(c echo.Context) error {
	t, err := lh.registry.Get(c.Param("id"))
	if err != nil {
		return lh.replyLookup(c, err)
	}
	completed := t.MarkAsCompleted()
	return c.JSON(http.StatusOK, &completeResponse{Completed: completed, State: t.State()})
}

// HandleUnmount route change, the final report is flushed before the session goes away
func (lh *LessonHandler) HandleUnmount(c echo.Context) error {
	if err := lh.registry.Unmount(c.Param("id"), "unmount"); err != nil {
		return lh.replyLookup(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUnload page unload beacon, answers before the final report is delivered
func (lh *LessonHandler) HandleUnload(c echo.Context) error {
	if err := lh.registry.Unmount(c.Param("id"), "unload"); err != nil {
		return lh.replyLookup(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (lh *LessonHandler) replyLookup(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return replyError(c, http.StatusNotFound, err.Error())
	}
	return err
}
