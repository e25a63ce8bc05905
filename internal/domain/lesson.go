package domain

import (
	"context"
	"time"
)

// LessonStatus progress status reported for a lesson
type LessonStatus string

// lesson status, inProgress -> completed is one-way
const (
	StatusInProgress LessonStatus = "inProgress"
	StatusCompleted  LessonStatus = "completed"
)

// LessonKind which tracker owns the lesson
type LessonKind string

const (
	LessonVideo LessonKind = "video"
	LessonText  LessonKind = "text"
)

// LessonRef identifies a lesson inside its module and course, immutable for a tracking session
type LessonRef struct {
	CourseID string `json:"courseId" validate:"required"`
	ModuleID string `json:"moduleId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required"`
}

// Validate missing identifiers are programmer errors
func (r LessonRef) Validate() error {
	switch {
	case r.CourseID == "":
		return &IdentifierError{Field: "courseId"}
	case r.ModuleID == "":
		return &IdentifierError{Field: "moduleId"}
	case r.LessonID == "":
		return &IdentifierError{Field: "lessonId"}
	}
	return nil
}

// ModuleProgress completion counters of the module owning the lesson
type ModuleProgress struct {
	CompletedLessons int `json:"completedLessons" validate:"min=0"`
	TotalLessons     int `json:"totalLessons" validate:"min=0"`
}

// CompletesModule reports whether completing one more (not yet completed) lesson
// brings the module to its total lesson count
func (m ModuleProgress) CompletesModule() bool {
	return m.TotalLessons > 0 && m.CompletedLessons+1 >= m.TotalLessons
}

// ProgressPayload body of a lesson progress upsert
type ProgressPayload struct {
	StartedAt         time.Time    `json:"startedAt"`
	LastPosition      float64      `json:"lastPosition"`
	TimeSpent         int          `json:"timeSpent"` // seconds, running total across sessions
	LessonStatus      LessonStatus `json:"lessonStatus"`
	IsModuleCompleted bool         `json:"isModuleCompleted"`
}

// ProgressReporter idempotent upsert of lesson progress, keyed by lesson and user on the server.
//
// It performs no deduplication, callers own the guards.
type ProgressReporter interface {
	UpdateLessonProgress(ctx context.Context, ref LessonRef, payload *ProgressPayload) error
}

// TrackerState read-only tracker state exposed to the UI
type TrackerState struct {
	LessonRef

	SessionID       string     `json:"sessionId"`
	Kind            LessonKind `json:"kind"`
	IsCompleted     bool       `json:"isCompleted"`
	TimeSpent       int        `json:"timeSpent"`
	ProgressPercent float64    `json:"progressPercent"`
	CanComplete     bool       `json:"canComplete"`
}
