package progress

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/backend"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.elastic.co/apm"
)

// Client lesson progress endpoint of the CMS backend
type Client struct {
	backend *backend.Client
}

var _ domain.ProgressReporter = &Client{}

// NewClient .
func NewClient(backend *backend.Client) *Client {
	return &Client{backend: backend}
}

// UpdateLessonProgress implement domain.ProgressReporter
func (pc *Client) UpdateLessonProgress(ctx context.Context, ref domain.LessonRef, payload *domain.ProgressPayload) error {
	apmSpan, ctx := apm.StartSpan(ctx, "ProgressClient.UpdateLessonProgress", "external")
	defer apmSpan.End()

	if err := ref.Validate(); err != nil {
		return err
	}
	path := fmt.Sprintf("/api/courses/%s/modules/%s/lessons/%s/progress",
		url.PathEscape(ref.CourseID),
		url.PathEscape(ref.ModuleID),
		url.PathEscape(ref.LessonID),
	)
	return pc.backend.Do(ctx, http.MethodPut, path, payload, nil)
}
