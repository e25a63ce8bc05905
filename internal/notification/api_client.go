package notification

import (
	"context"
	"net/http"
	"net/url"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/backend"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.elastic.co/apm"
)

const notificationsPath = "/api/notifications"

// APIClient notification endpoints of the CMS backend
type APIClient struct {
	backend *backend.Client
}

var _ domain.NotificationAPI = &APIClient{}

// NewAPIClient .
func NewAPIClient(backend *backend.Client) *APIClient {
	return &APIClient{backend: backend}
}

type listResponse struct {
	Data []*domain.NotificationEntry `json:"data"`
}

// FetchNotifications implement domain.NotificationAPI
func (ac *APIClient) FetchNotifications(ctx context.Context) ([]*domain.NotificationEntry, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "APIClient.FetchNotifications", "external")
	defer apmSpan.End()

	var res listResponse
	if err := ac.backend.Do(ctx, http.MethodGet, notificationsPath, nil, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// MarkNotificationAsRead implement domain.NotificationAPI
func (ac *APIClient) MarkNotificationAsRead(ctx context.Context, documentID string) error {
	apmSpan, ctx := apm.StartSpan(ctx, "APIClient.MarkNotificationAsRead", "external")
	defer apmSpan.End()

	return ac.backend.Do(ctx, http.MethodPut, notificationsPath+"/"+url.PathEscape(documentID)+"/read", nil, nil)
}

// MarkAllNotificationsAsRead implement domain.NotificationAPI
func (ac *APIClient) MarkAllNotificationsAsRead(ctx context.Context) error {
	apmSpan, ctx := apm.StartSpan(ctx, "APIClient.MarkAllNotificationsAsRead", "external")
	defer apmSpan.End()

	return ac.backend.Do(ctx, http.MethodPut, notificationsPath+"/read-all", nil, nil)
}
