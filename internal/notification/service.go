package notification

import (
	"context"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// toasts shown when a read action fails
var (
	markReadFailed = domain.Toast{
		Tone:    domain.ToneError,
		Title:   "Could not mark the notification as read",
		Content: "Something went wrong, please try again.",
	}
	markAllReadFailed = domain.Toast{
		Tone:    domain.ToneError,
		Title:   "Could not mark all notifications as read",
		Content: "Something went wrong, please try again.",
	}
)

// Service keeps the store in line with the backend.
// Read actions patch the store first, a failed server call refetches instead of rolling back.
type Service struct {
	api     domain.NotificationAPI
	store   *Store
	toaster domain.Toaster
	logger  *zap.Logger
	fetches singleflight.Group
}

// NewService .
func NewService(api domain.NotificationAPI, store *Store, toaster domain.Toaster, logger *zap.Logger) *Service {
	return &Service{
		api:     api,
		store:   store,
		toaster: toaster,
		logger:  logger,
	}
}

// Store .
func (ns *Service) Store() *Store {
	return ns.store
}

// Load fetch the list and seed the store, concurrent loads share one request
func (ns *Service) Load(ctx context.Context) error {
	apmSpan, ctx := apm.StartSpan(ctx, "NotificationService.Load", "service")
	defer apmSpan.End()

	_, err, _ := ns.fetches.Do("fetch", func() (interface{}, error) {
		list, err := ns.api.FetchNotifications(ctx)
		if err != nil {
			return nil, err
		}
		ns.store.IngestFetched(list)
		return nil, nil
	})
	return err
}

// Invalidate refetch the list, failures are only logged
func (ns *Service) Invalidate(ctx context.Context) {
	if err := ns.Load(ctx); err != nil {
		ns.logger.Warn("Failed to refetch notifications", zap.Error(err))
	}
}

// MarkRead mark one notification as read
func (ns *Service) MarkRead(ctx context.Context, documentID string) error {
	apmSpan, ctx := apm.StartSpan(ctx, "NotificationService.MarkRead", "service")
	defer apmSpan.End()

	if !ns.store.MarkRead(documentID) {
		return domain.ErrNotificationNotFound
	}
	if err := ns.api.MarkNotificationAsRead(ctx, documentID); err != nil {
		ns.logger.Warn("Failed to mark notification as read",
			zap.String("notification.document_id", documentID),
			zap.Error(err),
		)
		ns.toaster.Toast(markReadFailed)
		ns.Invalidate(ctx)
	}
	return nil
}

// MarkAllRead mark every notification as read
func (ns *Service) MarkAllRead(ctx context.Context) {
	apmSpan, ctx := apm.StartSpan(ctx, "NotificationService.MarkAllRead", "service")
	defer apmSpan.End()

	ns.store.MarkAllRead()
	if err := ns.api.MarkAllNotificationsAsRead(ctx); err != nil {
		ns.logger.Warn("Failed to mark all notifications as read", zap.Error(err))
		ns.toaster.Toast(markAllReadFailed)
		ns.Invalidate(ctx)
	}
}
