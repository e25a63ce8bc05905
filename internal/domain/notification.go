package domain

import (
	"context"
	"time"
)

// NotificationType enumerated notification category
type NotificationType string

const (
	NotificationCourseEnrollment     NotificationType = "course-enrollment"
	NotificationBundleEnrollment     NotificationType = "bundle-enrollment"
	NotificationCourseCompletion     NotificationType = "course-completion"
	NotificationCertificateIssued    NotificationType = "certificate-issued"
	NotificationAssignmentSubmission NotificationType = "assignment-submission"
	NotificationAssignmentReviewed   NotificationType = "assignment-reviewed"
	NotificationReviewSubmission     NotificationType = "review-submission"
	NotificationReviewApproval       NotificationType = "review-approval"
	NotificationReviewDelete         NotificationType = "review-delete"
	NotificationProgressUpdate       NotificationType = "progress-update"
	NotificationUserBlocked          NotificationType = "user-blocked"
	NotificationSystemMaintenance    NotificationType = "system-maintenance"
	NotificationOrderPlacement       NotificationType = "order-placement"
)

// Priority notification priority
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NotificationEntry a notification of the current user
type NotificationEntry struct {
	ID         int              `json:"id"`
	DocumentID string           `json:"documentId"` // dedup key
	Title      string           `json:"title"`
	Content    string           `json:"content"`
	Type       NotificationType `json:"type"`
	Priority   Priority         `json:"priority"`
	CreatedAt  time.Time        `json:"createdAt"`
	ActionURL  string           `json:"actionUrl,omitempty"`
	IsRead     bool             `json:"isRead"`
}

// NotificationAPI backend notification endpoints of the current user
type NotificationAPI interface {
	FetchNotifications(ctx context.Context) ([]*NotificationEntry, error)
	MarkNotificationAsRead(ctx context.Context, documentID string) error
	MarkAllNotificationsAsRead(ctx context.Context) error
}

// Tone presentation tone of a toast
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneError   Tone = "error"
)

// Toast transient UI message
type Toast struct {
	Tone      Tone   `json:"tone"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	ActionURL string `json:"actionUrl,omitempty"`
}

// Toaster shows transient messages to the user
type Toaster interface {
	Toast(toast Toast)
}
