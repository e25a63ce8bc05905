package realtime

import "github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"

// Event a bound notification event and the tone its toast is shown with
type Event struct {
	Name domain.NotificationType
	Tone domain.Tone
}

// Catalogue the events bound on every user channel
var Catalogue = []Event{
	{domain.NotificationCourseEnrollment, domain.ToneSuccess},
	{domain.NotificationBundleEnrollment, domain.ToneSuccess},
	{domain.NotificationCourseCompletion, domain.ToneSuccess},
	{domain.NotificationCertificateIssued, domain.ToneSuccess},
	{domain.NotificationAssignmentSubmission, domain.ToneInfo},
	{domain.NotificationAssignmentReviewed, domain.ToneInfo},
	{domain.NotificationReviewSubmission, domain.ToneInfo},
	{domain.NotificationReviewApproval, domain.ToneSuccess},
	{domain.NotificationReviewDelete, domain.ToneWarning},
	{domain.NotificationProgressUpdate, domain.ToneInfo},
	{domain.NotificationUserBlocked, domain.ToneError},
	{domain.NotificationSystemMaintenance, domain.ToneWarning},
	{domain.NotificationOrderPlacement, domain.ToneSuccess},
}

// ToneOf tone of a notification type, info for anything outside the catalogue
func ToneOf(t domain.NotificationType) domain.Tone {
	for _, ev := range Catalogue {
		if ev.Name == t {
			return ev.Tone
		}
	}
	return domain.ToneInfo
}
