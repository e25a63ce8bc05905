package notification

import "github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"

// Rendered text of a notification as shown to a viewer
type Rendered struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// RenderForAudience text of entry as seen by a viewer with the given role.
//
// Every role currently sees the entry's own text. Rewriting second person
// wording for administrators who watch other users' activity is not decided
// yet and belongs here once it is.
func RenderForAudience(entry *domain.NotificationEntry, _ domain.Role) Rendered {
	if entry == nil {
		return Rendered{}
	}
	return Rendered{Title: entry.Title, Content: entry.Content}
}
