package domain

// Role viewer role of the current user
type Role string

const (
	RoleLearner Role = "learner"
	RoleAdmin   Role = "admin"
)

// Identity the authenticated learner the sidecar works for
type Identity struct {
	DocumentID string // stable user document ID, names the realtime channel
	Email      string
	Name       string
	Role       Role
	Token      string // bearer token forwarded to the backend API
}

// Known reports whether the identity can open a realtime channel
func (i *Identity) Known() bool {
	return i != nil && i.DocumentID != ""
}
