package domain

import "context"

// PlayerEventName events pushed by an embedded video player
type PlayerEventName string

const (
	PlayerReady      PlayerEventName = "ready"
	PlayerTimeUpdate PlayerEventName = "timeupdate"
	PlayerEnded      PlayerEventName = "ended"
	PlayerError      PlayerEventName = "error"
)

// PlayerEvent payload of a player event, seconds and duration are zero when the player omits them
type PlayerEvent struct {
	Name     PlayerEventName `json:"event"`
	Seconds  float64         `json:"seconds"`
	Duration float64         `json:"duration"`
	Message  string          `json:"message,omitempty"`
}

// Player control capability of an embedded video player
type Player interface {
	// On registers handler for event, the returned func removes it
	On(event PlayerEventName, handler func(PlayerEvent)) (unbind func())
	CurrentTime(ctx context.Context) (float64, error)
	Duration(ctx context.Context) (float64, error)
}

// PlayerSurface the place a player gets embedded into, Bind fails with ErrNotReady
// until the player is attached
type PlayerSurface interface {
	Bind(ctx context.Context) (Player, error)
}
