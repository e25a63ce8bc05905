package domain

import (
	"errors"
	"fmt"
)

// ErrNotReady the player surface has not been attached yet
var ErrNotReady = errors.New("player surface is not ready")

// ErrSessionNotFound no live tracker session with the given ID
var ErrSessionNotFound = errors.New("tracking session not found")

// ErrNoIdentity an operation needs a known user identity
var ErrNoIdentity = errors.New("no user identity")

// ErrNotificationNotFound no notification with the given document ID in the store
var ErrNotificationNotFound = errors.New("notification not found")

// IdentifierError a required identifier is missing
type IdentifierError struct {
	Field string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("missing required identifier: %s", e.Field)
}

// IsMissingIdentifier .
func IsMissingIdentifier(err error) bool {
	var ie *IdentifierError
	return errors.As(err, &ie)
}
