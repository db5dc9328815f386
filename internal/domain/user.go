// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 64
	MaxRoomIDLen      = 128
)

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

// ConnectionID identifies one live channel. It is assigned by the channel
// layer and never taken from the client.
type ConnectionID string

// NewConnectionID returns a process-unique connection id.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// DisplayName is a client-supplied label. It is not unique.
type DisplayName string

func ParseDisplayName(raw string) (DisplayName, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 {
		return "", ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return DisplayName(name), nil
}
