package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

type RoomID string

// NewRoomID returns a server-generated room id.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

func ParseRoomID(raw string) (RoomID, error) {
	id := strings.TrimSpace(raw)
	if len(id) == 0 {
		return "", ErrRoomIDEmpty
	}
	if len(id) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(id), nil
}

// Participant is the read-only view of a room member.
// IsStreamer is computed from the room's streamer reference at snapshot time.
type Participant struct {
	ID         ConnectionID `json:"id"`
	Name       DisplayName  `json:"name"`
	IsStreamer bool         `json:"isStreamer"`
}
