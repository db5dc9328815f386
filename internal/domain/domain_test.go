package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDisplayName(t *testing.T) {
	name, err := ParseDisplayName("  alice ")
	require.NoError(t, err)
	assert.Equal(t, DisplayName("alice"), name)

	_, err = ParseDisplayName("   ")
	assert.ErrorIs(t, err, ErrDisplayNameEmpty)

	_, err = ParseDisplayName(strings.Repeat("x", MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)
}

func TestParseRoomID(t *testing.T) {
	id, err := ParseRoomID("r1")
	require.NoError(t, err)
	assert.Equal(t, RoomID("r1"), id)

	_, err = ParseRoomID("")
	assert.ErrorIs(t, err, ErrRoomIDEmpty)

	_, err = ParseRoomID(strings.Repeat("r", MaxRoomIDLen+1))
	assert.ErrorIs(t, err, ErrRoomIDTooLong)
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	seen := make(map[ConnectionID]struct{})
	for i := 0; i < 100; i++ {
		id := NewConnectionID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
	assert.NotEqual(t, NewRoomID(), NewRoomID())
}
