package core

import (
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrRoomNotFound = errors.New("room not found")

// Registry owns every live Room. A room exists only while it has members.
//
// Lock order is room.mu before Registry.mu; the registry lock is never held
// while waiting for a room lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room

	// OnRoomCreated runs under the registry lock, OnRoomDeleted under the room lock.
	OnRoomCreated func(domain.RoomID)
	OnRoomDeleted func(domain.RoomID)
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*Room)}
}

// GetOrCreate returns the live room for id, creating an empty one if absent.
func (r *Registry) GetOrCreate(id domain.RoomID) *Room {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok = r.rooms[id]; ok {
		return room
	}
	room = newRoom(id)
	r.rooms[id] = room
	log.Debug().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	if r.OnRoomCreated != nil {
		r.OnRoomCreated(id)
	}
	return room
}

func (r *Registry) Get(id domain.RoomID) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// WithRoom runs fn with exclusive access to room id. When create is false and
// the room does not exist, it returns ErrRoomNotFound without calling fn.
// A room left empty by fn is removed from the registry before WithRoom returns.
func (r *Registry) WithRoom(id domain.RoomID, create bool, fn func(*Room) error) error {
	for {
		var room *Room
		if create {
			room = r.GetOrCreate(id)
		} else {
			var ok bool
			if room, ok = r.Get(id); !ok {
				return ErrRoomNotFound
			}
		}

		room.mu.Lock()
		if room.deleted {
			// Lost a race with the removal of the last member; look again.
			room.mu.Unlock()
			continue
		}
		err := fn(room)
		r.deleteIfEmptyLocked(room)
		room.mu.Unlock()
		return err
	}
}

// DeleteIfEmpty removes room id iff it has no participants. It is a no-op for
// unknown or non-empty rooms.
func (r *Registry) DeleteIfEmpty(id domain.RoomID) bool {
	room, ok := r.Get(id)
	if !ok {
		return false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return r.deleteIfEmptyLocked(room)
}

func (r *Registry) deleteIfEmptyLocked(room *Room) bool {
	if room.deleted || room.Len() > 0 {
		return false
	}
	r.mu.Lock()
	if cur, ok := r.rooms[room.id]; ok && cur == room {
		delete(r.rooms, room.id)
	}
	r.mu.Unlock()
	room.deleted = true
	log.Debug().Str("module", "core.registry").Str("room", string(room.id)).Msg("room deleted")
	if r.OnRoomDeleted != nil {
		r.OnRoomDeleted(room.id)
	}
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// List returns a summary of each live room sorted by id.
func (r *Registry) List() []RoomSummary {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if !room.deleted && room.Len() > 0 {
			out = append(out, room.Summary())
		}
		room.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
