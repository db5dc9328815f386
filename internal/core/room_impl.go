package core

import (
	"fmt"
	"sync"

	"github.com/dkeye/Stream/internal/domain"
)

// Member is one participant entry together with its transport endpoint.
type Member struct {
	ID   domain.ConnectionID
	Name domain.DisplayName
	Conn SignalConnection
}

// Room is the in-memory state of one session.
// Methods assume the caller holds exclusive access through Registry.WithRoom.
type Room struct {
	mu      sync.Mutex
	deleted bool

	id       domain.RoomID
	order    []domain.ConnectionID
	members  map[domain.ConnectionID]*Member
	streamer domain.ConnectionID
}

func newRoom(id domain.RoomID) *Room {
	return &Room{
		id:      id,
		members: make(map[domain.ConnectionID]*Member),
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) Len() int { return len(r.order) }

func (r *Room) Has(id domain.ConnectionID) bool {
	_, ok := r.members[id]
	return ok
}

func (r *Room) Member(id domain.ConnectionID) (*Member, bool) {
	m, ok := r.members[id]
	return m, ok
}

// StreamerID is empty only when the room is empty.
func (r *Room) StreamerID() domain.ConnectionID { return r.streamer }

func (r *Room) IsStreamer(id domain.ConnectionID) bool {
	return id != "" && r.streamer == id
}

// Add appends m in join order. It reports false if m is already a member.
func (r *Room) Add(m *Member) bool {
	if _, ok := r.members[m.ID]; ok {
		return false
	}
	r.members[m.ID] = m
	r.order = append(r.order, m.ID)
	return true
}

// Remove drops the member and clears the streamer reference if it pointed at it.
func (r *Room) Remove(id domain.ConnectionID) (*Member, bool) {
	m, ok := r.members[id]
	if !ok {
		return nil, false
	}
	delete(r.members, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.streamer == id {
		r.streamer = ""
	}
	return m, true
}

func (r *Room) SetStreamer(id domain.ConnectionID) error {
	if _, ok := r.members[id]; !ok {
		return fmt.Errorf("set streamer %s: not a member of room %s", id, r.id)
	}
	r.streamer = id
	return nil
}

// First returns the earliest-joined member.
func (r *Room) First() (*Member, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	return r.members[r.order[0]], true
}

// Members returns members in join order.
func (r *Room) Members() []*Member {
	out := make([]*Member, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id])
	}
	return out
}

// Others returns members in join order, excluding except.
func (r *Room) Others(except domain.ConnectionID) []*Member {
	out := make([]*Member, 0, len(r.order))
	for _, id := range r.order {
		if id == except {
			continue
		}
		out = append(out, r.members[id])
	}
	return out
}

func (r *Room) View(m *Member) domain.Participant {
	return domain.Participant{ID: m.ID, Name: m.Name, IsStreamer: r.IsStreamer(m.ID)}
}

// Snapshot lists participants in join order with streamer flags derived from the room.
func (r *Room) Snapshot() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.View(r.members[id]))
	}
	return out
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{RoomID: r.id, ParticipantCount: len(r.order), StreamerID: r.streamer}
}

// CheckInvariants reports drift between the join order, the member map and the streamer reference.
func (r *Room) CheckInvariants() error {
	if len(r.order) != len(r.members) {
		return fmt.Errorf("room %s: join order has %d entries, members has %d", r.id, len(r.order), len(r.members))
	}
	for _, id := range r.order {
		if _, ok := r.members[id]; !ok {
			return fmt.Errorf("room %s: %s in join order but not a member", r.id, id)
		}
	}
	if len(r.members) == 0 {
		if r.streamer != "" {
			return fmt.Errorf("room %s: empty room has streamer %s", r.id, r.streamer)
		}
		return nil
	}
	if _, ok := r.members[r.streamer]; !ok {
		return fmt.Errorf("room %s: streamer %q is not a member", r.id, r.streamer)
	}
	return nil
}
