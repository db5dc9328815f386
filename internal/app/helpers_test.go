package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/stretchr/testify/require"
)

type event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// fakeConn records every frame it accepts.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	fail   error
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.closed {
		return core.ErrConnectionClosed
	}
	f.frames = append(f.frames, append(core.Frame(nil), fr...))
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) events(t *testing.T) []event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event, 0, len(f.frames))
	for _, fr := range f.frames {
		var ev event
		require.NoError(t, json.Unmarshal(fr, &ev))
		out = append(out, ev)
	}
	return out
}

func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, ev := range f.events(t) {
		out = append(out, ev.Type)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, eventType string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for _, ev := range f.events(t) {
		if ev.Type == eventType {
			out = append(out, ev.Data)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type harness struct {
	rooms   *core.Registry
	conns   *Connections
	members *Membership
	relay   *Relay
	out     *Outbox
}

func newHarness() *harness {
	rooms := core.NewRegistry()
	conns := NewConnections()
	out := &Outbox{Policy: DropPolicy{}}
	members := &Membership{
		Rooms:    rooms,
		Conns:    conns,
		Presence: &Presence{Out: out},
		Strict:   true,
	}
	return &harness{
		rooms:   rooms,
		conns:   conns,
		members: members,
		relay:   &Relay{Conns: conns, Members: members, Out: out},
		out:     out,
	}
}

func (h *harness) connect(t *testing.T, id string) *fakeConn {
	t.Helper()
	c := &fakeConn{}
	require.True(t, h.conns.Bind(domain.ConnectionID(id), c, "client-"+id, nil))
	return c
}

func (h *harness) join(t *testing.T, id, room string, streamer bool) JoinResult {
	t.Helper()
	res, err := h.members.Join(domain.ConnectionID(id), room, "name-"+id, streamer)
	require.NoError(t, err)
	return res
}

// assertRoomInvariants checks the registry-wide properties after a step.
func (h *harness) assertRoomInvariants(t *testing.T) {
	t.Helper()
	for _, s := range h.rooms.List() {
		require.NoError(t, h.rooms.WithRoom(s.RoomID, false, func(room *core.Room) error {
			require.Positive(t, room.Len())
			streamers := 0
			for _, p := range room.Snapshot() {
				if p.IsStreamer {
					streamers++
				}
				back, ok := h.conns.RoomOf(p.ID)
				require.True(t, ok)
				require.Equal(t, room.ID(), back)
			}
			require.Equal(t, 1, streamers)
			return room.CheckInvariants()
		}))
	}
}
