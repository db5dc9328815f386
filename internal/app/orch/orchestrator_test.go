package orch

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (r *recConn) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *recConn) Close() {}

func (r *recConn) data(t *testing.T, eventType string) []json.RawMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []json.RawMessage
	for _, f := range r.frames {
		var env core.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		if env.Type == eventType {
			out = append(out, env.Data)
		}
	}
	return out
}

type peer struct {
	id       domain.ConnectionID
	conn     *recConn
	canceled int
}

func connect(t *testing.T, o *Orchestrator, id string) *peer {
	t.Helper()
	p := &peer{id: domain.ConnectionID(id), conn: &recConn{}}
	require.NoError(t, o.Connect(p.id, p.conn, "", func() { p.canceled++ }))
	return p
}

func newTestOrchestrator() *Orchestrator {
	return New(Options{Metrics: metrics.New(prometheus.NewRegistry()), Strict: true})
}

func TestConnectSendsWelcome(t *testing.T) {
	o := newTestOrchestrator()
	a := connect(t, o, "A")

	welcome := a.conn.data(t, core.EventWelcome)
	require.Len(t, welcome, 1)
	var w core.Welcome
	require.NoError(t, json.Unmarshal(welcome[0], &w))
	assert.Equal(t, domain.ConnectionID("A"), w.ConnectionID)
	assert.Equal(t, StateConnected, o.StateOf("A"))

	assert.Error(t, o.Connect("A", &recConn{}, "", nil), "connection ids are unique")
}

func TestLifecycleTransitions(t *testing.T) {
	o := newTestOrchestrator()
	a := connect(t, o, "A")

	require.NoError(t, o.JoinRoom("A", core.JoinRoomRequest{RoomID: "r1", DisplayName: "alice"}))
	assert.Equal(t, StateJoined, o.StateOf("A"))

	require.NoError(t, o.LeaveRoom("A"))
	assert.Equal(t, StateConnected, o.StateOf("A"))
	assert.Error(t, o.LeaveRoom("A"))

	require.NoError(t, o.JoinRoom("A", core.JoinRoomRequest{RoomID: "r1", DisplayName: "alice"}))
	o.Disconnect("A")
	assert.Equal(t, StateClosed, o.StateOf("A"))
	assert.Equal(t, 1, a.canceled)
	assert.Equal(t, 0, o.Rooms.Len())

	o.Disconnect("A")
	assert.Equal(t, 1, a.canceled, "teardown runs exactly once")

	assert.Error(t, o.JoinRoom("A", core.JoinRoomRequest{RoomID: "r1", DisplayName: "alice"}), "no transition out of Closed")
	assert.Equal(t, 0, o.Rooms.Len())
}

func TestDisconnectWithoutJoin(t *testing.T) {
	o := newTestOrchestrator()
	a := connect(t, o, "A")
	o.Disconnect("A")
	assert.Equal(t, StateClosed, o.StateOf("A"))
	assert.Equal(t, 1, a.canceled)
	assert.Equal(t, 0, o.Registry.Len())
}

func TestDisconnectStreamerFailover(t *testing.T) {
	o := newTestOrchestrator()
	connect(t, o, "A")
	b := connect(t, o, "B")
	c := connect(t, o, "C")
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, o.JoinRoom(domain.ConnectionID(id), core.JoinRoomRequest{RoomID: "r1", DisplayName: "n" + id}))
	}

	o.Disconnect("A")

	for _, p := range []*peer{b, c} {
		ns := p.conn.data(t, core.EventNewStreamer)
		require.Len(t, ns, 1, "exactly one new-streamer per remaining member")
		var ev core.NewStreamer
		require.NoError(t, json.Unmarshal(ns[0], &ev))
		assert.Equal(t, core.NewStreamer{StreamerID: "B", DisplayName: "nB"}, ev)

		gone := p.conn.data(t, core.EventUserDisconnected)
		require.Len(t, gone, 1)
		assert.JSONEq(t, `"A"`, string(gone[0]))
	}

	view, err := o.Members.Snapshot("r1")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionID("B"), view.StreamerID)
	require.Len(t, view.Participants, 2)
	assert.True(t, view.Participants[0].IsStreamer)
	assert.False(t, view.Participants[1].IsStreamer)
}

func TestSignalsThroughOrchestrator(t *testing.T) {
	o := newTestOrchestrator()
	a := connect(t, o, "A")
	b := connect(t, o, "B")
	require.NoError(t, o.JoinRoom("A", core.JoinRoomRequest{RoomID: "r1", DisplayName: "alice"}))
	require.NoError(t, o.JoinRoom("B", core.JoinRoomRequest{RoomID: "r1", DisplayName: "bob"}))

	require.NoError(t, o.SendSignal("A", core.SendingSignalRequest{ToConnectionID: "B", Payload: json.RawMessage(`"offer-blob"`)}))
	require.NoError(t, o.ReturnSignal("B", core.ReturningSignalRequest{ToConnectionID: "A", Payload: json.RawMessage(`"answer-blob"`)}))
	assert.Error(t, o.SendSignal("A", core.SendingSignalRequest{ToConnectionID: "A", Payload: json.RawMessage(`"x"`)}))

	joined := b.conn.data(t, core.EventUserJoined)
	require.Len(t, joined, 1)
	assert.JSONEq(t, `{"payload":"offer-blob","fromConnectionId":"A","displayName":"alice","isStreamer":true}`, string(joined[0]))

	returned := a.conn.data(t, core.EventReturnedSignal)
	require.Len(t, returned, 1)
	assert.JSONEq(t, `{"payload":"answer-blob","fromConnectionId":"B"}`, string(returned[0]))
	assert.Empty(t, a.conn.data(t, core.EventUserJoined))
}

func TestStreamStateAndControl(t *testing.T) {
	o := newTestOrchestrator()
	a := connect(t, o, "A")
	b := connect(t, o, "B")
	require.NoError(t, o.JoinRoom("A", core.JoinRoomRequest{RoomID: "r1", DisplayName: "alice"}))
	require.NoError(t, o.JoinRoom("B", core.JoinRoomRequest{RoomID: "r1", DisplayName: "bob"}))

	require.NoError(t, o.StreamState("A", core.StreamStateRequest{RoomID: "r1"}, true))
	assert.Len(t, b.conn.data(t, core.EventStreamStarted), 1)
	assert.Empty(t, a.conn.data(t, core.EventStreamStarted))

	o.Ping("A")
	assert.Len(t, a.conn.data(t, core.EventPong), 1)

	o.WhoAmI("A")
	who := a.conn.data(t, core.EventWhoAmI)
	require.Len(t, who, 1)
	assert.JSONEq(t, `{"connectionId":"A","displayName":"alice","roomId":"r1","isStreamer":true}`, string(who[0]))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "joined", StateJoined.String())
	assert.Equal(t, "closed", StateClosed.String())
}
