package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of one connection.
type State int

const (
	StateConnected State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	default:
		return "closed"
	}
}

type Options struct {
	Policy  app.Policy
	Metrics *metrics.Metrics
	Strict  bool
}

// Orchestrator binds channel events to membership, presence and relay, and
// runs the cleanup path when a channel closes.
//
// Events of one connection must be delivered sequentially (the channel
// layer's read loop does this); events of different connections may run
// concurrently.
type Orchestrator struct {
	Registry *app.Connections
	Rooms    *core.Registry
	Members  *app.Membership
	Presence *app.Presence
	Relay    *app.Relay
	Out      *app.Outbox
	Metrics  *metrics.Metrics
}

func New(opts Options) *Orchestrator {
	policy := opts.Policy
	if policy == nil {
		policy = app.DropPolicy{}
	}
	rooms := core.NewRegistry()
	rooms.OnRoomCreated = func(domain.RoomID) { opts.Metrics.RoomCreated() }
	rooms.OnRoomDeleted = func(domain.RoomID) { opts.Metrics.RoomDeleted() }

	conns := app.NewConnections()
	out := &app.Outbox{Policy: policy, Metrics: opts.Metrics}
	presence := &app.Presence{Out: out}
	members := &app.Membership{
		Rooms:    rooms,
		Conns:    conns,
		Presence: presence,
		Metrics:  opts.Metrics,
		Strict:   opts.Strict,
	}
	return &Orchestrator{
		Registry: conns,
		Rooms:    rooms,
		Members:  members,
		Presence: presence,
		Relay:    &app.Relay{Conns: conns, Members: members, Out: out, Metrics: opts.Metrics},
		Out:      out,
		Metrics:  opts.Metrics,
	}
}

// Connect registers a new channel (state Connected) and greets it with its id.
// cancel is called exactly once, when the connection reaches Closed.
func (o *Orchestrator) Connect(sid domain.ConnectionID, conn core.SignalConnection, client string, cancel context.CancelFunc) error {
	if !o.Registry.Bind(sid, conn, client, cancel) {
		return fmt.Errorf("connect %s: duplicate connection id", sid)
	}
	o.Metrics.ConnectionOpened()
	_ = o.Out.Emit(sid, conn, core.EventWelcome, core.Welcome{ConnectionID: sid})
	return nil
}

// Disconnect moves the connection to Closed. Repeated calls are no-ops.
func (o *Orchestrator) Disconnect(sid domain.ConnectionID) {
	if !o.Registry.MarkClosing(sid) {
		return
	}
	if _, ok := o.Registry.RoomOf(sid); ok {
		if _, err := o.Members.Leave(sid); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("leave on disconnect")
		}
	}
	o.Registry.Cancel(sid)
	o.Registry.Unbind(sid)
	o.Metrics.ConnectionClosed()
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("connection closed")
}

func (o *Orchestrator) StateOf(sid domain.ConnectionID) State {
	info, ok := o.Registry.Info(sid)
	switch {
	case !ok || info.Closing:
		return StateClosed
	case info.RoomID != "":
		return StateJoined
	default:
		return StateConnected
	}
}

func (o *Orchestrator) Ping(sid domain.ConnectionID) {
	if conn, ok := o.Registry.Get(sid); ok {
		_ = o.Out.Emit(sid, conn, core.EventPong, nil)
	}
}

func (o *Orchestrator) WhoAmI(sid domain.ConnectionID) {
	conn, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	info, _ := o.Registry.Info(sid)
	resp := core.WhoAmI{ConnectionID: sid}
	if info.RoomID != "" {
		resp.RoomID = info.RoomID
		resp.DisplayName = info.Name
		resp.IsStreamer = o.Members.IsStreamer(sid)
	}
	_ = o.Out.Emit(sid, conn, core.EventWhoAmI, resp)
}
