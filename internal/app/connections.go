package app

import (
	"context"
	"sync"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Conn   core.SignalConnection
	Client string
	Cancel context.CancelFunc

	// RoomID and Name are the back-reference to the joined room. They are
	// written only by Membership while it holds that room's lock.
	RoomID domain.RoomID
	Name   domain.DisplayName

	closing bool
}

// ConnInfo is a copy of one connection table entry.
type ConnInfo struct {
	ID      domain.ConnectionID
	Conn    core.SignalConnection
	Client  string
	RoomID  domain.RoomID
	Name    domain.DisplayName
	Closing bool
}

// Connections is the table of live channels, keyed by connection id.
type Connections struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*connEntry
}

func NewConnections() *Connections {
	return &Connections{conns: make(map[domain.ConnectionID]*connEntry)}
}

// Bind registers a freshly opened channel. It reports false if sid is taken.
func (c *Connections) Bind(sid domain.ConnectionID, conn core.SignalConnection, client string, cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conns[sid]; ok {
		return false
	}
	c.conns[sid] = &connEntry{Conn: conn, Client: client, Cancel: cancel}
	log.Info().Str("module", "app.connections").Str("sid", string(sid)).Str("client", client).Msg("bound connection")
	return true
}

// MarkClosing flags the connection as going away. Only the first call reports true.
// A closing connection is no longer a relay target and may not join.
func (c *Connections) MarkClosing(sid domain.ConnectionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.conns[sid]
	if !ok || e.closing {
		return false
	}
	e.closing = true
	return true
}

func (c *Connections) Unbind(sid domain.ConnectionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, sid)
	log.Info().Str("module", "app.connections").Str("sid", string(sid)).Msg("unbind connection")
}

// Get returns the transport of a live, non-closing connection.
func (c *Connections) Get(sid domain.ConnectionID) (core.SignalConnection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.conns[sid]
	if !ok || e.closing {
		return nil, false
	}
	return e.Conn, true
}

func (c *Connections) Info(sid domain.ConnectionID) (ConnInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.conns[sid]
	if !ok {
		return ConnInfo{}, false
	}
	return ConnInfo{ID: sid, Conn: e.Conn, Client: e.Client, RoomID: e.RoomID, Name: e.Name, Closing: e.closing}, true
}

func (c *Connections) RoomOf(sid domain.ConnectionID) (domain.RoomID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.conns[sid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (c *Connections) setRoom(sid domain.ConnectionID, room domain.RoomID, name domain.DisplayName) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.conns[sid]
	if !ok {
		return false
	}
	e.RoomID = room
	e.Name = name
	return true
}

// clearRoom drops the back-reference only if it still points at room.
func (c *Connections) clearRoom(sid domain.ConnectionID, room domain.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.conns[sid]; ok && e.RoomID == room {
		e.RoomID = ""
	}
}

// Cancel ends the connection's context, which stops its pumps.
func (c *Connections) Cancel(sid domain.ConnectionID) bool {
	c.mu.RLock()
	e, ok := c.conns[sid]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.connections").Str("sid", string(sid)).Msg("canceled connection")
	return true
}

func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}
