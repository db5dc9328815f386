package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrAlreadyInRoom     = errors.New("already in room")
	ErrNotMember         = errors.New("not a member of any room")
)

// JoinResult is the state handed to a new joiner.
type JoinResult struct {
	RoomID     domain.RoomID
	Self       domain.Participant
	Others     []domain.Participant
	StreamerID domain.ConnectionID
	// Demoted is the previous streamer when the joiner took the role over.
	Demoted domain.ConnectionID
	Moved   bool
}

// LeaveEffect describes what a leave did to the room.
type LeaveEffect struct {
	RoomID       domain.RoomID
	WasStreamer  bool
	RoomEmpty    bool
	NewStreamer  domain.ConnectionID
	StreamerName domain.DisplayName
}

// RoomView is a point-in-time copy of one room.
type RoomView struct {
	RoomID       domain.RoomID        `json:"roomId"`
	StreamerID   domain.ConnectionID  `json:"streamerId"`
	Participants []domain.Participant `json:"participants"`
}

// Membership mutates room participant sets and the connection back-references
// together, under the room's lock.
type Membership struct {
	Rooms    *core.Registry
	Conns    *Connections
	Presence *Presence
	Metrics  *metrics.Metrics
	// Strict turns invariant violations into panics.
	Strict bool
}

func (m *Membership) Join(sid domain.ConnectionID, rawRoom, rawName string, requestedStreamer bool) (JoinResult, error) {
	roomID, err := domain.ParseRoomID(rawRoom)
	if err != nil {
		return JoinResult{}, fmt.Errorf("join: %w", err)
	}
	name, err := domain.ParseDisplayName(rawName)
	if err != nil {
		return JoinResult{}, fmt.Errorf("join: %w", err)
	}

	info, ok := m.Conns.Info(sid)
	if !ok || info.Closing {
		return JoinResult{}, fmt.Errorf("join %s: %w", sid, ErrUnknownConnection)
	}
	moved := false
	if info.RoomID != "" {
		if info.RoomID == roomID {
			return JoinResult{}, fmt.Errorf("join %s: %w", roomID, ErrAlreadyInRoom)
		}
		log.Info().Str("module", "app.membership").Str("sid", string(sid)).Str("from_room", string(info.RoomID)).Str("room", string(roomID)).Msg("moving to another room")
		if _, err := m.Leave(sid); err != nil && !errors.Is(err, ErrNotMember) {
			return JoinResult{}, fmt.Errorf("join %s: leave previous room: %w", roomID, err)
		}
		moved = true
	}

	var res JoinResult
	err = m.Rooms.WithRoom(roomID, true, func(room *core.Room) error {
		if room.Has(sid) {
			return ErrAlreadyInRoom
		}
		member := &core.Member{ID: sid, Name: name, Conn: info.Conn}
		if !m.Conns.setRoom(sid, roomID, name) {
			return ErrUnknownConnection
		}
		room.Add(member)

		prev := room.StreamerID()
		if prev == "" || requestedStreamer {
			if err := room.SetStreamer(sid); err != nil {
				return err
			}
			if prev != "" && prev != sid {
				res.Demoted = prev
			}
		}
		m.check(room)

		res.RoomID = roomID
		res.Self = room.View(member)
		res.StreamerID = room.StreamerID()
		res.Moved = moved
		others := room.Others(sid)
		res.Others = make([]domain.Participant, 0, len(others))
		for _, o := range others {
			res.Others = append(res.Others, room.View(o))
		}

		_ = m.Presence.Out.Emit(sid, info.Conn, core.EventRoomInfo, core.RoomInfo{
			RoomID:       roomID,
			Self:         res.Self,
			Participants: res.Others,
			StreamerID:   res.StreamerID,
		})
		m.Presence.AnnounceJoined(room, member)
		if res.Demoted != "" {
			m.Presence.AnnounceNewStreamer(room, sid, name, sid)
		}
		return nil
	})
	if err != nil {
		return JoinResult{}, fmt.Errorf("join %s: %w", roomID, err)
	}

	m.Metrics.ParticipantJoined()
	log.Info().
		Str("module", "app.membership").
		Str("sid", string(sid)).
		Str("room", string(roomID)).
		Bool("streamer", res.Self.IsStreamer).
		Str("demoted", string(res.Demoted)).
		Msg("joined room")
	return res, nil
}

// Leave removes sid from its room. If sid was the streamer the earliest-joined
// remaining member takes over. An emptied room is removed from the registry.
func (m *Membership) Leave(sid domain.ConnectionID) (LeaveEffect, error) {
	roomID, ok := m.Conns.RoomOf(sid)
	if !ok {
		return LeaveEffect{}, ErrNotMember
	}

	eff := LeaveEffect{RoomID: roomID}
	err := m.Rooms.WithRoom(roomID, false, func(room *core.Room) error {
		if !room.Has(sid) {
			return ErrNotMember
		}
		eff.WasStreamer = room.IsStreamer(sid)
		room.Remove(sid)
		m.Conns.clearRoom(sid, roomID)

		m.Presence.AnnounceLeft(room, sid)
		if eff.WasStreamer {
			if next, ok := room.First(); ok {
				if err := room.SetStreamer(next.ID); err != nil {
					return err
				}
				eff.NewStreamer = next.ID
				eff.StreamerName = next.Name
				m.Presence.AnnounceNewStreamer(room, next.ID, next.Name, "")
			}
		}
		eff.RoomEmpty = room.Len() == 0
		m.check(room)
		return nil
	})
	if err != nil {
		// A back-reference to a room that no longer holds sid is stale.
		m.Conns.clearRoom(sid, roomID)
		if errors.Is(err, core.ErrRoomNotFound) || errors.Is(err, ErrNotMember) {
			log.Error().Str("module", "app.membership").Str("sid", string(sid)).Str("room", string(roomID)).Msg("stale room back-reference")
			return LeaveEffect{}, ErrNotMember
		}
		return LeaveEffect{}, fmt.Errorf("leave %s: %w", roomID, err)
	}

	m.Metrics.ParticipantLeft()
	if eff.NewStreamer != "" {
		m.Metrics.Failover()
	}
	log.Info().
		Str("module", "app.membership").
		Str("sid", string(sid)).
		Str("room", string(roomID)).
		Bool("was_streamer", eff.WasStreamer).
		Str("new_streamer", string(eff.NewStreamer)).
		Bool("room_empty", eff.RoomEmpty).
		Msg("left room")
	return eff, nil
}

// StreamState relays a stream started/stopped notice from sid to its room.
// The announced room must be the one sid is in.
func (m *Membership) StreamState(sid domain.ConnectionID, rawRoom string, started bool) error {
	current, ok := m.Conns.RoomOf(sid)
	if !ok {
		return ErrNotMember
	}
	if strings.TrimSpace(rawRoom) != "" {
		want, err := domain.ParseRoomID(rawRoom)
		if err != nil {
			return fmt.Errorf("stream state: %w", err)
		}
		if want != current {
			return fmt.Errorf("stream state for %q: sender is in %q: %w", want, current, ErrNotMember)
		}
	}
	return m.Rooms.WithRoom(current, false, func(room *core.Room) error {
		if !room.Has(sid) {
			return ErrNotMember
		}
		m.Presence.AnnounceStreamState(room, sid, started)
		return nil
	})
}

// IsStreamer reports whether sid currently holds the streamer role.
func (m *Membership) IsStreamer(sid domain.ConnectionID) bool {
	roomID, ok := m.Conns.RoomOf(sid)
	if !ok {
		return false
	}
	streamer := false
	_ = m.Rooms.WithRoom(roomID, false, func(room *core.Room) error {
		streamer = room.IsStreamer(sid)
		return nil
	})
	return streamer
}

func (m *Membership) Snapshot(id domain.RoomID) (RoomView, error) {
	var v RoomView
	err := m.Rooms.WithRoom(id, false, func(room *core.Room) error {
		v = RoomView{RoomID: room.ID(), StreamerID: room.StreamerID(), Participants: room.Snapshot()}
		return nil
	})
	return v, err
}

func (m *Membership) check(room *core.Room) {
	err := room.CheckInvariants()
	if err == nil {
		return
	}
	if m.Strict {
		panic(err)
	}
	log.Error().Err(err).Str("module", "app.membership").Str("room", string(room.ID())).Msg("room invariant violated")
}
