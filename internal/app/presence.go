package app

import (
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// Presence broadcasts membership and role changes to a room.
// Every method expects the room lock to be held, so events of one room reach
// each recipient in the order they were produced.
type Presence struct {
	Out *Outbox
}

func (p *Presence) broadcast(room *core.Room, recipients []*core.Member, eventType string, data any) {
	if len(recipients) == 0 {
		return
	}
	f, err := core.EncodeEvent(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Str("type", eventType).Msg("encode event")
		return
	}
	res := p.Out.Fanout(recipients, f)
	log.Debug().
		Str("module", "app.presence").
		Str("room", string(room.ID())).
		Str("type", eventType).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("broadcast result")
}

// AnnounceJoined tells everyone but the newcomer about it.
func (p *Presence) AnnounceJoined(room *core.Room, joined *core.Member) {
	p.broadcast(room, room.Others(joined.ID), core.EventUserConnected, core.UserConnected{
		ConnectionID: joined.ID,
		DisplayName:  joined.Name,
		IsStreamer:   room.IsStreamer(joined.ID),
	})
}

// AnnounceLeft tells the remaining members that departed is gone.
func (p *Presence) AnnounceLeft(room *core.Room, departed domain.ConnectionID) {
	p.broadcast(room, room.Others(departed), core.EventUserDisconnected, departed)
}

// AnnounceNewStreamer tells every member except skip who the streamer is now.
// Failover passes an empty skip so the new streamer is told as well.
func (p *Presence) AnnounceNewStreamer(room *core.Room, streamer domain.ConnectionID, name domain.DisplayName, skip domain.ConnectionID) {
	p.broadcast(room, room.Others(skip), core.EventNewStreamer, core.NewStreamer{
		StreamerID:  streamer,
		DisplayName: name,
	})
}

// AnnounceStreamState forwards a stream started/stopped signal to the rest of the room.
func (p *Presence) AnnounceStreamState(room *core.Room, from domain.ConnectionID, started bool) {
	eventType := core.EventStreamStopped
	if started {
		eventType = core.EventStreamStarted
	}
	p.broadcast(room, room.Others(from), eventType, core.StreamState{ConnectionID: from})
}
