package orch

import (
	"errors"

	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinRoom moves the connection to Joined. Rejections are logged only; the
// client learns nothing beyond the missing room-info.
func (o *Orchestrator) JoinRoom(sid domain.ConnectionID, req core.JoinRoomRequest) error {
	res, err := o.Members.Join(sid, req.RoomID, req.DisplayName, req.RequestedStreamer)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", req.RoomID).Msg("join rejected")
		return err
	}
	if res.Moved {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(res.RoomID)).Msg("moved between rooms")
	}
	return nil
}

// LeaveRoom moves the connection from Joined back to Connected.
func (o *Orchestrator) LeaveRoom(sid domain.ConnectionID) error {
	_, err := o.Members.Leave(sid)
	if err != nil {
		if errors.Is(err, app.ErrNotMember) {
			log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("leave without room")
		} else {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("leave failed")
		}
	}
	return err
}

func (o *Orchestrator) StreamState(sid domain.ConnectionID, req core.StreamStateRequest, started bool) error {
	if err := o.Members.StreamState(sid, req.RoomID, started); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", req.RoomID).Bool("started", started).Msg("stream state dropped")
		return err
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", req.RoomID).Bool("started", started).Msg("stream state")
	return nil
}
