package signal

import (
	"encoding/json"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
)

func (ctl *SignalWSController) handleJoin(sid domain.ConnectionID, data json.RawMessage) error {
	req, err := decode[core.JoinRoomRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.JoinRoom(sid, req)
}

// handleLeave leaves the current room; the socket stays open.
func (ctl *SignalWSController) handleLeave(sid domain.ConnectionID) error {
	return ctl.Orch.LeaveRoom(sid)
}

func (ctl *SignalWSController) handleStreamState(sid domain.ConnectionID, data json.RawMessage, started bool) error {
	req, err := decode[core.StreamStateRequest](data)
	if err != nil {
		return err
	}
	return ctl.Orch.StreamState(sid, req, started)
}
