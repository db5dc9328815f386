package orch

import (
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) SendSignal(sid domain.ConnectionID, req core.SendingSignalRequest) error {
	if err := o.Relay.Send(sid, req); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("to", string(req.ToConnectionID)).Msg("signal dropped")
		return err
	}
	return nil
}

func (o *Orchestrator) ReturnSignal(sid domain.ConnectionID, req core.ReturningSignalRequest) error {
	if err := o.Relay.Return(sid, req); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("to", string(req.ToConnectionID)).Msg("return signal dropped")
		return err
	}
	return nil
}
