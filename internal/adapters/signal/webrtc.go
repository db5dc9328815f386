package signal

import (
	"encoding/json"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/rs/zerolog/log"
)

// allowSignal applies the per-connection relay budget.
func (ctl *SignalWSController) allowSignal(sid domain.ConnectionID) bool {
	if ctl.limiter.Allow(sid) {
		return true
	}
	ctl.Orch.Metrics.SignalDropped(metrics.ReasonRateLimited)
	log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("signal rate limited")
	return false
}

func (ctl *SignalWSController) handleSendingSignal(sid domain.ConnectionID, data json.RawMessage) error {
	req, err := decode[core.SendingSignalRequest](data)
	if err != nil {
		return err
	}
	if !ctl.allowSignal(sid) {
		return nil
	}
	return ctl.Orch.SendSignal(sid, req)
}

func (ctl *SignalWSController) handleReturningSignal(sid domain.ConnectionID, data json.RawMessage) error {
	req, err := decode[core.ReturningSignalRequest](data)
	if err != nil {
		return err
	}
	if !ctl.allowSignal(sid) {
		return nil
	}
	return ctl.Orch.ReturnSignal(sid, req)
}
