package signal

import "github.com/dkeye/Stream/internal/domain"

func (ctl *SignalWSController) handlePing(sid domain.ConnectionID) {
	ctl.Orch.Ping(sid)
}

func (ctl *SignalWSController) handleWhoAmI(sid domain.ConnectionID) {
	ctl.Orch.WhoAmI(sid)
}
