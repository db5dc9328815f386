package app

import (
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats of one fan-out.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnectionID
}

// Outbox hands encoded frames to the channel layer. A failed send is logged
// and passed to Policy; it never aborts the remaining deliveries.
type Outbox struct {
	Policy  Policy
	Metrics *metrics.Metrics
}

func (o *Outbox) Send(sid domain.ConnectionID, conn core.SignalConnection, f core.Frame) error {
	err := conn.TrySend(f)
	if err == nil {
		return nil
	}
	o.Metrics.SendFailed()
	log.Warn().Err(err).Str("module", "app.outbox").Str("sid", string(sid)).Msg("send failed")
	if o.Policy != nil && o.Policy.OnSendFailure(sid, err) == KickMember {
		log.Warn().Str("module", "app.outbox").Str("sid", string(sid)).Msg("closing slow connection")
		conn.Close()
	}
	return err
}

func (o *Outbox) Fanout(members []*core.Member, f core.Frame) PublishResult {
	res := PublishResult{}
	for _, m := range members {
		if err := o.Send(m.ID, m.Conn, f); err != nil {
			res.Dropped = append(res.Dropped, m.ID)
			continue
		}
		res.SendTo++
	}
	return res
}

// Emit encodes one event and sends it to a single connection.
func (o *Outbox) Emit(sid domain.ConnectionID, conn core.SignalConnection, eventType string, data any) error {
	f, err := core.EncodeEvent(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.outbox").Str("type", eventType).Msg("encode event")
		return err
	}
	return o.Send(sid, conn, f)
}
