package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrSelfSignal = errors.New("self signaling")
	ErrTargetGone = errors.New("signal target is not connected")
)

const (
	KindSend   = "send"
	KindReturn = "return"
)

// Relay forwards opaque negotiation payloads between two connections.
// It reads room state only to fill in the sender's streamer flag.
type Relay struct {
	Conns   *Connections
	Members *Membership
	Out     *Outbox
	Metrics *metrics.Metrics
}

// Send forwards an offer-style payload to req.ToConnectionID as "user-joined".
func (r *Relay) Send(from domain.ConnectionID, req core.SendingSignalRequest) error {
	target, err := r.target(from, req.ToConnectionID)
	if err != nil {
		return fmt.Errorf("relay send: %w", err)
	}

	name := domain.DisplayName(req.DisplayName)
	if name == "" {
		if info, ok := r.Conns.Info(from); ok {
			name = info.Name
		}
	}
	env := core.UserJoined{
		Payload:          req.Payload,
		FromConnectionID: from,
		DisplayName:      name,
		IsStreamer:       r.Members.IsStreamer(from),
	}
	return r.forward(KindSend, from, req.ToConnectionID, target, core.EventUserJoined, env)
}

// Return forwards an answer-style payload to req.ToConnectionID as "receiving-returned-signal".
func (r *Relay) Return(from domain.ConnectionID, req core.ReturningSignalRequest) error {
	target, err := r.target(from, req.ToConnectionID)
	if err != nil {
		return fmt.Errorf("relay return: %w", err)
	}
	env := core.ReturnedSignal{
		Payload:          req.Payload,
		FromConnectionID: from,
	}
	return r.forward(KindReturn, from, req.ToConnectionID, target, core.EventReturnedSignal, env)
}

func (r *Relay) target(from, to domain.ConnectionID) (core.SignalConnection, error) {
	if from == to {
		r.Metrics.SignalDropped(metrics.ReasonSelfSignal)
		return nil, ErrSelfSignal
	}
	conn, ok := r.Conns.Get(to)
	if !ok {
		r.Metrics.SignalDropped(metrics.ReasonTargetGone)
		return nil, fmt.Errorf("%s: %w", to, ErrTargetGone)
	}
	return conn, nil
}

func (r *Relay) forward(kind string, from, to domain.ConnectionID, conn core.SignalConnection, eventType string, data any) error {
	if err := r.Out.Emit(to, conn, eventType, data); err != nil {
		r.Metrics.SignalDropped(metrics.ReasonSendFailed)
		return fmt.Errorf("relay %s to %s: %w", kind, to, err)
	}
	r.Metrics.SignalRelayed(kind)
	log.Debug().Str("module", "app.relay").Str("kind", kind).Str("from", string(from)).Str("to", string(to)).Msg("signal relayed")
	return nil
}
