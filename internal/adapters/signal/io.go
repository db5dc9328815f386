package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// errBadPayload marks an event whose data did not decode.
var errBadPayload = errors.New("bad payload")

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var tick <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.opts.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := ctl.write(c, websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-tick:
			if err := ctl.write(c, websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) write(c *WsSignalConn, kind int, data []byte) error {
	if ctl.opts.WriteWait > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(kind, data)
}

func (ctl *SignalWSController) readPump(sid domain.ConnectionID, c *WsSignalConn) {
	defer func() {
		ctl.Orch.Disconnect(sid)
		ctl.limiter.Forget(sid)
		c.Close()
	}()

	if ctl.opts.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if err := ctl.handleSignal(sid, data); err != nil && errors.Is(err, errBadPayload) {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("dropped message")
		}
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, errBadPayload
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(errBadPayload, err)
	}
	return v, nil
}

// handleSignal dispatches one inbound envelope. It runs on the read loop, so
// events of a single connection are handled in arrival order.
func (ctl *SignalWSController) handleSignal(sid domain.ConnectionID, data []byte) error {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Join(errBadPayload, err)
	}

	switch env.Type {
	case core.EventJoinRoom:
		return ctl.handleJoin(sid, env.Data)
	case core.EventLeaveRoom:
		return ctl.handleLeave(sid)
	case core.EventStreamStarted:
		return ctl.handleStreamState(sid, env.Data, true)
	case core.EventStreamStopped:
		return ctl.handleStreamState(sid, env.Data, false)
	case core.EventSendingSignal:
		return ctl.handleSendingSignal(sid, env.Data)
	case core.EventReturningSignal:
		return ctl.handleReturningSignal(sid, env.Data)
	case core.EventPing:
		ctl.handlePing(sid)
	case core.EventWhoAmI:
		ctl.handleWhoAmI(sid)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
	}
	return nil
}
