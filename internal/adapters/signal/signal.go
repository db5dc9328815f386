package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/config"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	AllowedOrigins []string
	ReadLimit      int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendBuffer     int
	RateLimit      int
	RateInterval   time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AllowedOrigins: cfg.AllowedOrigins,
		ReadLimit:      cfg.ReadLimit,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod,
		SendBuffer:     cfg.SendBuffer,
		RateLimit:      cfg.SignalRateLimit,
		RateInterval:   cfg.SignalRateInterval,
	}
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts     Options
	limiter  *RateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateInterval),
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	return ctl
}

// originChecker accepts requests without an Origin header (non-browser
// clients), any origin when the list holds "*", and the listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	_, wildcard := set["*"]
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// WsSignalConn is the outbound half of one websocket. Frames are queued and
// written by writePump; a full queue is reported as backpressure.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := domain.NewConnectionID()
	client := c.GetString("client_token")
	l := log.With().Str("module", "signal").Str("sid", string(sid)).Str("client", client).Logger()

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	size := ctl.opts.SendBuffer
	if size <= 0 {
		size = 64
	}
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, size),
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Orch.Connect(sid, conn, client, cancel); err != nil {
		l.Error().Err(err).Msg("connect")
		cancel()
		conn.Close()
		return
	}
	l.Info().Str("remote", c.Request.RemoteAddr).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(sid, conn)
}
