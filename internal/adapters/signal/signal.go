// Package signal is the WebSocket session gateway: it admits a channel,
// decodes inbound frames into orchestrator events and drains outbound frames.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// TokenResolver maps a bearer token to the user it was issued to.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (domain.User, error)
}

type Options struct {
	ReadLimit   int64
	PingPeriod  time.Duration
	WriteWait   time.Duration
	SendBuffer  int
	RequireAuth bool
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 32,
	}
}

// withDefaults fills unset fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReadLimit <= 0 {
		o.ReadLimit = d.ReadLimit
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = d.PingPeriod
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	return o
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Auth    TokenResolver
	Limiter *ConnRateLimiter
	Opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, auth TokenResolver, limiter *ConnRateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		Auth:    auth,
		Limiter: limiter,
		Opts:    opts.withDefaults(),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal serves one channel until it terminates. It returns after the
// connection has been disconnected from every room.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	identity, ok := ctl.admit(c)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.Opts.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := ctl.Orch.Connect(conn, identity, cancel)
	logger := log.With().Str("module", "signal").Str("conn", string(id)).Logger()
	logger.Info().Str("remote", c.Request.RemoteAddr).Msg("new WS connection")

	var wg conc.WaitGroup
	wg.Go(func() { ctl.writePump(ctx, conn, logger) })
	wg.Go(func() {
		defer cancel()
		ctl.readPump(id, conn, logger)
	})
	if r := wg.WaitAndRecover(); r != nil {
		logger.Error().Str("panic", r.String()).Msg("pump panicked")
		conn.Close()
	}

	ctl.Orch.Handle(id, orch.Disconnect{})
	ctl.Limiter.Forget(id)
}

// admit resolves the caller's identity. With RequireAuth a missing or unknown
// token is answered with 401 before the upgrade.
func (ctl *SignalWSController) admit(c *gin.Context) (*domain.User, bool) {
	token := TokenFromRequest(c)
	if token == "" || ctl.Auth == nil {
		if ctl.Opts.RequireAuth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return nil, false
		}
		return nil, true
	}
	user, err := ctl.Auth.Resolve(c.Request.Context(), token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("ws admission rejected token")
		if ctl.Opts.RequireAuth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return nil, false
		}
		return nil, true
	}
	return &user, true
}
