package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// writePump is the only writer on the socket. Its exit closes the channel,
// which unblocks readPump.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn, logger zerolog.Logger) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(ctl.Opts.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				logger.Debug().Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error().Err(err).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				logger.Warn().Err(err).Msg("writePump ping failed")
				return
			}
		}
	}
}

// readPump handles the connection's frames one at a time, in arrival order.
func (ctl *SignalWSController) readPump(id domain.ConnID, c *WsSignalConn, logger zerolog.Logger) {
	defer func() {
		logger.Info().Msg("readPump closing")
	}()

	pongWait := ctl.Opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.Opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				logger.Warn().Err(err).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleFrame(id, c, data, logger)
	}
}

func (ctl *SignalWSController) handleFrame(id domain.ConnID, c *WsSignalConn, data []byte, logger zerolog.Logger) {
	if !ctl.Limiter.Allow(id) {
		logger.Warn().Msg("rate limited")
		ctl.sendError(c, "rate limited")
		return
	}
	env, err := decodeEnvelope(data)
	if err != nil {
		logger.Warn().Err(err).Msg("bad frame")
		ctl.sendError(c, err.Error())
		return
	}
	if isPing(env) {
		ctl.handlePing(c)
		return
	}
	ev, err := decodeInbound(env)
	if err != nil {
		logger.Warn().Err(err).Str("type", env.Type).Msg("bad frame")
		ctl.sendError(c, err.Error())
		return
	}
	ctl.Orch.Handle(id, ev)
}
