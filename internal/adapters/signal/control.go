package signal

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.send(conn, core.EventPong, nil)
}

// sendError reports a gateway-level problem to the client only.
func (ctl *SignalWSController) sendError(conn *WsSignalConn, msg string) {
	ctl.send(conn, core.EventError, core.ErrorPayload{Error: msg})
}

func (ctl *SignalWSController) send(conn *WsSignalConn, event string, payload any) {
	f, err := core.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("encode")
		return
	}
	_ = conn.TrySend(f)
}
