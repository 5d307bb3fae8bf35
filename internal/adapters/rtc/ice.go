// Package rtc hands ICE server settings to browsers. Media never passes
// through the relay; peers connect directly.
package rtc

import (
	"fmt"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ClientConfig is the body of GET /api/rtc/config, shaped like the
// RTCConfiguration dictionary browsers accept.
type ClientConfig struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Configuration converts configured servers, falling back to the public STUN
// server when none are set.
func Configuration(servers []config.ICEServer) webrtc.Configuration {
	if len(servers) == 0 {
		return DefaultWebRTCConfig()
	}
	cfg := webrtc.Configuration{ICEServers: make([]webrtc.ICEServer, 0, len(servers))}
	for _, s := range servers {
		srv := webrtc.ICEServer{
			URLs:     append([]string(nil), s.URLs...),
			Username: s.Username,
		}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		cfg.ICEServers = append(cfg.ICEServers, srv)
	}
	return cfg
}

func NewClientConfig(cfg webrtc.Configuration) ClientConfig {
	return ClientConfig{ICEServers: cfg.ICEServers}
}

// Validate lets pion parse the servers by opening and closing a throwaway
// peer connection. Bad schemes and TURN entries without credentials fail.
func Validate(cfg webrtc.Configuration) error {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return fmt.Errorf("ice servers: %w", err)
	}
	if err := pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "rtc").Msg("close probe peer connection")
	}
	return nil
}
