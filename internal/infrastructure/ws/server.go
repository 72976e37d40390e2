package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/tracking"
)

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"

	maxFrameSize = 4096
)

// Config holds the connection timings.
type Config struct {
	WriteTimeout time.Duration
	PingPeriod   time.Duration
	PongWait     time.Duration
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = tracking.DefaultSendTimeout
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	return c
}

// LocationHistory supplies the latest known location sent after a subscribe.
type LocationHistory interface {
	Recent(ctx context.Context, awb string, limit int) ([]domain.LocationSample, error)
}

type clientFrame struct {
	Action string `json:"action"`
	AWB    string `json:"awb"`
}

// Server upgrades HTTP requests and speaks the subscribe/unsubscribe protocol.
type Server struct {
	hub       *tracking.Hub
	locations LocationHistory
	cfg       Config
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// NewServer builds a Server. locations may be nil.
func NewServer(hub *tracking.Hub, locations LocationHistory, cfg Config, log zerolog.Logger) *Server {
	return &Server{
		hub:       hub,
		locations: locations,
		cfg:       cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP runs one tracking connection until the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConn(raw, s.cfg.WriteTimeout)
	session := s.hub.NewSession(conn)
	log := s.log.With().Str("session_id", session.ID()).Logger()
	log.Debug().Str("remote", r.RemoteAddr).Msg("tracking connection opened")

	go s.keepAlive(conn, session)
	s.readLoop(r.Context(), raw, session, log)

	session.Close()
	log.Debug().Msg("tracking connection closed")
}

func (s *Server) keepAlive(conn *Conn, session *tracking.Session) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-session.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				// Closing the socket unblocks the read loop, which ends the session.
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, raw *websocket.Conn, session *tracking.Session, log zerolog.Logger) {
	raw.SetReadLimit(maxFrameSize)
	_ = raw.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Info().Err(err).Msg("tracking connection lost")
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		if err := s.handleFrame(ctx, session, data); err != nil {
			return
		}
	}
}

// handleFrame answers one client frame. A non-nil error means the session is
// gone and the connection should be dropped.
func (s *Server) handleFrame(ctx context.Context, session *tracking.Session, data []byte) error {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return session.Reply(domain.SubscribeAck{Success: false, Error: "invalid message"})
	}
	awb := strings.TrimSpace(f.AWB)

	switch f.Action {
	case actionSubscribe:
		if _, err := s.hub.Subscribe(awb, session); err != nil {
			if awb == "" {
				return session.Reply(domain.SubscribeAck{Success: false, Error: "AWB required"})
			}
			return err
		}
		if err := session.Reply(domain.SubscribeAck{Success: true, AWB: awb, Message: "Subscribed to " + awb}); err != nil {
			return err
		}
		return s.sendLatestLocation(ctx, session, awb)

	case actionUnsubscribe:
		if awb == "" {
			return session.Reply(domain.SubscribeAck{Success: false, Error: "AWB required"})
		}
		s.hub.Unsubscribe(tracking.Subscription{AWB: awb, SessionID: session.ID()})
		return session.Reply(domain.SubscribeAck{Success: true, AWB: awb, Message: "Unsubscribed from " + awb})

	default:
		return session.Reply(domain.SubscribeAck{Success: false, AWB: awb, Error: "unknown action"})
	}
}

func (s *Server) sendLatestLocation(ctx context.Context, session *tracking.Session, awb string) error {
	if s.locations == nil {
		return nil
	}
	recent, err := s.locations.Recent(ctx, awb, 1)
	if err != nil {
		s.log.Warn().Err(err).Str("awb", awb).Msg("latest location unavailable")
		return nil
	}
	if len(recent) == 0 {
		return nil
	}
	return session.Send(domain.NewLocationEvent(&recent[0]))
}
