// Package tracking is the in-process pub/sub core that fans tracking events
// out to every live session watching an AWB.
//
// Lock order is Hub.mu -> Session.mu -> topic.mu. Publish only ever holds a
// topic lock while enqueueing, and enqueueing never blocks, so a slow session
// cannot stall a publisher.
package tracking

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

const (
	DefaultQueueSize   = 64
	DefaultSendTimeout = 10 * time.Second
)

// Config sizes the per-session outbound queue and bounds each send.
type Config struct {
	QueueSize   int
	SendTimeout time.Duration
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	AWB       string
	SessionID string
}

// topic holds the sessions watching one AWB. Its mutex serialises publishes
// for that AWB so every subscriber sees them in publish order.
type topic struct {
	mu   sync.Mutex
	subs map[string]*Session
}

// Hub maps AWB -> live sessions. Memory is proportional to the AWBs being
// watched, not to the number of shipments.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]*topic
	sessions map[string]*Session

	queueSize   int
	sendTimeout time.Duration
	log         zerolog.Logger
}

// NewHub creates an empty Hub. Zero config values fall back to the defaults.
func NewHub(cfg Config, log zerolog.Logger) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Hub{
		topics:      make(map[string]*topic),
		sessions:    make(map[string]*Session),
		queueSize:   cfg.QueueSize,
		sendTimeout: cfg.SendTimeout,
		log:         log,
	}
}

// NewSession registers a session backed by t and starts its dispatch loop.
func (h *Hub) NewSession(t Transport) *Session {
	s := newSession(uuid.NewString(), h, t)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()

	metrics.TrackingSessionsActive.Inc()
	go s.run()

	h.log.Debug().Str("session_id", s.id).Msg("tracking session opened")
	return s
}

// Subscribe registers interest of s in awb. Subscribing twice is a no-op.
func (h *Hub) Subscribe(awb string, s *Session) (Subscription, error) {
	if awb == "" {
		return Subscription{}, domain.ErrMissingAWB
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed.Load() {
		return Subscription{}, domain.ErrSessionClosed
	}

	sub := Subscription{AWB: awb, SessionID: s.id}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.awbs[awb]; ok {
		return sub, nil
	}

	t, ok := h.topics[awb]
	if !ok {
		t = &topic{subs: make(map[string]*Session)}
		h.topics[awb] = t
	}
	t.mu.Lock()
	t.subs[s.id] = s
	t.mu.Unlock()
	s.awbs[awb] = struct{}{}

	metrics.TrackingSubscribers.Inc()
	h.log.Debug().Str("awb", awb).Str("session_id", s.id).Msg("subscribed")
	return sub, nil
}

// Unsubscribe removes the subscription. Removing twice is a no-op. Events for
// that AWB still queued on the session are discarded.
func (h *Hub) Unsubscribe(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sub.SessionID]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.awbs[sub.AWB]; !ok {
		return
	}
	delete(s.awbs, sub.AWB)
	h.detachLocked(sub.AWB, s.id)
}

// SessionEnded removes every subscription owned by s in one pass.
func (h *Hub) SessionEnded(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	delete(h.sessions, s.id)

	s.mu.Lock()
	for awb := range s.awbs {
		h.detachLocked(awb, s.id)
	}
	s.awbs = make(map[string]struct{})
	s.mu.Unlock()

	metrics.TrackingSessionsActive.Dec()
	h.log.Debug().Str("session_id", s.id).Msg("tracking session ended")
}

// detachLocked must be called with h.mu held for writing.
func (h *Hub) detachLocked(awb, sessionID string) {
	t, ok := h.topics[awb]
	if !ok {
		return
	}
	t.mu.Lock()
	if _, ok := t.subs[sessionID]; ok {
		delete(t.subs, sessionID)
		metrics.TrackingSubscribers.Dec()
	}
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(h.topics, awb)
	}
}

// Publish queues event on every session subscribed to awb and returns how
// many sessions accepted it. A session whose queue is full is dropped; it
// must reconnect and resubscribe.
func (h *Hub) Publish(awb string, event domain.TrackingEvent) int {
	metrics.TrackingEventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()

	h.mu.RLock()
	_, watched := h.topics[awb]
	h.mu.RUnlock()
	if !watched {
		return 0
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("awb", awb).Str("type", string(event.Type)).Msg("tracking event not serialisable")
		return 0
	}
	item := outbound{awb: awb, data: data}

	h.mu.RLock()
	t, ok := h.topics[awb]
	if !ok {
		h.mu.RUnlock()
		return 0
	}
	t.mu.Lock()
	h.mu.RUnlock()

	delivered := 0
	var overflowed []*Session
	for _, s := range t.subs {
		switch s.enqueue(item) {
		case enqueued:
			delivered++
		case queueFull:
			overflowed = append(overflowed, s)
		}
	}
	t.mu.Unlock()

	for _, s := range overflowed {
		h.log.Warn().Str("awb", awb).Str("session_id", s.id).Msg("tracking session queue full, dropping session")
		s.drop(reasonOverflow)
	}
	return delivered
}

// ActiveSubscriberCount reports how many sessions watch awb.
func (h *Hub) ActiveSubscriberCount(awb string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t, ok := h.topics[awb]
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// ListActiveAwbs returns every AWB with at least one subscriber, sorted.
func (h *Hub) ListActiveAwbs() []string {
	h.mu.RLock()
	awbs := make([]string, 0, len(h.topics))
	for awb := range h.topics {
		awbs = append(awbs, awb)
	}
	h.mu.RUnlock()

	sort.Strings(awbs)
	return awbs
}

// SessionCount reports the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close ends every open session. Used on shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	open := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.RUnlock()

	for _, s := range open {
		s.Close()
	}
}
