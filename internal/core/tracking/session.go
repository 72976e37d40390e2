package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

// Transport is the network connection behind a session. Send must honour
// ctx. Close must be idempotent and safe to call while a Send is in flight;
// it is how an in-flight delivery gets aborted.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

const (
	reasonOverflow   = "overflow"
	reasonSendFailed = "send_failed"
	reasonClosed     = "closed"
)

type enqueueResult int

const (
	enqueued enqueueResult = iota
	queueFull
	sessionClosed
)

// outbound is one queued frame. awb is empty for replies that are not tied
// to a subscription.
type outbound struct {
	awb  string
	data []byte
}

// Session is one client's live connection. A single goroutine drains the
// bounded queue into the transport, so frames leave in the order queued.
type Session struct {
	id        string
	hub       *Hub
	transport Transport
	queue     chan outbound

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool

	mu   sync.Mutex
	awbs map[string]struct{}
}

func newSession(id string, h *Hub, t Transport) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:        id,
		hub:       h,
		transport: t,
		queue:     make(chan outbound, h.queueSize),
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
		awbs:      make(map[string]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Subscriptions returns the AWBs this session currently watches.
func (s *Session) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.awbs))
	for awb := range s.awbs {
		out = append(out, awb)
	}
	return out
}

// Send queues one event for this session only.
func (s *Session) Send(event domain.TrackingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode tracking event: %w", err)
	}
	return s.push(outbound{awb: event.AWB, data: data})
}

// Reply queues a protocol message such as a subscribe acknowledgement.
func (s *Session) Reply(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return s.push(outbound{data: data})
}

func (s *Session) push(item outbound) error {
	switch s.enqueue(item) {
	case sessionClosed:
		return domain.ErrSessionClosed
	case queueFull:
		s.drop(reasonOverflow)
		return domain.ErrSessionClosed
	}
	return nil
}

func (s *Session) enqueue(item outbound) enqueueResult {
	if s.closed.Load() {
		return sessionClosed
	}
	select {
	case s.queue <- item:
		return enqueued
	default:
		return queueFull
	}
}

// Close ends the session, removes its subscriptions and waits for any
// in-flight send to finish. Nothing reaches the transport after Close returns.
// It must not be called from inside Transport.Send.
func (s *Session) Close() {
	s.shutdown(reasonClosed)
	<-s.stopped
}

// drop ends the session without waiting; used from the publisher and the
// dispatch loop, neither of which may block.
func (s *Session) drop(reason string) {
	s.shutdown(reason)
}

func (s *Session) shutdown(reason string) {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		if err := s.transport.Close(); err != nil {
			s.hub.log.Debug().Err(err).Str("session_id", s.id).Msg("transport close")
		}
		s.hub.SessionEnded(s)
		metrics.TrackingSessionsDroppedTotal.WithLabelValues(reason).Inc()
	})
}

func (s *Session) subscribed(awb string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.awbs[awb]
	return ok
}

func (s *Session) run() {
	defer close(s.stopped)

	for {
		select {
		case <-s.ctx.Done():
			return
		case item := <-s.queue:
			if s.ctx.Err() != nil {
				return
			}
			if item.awb != "" && !s.subscribed(item.awb) {
				continue
			}

			ctx, cancel := context.WithTimeout(s.ctx, s.hub.sendTimeout)
			err := s.transport.Send(ctx, item.data)
			cancel()
			if err != nil {
				if s.ctx.Err() == nil {
					s.hub.log.Info().Err(err).Str("session_id", s.id).Msg("tracking send failed, closing session")
				}
				s.drop(reasonSendFailed)
				return
			}
		}
	}
}
