package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/notify"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/keylock"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

// LifecycleOption configures the lifecycle service.
type LifecycleOption func(*lifecycleService)

// WithMaxDeliveryAttempts caps FAILED -> OUT_FOR_DELIVERY retries. Zero or
// less means no cap.
func WithMaxDeliveryAttempts(n int) LifecycleOption {
	return func(s *lifecycleService) { s.maxAttempts = n }
}

// WithLifecycleClock overrides time.Now.
func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(s *lifecycleService) { s.now = now }
}

type lifecycleService struct {
	repo        ports.ShipmentRepository
	hub         ports.TrackingPublisher
	notifier    ports.Notifier
	locks       *keylock.Locker
	maxAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// NewLifecycleService returns the shipment state machine. Every mutation of a
// shipment's status goes through it.
func NewLifecycleService(
	repo ports.ShipmentRepository,
	hub ports.TrackingPublisher,
	notifier ports.Notifier,
	locks *keylock.Locker,
	log zerolog.Logger,
	opts ...LifecycleOption,
) ports.LifecycleService {
	s := &lifecycleService{
		repo:     repo,
		hub:      hub,
		notifier: notifier,
		locks:    locks,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transition moves a shipment to in.To. The stored shipment is untouched on
// any error, and nothing is published unless the save succeeded.
func (s *lifecycleService) Transition(ctx context.Context, in ports.TransitionInput) (*domain.Shipment, error) {
	if in.AWB == "" {
		return nil, domain.ErrMissingAWB
	}

	unlock := s.locks.Lock(in.AWB)
	defer unlock()

	current, err := s.repo.FindByAWB(ctx, in.AWB)
	if err != nil {
		return nil, s.reject(fmt.Errorf("transition %s: %w", in.AWB, domain.WrapStorage("load shipment", err)))
	}

	return s.commit(ctx, current, in.To, in.Actor, in.Metadata, "")
}

// Cancel soft-deletes a shipment that has not been picked up yet.
func (s *lifecycleService) Cancel(ctx context.Context, awb, actor, reason string) (*domain.Shipment, error) {
	if awb == "" {
		return nil, domain.ErrMissingAWB
	}

	unlock := s.locks.Lock(awb)
	defer unlock()

	current, err := s.repo.FindByAWB(ctx, awb)
	if err != nil {
		return nil, s.reject(fmt.Errorf("cancel %s: %w", awb, domain.WrapStorage("load shipment", err)))
	}
	if current.Status != domain.StatusPending {
		return nil, s.reject(fmt.Errorf("cancel %s in status %s: %w", awb, current.Status, domain.ErrShipmentLocked))
	}

	return s.commit(ctx, current, domain.StatusCancelled, actor, map[string]string{ports.MetaNote: reason}, reason)
}

// commit must be called with the AWB lock held.
func (s *lifecycleService) commit(
	ctx context.Context,
	current *domain.Shipment,
	to domain.ShipmentStatus,
	actor string,
	meta map[string]string,
	reason string,
) (*domain.Shipment, error) {
	next, err := s.apply(current, to, actor, meta)
	if err != nil {
		return nil, s.reject(err)
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, s.reject(fmt.Errorf("transition %s: %w", next.AWB, domain.WrapStorage("save shipment", err)))
	}

	from := current.Status
	metrics.ShipmentTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.log.Info().
		Str("awb", next.AWB).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", actor).
		Str("payment_status", string(next.PaymentStatus)).
		Msg("shipment transitioned")

	s.publish(from, next, actor)
	s.notify(ctx, current, next, actor, reason)
	return next, nil
}

// apply validates the move and builds the updated shipment on a copy. Status
// and payment fields are set together so a single Save persists both.
func (s *lifecycleService) apply(current *domain.Shipment, to domain.ShipmentStatus, actor string, meta map[string]string) (*domain.Shipment, error) {
	from := current.Status
	if !from.CanTransitionTo(to) {
		return nil, domain.IllegalTransition(from, to)
	}
	if from == domain.StatusFailed && to == domain.StatusOutForDelivery &&
		s.maxAttempts > 0 && current.DeliveryAttempts >= s.maxAttempts {
		return nil, &domain.TransitionError{From: from, To: to, Reason: "retry limit reached"}
	}

	now := s.now().UTC()
	next := current.Clone()
	next.Status = to
	next.UpdatedAt = now
	next.StatusHistory = append(next.StatusHistory, domain.StatusHistoryEntry{
		Status:    to,
		Timestamp: now,
		Actor:     actor,
		Notes:     meta[ports.MetaNote],
	})

	switch to {
	case domain.StatusOutForDelivery:
		next.DeliveryAttempts++
		if rider := meta[ports.MetaRiderID]; rider != "" {
			next.RiderID = rider
		}
	case domain.StatusDelivered:
		next.ActualDeliveryAt = &now
		if next.PaymentMethod == domain.PaymentCOD {
			next.PaymentStatus = domain.PaymentCollected
		}
	case domain.StatusCancelled:
		next.DeletedAt = &now
	}
	return next, nil
}

func (s *lifecycleService) publish(from domain.ShipmentStatus, next *domain.Shipment, actor string) {
	s.hub.Publish(next.AWB, domain.NewStatusEvent(next.AWB, domain.StatusChangedPayload{
		From:          from,
		To:            next.Status,
		PaymentStatus: next.PaymentStatus,
		Actor:         actor,
	}, next.UpdatedAt))

	if next.Status == domain.StatusOutForDelivery {
		s.hub.Publish(next.AWB, domain.TrackingEvent{
			AWB:     next.AWB,
			Type:    domain.EventETA,
			Payload: domain.ETAPayload{ExpectedDeliveryAt: next.ExpectedDeliveryAt.UTC()},
			At:      next.UpdatedAt,
		})
	}
}

// notify is best-effort: failures are logged and never undo the transition.
func (s *lifecycleService) notify(ctx context.Context, prev, next *domain.Shipment, actor, reason string) {
	data := notify.Data{
		Shipment: next,
		From:     prev.Status,
		To:       next.Status,
		Actor:    actor,
		Reason:   reason,
		At:       next.UpdatedAt,
	}

	templates := []notify.Template{notify.StatusChanged}
	switch next.Status {
	case domain.StatusOutForDelivery, domain.StatusFailed:
		templates = append(templates, notify.DeliveryAlert)
	}
	if prev.PaymentStatus != domain.PaymentCollected && next.PaymentStatus == domain.PaymentCollected {
		templates = append(templates, notify.PaymentUpdate)
	}
	if next.Status.IsTerminal() {
		templates = append(templates, notify.Terminal)
	}

	for _, t := range templates {
		n, err := notify.Render(t, data)
		if err != nil {
			metrics.NotificationsTotal.WithLabelValues("render_failed").Inc()
			s.log.Error().Err(err).Str("awb", next.AWB).Str("template", t.String()).Msg("notification render failed")
			continue
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			s.log.Warn().Err(err).Str("awb", next.AWB).Str("template", t.String()).Msg("notification not delivered")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("queued").Inc()
	}
}

func (s *lifecycleService) reject(err error) error {
	metrics.ShipmentTransitionRejectedTotal.WithLabelValues(domain.KindOf(err)).Inc()
	var te *domain.TransitionError
	if errors.As(err, &te) {
		s.log.Info().Str("from", string(te.From)).Str("to", string(te.To)).Str("reason", te.Reason).Msg("transition rejected")
	}
	return err
}
