package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

type eventService struct {
	lifecycle ports.LifecycleService
	dedup     ports.DedupChecker
	log       zerolog.Logger
}

// NewEventService returns an EventService implementation.
func NewEventService(lifecycle ports.LifecycleService, dedup ports.DedupChecker, log zerolog.Logger) ports.EventService {
	return &eventService{
		lifecycle: lifecycle,
		dedup:     dedup,
		log:       log,
	}
}

// Process deduplicates a scanner status event and applies it through the
// lifecycle.
func (s *eventService) Process(ctx context.Context, in ports.StatusEventInput) error {
	status := domain.ShipmentStatus(strings.ToUpper(in.Status))

	// 1. Idempotency check: duplicates are skipped.
	if s.dedup != nil {
		isDup, err := s.dedup.IsDuplicate(ctx, in.AWB, string(status), in.Timestamp)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("awb", in.AWB).Msg("dedup check failed, processing anyway")
		case isDup:
			metrics.EventsDedupTotal.WithLabelValues("hit").Inc()
			s.log.Debug().Str("awb", in.AWB).Str("status", string(status)).Msg("duplicate event skipped")
			return nil
		default:
			metrics.EventsDedupTotal.WithLabelValues("miss").Inc()
		}
	}

	// 2. Apply through the state machine (validation, persistence, fan-out).
	_, err := s.lifecycle.Transition(ctx, ports.TransitionInput{
		AWB:      in.AWB,
		To:       status,
		Actor:    in.Source,
		Metadata: map[string]string{ports.MetaNote: in.Notes},
	})
	if err != nil {
		metrics.EventsProcessedTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("process event: %w", err)
	}

	// 3. Mark only once applied, so a failed attempt can be retried.
	if s.dedup != nil {
		if markErr := s.dedup.Mark(ctx, in.AWB, string(status), in.Timestamp); markErr != nil {
			s.log.Warn().Err(markErr).Str("awb", in.AWB).Msg("failed to set dedup key")
		}
	}

	metrics.EventsProcessedTotal.WithLabelValues("applied").Inc()
	s.log.Info().
		Str("awb", in.AWB).
		Str("status", string(status)).
		Str("source", in.Source).
		Msg("event processed")
	return nil
}
