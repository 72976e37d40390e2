package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

// NewEventDispatcher shards scanner events by AWB so each shipment's events
// are applied in arrival order.
func NewEventDispatcher(numWorkers int, service ports.EventService, log zerolog.Logger) *Dispatcher[ports.StatusEventInput] {
	return NewDispatcher("events", numWorkers,
		func(e ports.StatusEventInput) string { return e.AWB },
		func(ctx context.Context, e ports.StatusEventInput) error { return service.Process(ctx, e) },
		log,
	)
}
