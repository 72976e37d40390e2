package ports

import (
	"context"
	"time"
)

// StatusEventInput is the DTO passed from the transport layer to EventService.
type StatusEventInput struct {
	AWB       string
	Status    string
	Timestamp time.Time
	Source    string
	Notes     string
}

// EventService processes status events reported by external scanners.
type EventService interface {
	Process(ctx context.Context, event StatusEventInput) error
}

// DedupChecker abstracts the idempotency store.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, awb, status string, ts time.Time) (bool, error)
	Mark(ctx context.Context, awb, status string, ts time.Time) error
}
