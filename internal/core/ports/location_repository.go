package ports

import (
	"context"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// LocationRepository stores append-only rider samples.
type LocationRepository interface {
	SaveLocationSample(ctx context.Context, s *domain.LocationSample) error
	// LoadRecentLocations returns up to limit samples for awb, newest first.
	LoadRecentLocations(ctx context.Context, awb string, limit int) ([]domain.LocationSample, error)
}

// LocationCache keeps the last known position per rider.
type LocationCache interface {
	SetRiderPosition(ctx context.Context, pos domain.RiderPosition) error
	GetRiderPosition(ctx context.Context, riderID string) (*domain.RiderPosition, error)
}
