package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/geo"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

const (
	DefaultRecentLocations = 20
	MaxRecentLocations     = 200
	DefaultETASpeedKmh     = 25.0
)

// LocationOption configures the location ingestor.
type LocationOption func(*locationService)

// WithLocationCache keeps each rider's last position in cache.
func WithLocationCache(c ports.LocationCache) LocationOption {
	return func(s *locationService) { s.cache = c }
}

// WithETA enables eta events for samples bound to an AWB whose receiver has
// coordinates. speedKmh is used when the sample carries no usable speed.
func WithETA(shipments ports.ShipmentRepository, estimator *geo.Estimator, speedKmh float64) LocationOption {
	return func(s *locationService) {
		s.shipments = shipments
		s.estimator = estimator
		if speedKmh > 0 {
			s.speedKmh = speedKmh
		}
	}
}

// WithLocationClock overrides time.Now.
func WithLocationClock(now func() time.Time) LocationOption {
	return func(s *locationService) { s.now = now }
}

type locationService struct {
	repo      ports.LocationRepository
	hub       ports.TrackingPublisher
	cache     ports.LocationCache
	shipments ports.ShipmentRepository
	estimator *geo.Estimator
	speedKmh  float64
	now       func() time.Time
	log       zerolog.Logger
}

// NewLocationService returns the rider ping ingestor.
func NewLocationService(repo ports.LocationRepository, hub ports.TrackingPublisher, log zerolog.Logger, opts ...LocationOption) ports.LocationService {
	s := &locationService{
		repo:     repo,
		hub:      hub,
		speedKmh: DefaultETASpeedKmh,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates, persists and then publishes one rider sample.
// Out-of-range coordinates reject the sample; out-of-range optional fields
// are dropped.
func (s *locationService) Ingest(ctx context.Context, raw domain.RawLocationSample) (*domain.LocationSample, error) {
	if raw.RiderID == "" {
		metrics.LocationsIngestedTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: rider id required", domain.ErrInvalidSample)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		metrics.LocationsIngestedTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: latitude and longitude are required", domain.ErrInvalidCoordinate)
	}
	if err := geo.ValidateCoordinates(*raw.Latitude, *raw.Longitude); err != nil {
		metrics.LocationsIngestedTotal.WithLabelValues("rejected").Inc()
		s.log.Debug().Err(err).Str("rider_id", raw.RiderID).Msg("location sample rejected")
		return nil, err
	}

	now := s.now().UTC()
	sample := &domain.LocationSample{
		ID:           uuid.NewString(),
		RiderID:      raw.RiderID,
		AWB:          raw.AWB,
		Latitude:     *raw.Latitude,
		Longitude:    *raw.Longitude,
		Accuracy:     keepIf(raw.Accuracy, func(v float64) bool { return v >= 0 }),
		Speed:        keepIf(raw.Speed, func(v float64) bool { return v >= 0 }),
		Heading:      keepIf(raw.Heading, func(v float64) bool { return v >= 0 && v < 360 }),
		BatteryLevel: keepIf(raw.BatteryLevel, func(v float64) bool { return v >= 0 && v <= 100 }),
		CapturedAt:   raw.CapturedAt.UTC(),
		ReceivedAt:   now,
	}
	if raw.CapturedAt.IsZero() {
		sample.CapturedAt = now
	}

	if err := s.repo.SaveLocationSample(ctx, sample); err != nil {
		metrics.LocationsIngestedTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("ingest location: %w", domain.WrapStorage("save location sample", err))
	}
	metrics.LocationsIngestedTotal.WithLabelValues("accepted").Inc()

	if s.cache != nil {
		pos := domain.RiderPosition{
			RiderID:    sample.RiderID,
			AWB:        sample.AWB,
			Latitude:   sample.Latitude,
			Longitude:  sample.Longitude,
			CapturedAt: sample.CapturedAt,
		}
		if err := s.cache.SetRiderPosition(ctx, pos); err != nil {
			s.log.Warn().Err(err).Str("rider_id", sample.RiderID).Msg("failed to cache rider position")
		}
	}

	if sample.AWB == "" {
		return sample, nil
	}

	s.hub.Publish(sample.AWB, domain.NewLocationEvent(sample))
	s.publishETA(ctx, sample)
	return sample, nil
}

// publishETA is best-effort; a missing shipment or receiver coordinate just
// means no eta event.
func (s *locationService) publishETA(ctx context.Context, sample *domain.LocationSample) {
	if s.shipments == nil || s.estimator == nil {
		return
	}
	shipment, err := s.shipments.FindByAWB(ctx, sample.AWB)
	if err != nil {
		s.log.Debug().Err(err).Str("awb", sample.AWB).Msg("no shipment for eta")
		return
	}
	if shipment.Status.IsTerminal() || shipment.Receiver.Coordinates == nil {
		return
	}

	dest := geo.Point{Lat: shipment.Receiver.Coordinates.Lat, Lng: shipment.Receiver.Coordinates.Lng}
	distance, err := s.estimator.Estimate(geo.Point{Lat: sample.Latitude, Lng: sample.Longitude}, dest)
	if err != nil {
		s.log.Debug().Err(err).Str("awb", sample.AWB).Msg("eta distance failed")
		return
	}

	speed := s.speedKmh
	if sample.Speed != nil && *sample.Speed > 0 {
		speed = *sample.Speed
	}
	minutes := int(math.Ceil(distance / speed * 60))
	arrival := sample.ReceivedAt.Add(time.Duration(minutes) * time.Minute)

	s.hub.Publish(sample.AWB, domain.TrackingEvent{
		AWB:  sample.AWB,
		Type: domain.EventETA,
		Payload: domain.ETAPayload{
			ExpectedDeliveryAt: arrival,
			DistanceKm:         &distance,
			ETAMinutes:         &minutes,
		},
		At: sample.ReceivedAt,
	})
}

// Recent returns up to limit samples for awb, newest first.
func (s *locationService) Recent(ctx context.Context, awb string, limit int) ([]domain.LocationSample, error) {
	if awb == "" {
		return nil, domain.ErrMissingAWB
	}
	switch {
	case limit <= 0:
		limit = DefaultRecentLocations
	case limit > MaxRecentLocations:
		limit = MaxRecentLocations
	}
	samples, err := s.repo.LoadRecentLocations(ctx, awb, limit)
	if err != nil {
		return nil, domain.WrapStorage("load recent locations", err)
	}
	return samples, nil
}

// RiderPosition returns a rider's last cached position.
func (s *locationService) RiderPosition(ctx context.Context, riderID string) (*domain.RiderPosition, error) {
	if s.cache == nil {
		return nil, domain.ErrRiderNotFound
	}
	pos, err := s.cache.GetRiderPosition(ctx, riderID)
	if err != nil {
		return nil, domain.WrapStorage("load rider position", err)
	}
	if pos == nil {
		return nil, domain.ErrRiderNotFound
	}
	return pos, nil
}

// keepIf returns a copy of v when it is finite and ok accepts it, nil otherwise.
func keepIf(v *float64, ok func(float64) bool) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || !ok(*v) {
		return nil
	}
	c := *v
	return &c
}
