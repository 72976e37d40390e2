// Package memory is the in-process persistence collaborator used when
// STORAGE=memory and in tests. Everything is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// ShipmentRepository keeps shipments in a map keyed by AWB. Values are
// cloned on the way in and out so callers never share memory with the store.
type ShipmentRepository struct {
	mu            sync.RWMutex
	byAWB         map[string]*domain.Shipment
	byIdempotency map[string]string
}

func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{
		byAWB:         make(map[string]*domain.Shipment),
		byIdempotency: make(map[string]string),
	}
}

func (r *ShipmentRepository) Create(_ context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAWB[s.AWB]; exists {
		return fmt.Errorf("%w: %w: awb %s", domain.ErrInvalidShipment, domain.ErrDuplicateShipment, s.AWB)
	}
	if s.IdempotencyKey != "" {
		if _, exists := r.byIdempotency[s.IdempotencyKey]; exists {
			return fmt.Errorf("%w: %w: idempotency key", domain.ErrInvalidShipment, domain.ErrDuplicateShipment)
		}
		r.byIdempotency[s.IdempotencyKey] = s.AWB
	}
	r.byAWB[s.AWB] = s.Clone()
	return nil
}

func (r *ShipmentRepository) FindByAWB(_ context.Context, awb string) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byAWB[awb]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return s.Clone(), nil
}

func (r *ShipmentRepository) FindByIdempotencyKey(_ context.Context, key string) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	awb, ok := r.byIdempotency[key]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return r.byAWB[awb].Clone(), nil
}

func (r *ShipmentRepository) Save(_ context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAWB[s.AWB]; !ok {
		return domain.ErrShipmentNotFound
	}
	r.byAWB[s.AWB] = s.Clone()
	return nil
}

// LocationRepository keeps samples in memory, indexed by AWB. Samples without
// an AWB are kept per rider.
type LocationRepository struct {
	mu       sync.RWMutex
	byAWB    map[string][]domain.LocationSample
	byRider  map[string][]domain.LocationSample
	capacity int
}

// NewLocationRepository keeps at most perAWB samples per AWB (and per rider for
// unbound samples); zero keeps all.
func NewLocationRepository(perAWB int) *LocationRepository {
	return &LocationRepository{
		byAWB:    make(map[string][]domain.LocationSample),
		byRider:  make(map[string][]domain.LocationSample),
		capacity: perAWB,
	}
}

func (r *LocationRepository) SaveLocationSample(_ context.Context, s *domain.LocationSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.AWB == "" {
		r.byRider[s.RiderID] = r.appendCapped(r.byRider[s.RiderID], *s)
		return nil
	}
	r.byAWB[s.AWB] = r.appendCapped(r.byAWB[s.AWB], *s)
	return nil
}

// UnboundLocations returns up to limit samples riderID reported without an
// AWB, newest first.
func (r *LocationRepository) UnboundLocations(riderID string, limit int) []domain.LocationSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.byRider[riderID], limit)
}

func (r *LocationRepository) appendCapped(samples []domain.LocationSample, s domain.LocationSample) []domain.LocationSample {
	samples = append(samples, copySample(s))
	if r.capacity > 0 && len(samples) > r.capacity {
		samples = samples[len(samples)-r.capacity:]
	}
	return samples
}

// LoadRecentLocations returns up to limit samples for awb, newest first.
func (r *LocationRepository) LoadRecentLocations(_ context.Context, awb string, limit int) ([]domain.LocationSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.byAWB[awb], limit), nil
}

// newestFirst copies stored in reverse insertion order, then by receipt time.
func newestFirst(stored []domain.LocationSample, limit int) []domain.LocationSample {
	out := make([]domain.LocationSample, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, copySample(stored[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func copySample(s domain.LocationSample) domain.LocationSample {
	s.Accuracy = copyFloat(s.Accuracy)
	s.Speed = copyFloat(s.Speed)
	s.Heading = copyFloat(s.Heading)
	s.BatteryLevel = copyFloat(s.BatteryLevel)
	return s
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
