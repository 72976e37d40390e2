package memory

import (
	"context"
	"sync"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// LocationCache is the last-known rider position cache used without redis.
type LocationCache struct {
	mu   sync.RWMutex
	byID map[string]domain.RiderPosition
}

func NewLocationCache() *LocationCache {
	return &LocationCache{byID: make(map[string]domain.RiderPosition)}
}

func (c *LocationCache) SetRiderPosition(_ context.Context, pos domain.RiderPosition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.byID[pos.RiderID]; ok && prev.CapturedAt.After(pos.CapturedAt) {
		return nil
	}
	c.byID[pos.RiderID] = pos
	return nil
}

// GetRiderPosition returns nil, nil for an unknown rider.
func (c *LocationCache) GetRiderPosition(_ context.Context, riderID string) (*domain.RiderPosition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.byID[riderID]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}
