package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

const defaultPositionTTL = 15 * time.Minute

// LocationCache keeps each rider's last position in a hash under rider:<id>.
// Entries expire so riders that go offline drop out of the cache.
type LocationCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewLocationCache(client redis.Cmdable, ttl time.Duration) *LocationCache {
	if ttl <= 0 {
		ttl = defaultPositionTTL
	}
	return &LocationCache{client: client, ttl: ttl}
}

func (c *LocationCache) SetRiderPosition(ctx context.Context, pos domain.RiderPosition) error {
	key := riderKey(pos.RiderID)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, positionFields(pos))
		p.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache rider position: %w", err)
	}
	return nil
}

// GetRiderPosition returns nil, nil when the rider has no cached position.
func (c *LocationCache) GetRiderPosition(ctx context.Context, riderID string) (*domain.RiderPosition, error) {
	fields, err := c.client.HGetAll(ctx, riderKey(riderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load rider position: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parsePosition(riderID, fields)
}

func riderKey(id string) string {
	return "rider:" + id
}

func positionFields(pos domain.RiderPosition) map[string]any {
	return map[string]any{
		"lat":         strconv.FormatFloat(pos.Latitude, 'g', -1, 64),
		"lng":         strconv.FormatFloat(pos.Longitude, 'g', -1, 64),
		"awb":         pos.AWB,
		"captured_at": pos.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parsePosition(riderID string, fields map[string]string) (*domain.RiderPosition, error) {
	lat, err := strconv.ParseFloat(fields["lat"], 64)
	if err != nil {
		return nil, fmt.Errorf("parse cached lat for %s: %w", riderID, err)
	}
	lng, err := strconv.ParseFloat(fields["lng"], 64)
	if err != nil {
		return nil, fmt.Errorf("parse cached lng for %s: %w", riderID, err)
	}
	capturedAt, err := time.Parse(time.RFC3339Nano, fields["captured_at"])
	if err != nil {
		return nil, fmt.Errorf("parse cached captured_at for %s: %w", riderID, err)
	}
	return &domain.RiderPosition{
		RiderID:    riderID,
		AWB:        fields["awb"],
		Latitude:   lat,
		Longitude:  lng,
		CapturedAt: capturedAt,
	}, nil
}
