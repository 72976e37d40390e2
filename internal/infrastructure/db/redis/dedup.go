package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// DedupChecker remembers processed scanner events.
// Key format: dedup:<awb>:<status>:<unix_timestamp>
type DedupChecker struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewDedupChecker(client redis.Cmdable) *DedupChecker {
	return &DedupChecker{client: client, ttl: dedupTTL}
}

func (d *DedupChecker) IsDuplicate(ctx context.Context, awb, status string, ts time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(awb, status, ts)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the event as applied. The key expires after an hour.
func (d *DedupChecker) Mark(ctx context.Context, awb, status string, ts time.Time) error {
	if err := d.client.Set(ctx, dedupKey(awb, status, ts), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

func dedupKey(awb, status string, ts time.Time) string {
	return fmt.Sprintf("dedup:%s:%s:%d", awb, status, ts.Unix())
}
