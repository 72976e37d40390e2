package ports

import "github.com/dipto-roy/courier-service-sub002/internal/core/domain"

// TrackingPublisher fans an event out to every live session watching awb.
// It never blocks on slow subscribers and returns how many sessions were queued.
type TrackingPublisher interface {
	Publish(awb string, event domain.TrackingEvent) int
}
