package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

// NotificationQueue decouples the status write path from the delivery sink.
// Notify never blocks: a full shard rejects the notification.
type NotificationQueue struct {
	*Dispatcher[domain.Notification]
}

var _ ports.Notifier = (*NotificationQueue)(nil)

func NewNotificationQueue(numWorkers int, sink ports.Notifier, log zerolog.Logger) *NotificationQueue {
	deliver := func(ctx context.Context, n domain.Notification) error {
		if err := sink.Notify(ctx, n); err != nil {
			metrics.NotificationsTotal.WithLabelValues("sink_failed").Inc()
			return fmt.Errorf("deliver %s for %s: %w", n.Template, n.AWB, err)
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		return nil
	}
	return &NotificationQueue{
		Dispatcher: NewDispatcher("notifications", numWorkers,
			func(n domain.Notification) string { return n.AWB },
			deliver, log),
	}
}

func (q *NotificationQueue) Notify(_ context.Context, n domain.Notification) error {
	if !q.TryEnqueue(n) {
		return ErrQueueFull
	}
	return nil
}
