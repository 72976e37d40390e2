package ports

import (
	"context"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// Notifier is the notification collaborator. Delivery channel is not the
// caller's concern and callers treat errors as best-effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
