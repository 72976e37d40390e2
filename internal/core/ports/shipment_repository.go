package ports

import (
	"context"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// ShipmentRepository is the shipment side of the persistence collaborator.
// Calls are synchronous; failures surface to the caller without retry.
type ShipmentRepository interface {
	Create(ctx context.Context, s *domain.Shipment) error
	// FindByAWB returns domain.ErrShipmentNotFound when no shipment matches.
	FindByAWB(ctx context.Context, awb string) (*domain.Shipment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Shipment, error)
	// Save replaces the stored shipment in a single write, so status and
	// payment fields change together or not at all.
	Save(ctx context.Context, s *domain.Shipment) error
}
