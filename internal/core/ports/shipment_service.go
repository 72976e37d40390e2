package ports

import (
	"context"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// CreateShipmentInput carries all data needed to create a new shipment.
type CreateShipmentInput struct {
	MerchantID     string
	Sender         domain.Address
	Receiver       domain.Address
	WeightKg       float64
	ServiceTier    domain.ServiceTier
	PaymentMethod  domain.PaymentMethod
	CODAmount      domain.Money
	IdempotencyKey string
}

// UpdateShipmentInput is a partial edit; nil fields are left unchanged.
type UpdateShipmentInput struct {
	AWB         string
	Actor       string
	Sender      *domain.Address
	Receiver    *domain.Address
	WeightKg    *float64
	ServiceTier *domain.ServiceTier
	CODAmount   *domain.Money
}

// QuoteInput prices a prospective shipment. DistanceKm wins over addresses
// when set.
type QuoteInput struct {
	WeightKg    float64
	ServiceTier domain.ServiceTier
	CODAmount   domain.Money
	DistanceKm  *float64
	Sender      *domain.Address
	Receiver    *domain.Address
}

// QuoteResult is a quote plus the distance it was computed from.
type QuoteResult struct {
	DistanceKm float64
	Quote      domain.PricingQuote
}

// ShipmentResult is returned after creating a shipment.
type ShipmentResult struct {
	Shipment *domain.Shipment
	Quote    domain.PricingQuote
	// AlreadyExisted is true when the Idempotency-Key matched an existing shipment.
	AlreadyExisted bool
}

// Recognised TransitionInput.Metadata keys.
const (
	MetaNote    = "note"
	MetaRiderID = "rider_id"
)

// TransitionInput requests a status change.
type TransitionInput struct {
	AWB      string
	To       domain.ShipmentStatus
	Actor    string
	Metadata map[string]string
}

// ShipmentService covers the creation/update flows that feed the pricing engine.
type ShipmentService interface {
	Create(ctx context.Context, input CreateShipmentInput) (*ShipmentResult, error)
	Get(ctx context.Context, awb string) (*domain.Shipment, error)
	Update(ctx context.Context, input UpdateShipmentInput) (*domain.Shipment, error)
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
}

// LifecycleService owns status transitions.
type LifecycleService interface {
	Transition(ctx context.Context, input TransitionInput) (*domain.Shipment, error)
	Cancel(ctx context.Context, awb, actor, reason string) (*domain.Shipment, error)
}

// LocationService ingests rider pings and serves location history.
type LocationService interface {
	Ingest(ctx context.Context, raw domain.RawLocationSample) (*domain.LocationSample, error)
	Recent(ctx context.Context, awb string, limit int) ([]domain.LocationSample, error)
	RiderPosition(ctx context.Context, riderID string) (*domain.RiderPosition, error)
}
