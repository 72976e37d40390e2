package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/geo"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/core/pricing"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/keylock"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

type ShipmentService struct {
	repo      ports.ShipmentRepository
	estimator *geo.Estimator
	pricing   *pricing.Engine
	locks     *keylock.Locker
	now       func() time.Time
	logger    zerolog.Logger
}

// NewShipmentService wires the creation/update flows. locks must be the same
// Locker the lifecycle uses so edits and transitions on one AWB never race.
func NewShipmentService(
	repo ports.ShipmentRepository,
	estimator *geo.Estimator,
	engine *pricing.Engine,
	locks *keylock.Locker,
	logger zerolog.Logger,
) *ShipmentService {
	return &ShipmentService{
		repo:      repo,
		estimator: estimator,
		pricing:   engine,
		locks:     locks,
		now:       time.Now,
		logger:    logger,
	}
}

// Create prices and stores a new PENDING shipment. If an idempotency key is
// provided and already seen, the previously created shipment is returned
// without side effects.
func (s *ShipmentService) Create(ctx context.Context, input ports.CreateShipmentInput) (*ports.ShipmentResult, error) {
	if input.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(input.IdempotencyKey, existing), nil
		}
	}

	if err := validateShipmentFields(input.WeightKg, input.ServiceTier, input.PaymentMethod, input.CODAmount); err != nil {
		return nil, err
	}

	distance, err := s.estimator.EstimateBetween(input.Sender, input.Receiver)
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	quote, err := s.pricing.Quote(input.WeightKg, distance, input.ServiceTier, input.CODAmount)
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	now := s.now().UTC()
	shipment := &domain.Shipment{
		AWB:                generateAWB(),
		MerchantID:         input.MerchantID,
		Status:             domain.StatusPending,
		PaymentStatus:      initialPaymentStatus(input.PaymentMethod),
		PaymentMethod:      input.PaymentMethod,
		WeightKg:           input.WeightKg,
		ServiceTier:        input.ServiceTier,
		CODAmount:          input.CODAmount,
		DeliveryFee:        quote.TotalFee,
		DistanceKm:         distance,
		Sender:             input.Sender,
		Receiver:           input.Receiver,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpectedDeliveryAt: quote.ExpectedDeliveryAt,
		IdempotencyKey:     input.IdempotencyKey,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusPending, Timestamp: now, Actor: input.MerchantID},
		},
	}

	if err := s.repo.Create(ctx, shipment); err != nil {
		// A concurrent request with the same key won the insert.
		if input.IdempotencyKey != "" && errors.Is(err, domain.ErrDuplicateShipment) {
			existing, findErr := s.findByIdempotencyKey(ctx, input.IdempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return s.replay(input.IdempotencyKey, existing), nil
			}
		}
		s.logger.Error().Err(err).Msg("failed to create shipment")
		return nil, domain.WrapStorage("create shipment", err)
	}

	metrics.ShipmentsCreatedTotal.WithLabelValues(string(shipment.ServiceTier)).Inc()
	s.logger.Info().
		Str("awb", shipment.AWB).
		Str("merchant_id", input.MerchantID).
		Int64("delivery_fee", int64(shipment.DeliveryFee)).
		Float64("distance_km", distance).
		Msg("shipment created")

	return &ports.ShipmentResult{Shipment: shipment, Quote: quote}, nil
}

// findByIdempotencyKey returns nil, nil when the key has not been used.
func (s *ShipmentService) findByIdempotencyKey(ctx context.Context, key string) (*domain.Shipment, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, domain.ErrShipmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", domain.WrapStorage("find by idempotency key", err))
	}
	return existing, nil
}

func (s *ShipmentService) replay(key string, existing *domain.Shipment) *ports.ShipmentResult {
	s.logger.Info().Str("idempotency_key", key).Str("awb", existing.AWB).Msg("idempotent replay")
	return &ports.ShipmentResult{
		Shipment:       existing,
		Quote:          quoteOf(existing),
		AlreadyExisted: true,
	}
}

// Get returns a shipment by AWB.
func (s *ShipmentService) Get(ctx context.Context, awb string) (*domain.Shipment, error) {
	if awb == "" {
		return nil, domain.ErrMissingAWB
	}
	shipment, err := s.repo.FindByAWB(ctx, awb)
	if err != nil {
		return nil, domain.WrapStorage("load shipment", err)
	}
	return shipment, nil
}

// Update edits non-status fields while the shipment is still PENDING. Any
// change that affects the price triggers a re-price from the current
// addresses.
func (s *ShipmentService) Update(ctx context.Context, input ports.UpdateShipmentInput) (*domain.Shipment, error) {
	if input.AWB == "" {
		return nil, domain.ErrMissingAWB
	}

	unlock := s.locks.Lock(input.AWB)
	defer unlock()

	current, err := s.repo.FindByAWB(ctx, input.AWB)
	if err != nil {
		return nil, domain.WrapStorage("load shipment", err)
	}
	if current.Status != domain.StatusPending {
		return nil, fmt.Errorf("update %s in status %s: %w", current.AWB, current.Status, domain.ErrShipmentLocked)
	}

	next := current.Clone()
	reprice := false
	if input.Sender != nil {
		next.Sender = *input.Sender
		reprice = true
	}
	if input.Receiver != nil {
		next.Receiver = *input.Receiver
		reprice = true
	}
	if input.WeightKg != nil {
		next.WeightKg = *input.WeightKg
		reprice = true
	}
	if input.ServiceTier != nil {
		next.ServiceTier = *input.ServiceTier
		reprice = true
	}
	if input.CODAmount != nil {
		next.CODAmount = *input.CODAmount
		reprice = true
	}

	if err := validateShipmentFields(next.WeightKg, next.ServiceTier, next.PaymentMethod, next.CODAmount); err != nil {
		return nil, err
	}

	if reprice {
		distance, err := s.estimator.EstimateBetween(next.Sender, next.Receiver)
		if err != nil {
			return nil, fmt.Errorf("update shipment: %w", err)
		}
		quote, err := s.pricing.Quote(next.WeightKg, distance, next.ServiceTier, next.CODAmount)
		if err != nil {
			return nil, fmt.Errorf("update shipment: %w", err)
		}
		next.DistanceKm = distance
		next.DeliveryFee = quote.TotalFee
		next.ExpectedDeliveryAt = quote.ExpectedDeliveryAt
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, domain.WrapStorage("save shipment", err)
	}

	s.logger.Info().
		Str("awb", next.AWB).
		Str("actor", input.Actor).
		Bool("repriced", reprice).
		Int64("delivery_fee", int64(next.DeliveryFee)).
		Msg("shipment updated")
	return next, nil
}

// Quote prices a prospective shipment without storing anything.
func (s *ShipmentService) Quote(_ context.Context, input ports.QuoteInput) (*ports.QuoteResult, error) {
	var distance float64
	switch {
	case input.DistanceKm != nil:
		distance = *input.DistanceKm
	case input.Sender != nil && input.Receiver != nil:
		d, err := s.estimator.EstimateBetween(*input.Sender, *input.Receiver)
		if err != nil {
			return nil, fmt.Errorf("quote: %w", err)
		}
		distance = d
	default:
		return nil, fmt.Errorf("%w: distance or both addresses required", domain.ErrInvalidPricingInput)
	}

	quote, err := s.pricing.Quote(input.WeightKg, distance, input.ServiceTier, input.CODAmount)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	return &ports.QuoteResult{DistanceKm: distance, Quote: quote}, nil
}

func validateShipmentFields(weightKg float64, tier domain.ServiceTier, method domain.PaymentMethod, cod domain.Money) error {
	switch {
	case weightKg <= 0 || math.IsNaN(weightKg) || math.IsInf(weightKg, 0):
		return fmt.Errorf("%w: weight must be positive", domain.ErrInvalidPricingInput)
	case cod < 0:
		return fmt.Errorf("%w: cod amount must not be negative", domain.ErrInvalidPricingInput)
	case !tier.Valid():
		return fmt.Errorf("%w: unknown service tier %q", domain.ErrInvalidPricingInput, tier)
	case !method.Valid():
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidShipment, method)
	case method == domain.PaymentPrepaid && cod > 0:
		return fmt.Errorf("%w: prepaid shipment cannot carry a cod amount", domain.ErrInvalidShipment)
	}
	return nil
}

func initialPaymentStatus(m domain.PaymentMethod) domain.PaymentStatus {
	if m == domain.PaymentPrepaid {
		return domain.PaymentPaid
	}
	return domain.PaymentPending
}

// quoteOf reconstructs the persisted part of a quote for idempotent replays.
func quoteOf(s *domain.Shipment) domain.PricingQuote {
	return domain.PricingQuote{TotalFee: s.DeliveryFee, ExpectedDeliveryAt: s.ExpectedDeliveryAt}
}

// generateAWB returns a unique AWB in the format CXXXXXXXXXXX (CX + 10 hex chars).
func generateAWB() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("CX%010X", time.Now().UnixNano()&0xFFFFFFFFFF)
	}
	return fmt.Sprintf("CX%010X", b)
}
