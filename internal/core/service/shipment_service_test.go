package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/geo"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/core/pricing"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/keylock"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubShipmentRepo struct {
	mu            sync.Mutex
	byAWB         map[string]*domain.Shipment
	byIdempotency map[string]*domain.Shipment
	createErr     error            // if set, Create returns this error
	saveErr       error            // if set, Save returns this error
	findKeyErr    error            // if set, FindByIdempotencyKey returns this error
	raceWinner    *domain.Shipment // if set, Create stores it and reports a duplicate key
	saves         int
}

func newStubShipmentRepo() *stubShipmentRepo {
	return &stubShipmentRepo{
		byAWB:         make(map[string]*domain.Shipment),
		byIdempotency: make(map[string]*domain.Shipment),
	}
}

func (r *stubShipmentRepo) Create(_ context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if w := r.raceWinner; w != nil {
		r.byAWB[w.AWB] = w.Clone()
		r.byIdempotency[w.IdempotencyKey] = w.Clone()
		return fmt.Errorf("%w: %w", domain.ErrInvalidShipment, domain.ErrDuplicateShipment)
	}
	r.byAWB[s.AWB] = s.Clone()
	if s.IdempotencyKey != "" {
		r.byIdempotency[s.IdempotencyKey] = s.Clone()
	}
	return nil
}

func (r *stubShipmentRepo) FindByAWB(_ context.Context, awb string) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byAWB[awb]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return s.Clone(), nil
}

func (r *stubShipmentRepo) FindByIdempotencyKey(_ context.Context, key string) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findKeyErr != nil {
		return nil, r.findKeyErr
	}
	s, ok := r.byIdempotency[key]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return s.Clone(), nil
}

func (r *stubShipmentRepo) Save(_ context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.byAWB[s.AWB] = s.Clone()
	return nil
}

func (r *stubShipmentRepo) stored(awb string) *domain.Shipment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byAWB[awb]
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newShipmentSvc(repo *stubShipmentRepo) *ShipmentService {
	svc := NewShipmentService(
		repo,
		geo.NewEstimator(),
		pricing.NewEngine(pricing.WithClock(func() time.Time { return fixedNow })),
		keylock.New(),
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func validCreateInput() ports.CreateShipmentInput {
	return ports.CreateShipmentInput{
		MerchantID:    "merchant_1",
		Sender:        domain.Address{Name: "Shop", Phone: "+8801711111111", City: "Dhaka", Area: "Gulshan", Line: "Road 11"},
		Receiver:      domain.Address{Name: "Rahim", Phone: "+8801722222222", City: "Narayanganj", Area: "Sadar", Line: "College Road"},
		WeightKg:      1.5,
		ServiceTier:   domain.TierNormal,
		PaymentMethod: domain.PaymentCOD,
		CODAmount:     250000,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreate_HappyPath(t *testing.T) {
	repo := newStubShipmentRepo()
	svc := newShipmentSvc(repo)

	result, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := result.Shipment

	if !strings.HasPrefix(s.AWB, "CX") || len(s.AWB) != 12 {
		t.Errorf("unexpected AWB format: %s", s.AWB)
	}
	if s.Status != domain.StatusPending || s.PaymentStatus != domain.PaymentPending {
		t.Errorf("unexpected initial state: %s / %s", s.Status, s.PaymentStatus)
	}
	// Dhaka -> Narayanganj is 20 km in the city table: 6000 + 1000 + 2000 + 2500.
	if s.DeliveryFee != 11500 || result.Quote.TotalFee != 11500 {
		t.Errorf("expected fee 11500, got shipment=%d quote=%d", s.DeliveryFee, result.Quote.TotalFee)
	}
	if s.DistanceKm != 20 {
		t.Errorf("expected 20 km, got %v", s.DistanceKm)
	}
	if !s.ExpectedDeliveryAt.Equal(fixedNow.Add(72 * time.Hour)) {
		t.Errorf("unexpected expected delivery: %v", s.ExpectedDeliveryAt)
	}
	if len(s.StatusHistory) != 1 || s.StatusHistory[0].Status != domain.StatusPending {
		t.Errorf("expected one PENDING history entry, got %+v", s.StatusHistory)
	}
	if repo.stored(s.AWB) == nil {
		t.Error("shipment was not persisted")
	}
}

func TestCreate_PrepaidIsPaid(t *testing.T) {
	svc := newShipmentSvc(newStubShipmentRepo())
	in := validCreateInput()
	in.PaymentMethod = domain.PaymentPrepaid
	in.CODAmount = 0

	result, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Shipment.PaymentStatus != domain.PaymentPaid {
		t.Errorf("expected PAID, got %s", result.Shipment.PaymentStatus)
	}
}

func TestCreate_IdempotentReplay(t *testing.T) {
	repo := newStubShipmentRepo()
	svc := newShipmentSvc(repo)
	in := validCreateInput()
	in.IdempotencyKey = "key-1"

	first, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if !second.AlreadyExisted {
		t.Error("expected AlreadyExisted on replay")
	}
	if second.Shipment.AWB != first.Shipment.AWB {
		t.Errorf("replay returned a different AWB: %s vs %s", second.Shipment.AWB, first.Shipment.AWB)
	}
	if len(repo.byAWB) != 1 {
		t.Errorf("expected a single stored shipment, got %d", len(repo.byAWB))
	}
}

func TestCreate_IdempotencyLookupFailureIsStorageError(t *testing.T) {
	repo := newStubShipmentRepo()
	repo.findKeyErr = errors.New("mongo unavailable")
	svc := newShipmentSvc(repo)
	in := validCreateInput()
	in.IdempotencyKey = "key-1"

	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(repo.byAWB) != 0 {
		t.Error("nothing should be created when the key cannot be checked")
	}
}

func TestCreate_LosingConcurrentInsertReplaysWinner(t *testing.T) {
	repo := newStubShipmentRepo()
	repo.raceWinner = &domain.Shipment{
		AWB:            "CXWINNER0001",
		Status:         domain.StatusPending,
		DeliveryFee:    11500,
		IdempotencyKey: "key-1",
	}
	svc := newShipmentSvc(repo)
	in := validCreateInput()
	in.IdempotencyKey = "key-1"

	res, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("expected a replay, got %v", err)
	}
	if !res.AlreadyExisted || res.Shipment.AWB != "CXWINNER0001" {
		t.Errorf("expected the winning shipment, got %+v", res)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ports.CreateShipmentInput)
		want   error
	}{
		{"zero weight", func(in *ports.CreateShipmentInput) { in.WeightKg = 0 }, domain.ErrInvalidPricingInput},
		{"negative cod", func(in *ports.CreateShipmentInput) { in.CODAmount = -1 }, domain.ErrInvalidPricingInput},
		{"unknown tier", func(in *ports.CreateShipmentInput) { in.ServiceTier = "OVERNIGHT" }, domain.ErrInvalidPricingInput},
		{"unknown method", func(in *ports.CreateShipmentInput) { in.PaymentMethod = "CARD" }, domain.ErrInvalidShipment},
		{"prepaid with cod", func(in *ports.CreateShipmentInput) { in.PaymentMethod = domain.PaymentPrepaid }, domain.ErrInvalidShipment},
		{"bad coordinates", func(in *ports.CreateShipmentInput) {
			in.Sender.Coordinates = &domain.Coordinates{Lat: 95, Lng: 90}
			in.Receiver.Coordinates = &domain.Coordinates{Lat: 23.7, Lng: 90.4}
		}, domain.ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubShipmentRepo()
			svc := newShipmentSvc(repo)
			in := validCreateInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(repo.byAWB) != 0 {
				t.Error("nothing should be persisted on validation failure")
			}
		})
	}
}

func TestCreate_StorageError(t *testing.T) {
	repo := newStubShipmentRepo()
	repo.createErr = errors.New("mongo unavailable")
	svc := newShipmentSvc(repo)

	_, err := svc.Create(context.Background(), validCreateInput())
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestGet(t *testing.T) {
	repo := newStubShipmentRepo()
	svc := newShipmentSvc(repo)
	created, _ := svc.Create(context.Background(), validCreateInput())

	got, err := svc.Get(context.Background(), created.Shipment.AWB)
	if err != nil || got.AWB != created.Shipment.AWB {
		t.Fatalf("Get returned %v, %v", got, err)
	}
	if _, err := svc.Get(context.Background(), "CX0000000000"); !errors.Is(err, domain.ErrShipmentNotFound) {
		t.Errorf("expected ErrShipmentNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), ""); !errors.Is(err, domain.ErrMissingAWB) {
		t.Errorf("expected ErrMissingAWB, got %v", err)
	}
}

func TestUpdate_RepricesFromCurrentAddresses(t *testing.T) {
	repo := newStubShipmentRepo()
	svc := newShipmentSvc(repo)
	created, _ := svc.Create(context.Background(), validCreateInput())

	// Move the receiver to Gazipur (35 km) and double the weight.
	receiver := domain.Address{Name: "Rahim", Phone: "+8801722222222", City: "Gazipur", Area: "Tongi"}
	weight := 3.0
	updated, err := svc.Update(context.Background(), ports.UpdateShipmentInput{
		AWB:      created.Shipment.AWB,
		Actor:    "merchant_1",
		Receiver: &receiver,
		WeightKg: &weight,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 6000 + 2*2000 + 25*200 + 2500
	if updated.DeliveryFee != 17500 {
		t.Errorf("expected re-priced fee 17500, got %d", updated.DeliveryFee)
	}
	if updated.DistanceKm != 35 {
		t.Errorf("expected distance recomputed to 35 km, got %v", updated.DistanceKm)
	}
	if repo.stored(created.Shipment.AWB).DeliveryFee != 17500 {
		t.Error("re-priced fee not persisted")
	}
}

func TestUpdate_LockedAfterPickup(t *testing.T) {
	repo := newStubShipmentRepo()
	svc := newShipmentSvc(repo)
	created, _ := svc.Create(context.Background(), validCreateInput())

	stored := repo.stored(created.Shipment.AWB)
	stored.Status = domain.StatusPickedUp

	weight := 5.0
	_, err := svc.Update(context.Background(), ports.UpdateShipmentInput{AWB: created.Shipment.AWB, WeightKg: &weight})
	if !errors.Is(err, domain.ErrShipmentLocked) {
		t.Fatalf("expected ErrShipmentLocked, got %v", err)
	}
	if repo.stored(created.Shipment.AWB).WeightKg != 1.5 {
		t.Error("locked shipment must not change")
	}
}

func TestUpdate_InvalidWeightLeavesShipmentUnchanged(t *testing.T) {
	repo := newStubShipmentRepo()
	svc := newShipmentSvc(repo)
	created, _ := svc.Create(context.Background(), validCreateInput())

	weight := -2.0
	_, err := svc.Update(context.Background(), ports.UpdateShipmentInput{AWB: created.Shipment.AWB, WeightKg: &weight})
	if !errors.Is(err, domain.ErrInvalidPricingInput) {
		t.Fatalf("expected ErrInvalidPricingInput, got %v", err)
	}
	if repo.saves != 0 {
		t.Error("nothing should be saved")
	}
}

func TestQuote(t *testing.T) {
	svc := newShipmentSvc(newStubShipmentRepo())

	distance := 20.0
	res, err := svc.Quote(context.Background(), ports.QuoteInput{
		WeightKg: 1.5, ServiceTier: domain.TierNormal, CODAmount: 250000, DistanceKm: &distance,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Quote.TotalFee != 11500 || res.DistanceKm != 20 {
		t.Errorf("unexpected quote %+v", res)
	}

	sender := domain.Address{City: "Dhaka", Area: "Gulshan"}
	receiver := domain.Address{City: "Dhaka", Area: "Banani"}
	res, err = svc.Quote(context.Background(), ports.QuoteInput{
		WeightKg: 1, ServiceTier: domain.TierExpress, Sender: &sender, Receiver: &receiver,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DistanceKm != 2.5 || res.Quote.TotalFee != 13000 {
		t.Errorf("unexpected address quote %+v", res)
	}

	if _, err := svc.Quote(context.Background(), ports.QuoteInput{WeightKg: 1, ServiceTier: domain.TierNormal}); !errors.Is(err, domain.ErrInvalidPricingInput) {
		t.Errorf("expected ErrInvalidPricingInput without distance, got %v", err)
	}
}
