package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
	"github.com/dipto-roy/courier-service-sub002/internal/pkg/keylock"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.TrackingEvent
}

func (p *stubPublisher) Publish(_ string, e domain.TrackingEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return 1
}

func (p *stubPublisher) ofType(t domain.EventType) []domain.TrackingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.TrackingEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type stubNotifier struct {
	mu   sync.Mutex
	err  error
	sent []domain.Notification
}

func (n *stubNotifier) Notify(_ context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *stubNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Kind)
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type lifecycleFixture struct {
	repo     *stubShipmentRepo
	hub      *stubPublisher
	notifier *stubNotifier
	svc      ports.LifecycleService
}

func newLifecycleFixture(opts ...LifecycleOption) *lifecycleFixture {
	f := &lifecycleFixture{
		repo:     newStubShipmentRepo(),
		hub:      &stubPublisher{},
		notifier: &stubNotifier{},
	}
	opts = append([]LifecycleOption{WithLifecycleClock(func() time.Time { return fixedNow })}, opts...)
	f.svc = NewLifecycleService(f.repo, f.hub, f.notifier, keylock.New(), zerolog.Nop(), opts...)
	return f
}

func (f *lifecycleFixture) seed(awb string, status domain.ShipmentStatus, method domain.PaymentMethod) {
	f.repo.byAWB[awb] = &domain.Shipment{
		AWB:                awb,
		MerchantID:         "merchant_1",
		Status:             status,
		PaymentMethod:      method,
		PaymentStatus:      initialPaymentStatus(method),
		WeightKg:           1.5,
		ServiceTier:        domain.TierNormal,
		CODAmount:          250000,
		CreatedAt:          fixedNow.Add(-time.Hour),
		ExpectedDeliveryAt: fixedNow.Add(71 * time.Hour),
		Receiver:           domain.Address{Name: "Rahim", Phone: "+8801722222222"},
		StatusHistory:      []domain.StatusHistoryEntry{{Status: status, Timestamp: fixedNow.Add(-time.Hour)}},
	}
}

func (f *lifecycleFixture) move(t *testing.T, awb string, to domain.ShipmentStatus) *domain.Shipment {
	t.Helper()
	s, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: awb, To: to, Actor: "rider_7"})
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTransition_SkippingPickupIsRejected(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusPending, domain.PaymentCOD)

	_, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX1", To: domain.StatusInTransit})

	var te *domain.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != domain.StatusPending || te.To != domain.StatusInTransit {
		t.Errorf("unexpected transition error %+v", te)
	}
	if f.repo.stored("CX1").Status != domain.StatusPending {
		t.Error("status must remain PENDING")
	}
	if len(f.hub.events) != 0 || len(f.notifier.sent) != 0 {
		t.Error("rejected transition must not publish or notify")
	}
}

func TestTransition_EveryIllegalPairLeavesStatusUnchanged(t *testing.T) {
	for _, from := range domain.AllStatuses {
		for _, to := range domain.AllStatuses {
			if from.CanTransitionTo(to) {
				continue
			}
			f := newLifecycleFixture()
			f.seed("CX1", from, domain.PaymentCOD)

			_, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX1", To: to})
			if !errors.Is(err, domain.ErrIllegalTransition) {
				t.Errorf("%s -> %s: expected ErrIllegalTransition, got %v", from, to, err)
			}
			if got := f.repo.stored("CX1").Status; got != from {
				t.Errorf("%s -> %s: stored status changed to %s", from, to, got)
			}
		}
	}
}

func TestTransition_FullCODDelivery(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusPending, domain.PaymentCOD)

	for _, to := range []domain.ShipmentStatus{
		domain.StatusPickedUp,
		domain.StatusInTransit,
		domain.StatusOutForDelivery,
		domain.StatusDelivered,
	} {
		f.move(t, "CX1", to)
	}

	final := f.repo.stored("CX1")
	if final.Status != domain.StatusDelivered {
		t.Errorf("expected DELIVERED, got %s", final.Status)
	}
	if final.PaymentStatus != domain.PaymentCollected {
		t.Errorf("expected COLLECTED, got %s", final.PaymentStatus)
	}
	if final.ActualDeliveryAt == nil || !final.ActualDeliveryAt.Equal(fixedNow) {
		t.Errorf("expected actualDeliveryAt=%v, got %v", fixedNow, final.ActualDeliveryAt)
	}
	if len(final.StatusHistory) != 5 {
		t.Errorf("expected 5 history entries, got %d", len(final.StatusHistory))
	}
	if final.DeliveryAttempts != 1 {
		t.Errorf("expected 1 delivery attempt, got %d", final.DeliveryAttempts)
	}

	status := f.hub.ofType(domain.EventStatus)
	if len(status) != 4 {
		t.Fatalf("expected 4 status events, got %d", len(status))
	}
	last := status[3].Payload.(domain.StatusChangedPayload)
	if last.From != domain.StatusOutForDelivery || last.To != domain.StatusDelivered || last.PaymentStatus != domain.PaymentCollected {
		t.Errorf("unexpected final status payload %+v", last)
	}
	if eta := f.hub.ofType(domain.EventETA); len(eta) != 1 {
		t.Errorf("expected one eta event on OUT_FOR_DELIVERY, got %d", len(eta))
	}

	kinds := f.notifier.kinds()
	count := map[domain.NotificationKind]int{}
	for _, k := range kinds {
		count[k]++
	}
	if count[domain.NotifyStatusChanged] != 4 || count[domain.NotifyDeliveryAlert] != 1 ||
		count[domain.NotifyPaymentUpdate] != 1 || count[domain.NotifyTerminal] != 1 {
		t.Errorf("unexpected notifications %v", count)
	}
}

func TestTransition_PrepaidDeliveryKeepsPaymentStatus(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusOutForDelivery, domain.PaymentPrepaid)

	s := f.move(t, "CX1", domain.StatusDelivered)
	if s.PaymentStatus != domain.PaymentPaid {
		t.Errorf("prepaid shipment should stay PAID, got %s", s.PaymentStatus)
	}
	for _, k := range f.notifier.kinds() {
		if k == domain.NotifyPaymentUpdate {
			t.Error("no payment update expected for prepaid delivery")
		}
	}
}

func TestTransition_StorageFailureDoesNotPublish(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusOutForDelivery, domain.PaymentCOD)
	f.repo.saveErr = errors.New("write conflict")

	_, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX1", To: domain.StatusDelivered})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	stored := f.repo.stored("CX1")
	if stored.Status != domain.StatusOutForDelivery || stored.PaymentStatus != domain.PaymentPending {
		t.Errorf("status and payment must both stay unchanged, got %s/%s", stored.Status, stored.PaymentStatus)
	}
	if len(f.hub.events) != 0 {
		t.Error("no event may be published for a failed save")
	}
}

func TestTransition_NotificationFailureIsBestEffort(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusPending, domain.PaymentCOD)
	f.notifier.err = errors.New("sms gateway down")

	s, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX1", To: domain.StatusPickedUp})
	if err != nil {
		t.Fatalf("notify failure must not fail the transition: %v", err)
	}
	if s.Status != domain.StatusPickedUp || f.repo.stored("CX1").Status != domain.StatusPickedUp {
		t.Error("transition should be persisted")
	}
	if len(f.hub.ofType(domain.EventStatus)) != 1 {
		t.Error("status event should still be published")
	}
}

func TestTransition_NotFound(t *testing.T) {
	f := newLifecycleFixture()

	_, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX404", To: domain.StatusPickedUp})
	if !errors.Is(err, domain.ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), ports.TransitionInput{To: domain.StatusPickedUp}); !errors.Is(err, domain.ErrMissingAWB) {
		t.Fatalf("expected ErrMissingAWB, got %v", err)
	}
}

func TestTransition_RetryCap(t *testing.T) {
	f := newLifecycleFixture(WithMaxDeliveryAttempts(2))
	f.seed("CX1", domain.StatusInTransit, domain.PaymentCOD)

	f.move(t, "CX1", domain.StatusOutForDelivery)
	f.move(t, "CX1", domain.StatusFailed)
	f.move(t, "CX1", domain.StatusOutForDelivery)
	f.move(t, "CX1", domain.StatusFailed)

	_, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX1", To: domain.StatusOutForDelivery})
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.Reason != "retry limit reached" {
		t.Fatalf("expected retry limit TransitionError, got %v", err)
	}

	s := f.move(t, "CX1", domain.StatusReturned)
	if s.Status != domain.StatusReturned {
		t.Errorf("expected RETURNED, got %s", s.Status)
	}
}

func TestTransition_UncappedRetries(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusInTransit, domain.PaymentCOD)

	f.move(t, "CX1", domain.StatusOutForDelivery)
	for i := 0; i < 5; i++ {
		f.move(t, "CX1", domain.StatusFailed)
		f.move(t, "CX1", domain.StatusOutForDelivery)
	}
	if got := f.repo.stored("CX1").DeliveryAttempts; got != 6 {
		t.Errorf("expected 6 attempts, got %d", got)
	}
}

func TestTransition_RiderAssignment(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusInTransit, domain.PaymentCOD)

	s, err := f.svc.Transition(context.Background(), ports.TransitionInput{
		AWB:      "CX1",
		To:       domain.StatusOutForDelivery,
		Actor:    "hub_dhaka",
		Metadata: map[string]string{ports.MetaRiderID: "rider_7", ports.MetaNote: "morning run"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RiderID != "rider_7" {
		t.Errorf("expected rider assignment, got %q", s.RiderID)
	}
	last := s.StatusHistory[len(s.StatusHistory)-1]
	if last.Actor != "hub_dhaka" || last.Notes != "morning run" {
		t.Errorf("unexpected history entry %+v", last)
	}
}

func TestTransition_ConcurrentSameAWB(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusPending, domain.PaymentCOD)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Transition(context.Background(), ports.TransitionInput{AWB: "CX1", To: domain.StatusPickedUp})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("exactly one concurrent PENDING->PICKED_UP may win, got %d", succeeded)
	}
	if len(f.repo.stored("CX1").StatusHistory) != 2 {
		t.Error("history must record a single transition")
	}
}

func TestCancel(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusPending, domain.PaymentCOD)

	s, err := f.svc.Cancel(context.Background(), "CX1", "merchant_1", "customer changed mind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != domain.StatusCancelled || s.DeletedAt == nil {
		t.Errorf("expected soft-deleted CANCELLED shipment, got %s deleted=%v", s.Status, s.DeletedAt)
	}
	if f.repo.stored("CX1") == nil {
		t.Fatal("cancelled shipment must not be hard-deleted")
	}

	var terminal *domain.Notification
	for i := range f.notifier.sent {
		if f.notifier.sent[i].Kind == domain.NotifyTerminal {
			terminal = &f.notifier.sent[i]
		}
	}
	if terminal == nil {
		t.Fatal("expected terminal notification")
	}
}

func TestCancel_LockedAfterPickup(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX1", domain.StatusPickedUp, domain.PaymentCOD)

	_, err := f.svc.Cancel(context.Background(), "CX1", "merchant_1", "")
	if !errors.Is(err, domain.ErrShipmentLocked) {
		t.Fatalf("expected ErrShipmentLocked, got %v", err)
	}
	if f.repo.stored("CX1").DeletedAt != nil {
		t.Error("shipment must not be deleted")
	}
}
