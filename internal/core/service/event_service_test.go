package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubDedup struct {
	dupResult bool
	dupErr    error
	markErr   error
	marked    []string
}

func (d *stubDedup) IsDuplicate(_ context.Context, awb, status string, _ time.Time) (bool, error) {
	return d.dupResult, d.dupErr
}

func (d *stubDedup) Mark(_ context.Context, awb, status string, _ time.Time) error {
	if d.markErr != nil {
		return d.markErr
	}
	d.marked = append(d.marked, awb+":"+status)
	return nil
}

// ---------------------------------------------------------------------------
// Helper: build a service over a lifecycle with a seeded shipment.
// ---------------------------------------------------------------------------

func newEventSvc(status domain.ShipmentStatus, dedup *stubDedup) (ports.EventService, *lifecycleFixture) {
	f := newLifecycleFixture()
	f.seed("CX0A1B2C3D4E", status, domain.PaymentCOD)
	return NewEventService(f.svc, dedup, zerolog.Nop()), f
}

func scan(status string) ports.StatusEventInput {
	return ports.StatusEventInput{
		AWB:       "CX0A1B2C3D4E",
		Status:    status,
		Timestamp: fixedNow,
		Source:    "hub_scanner",
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEventService_Process_HappyPath(t *testing.T) {
	dedup := &stubDedup{}
	svc, f := newEventSvc(domain.StatusPending, dedup)

	if err := svc.Process(context.Background(), scan("picked_up")); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	stored := f.repo.stored("CX0A1B2C3D4E")
	if stored.Status != domain.StatusPickedUp {
		t.Errorf("expected PICKED_UP, got %s", stored.Status)
	}
	if last := stored.StatusHistory[len(stored.StatusHistory)-1]; last.Actor != "hub_scanner" {
		t.Errorf("expected scanner as actor, got %q", last.Actor)
	}
	if len(dedup.marked) != 1 || dedup.marked[0] != "CX0A1B2C3D4E:PICKED_UP" {
		t.Errorf("expected dedup key marked, got %v", dedup.marked)
	}
	if len(f.hub.ofType(domain.EventStatus)) != 1 {
		t.Error("expected status event fan-out")
	}
}

func TestEventService_Process_DuplicateSkipped(t *testing.T) {
	dedup := &stubDedup{dupResult: true} // simulate already processed
	svc, f := newEventSvc(domain.StatusPending, dedup)

	if err := svc.Process(context.Background(), scan("PICKED_UP")); err != nil {
		t.Fatalf("expected no error for duplicate, got: %v", err)
	}
	if f.repo.saves != 0 {
		t.Error("expected no update for duplicate event")
	}
}

func TestEventService_Process_ShipmentNotFound(t *testing.T) {
	svc, _ := newEventSvc(domain.StatusPending, &stubDedup{})
	in := scan("PICKED_UP")
	in.AWB = "CX-NOTFOUND"

	if err := svc.Process(context.Background(), in); !errors.Is(err, domain.ErrShipmentNotFound) {
		t.Errorf("expected ErrShipmentNotFound, got: %v", err)
	}
}

func TestEventService_Process_InvalidTransition(t *testing.T) {
	dedup := &stubDedup{}
	svc, f := newEventSvc(domain.StatusPending, dedup)

	err := svc.Process(context.Background(), scan("DELIVERED")) // invalid: PENDING -> DELIVERED
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got: %v", err)
	}
	if f.repo.saves != 0 {
		t.Error("expected no update on invalid transition")
	}
	if len(dedup.marked) != 0 {
		t.Error("rejected events must not be marked, so a corrected retry is processed")
	}
}

func TestEventService_Process_DedupCheckError_ProcessesAnyway(t *testing.T) {
	dedup := &stubDedup{dupErr: errors.New("redis timeout")} // dedup check fails
	svc, f := newEventSvc(domain.StatusPending, dedup)

	if err := svc.Process(context.Background(), scan("PICKED_UP")); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if f.repo.saves != 1 {
		t.Error("expected update to proceed when dedup check errors")
	}
}

func TestEventService_Process_MarkFailureIsNonFatal(t *testing.T) {
	svc, f := newEventSvc(domain.StatusPending, &stubDedup{markErr: errors.New("redis unavailable")})

	if err := svc.Process(context.Background(), scan("PICKED_UP")); err != nil {
		t.Fatalf("expected mark failure to be non-fatal, got: %v", err)
	}
	if f.repo.stored("CX0A1B2C3D4E").Status != domain.StatusPickedUp {
		t.Error("expected shipment status to be updated")
	}
}

func TestEventService_Process_WithoutDedupStore(t *testing.T) {
	f := newLifecycleFixture()
	f.seed("CX0A1B2C3D4E", domain.StatusPending, domain.PaymentCOD)
	svc := NewEventService(f.svc, nil, zerolog.Nop())

	if err := svc.Process(context.Background(), scan("PICKED_UP")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
