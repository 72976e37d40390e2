package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrInvalidPricingInput = errors.New("invalid pricing input")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrShipmentLocked      = errors.New("shipment is locked")
	ErrMissingAWB          = errors.New("AWB required")
	ErrStorage             = errors.New("storage failure")
	ErrShipmentNotFound    = errors.New("shipment not found")
	ErrInvalidShipment     = errors.New("invalid shipment")
	ErrDuplicateShipment   = errors.New("awb or idempotency key already used")
	ErrUnknownTemplate     = errors.New("unknown notification template")
	ErrSessionClosed       = errors.New("tracking session closed")
	ErrForbidden           = errors.New("access forbidden")
	ErrInvalidSample       = errors.New("invalid location sample")
	ErrRiderNotFound       = errors.New("rider position not found")
)

// TransitionError reports a rejected status change. The shipment is left in
// its prior state.
type TransitionError struct {
	From   ShipmentStatus
	To     ShipmentStatus
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("illegal status transition from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// IllegalTransition builds a TransitionError for (from, to).
func IllegalTransition(from, to ShipmentStatus) *TransitionError {
	return &TransitionError{From: from, To: to}
}

// StorageError wraps a persistence collaborator failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// WrapStorage converts a repository error into a StorageError. Not-found is
// passed through untouched since it is an answer, not a failure.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrShipmentNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Error kinds reported to clients.
const (
	KindInvalidCoordinate   = "INVALID_COORDINATE"
	KindInvalidPricingInput = "INVALID_PRICING_INPUT"
	KindIllegalTransition   = "ILLEGAL_TRANSITION"
	KindShipmentLocked      = "SHIPMENT_LOCKED"
	KindMissingAWB          = "MISSING_AWB"
	KindStorage             = "STORAGE_ERROR"
	KindNotFound            = "NOT_FOUND"
	KindInvalidShipment     = "INVALID_SHIPMENT"
	KindForbidden           = "FORBIDDEN"
	KindInvalidSample       = "INVALID_LOCATION_SAMPLE"
	KindInternal            = "INTERNAL"
)

// KindOf classifies err into one of the stable kind strings.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCoordinate):
		return KindInvalidCoordinate
	case errors.Is(err, ErrInvalidPricingInput):
		return KindInvalidPricingInput
	case errors.Is(err, ErrIllegalTransition):
		return KindIllegalTransition
	case errors.Is(err, ErrShipmentLocked):
		return KindShipmentLocked
	case errors.Is(err, ErrMissingAWB):
		return KindMissingAWB
	case errors.Is(err, ErrShipmentNotFound), errors.Is(err, ErrRiderNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidSample):
		return KindInvalidSample
	case errors.Is(err, ErrInvalidShipment):
		return KindInvalidShipment
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}
