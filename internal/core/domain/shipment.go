package domain

import (
	"time"
)

// ShipmentStatus represents the lifecycle state of a shipment.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "PENDING"
	StatusPickedUp       ShipmentStatus = "PICKED_UP"
	StatusInTransit      ShipmentStatus = "IN_TRANSIT"
	StatusOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      ShipmentStatus = "DELIVERED"
	StatusFailed         ShipmentStatus = "FAILED"
	StatusReturned       ShipmentStatus = "RETURNED"
	StatusCancelled      ShipmentStatus = "CANCELLED"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []ShipmentStatus{
	StatusPending,
	StatusPickedUp,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusFailed,
	StatusReturned,
	StatusCancelled,
}

// validTransitions defines the allowed state machine transitions.
// Statuses absent from the map are terminal.
var validTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusPending:        {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusInTransit},
	StatusInTransit:      {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered, StatusFailed},
	StatusFailed:         {StatusOutForDelivery, StatusReturned},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusReturned || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s ShipmentStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the money side of a shipment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCollected PaymentStatus = "COLLECTED"
	PaymentPaid      PaymentStatus = "PAID"
)

// PaymentMethod is how the receiver pays.
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentPrepaid PaymentMethod = "PREPAID"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentPrepaid
}

// ServiceTier is the delivery speed class.
type ServiceTier string

const (
	TierNormal  ServiceTier = "NORMAL"
	TierExpress ServiceTier = "EXPRESS"
	TierSameDay ServiceTier = "SAME_DAY"
)

// Valid reports whether t is a known service tier.
func (t ServiceTier) Valid() bool {
	return t == TierNormal || t == TierExpress || t == TierSameDay
}

// Money is an amount in the currency's minor unit (poisha for BDT).
type Money int64

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Address is a structured sender or receiver location. Coordinates are
// optional because senders frequently omit them.
type Address struct {
	Name        string       `json:"name" bson:"name"`
	Phone       string       `json:"phone" bson:"phone"`
	City        string       `json:"city" bson:"city"`
	Area        string       `json:"area" bson:"area"`
	Line        string       `json:"line" bson:"line"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

// StatusHistoryEntry records a single status transition on a shipment.
type StatusHistoryEntry struct {
	Status    ShipmentStatus `json:"status" bson:"status"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Actor     string         `json:"actor,omitempty" bson:"actor,omitempty"`
	Notes     string         `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Shipment is the core aggregate root. AWB is immutable once assigned.
type Shipment struct {
	AWB                string               `json:"awb" bson:"awb"`
	MerchantID         string               `json:"merchant_id" bson:"merchant_id"`
	Status             ShipmentStatus       `json:"status" bson:"status"`
	PaymentStatus      PaymentStatus        `json:"payment_status" bson:"payment_status"`
	PaymentMethod      PaymentMethod        `json:"payment_method" bson:"payment_method"`
	WeightKg           float64              `json:"weight_kg" bson:"weight_kg"`
	ServiceTier        ServiceTier          `json:"service_tier" bson:"service_tier"`
	CODAmount          Money                `json:"cod_amount" bson:"cod_amount"`
	DeliveryFee        Money                `json:"delivery_fee" bson:"delivery_fee"`
	DistanceKm         float64              `json:"distance_km" bson:"distance_km"`
	Sender             Address              `json:"sender" bson:"sender"`
	Receiver           Address              `json:"receiver" bson:"receiver"`
	RiderID            string               `json:"rider_id,omitempty" bson:"rider_id,omitempty"`
	DeliveryAttempts   int                  `json:"delivery_attempts" bson:"delivery_attempts"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
	ExpectedDeliveryAt time.Time            `json:"expected_delivery_at" bson:"expected_delivery_at"`
	ActualDeliveryAt   *time.Time           `json:"actual_delivery_at,omitempty" bson:"actual_delivery_at,omitempty"`
	DeletedAt          *time.Time           `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	IdempotencyKey     string               `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	StatusHistory      []StatusHistoryEntry `json:"status_history" bson:"status_history"`
}

// Clone returns a deep copy so callers can build an updated version without
// touching the original until the update is persisted.
func (s *Shipment) Clone() *Shipment {
	c := *s
	c.Sender.Coordinates = cloneCoords(s.Sender.Coordinates)
	c.Receiver.Coordinates = cloneCoords(s.Receiver.Coordinates)
	if s.ActualDeliveryAt != nil {
		t := *s.ActualDeliveryAt
		c.ActualDeliveryAt = &t
	}
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		c.DeletedAt = &t
	}
	c.StatusHistory = append([]StatusHistoryEntry(nil), s.StatusHistory...)
	return &c
}

func cloneCoords(c *Coordinates) *Coordinates {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// PricingQuote is the fee breakdown produced by the pricing engine. Only
// TotalFee and ExpectedDeliveryAt are copied onto the shipment.
type PricingQuote struct {
	BaseFee              Money     `json:"base_fee"`
	WeightSurcharge      Money     `json:"weight_surcharge"`
	DistanceSurcharge    Money     `json:"distance_surcharge"`
	ServiceTierSurcharge Money     `json:"service_tier_surcharge"`
	CODHandlingFee       Money     `json:"cod_handling_fee"`
	TotalFee             Money     `json:"total_fee"`
	ExpectedDeliveryAt   time.Time `json:"expected_delivery_at"`
}
