package handler

import (
	"time"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

type coordinatesRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type addressRequest struct {
	Name        string              `json:"name"  validate:"required"`
	Phone       string              `json:"phone" validate:"required"`
	City        string              `json:"city"  validate:"required"`
	Area        string              `json:"area"  validate:"required"`
	Line        string              `json:"line"`
	Coordinates *coordinatesRequest `json:"coordinates"`
}

type createShipmentRequest struct {
	MerchantID    string         `json:"merchant_id"`
	Sender        addressRequest `json:"sender"         validate:"required"`
	Receiver      addressRequest `json:"receiver"       validate:"required"`
	WeightKg      float64        `json:"weight_kg"      validate:"gt=0"`
	ServiceTier   string         `json:"service_tier"   validate:"required,oneof=NORMAL EXPRESS SAME_DAY"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=COD PREPAID"`
	CODAmount     int64          `json:"cod_amount"     validate:"gte=0"`
}

type updateShipmentRequest struct {
	Sender      *addressRequest `json:"sender"       validate:"omitempty"`
	Receiver    *addressRequest `json:"receiver"     validate:"omitempty"`
	WeightKg    *float64        `json:"weight_kg"    validate:"omitempty,gt=0"`
	ServiceTier *string         `json:"service_tier" validate:"omitempty,oneof=NORMAL EXPRESS SAME_DAY"`
	CODAmount   *int64          `json:"cod_amount"   validate:"omitempty,gte=0"`
}

type quoteRequest struct {
	WeightKg    float64         `json:"weight_kg"    validate:"gt=0"`
	ServiceTier string          `json:"service_tier" validate:"required,oneof=NORMAL EXPRESS SAME_DAY"`
	CODAmount   int64           `json:"cod_amount"   validate:"gte=0"`
	DistanceKm  *float64        `json:"distance_km"  validate:"omitempty,gte=0"`
	Sender      *addressRequest `json:"sender"       validate:"omitempty"`
	Receiver    *addressRequest `json:"receiver"     validate:"omitempty"`
}

type statusRequest struct {
	Status  string `json:"status"   validate:"required"`
	Note    string `json:"note"`
	RiderID string `json:"rider_id"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type locationRequest struct {
	RiderID      string    `json:"rider_id"`
	AWB          string    `json:"awb"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Accuracy     *float64  `json:"accuracy"`
	Speed        *float64  `json:"speed"`
	Heading      *float64  `json:"heading"`
	BatteryLevel *float64  `json:"battery_level"`
	CapturedAt   time.Time `json:"captured_at"`
}

type statusEventRequest struct {
	AWB       string    `json:"awb"       validate:"required"`
	Status    string    `json:"status"    validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Source    string    `json:"source"    validate:"required"`
	Notes     string    `json:"notes"`
}

// --- Responses ---

type shipmentLinks struct {
	Self      string `json:"self"`
	Locations string `json:"locations"`
}

type shipmentResponse struct {
	*domain.Shipment
	Quote *domain.PricingQuote `json:"quote,omitempty"`
	Links shipmentLinks        `json:"_links"`
}

type quoteResponse struct {
	DistanceKm float64 `json:"distance_km"`
	domain.PricingQuote
}

type locationsResponse struct {
	AWB       string                  `json:"awb"`
	Locations []domain.LocationSample `json:"locations"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type activeAWBResponse struct {
	AWB         string `json:"awb"`
	Subscribers int    `json:"subscribers"`
}

// errorResponse documents the envelope written by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
