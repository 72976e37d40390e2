package domain

import "time"

// EventType is the "type" discriminator of a published tracking event.
type EventType string

const (
	EventStatus   EventType = "status"
	EventLocation EventType = "location"
	EventETA      EventType = "eta"
)

// TrackingEvent is the wire shape fanned out to every session watching an AWB.
type TrackingEvent struct {
	AWB     string    `json:"awb"`
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// StatusChangedPayload is the payload of a status event.
type StatusChangedPayload struct {
	From          ShipmentStatus `json:"from"`
	To            ShipmentStatus `json:"to"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	Actor         string         `json:"actor,omitempty"`
}

// LocationPayload is the payload of a location event.
type LocationPayload struct {
	RiderID    string    `json:"rider_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// ETAPayload is the payload of an eta event.
type ETAPayload struct {
	ExpectedDeliveryAt time.Time `json:"expected_delivery_at"`
	DistanceKm         *float64  `json:"distance_km,omitempty"`
	ETAMinutes         *int      `json:"eta_minutes,omitempty"`
}

// SubscribeAck acknowledges a subscribe/unsubscribe request on a live connection.
type SubscribeAck struct {
	Success bool   `json:"success"`
	AWB     string `json:"awb,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusEvent is a status update received from an external source such as a
// hub scanner. It is applied through the lifecycle after deduplication.
type StatusEvent struct {
	AWB       string
	Status    ShipmentStatus
	Timestamp time.Time
	Source    string
	Notes     string
}

// NewStatusEvent builds the status tracking event for a transition.
func NewStatusEvent(awb string, p StatusChangedPayload, at time.Time) TrackingEvent {
	return TrackingEvent{AWB: awb, Type: EventStatus, Payload: p, At: at.UTC()}
}

// NewLocationEvent builds the location tracking event for an accepted sample.
func NewLocationEvent(s *LocationSample) TrackingEvent {
	return TrackingEvent{
		AWB:  s.AWB,
		Type: EventLocation,
		Payload: LocationPayload{
			RiderID:    s.RiderID,
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			Speed:      s.Speed,
			Heading:    s.Heading,
			CapturedAt: s.CapturedAt.UTC(),
		},
		At: s.ReceivedAt.UTC(),
	}
}
