package domain

import "time"

// NotificationKind is the event family handed to the notification collaborator.
type NotificationKind string

const (
	NotifyStatusChanged NotificationKind = "shipment_status_changed"
	NotifyDeliveryAlert NotificationKind = "delivery_alert"
	NotifyPaymentUpdate NotificationKind = "payment_update"
	NotifyTerminal      NotificationKind = "shipment_terminal"
)

// Notification is a rendered, channel-agnostic message about one shipment.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Template   string           `json:"template"`
	AWB        string           `json:"awb"`
	Recipient  string           `json:"recipient"`
	Subject    string           `json:"subject"`
	Body       string           `json:"body"`
	From       ShipmentStatus   `json:"from,omitempty"`
	To         ShipmentStatus   `json:"to,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
