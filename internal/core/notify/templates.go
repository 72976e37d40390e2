// Package notify renders shipment notifications from a closed set of
// templates. The delivery channel is somebody else's problem.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// Template identifies one notification layout.
type Template int

const (
	StatusChanged Template = iota + 1
	DeliveryAlert
	PaymentUpdate
	Terminal
)

var templateNames = map[Template]string{
	StatusChanged: "status_changed",
	DeliveryAlert: "delivery_alert",
	PaymentUpdate: "payment_update",
	Terminal:      "terminal",
}

func (t Template) String() string {
	if name, ok := templateNames[t]; ok {
		return name
	}
	return fmt.Sprintf("template(%d)", int(t))
}

// ParseTemplate resolves a template by its string key.
func ParseTemplate(name string) (Template, error) {
	for t, n := range templateNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownTemplate, name)
}

// Data is everything a template may draw on.
type Data struct {
	Shipment *domain.Shipment
	From     domain.ShipmentStatus
	To       domain.ShipmentStatus
	Actor    string
	Reason   string
	At       time.Time
}

type renderFunc func(Data) (subject, body string)

type entry struct {
	kind   domain.NotificationKind
	render renderFunc
}

var registry = map[Template]entry{
	StatusChanged: {domain.NotifyStatusChanged, renderStatusChanged},
	DeliveryAlert: {domain.NotifyDeliveryAlert, renderDeliveryAlert},
	PaymentUpdate: {domain.NotifyPaymentUpdate, renderPaymentUpdate},
	Terminal:      {domain.NotifyTerminal, renderTerminal},
}

// Render builds the notification for t. Unknown templates fail with
// domain.ErrUnknownTemplate.
func Render(t Template, d Data) (domain.Notification, error) {
	e, ok := registry[t]
	if !ok {
		return domain.Notification{}, fmt.Errorf("%w: %s", domain.ErrUnknownTemplate, t)
	}
	if d.Shipment == nil {
		return domain.Notification{}, fmt.Errorf("render %s: %w", t, domain.ErrInvalidShipment)
	}

	subject, body := e.render(d)
	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	return domain.Notification{
		ID:         uuid.NewString(),
		Kind:       e.kind,
		Template:   t.String(),
		AWB:        d.Shipment.AWB,
		Recipient:  d.Shipment.Receiver.Phone,
		Subject:    subject,
		Body:       body,
		From:       d.From,
		To:         d.To,
		OccurredAt: at.UTC(),
	}, nil
}

func renderStatusChanged(d Data) (string, string) {
	s := d.Shipment
	return fmt.Sprintf("Shipment %s is now %s", s.AWB, humanStatus(d.To)),
		fmt.Sprintf("Hi %s, your parcel %s moved from %s to %s.", nameOr(s.Receiver.Name), s.AWB, humanStatus(d.From), humanStatus(d.To))
}

func renderDeliveryAlert(d Data) (string, string) {
	s := d.Shipment
	if d.To == domain.StatusFailed {
		return fmt.Sprintf("Delivery attempt failed for %s", s.AWB),
			fmt.Sprintf("We could not deliver %s (attempt %d). The rider will try again or return it to the sender.", s.AWB, s.DeliveryAttempts)
	}
	body := fmt.Sprintf("Parcel %s is out for delivery, expected by %s.", s.AWB, s.ExpectedDeliveryAt.UTC().Format(time.RFC3339))
	if s.PaymentMethod == domain.PaymentCOD && s.CODAmount > 0 {
		body += fmt.Sprintf(" Please keep %s ready.", formatMoney(s.CODAmount))
	}
	return fmt.Sprintf("%s is out for delivery", s.AWB), body
}

func renderPaymentUpdate(d Data) (string, string) {
	s := d.Shipment
	return fmt.Sprintf("Payment %s for %s", humanPayment(s.PaymentStatus), s.AWB),
		fmt.Sprintf("Cash on delivery of %s for %s has been %s.", formatMoney(s.CODAmount), s.AWB, humanPayment(s.PaymentStatus))
}

func renderTerminal(d Data) (string, string) {
	s := d.Shipment
	body := fmt.Sprintf("Shipment %s is closed with status %s.", s.AWB, humanStatus(d.To))
	if d.Reason != "" {
		body += " Reason: " + d.Reason + "."
	}
	return fmt.Sprintf("Shipment %s %s", s.AWB, humanStatus(d.To)), body
}

var statusLabels = map[domain.ShipmentStatus]string{
	domain.StatusPending:        "pending",
	domain.StatusPickedUp:       "picked up",
	domain.StatusInTransit:      "in transit",
	domain.StatusOutForDelivery: "out for delivery",
	domain.StatusDelivered:      "delivered",
	domain.StatusFailed:         "failed",
	domain.StatusReturned:       "returned",
	domain.StatusCancelled:      "cancelled",
}

func humanStatus(s domain.ShipmentStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func humanPayment(p domain.PaymentStatus) string {
	switch p {
	case domain.PaymentCollected:
		return "collected"
	case domain.PaymentPaid:
		return "paid"
	default:
		return "pending"
	}
}

func nameOr(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// formatMoney renders minor units as BDT with two decimals.
func formatMoney(m domain.Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%sBDT %d.%02d", sign, m/100, m%100)
}
