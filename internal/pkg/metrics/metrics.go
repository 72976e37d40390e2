// Package metrics defines and registers all custom Prometheus metrics for the
// courier service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default registry on package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courier"

// ── Shipment metrics ──────────────────────────────────────────────────────────

// ShipmentsCreatedTotal counts newly created shipments.
// Label:
//   - service_tier: "NORMAL", "EXPRESS" or "SAME_DAY"
var ShipmentsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipments_created_total",
		Help:      "Total number of shipments created, by service tier.",
	},
	[]string{"service_tier"},
)

// ShipmentTransitionsTotal counts applied status transitions.
var ShipmentTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipment_transitions_total",
		Help:      "Total number of shipment status transitions applied.",
	},
	[]string{"from", "to"},
)

// ShipmentTransitionRejectedTotal counts rejected transitions.
// Label:
//   - kind: the error kind (e.g. "ILLEGAL_TRANSITION", "STORAGE_ERROR")
var ShipmentTransitionRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipment_transitions_rejected_total",
		Help:      "Total number of shipment status transitions rejected.",
	},
	[]string{"kind"},
)

// ── Location metrics ──────────────────────────────────────────────────────────

// LocationsIngestedTotal counts rider pings by outcome.
// Label:
//   - result: "accepted", "rejected" or "storage_error"
var LocationsIngestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "locations_ingested_total",
		Help:      "Total number of rider location samples received, by result.",
	},
	[]string{"result"},
)

// ── Tracking hub metrics ──────────────────────────────────────────────────────

// TrackingSubscribers is the number of live (session, AWB) subscriptions.
var TrackingSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracking_subscribers",
		Help:      "Current number of live tracking subscriptions.",
	},
)

// TrackingSessionsActive is the number of open tracking sessions.
var TrackingSessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracking_sessions_active",
		Help:      "Current number of open tracking sessions.",
	},
)

// TrackingEventsPublishedTotal counts publish calls by event type.
var TrackingEventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracking_events_published_total",
		Help:      "Total number of tracking events published to the hub.",
	},
	[]string{"type"},
)

// TrackingSessionsDroppedTotal counts sessions closed by the hub or transport.
// Label:
//   - reason: "overflow", "send_failed" or "closed"
var TrackingSessionsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracking_sessions_dropped_total",
		Help:      "Total number of tracking sessions ended, by reason.",
	},
	[]string{"reason"},
)

// ── Event & notification metrics ──────────────────────────────────────────────

// EventsProcessedTotal counts scanner events that completed processing.
var EventsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Total number of external status events processed, by result.",
	},
	[]string{"result"},
)

// EventsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new event, processed)
var EventsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// NotificationsTotal counts notification hand-offs.
// Label:
//   - result: "queued", "render_failed" or "failed" (hand-off, including a
//     full queue), then "sent" or "sink_failed" once delivered to the sink
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notifications handed to the delivery channel, by result.",
	},
	[]string{"result"},
)

// DispatchQueueDepth tracks items waiting in each dispatcher worker channel.
var DispatchQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_queue_depth",
		Help:      "Current number of items pending in each dispatcher worker channel.",
	},
	[]string{"dispatcher", "worker_id"},
)
