package domain

import "time"

// RawLocationSample is a rider GPS ping as received from the device, before
// validation. Coordinates are pointers so a missing value is told apart from
// 0; optional fields are advisory.
type RawLocationSample struct {
	RiderID      string    `json:"rider_id"`
	AWB          string    `json:"awb,omitempty"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	Speed        *float64  `json:"speed,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	BatteryLevel *float64  `json:"battery_level,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
}

// LocationSample is an accepted, append-only rider position.
type LocationSample struct {
	ID           string    `json:"id" bson:"_id"`
	RiderID      string    `json:"rider_id" bson:"rider_id"`
	AWB          string    `json:"awb,omitempty" bson:"awb,omitempty"`
	Latitude     float64   `json:"latitude" bson:"latitude"`
	Longitude    float64   `json:"longitude" bson:"longitude"`
	Accuracy     *float64  `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Speed        *float64  `json:"speed,omitempty" bson:"speed,omitempty"`
	Heading      *float64  `json:"heading,omitempty" bson:"heading,omitempty"`
	BatteryLevel *float64  `json:"battery_level,omitempty" bson:"battery_level,omitempty"`
	CapturedAt   time.Time `json:"captured_at" bson:"captured_at"`
	ReceivedAt   time.Time `json:"received_at" bson:"received_at"`
}

// RiderPosition is the last known location of a rider, kept in the cache.
type RiderPosition struct {
	RiderID    string    `json:"rider_id"`
	AWB        string    `json:"awb,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`
}
