package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationType identifies the kind of physical service point an event
// was observed at. The set mirrors the deployments we support.
type LocationType string

const (
	LocationFrontDesk  LocationType = "front_desk"
	LocationRestaurant LocationType = "restaurant"
	LocationLobby      LocationType = "lobby"
	LocationConcierge  LocationType = "concierge"
	LocationValet      LocationType = "valet"
)

// ValidLocationType reports whether t is a known location type.
func ValidLocationType(t LocationType) bool {
	switch t {
	case LocationFrontDesk, LocationRestaurant, LocationLobby, LocationConcierge, LocationValet:
		return true
	}
	return false
}

// OperationalEvent is a single observation bucket delivered by the upstream
// counting pipeline. Immutable once ingested; timestamps are UTC.
type OperationalEvent struct {
	ID           uuid.UUID    `json:"id,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	LocationID   string       `json:"location_id"`
	LocationType LocationType `json:"location_type"`

	ArrivalCount   int `json:"arrival_count"`
	DepartureCount int `json:"departure_count"`
	QueueLength    int `json:"queue_length"`

	// Optional duration observations, in seconds.
	WaitTimeSeconds    *float64 `json:"wait_time_seconds,omitempty"`
	ServiceTimeSeconds *float64 `json:"service_time_seconds,omitempty"`

	// Length of the observation bucket this event summarizes.
	ObservationPeriodSeconds float64 `json:"observation_period_seconds"`
}

// ArrivalRate returns arrivals per second over the observation period.
func (e OperationalEvent) ArrivalRate() float64 {
	if e.ObservationPeriodSeconds <= 0 {
		return 0
	}
	return float64(e.ArrivalCount) / e.ObservationPeriodSeconds
}

// DepartureRate returns departures per second over the observation period.
func (e OperationalEvent) DepartureRate() float64 {
	if e.ObservationPeriodSeconds <= 0 {
		return 0
	}
	return float64(e.DepartureCount) / e.ObservationPeriodSeconds
}
