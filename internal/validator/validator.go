// Package validator gates every operational event before it reaches storage.
// Rejections carry a machine-readable reason so ingestion counters can be
// broken down by cause.
package validator

import (
	"fmt"
	"time"

	"github.com/flowline-analytics/flowline/internal/models"
)

// ValidationError reports why an event was rejected. Reason is a stable
// key; Message is for humans.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event (%s): %s", e.Reason, e.Message)
}

// Rejection reasons.
const (
	ReasonMissingTimestamp    = "missing_timestamp"
	ReasonMissingLocation     = "missing_location"
	ReasonUnknownLocationType = "unknown_location_type"
	ReasonNegativeCount       = "negative_count"
	ReasonNegativeDuration    = "negative_duration"
	ReasonInvalidPeriod       = "invalid_period"
)

// Validator checks operational events against the ingestion rules.
type Validator struct {
	defaultPeriodSeconds float64
}

// New creates a Validator. defaultPeriodSeconds fills in the observation
// period when an event omits it.
func New(defaultPeriodSeconds float64) *Validator {
	return &Validator{defaultPeriodSeconds: defaultPeriodSeconds}
}

// Validate checks ev and normalizes it in place: timestamps are converted
// to UTC and a missing observation period gets the configured default.
func (v *Validator) Validate(ev *models.OperationalEvent) error {
	if ev.Timestamp.IsZero() {
		return &ValidationError{Reason: ReasonMissingTimestamp, Message: "timestamp is required"}
	}
	if ev.LocationID == "" {
		return &ValidationError{Reason: ReasonMissingLocation, Message: "location_id is required"}
	}
	if !models.ValidLocationType(ev.LocationType) {
		return &ValidationError{
			Reason:  ReasonUnknownLocationType,
			Message: fmt.Sprintf("unknown location type %q", ev.LocationType),
		}
	}
	if ev.ArrivalCount < 0 || ev.DepartureCount < 0 || ev.QueueLength < 0 {
		return &ValidationError{Reason: ReasonNegativeCount, Message: "counts must be non-negative"}
	}
	if ev.WaitTimeSeconds != nil && *ev.WaitTimeSeconds < 0 {
		return &ValidationError{Reason: ReasonNegativeDuration, Message: "wait_time_seconds must be non-negative"}
	}
	if ev.ServiceTimeSeconds != nil && *ev.ServiceTimeSeconds < 0 {
		return &ValidationError{Reason: ReasonNegativeDuration, Message: "service_time_seconds must be non-negative"}
	}

	if ev.ObservationPeriodSeconds == 0 {
		ev.ObservationPeriodSeconds = v.defaultPeriodSeconds
	}
	if ev.ObservationPeriodSeconds <= 0 {
		return &ValidationError{Reason: ReasonInvalidPeriod, Message: "observation_period_seconds must be positive"}
	}

	ev.Timestamp = ev.Timestamp.UTC()
	return nil
}

// dateLayout is the canonical day key used throughout the system.
const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD day key.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders t's UTC day as a YYYY-MM-DD key.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
