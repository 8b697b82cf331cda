// Package repository persists operational events and derived analytics
// artifacts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// EventRepository stores raw operational events and action
// recommendations.
type EventRepository interface {
	InsertEvent(ctx context.Context, ev *models.OperationalEvent) error
	EventsForDay(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error)
	LocationsForDay(ctx context.Context, day time.Time) ([]string, error)

	SaveRecommendations(ctx context.Context, recs []models.ActionRecommendation) error
	RecommendationsForDay(ctx context.Context, day time.Time) ([]models.ActionRecommendation, error)
	PendingRecommendations(ctx context.Context) ([]models.ActionRecommendation, error)
	MarkRecommendationApplied(ctx context.Context, id uuid.UUID) (models.ActionRecommendation, error)

	Close()
}
