package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowline-analytics/flowline/internal/models"
)

// PostgresRepository implements EventRepository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool so stores sharing the database can
// reuse the connection budget.
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// InsertEvent persists one operational event.
func (r *PostgresRepository) InsertEvent(ctx context.Context, ev *models.OperationalEvent) error {
	query := `
		INSERT INTO operational_events (
			id, timestamp, location_id, location_type,
			arrival_count, departure_count, queue_length,
			wait_time_seconds, service_time_seconds, observation_period_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		ev.ID, ev.Timestamp, ev.LocationID, ev.LocationType,
		ev.ArrivalCount, ev.DepartureCount, ev.QueueLength,
		ev.WaitTimeSeconds, ev.ServiceTimeSeconds, ev.ObservationPeriodSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// EventsForDay returns the day's events for one location, or for every
// location when locationID is empty, ordered by timestamp.
func (r *PostgresRepository) EventsForDay(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT
			id, timestamp, location_id, location_type,
			arrival_count, departure_count, queue_length,
			wait_time_seconds, service_time_seconds, observation_period_seconds
		FROM operational_events
		WHERE timestamp >= $1 AND timestamp < $2
	`
	args := []interface{}{start, end}
	if locationID != "" {
		query += " AND location_id = $3"
		args = append(args, locationID)
	}
	query += " ORDER BY timestamp ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.OperationalEvent
	for rows.Next() {
		var ev models.OperationalEvent
		err := rows.Scan(
			&ev.ID, &ev.Timestamp, &ev.LocationID, &ev.LocationType,
			&ev.ArrivalCount, &ev.DepartureCount, &ev.QueueLength,
			&ev.WaitTimeSeconds, &ev.ServiceTimeSeconds, &ev.ObservationPeriodSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LocationsForDay lists the distinct locations that reported events.
func (r *PostgresRepository) LocationsForDay(ctx context.Context, day time.Time) ([]string, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT DISTINCT location_id
		FROM operational_events
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY location_id
	`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, id)
	}
	return locations, rows.Err()
}

// SaveRecommendations upserts the day's candidate actions. Regenerating
// insights for a day replaces its prior candidates.
func (r *PostgresRepository) SaveRecommendations(ctx context.Context, recs []models.ActionRecommendation) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	date := recs[0].Date
	if _, err := tx.Exec(ctx,
		`DELETE FROM action_recommendations WHERE date = $1 AND applied = false`, date,
	); err != nil {
		return fmt.Errorf("failed to clear stale recommendations: %w", err)
	}

	query := `
		INSERT INTO action_recommendations (
			id, date, location_id, action_type, description, target_category,
			estimated_savings_min, estimated_savings_max, implementation_cost,
			net_benefit_estimate, confidence, applied, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, rec := range recs {
		_, err := tx.Exec(ctx, query,
			rec.ID, rec.Date, rec.LocationID, rec.ActionType, rec.Description, rec.TargetCategory,
			rec.EstimatedSavings.Min, rec.EstimatedSavings.Max, rec.ImplementationCost,
			rec.NetBenefitEstimate, rec.Confidence, rec.Applied, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}
	return tx.Commit(ctx)
}

const recommendationColumns = `
	id, date, location_id, action_type, description, target_category,
	estimated_savings_min, estimated_savings_max, implementation_cost,
	net_benefit_estimate, confidence, applied, created_at
`

func scanRecommendation(row pgx.Row) (models.ActionRecommendation, error) {
	var rec models.ActionRecommendation
	err := row.Scan(
		&rec.ID, &rec.Date, &rec.LocationID, &rec.ActionType, &rec.Description, &rec.TargetCategory,
		&rec.EstimatedSavings.Min, &rec.EstimatedSavings.Max, &rec.ImplementationCost,
		&rec.NetBenefitEstimate, &rec.Confidence, &rec.Applied, &rec.CreatedAt,
	)
	return rec, err
}

// RecommendationsForDay returns candidates for one date.
func (r *PostgresRepository) RecommendationsForDay(ctx context.Context, day time.Time) ([]models.ActionRecommendation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM action_recommendations
		WHERE date = $1
		ORDER BY net_benefit_estimate DESC
	`, recommendationColumns)

	return r.queryRecommendations(ctx, query, day.UTC().Format("2006-01-02"))
}

// PendingRecommendations returns unapplied candidates across all dates.
func (r *PostgresRepository) PendingRecommendations(ctx context.Context) ([]models.ActionRecommendation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM action_recommendations
		WHERE applied = false
		ORDER BY net_benefit_estimate DESC
	`, recommendationColumns)

	return r.queryRecommendations(ctx, query)
}

func (r *PostgresRepository) queryRecommendations(ctx context.Context, query string, args ...interface{}) ([]models.ActionRecommendation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.ActionRecommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkRecommendationApplied flags a candidate as acted upon and returns
// the updated record.
func (r *PostgresRepository) MarkRecommendationApplied(ctx context.Context, id uuid.UUID) (models.ActionRecommendation, error) {
	query := fmt.Sprintf(`
		UPDATE action_recommendations
		SET applied = true
		WHERE id = $1
		RETURNING %s
	`, recommendationColumns)

	rec, err := scanRecommendation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ActionRecommendation{}, ErrNotFound
		}
		return models.ActionRecommendation{}, fmt.Errorf("failed to mark recommendation applied: %w", err)
	}
	return rec, nil
}
