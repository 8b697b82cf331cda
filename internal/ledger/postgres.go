package ledger

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

// PostgresStore implements Store using PostgreSQL. Optimistic concurrency
// is a compare-and-set against the single roi_chain_state row inside the
// append transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a ledger store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Head(ctx context.Context) (models.ChainState, error) {
	query := `SELECT head_sequence, head_hash FROM roi_chain_state WHERE id = 1`

	var state models.ChainState
	err := s.pool.QueryRow(ctx, query).Scan(&state.HeadSequence, &state.HeadHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChainState{HeadSequence: 0, HeadHash: models.GenesisHash}, nil
		}
		return models.ChainState{}, fmt.Errorf("failed to read chain head: %w", err)
	}
	return state, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry models.ROILogEntry, expected models.ChainState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Advance the head only if it still matches what the entry was hashed
	// against. Zero rows updated means another writer won the race.
	casQuery := `
		UPDATE roi_chain_state
		SET head_sequence = $1, head_hash = $2, updated_at = now()
		WHERE id = 1 AND head_sequence = $3 AND head_hash = $4
	`
	tag, err := tx.Exec(ctx, casQuery, entry.Sequence, entry.EntryHash, expected.HeadSequence, expected.HeadHash)
	if err != nil {
		return fmt.Errorf("failed to advance chain head: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrencyConflict
	}

	insertQuery := `
		INSERT INTO roi_log_entries (
			id, sequence, timestamp, action_type, action_description,
			before_loss, after_loss, action_cost, loss_reduction, net_benefit,
			improvement_percentage, prev_hash, entry_hash, verification_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.Exec(ctx, insertQuery,
		entry.ID, entry.Sequence, entry.Timestamp, entry.ActionType, entry.ActionDescription,
		entry.BeforeLoss, entry.AfterLoss, entry.ActionCost, entry.LossReduction, entry.NetBenefit,
		entry.ImprovementPct, entry.PrevHash, entry.EntryHash, entry.Verification,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

const entryColumns = `
	id, sequence, timestamp, action_type, action_description,
	before_loss, after_loss, action_cost, loss_reduction, net_benefit,
	improvement_percentage, prev_hash, entry_hash, verification_status, verified_at
`

func scanEntry(row pgx.Row) (models.ROILogEntry, error) {
	var e models.ROILogEntry
	err := row.Scan(
		&e.ID, &e.Sequence, &e.Timestamp, &e.ActionType, &e.ActionDescription,
		&e.BeforeLoss, &e.AfterLoss, &e.ActionCost, &e.LossReduction, &e.NetBenefit,
		&e.ImprovementPct, &e.PrevHash, &e.EntryHash, &e.Verification, &e.VerifiedAt,
	)
	return e, err
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (models.ROILogEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM roi_log_entries WHERE id = $1`, entryColumns)

	e, err := scanEntry(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ROILogEntry{}, ErrNotFound
		}
		return models.ROILogEntry{}, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, skip int) ([]models.ROILogEntry, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roi_log_entries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM roi_log_entries
		ORDER BY sequence DESC
		LIMIT $1 OFFSET $2
	`, entryColumns)

	rows, err := s.pool.Query(ctx, query, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ROILogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *PostgresStore) All(ctx context.Context) ([]models.ROILogEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM roi_log_entries ORDER BY sequence ASC`, entryColumns)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ROILogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, at time.Time) error {
	query := `
		UPDATE roi_log_entries
		SET verification_status = $1, verified_at = $2
		WHERE id = $3
	`
	tag, err := s.pool.Exec(ctx, query, status, at, id)
	if err != nil {
		return fmt.Errorf("failed to update verification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Summary(ctx context.Context) (models.ROISummary, error) {
	cumulativeQuery := `
		SELECT
			COUNT(*),
			COALESCE(SUM(loss_reduction), 0),
			COALESCE(SUM(action_cost), 0),
			COALESCE(SUM(net_benefit), 0)
		FROM roi_log_entries
	`

	var summary models.ROISummary
	err := s.pool.QueryRow(ctx, cumulativeQuery).Scan(
		&summary.Cumulative.TotalEntries,
		&summary.Cumulative.TotalSavings,
		&summary.Cumulative.TotalCost,
		&summary.Cumulative.TotalNetBenefit,
	)
	if err != nil {
		return models.ROISummary{}, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	if summary.Cumulative.TotalCost > 0 {
		roi := models.RoundMoney((summary.Cumulative.TotalSavings/summary.Cumulative.TotalCost - 1) * 100)
		summary.Cumulative.OverallROIPct = &roi
	}

	byTypeQuery := `
		SELECT
			action_type,
			COUNT(*),
			COALESCE(SUM(loss_reduction), 0),
			COALESCE(SUM(action_cost), 0),
			COALESCE(SUM(net_benefit), 0)
		FROM roi_log_entries
		GROUP BY action_type
		ORDER BY action_type
	`
	rows, err := s.pool.Query(ctx, byTypeQuery)
	if err != nil {
		return models.ROISummary{}, fmt.Errorf("failed to aggregate ledger by action type: %w", err)
	}
	defer rows.Close()

	summary.ByActionType = []models.ActionTypeROI{}
	for rows.Next() {
		var t models.ActionTypeROI
		if err := rows.Scan(&t.ActionType, &t.Entries, &t.TotalSavings, &t.TotalCost, &t.NetBenefit); err != nil {
			return models.ROISummary{}, fmt.Errorf("failed to scan action type rollup: %w", err)
		}
		summary.ByActionType = append(summary.ByActionType, t)
	}
	return summary, rows.Err()
}
