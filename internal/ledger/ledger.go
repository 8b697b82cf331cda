// Package ledger implements the hash-chained ROI log: an append-only
// record of interventions and their measured savings, tamper-evident via
// SHA-256 linkage from a genesis sentinel.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/metrics"
	"github.com/flowline-analytics/flowline/internal/models"
)

// RetryPolicy bounds the optimistic-concurrency retry loop on append.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy suits a handful of concurrent writers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 500 * time.Millisecond}
}

// AppendRequest carries the caller-supplied fields of a new entry.
type AppendRequest struct {
	ActionType        models.ActionType
	ActionDescription string
	BeforeLoss        float64
	AfterLoss         float64
	ActionCost        float64
	Timestamp         time.Time
}

// Ledger serializes appends against a Store and serves verification.
type Ledger struct {
	store  Store
	logger *logging.Logger
	retry  RetryPolicy
	now    func() time.Time
}

// New creates a Ledger over the given store.
func New(store Store, logger *logging.Logger, retry RetryPolicy) *Ledger {
	if retry.MaxRetries <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Ledger{store: store, logger: logger, retry: retry, now: time.Now}
}

// Append allocates the next sequence number, links and hashes the entry
// against the current chain head, and commits it atomically. When another
// writer advances the head first, the append retries against the new head
// with exponential backoff up to the configured attempt bound.
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (models.ROILogEntry, error) {
	if !models.ValidActionType(req.ActionType) {
		return models.ROILogEntry{}, fmt.Errorf("unknown action type %q", req.ActionType)
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	ts = ts.UTC().Truncate(time.Second)

	backoff := l.retry.InitialBackoff
	for attempt := 0; ; attempt++ {
		head, err := l.store.Head(ctx)
		if err != nil {
			return models.ROILogEntry{}, fmt.Errorf("failed to read chain head: %w", err)
		}

		entry := l.buildEntry(req, ts, head)
		err = l.store.Append(ctx, entry, head)
		if err == nil {
			metrics.LedgerAppends.Inc()
			metrics.ChainLength.Set(float64(entry.Sequence))
			l.logger.InfoContext(ctx, "ledger entry appended",
				"sequence", entry.Sequence,
				"action_type", entry.ActionType,
				"net_benefit", entry.NetBenefit)
			return entry, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return models.ROILogEntry{}, fmt.Errorf("failed to append ledger entry: %w", err)
		}

		metrics.LedgerConflicts.Inc()
		if attempt >= l.retry.MaxRetries {
			return models.ROILogEntry{}, fmt.Errorf("append retries exhausted after %d attempts: %w", attempt+1, err)
		}
		select {
		case <-ctx.Done():
			return models.ROILogEntry{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.retry.MaxBackoff {
			backoff = l.retry.MaxBackoff
		}
	}
}

func (l *Ledger) buildEntry(req AppendRequest, ts time.Time, head models.ChainState) models.ROILogEntry {
	entry := models.ROILogEntry{
		ID:                uuid.Must(uuid.NewV7()),
		Sequence:          head.HeadSequence + 1,
		Timestamp:         ts,
		ActionType:        req.ActionType,
		ActionDescription: req.ActionDescription,
		BeforeLoss:        models.RoundMoney(req.BeforeLoss),
		AfterLoss:         models.RoundMoney(req.AfterLoss),
		ActionCost:        models.RoundMoney(req.ActionCost),
		PrevHash:          head.HeadHash,
		Verification:      models.VerificationPending,
	}
	entry.LossReduction = models.RoundMoney(entry.BeforeLoss - entry.AfterLoss)
	entry.NetBenefit = models.RoundMoney(entry.LossReduction - entry.ActionCost)
	if entry.BeforeLoss != 0 {
		pct := models.RoundMoney(entry.LossReduction / entry.BeforeLoss * 100)
		entry.ImprovementPct = &pct
	}
	entry.EntryHash = EntryHash(entry)
	return entry
}

// VerifyEntry recomputes one entry's hash and derived arithmetic from its
// stored fields and records the outcome. It is idempotent: repeated calls
// only update the verification stamp, never the chain.
func (l *Ledger) VerifyEntry(ctx context.Context, id uuid.UUID) (models.ROILogEntry, error) {
	entry, err := l.store.GetByID(ctx, id)
	if err != nil {
		return models.ROILogEntry{}, err
	}

	status := models.VerificationValid
	if EntryHash(entry) != entry.EntryHash || derivedMismatch(entry) != "" {
		status = models.VerificationInvalid
	}
	metrics.LedgerVerifications.WithLabelValues(string(status)).Inc()

	now := l.now().UTC()
	if err := l.store.SetVerification(ctx, id, status, now); err != nil {
		return models.ROILogEntry{}, fmt.Errorf("failed to record verification: %w", err)
	}
	entry.Verification = status
	entry.VerifiedAt = &now
	return entry, nil
}

// VerifyChain replays the whole chain from genesis.
func (l *Ledger) VerifyChain(ctx context.Context) (models.ChainIntegrityReport, error) {
	entries, err := l.store.All(ctx)
	if err != nil {
		return models.ChainIntegrityReport{}, fmt.Errorf("failed to load chain: %w", err)
	}
	return VerifyChain(entries), nil
}

// List returns entries newest-first with the total count for pagination.
func (l *Ledger) List(ctx context.Context, limit, skip int) ([]models.ROILogEntry, int64, error) {
	return l.store.List(ctx, limit, skip)
}

// Get returns one entry by id.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (models.ROILogEntry, error) {
	return l.store.GetByID(ctx, id)
}

// Summary returns the cumulative ROI report.
func (l *Ledger) Summary(ctx context.Context) (models.ROISummary, error) {
	return l.store.Summary(ctx)
}
