package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/models"
)

var (
	// ErrNotFound is returned when an entry id is unknown.
	ErrNotFound = errors.New("ledger entry not found")
	// ErrConcurrencyConflict is returned when the chain head moved between
	// hash computation and commit. Callers retry against the new head.
	ErrConcurrencyConflict = errors.New("chain head changed during append")
)

// Store persists the hash-chained ledger. Append is a compare-and-set on
// the chain head: the entry commits only if the head still matches
// expected, so sequence allocation, hashing, and persistence form one
// atomic unit.
type Store interface {
	Head(ctx context.Context) (models.ChainState, error)
	Append(ctx context.Context, entry models.ROILogEntry, expected models.ChainState) error
	GetByID(ctx context.Context, id uuid.UUID) (models.ROILogEntry, error)
	List(ctx context.Context, limit, skip int) ([]models.ROILogEntry, int64, error)
	All(ctx context.Context) ([]models.ROILogEntry, error)
	SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, at time.Time) error
	Summary(ctx context.Context) (models.ROISummary, error)
}

// MemoryStore is an in-memory Store used in tests and single-process
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.ROILogEntry
	byID    map[uuid.UUID]int
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]int)}
}

func (s *MemoryStore) Head(ctx context.Context) (models.ChainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headLocked(), nil
}

func (s *MemoryStore) headLocked() models.ChainState {
	if len(s.entries) == 0 {
		return models.ChainState{HeadSequence: 0, HeadHash: models.GenesisHash}
	}
	last := s.entries[len(s.entries)-1]
	return models.ChainState{HeadSequence: last.Sequence, HeadHash: last.EntryHash}
}

func (s *MemoryStore) Append(ctx context.Context, entry models.ROILogEntry, expected models.ChainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := s.headLocked()
	if head != expected {
		return ErrConcurrencyConflict
	}
	s.entries = append(s.entries, entry)
	s.byID[entry.ID] = len(s.entries) - 1
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (models.ROILogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return models.ROILogEntry{}, ErrNotFound
	}
	return s.entries[idx], nil
}

// List returns entries newest-first with limit/skip pagination, plus the
// total count.
func (s *MemoryStore) List(ctx context.Context, limit, skip int) ([]models.ROILogEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(len(s.entries))
	desc := make([]models.ROILogEntry, len(s.entries))
	copy(desc, s.entries)
	sort.Slice(desc, func(i, j int) bool { return desc[i].Sequence > desc[j].Sequence })

	if skip >= len(desc) {
		return nil, total, nil
	}
	desc = desc[skip:]
	if limit > 0 && limit < len(desc) {
		desc = desc[:limit]
	}
	return desc, total, nil
}

// All returns every entry in sequence order.
func (s *MemoryStore) All(ctx context.Context) ([]models.ROILogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ROILogEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) SetVerification(ctx context.Context, id uuid.UUID, status models.VerificationStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.entries[idx].Verification = status
	s.entries[idx].VerifiedAt = &at
	return nil
}

func (s *MemoryStore) Summary(ctx context.Context) (models.ROISummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarize(s.entries), nil
}

// summarize aggregates a full entry list into the cumulative report.
func summarize(entries []models.ROILogEntry) models.ROISummary {
	summary := models.ROISummary{ByActionType: []models.ActionTypeROI{}}
	byType := make(map[models.ActionType]*models.ActionTypeROI)

	for _, e := range entries {
		summary.Cumulative.TotalEntries++
		summary.Cumulative.TotalSavings += e.LossReduction
		summary.Cumulative.TotalCost += e.ActionCost
		summary.Cumulative.TotalNetBenefit += e.NetBenefit

		t, ok := byType[e.ActionType]
		if !ok {
			t = &models.ActionTypeROI{ActionType: e.ActionType}
			byType[e.ActionType] = t
		}
		t.Entries++
		t.TotalSavings += e.LossReduction
		t.TotalCost += e.ActionCost
		t.NetBenefit += e.NetBenefit
	}

	summary.Cumulative.TotalSavings = models.RoundMoney(summary.Cumulative.TotalSavings)
	summary.Cumulative.TotalCost = models.RoundMoney(summary.Cumulative.TotalCost)
	summary.Cumulative.TotalNetBenefit = models.RoundMoney(summary.Cumulative.TotalNetBenefit)
	if summary.Cumulative.TotalCost > 0 {
		roi := models.RoundMoney((summary.Cumulative.TotalSavings/summary.Cumulative.TotalCost - 1) * 100)
		summary.Cumulative.OverallROIPct = &roi
	}

	types := make([]models.ActionType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		r := byType[t]
		r.TotalSavings = models.RoundMoney(r.TotalSavings)
		r.TotalCost = models.RoundMoney(r.TotalCost)
		r.NetBenefit = models.RoundMoney(r.NetBenefit)
		summary.ByActionType = append(summary.ByActionType, *r)
	}
	return summary
}
