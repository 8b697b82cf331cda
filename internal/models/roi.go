package models

import (
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the sentinel previous-hash of the first ledger entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// VerificationStatus is the closed set of per-entry verification outcomes.
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationValid   VerificationStatus = "valid"
	VerificationInvalid VerificationStatus = "invalid"
)

// ROILogEntry is one immutable entry in the hash-chained ledger. Sequence
// starts at 1 and increases by exactly 1; PrevHash links to the prior
// entry's EntryHash (or GenesisHash for the first).
type ROILogEntry struct {
	ID                uuid.UUID  `json:"id"`
	Sequence          int64      `json:"sequence"`
	Timestamp         time.Time  `json:"timestamp"`
	ActionType        ActionType `json:"action_type"`
	ActionDescription string     `json:"action_description"`
	BeforeLoss        float64    `json:"before_loss"`
	AfterLoss         float64    `json:"after_loss"`
	ActionCost        float64    `json:"action_cost"`
	LossReduction     float64    `json:"loss_reduction"`
	NetBenefit        float64    `json:"net_benefit"`

	// ImprovementPct is nil when BeforeLoss is zero: the ratio is undefined,
	// not zero.
	ImprovementPct *float64           `json:"improvement_percentage"`
	PrevHash       string             `json:"prev_hash"`
	EntryHash      string             `json:"entry_hash"`
	Verification   VerificationStatus `json:"verification_status"`
	VerifiedAt     *time.Time         `json:"verified_at,omitempty"`
}

// ChainState is the ledger head used for optimistic appends.
type ChainState struct {
	HeadSequence int64  `json:"head_sequence"`
	HeadHash     string `json:"head_hash"`
}

// CumulativeROI is the ledger-wide rollup.
type CumulativeROI struct {
	TotalEntries    int64   `json:"total_entries"`
	TotalSavings    float64 `json:"total_savings"`
	TotalCost       float64 `json:"total_cost"`
	TotalNetBenefit float64 `json:"total_net_benefit"`
	// OverallROIPct is nil when TotalCost is zero.
	OverallROIPct *float64 `json:"overall_roi"`
}

// ActionTypeROI is the per-action-type rollup in the cumulative report.
type ActionTypeROI struct {
	ActionType   ActionType `json:"action_type"`
	Entries      int64      `json:"entries"`
	TotalSavings float64    `json:"total_savings"`
	TotalCost    float64    `json:"total_cost"`
	NetBenefit   float64    `json:"net_benefit"`
}

// ROISummary is the cumulative report with its per-action breakdown.
type ROISummary struct {
	Cumulative   CumulativeROI   `json:"cumulative"`
	ByActionType []ActionTypeROI `json:"by_action_type"`
}

// ChainIntegrityReport is the result of a full forward replay.
type ChainIntegrityReport struct {
	Valid           bool   `json:"valid"`
	EntriesChecked  int64  `json:"entries_checked"`
	// FirstInvalidSeq is nil when the chain is fully valid.
	FirstInvalidSeq *int64 `json:"first_invalid_sequence,omitempty"`
	Reason          string `json:"reason,omitempty"`
}
