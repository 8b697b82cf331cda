package ledger

import (
	"fmt"

	"github.com/flowline-analytics/flowline/internal/models"
)

// VerifyChain replays the full ordered entry list from genesis,
// recomputing every hash and checking linkage. It is a pure function: no
// side effects, O(n) in chain length. A single bad entry invalidates its
// entire suffix; the prefix before it remains verified.
func VerifyChain(entries []models.ROILogEntry) models.ChainIntegrityReport {
	report := models.ChainIntegrityReport{Valid: true}

	prevHash := models.GenesisHash
	for i, e := range entries {
		report.EntriesChecked = int64(i + 1)

		wantSeq := int64(i + 1)
		if e.Sequence != wantSeq {
			return invalid(report, wantSeq, fmt.Sprintf("sequence gap: expected %d, found %d", wantSeq, e.Sequence))
		}
		if e.PrevHash != prevHash {
			return invalid(report, e.Sequence, fmt.Sprintf("linkage mismatch at sequence %d", e.Sequence))
		}
		if EntryHash(e) != e.EntryHash {
			return invalid(report, e.Sequence, fmt.Sprintf("hash mismatch at sequence %d", e.Sequence))
		}
		if reason := derivedMismatch(e); reason != "" {
			return invalid(report, e.Sequence, fmt.Sprintf("%s at sequence %d", reason, e.Sequence))
		}
		prevHash = e.EntryHash
	}
	return report
}

// derivedMismatch re-derives the arithmetic fields from the hashed inputs
// and reports the first one that disagrees with its stored value. The
// derived fields are not part of the canonical hash, so tampering with
// them is only caught here.
func derivedMismatch(e models.ROILogEntry) string {
	if e.LossReduction != models.RoundMoney(e.BeforeLoss-e.AfterLoss) {
		return "loss_reduction mismatch"
	}
	if e.NetBenefit != models.RoundMoney(e.LossReduction-e.ActionCost) {
		return "net_benefit mismatch"
	}
	if e.BeforeLoss == 0 {
		if e.ImprovementPct != nil {
			return "improvement_percentage mismatch"
		}
	} else if e.ImprovementPct == nil ||
		*e.ImprovementPct != models.RoundMoney(e.LossReduction/e.BeforeLoss*100) {
		return "improvement_percentage mismatch"
	}
	return ""
}

func invalid(report models.ChainIntegrityReport, seq int64, reason string) models.ChainIntegrityReport {
	report.Valid = false
	report.FirstInvalidSeq = &seq
	report.Reason = reason
	return report
}
