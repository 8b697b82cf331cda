package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowline-analytics/flowline/internal/models"
)

// EntryHash computes the canonical hash of a ledger entry. The encoding
// is fixed so chains are portable across implementations: the fields
// below, pipe-joined in this order, with timestamps rendered as RFC3339
// UTC at second precision and monetary amounts as two-decimal strings.
//
//	sequence|prev_hash|timestamp|action_type|action_description|before_loss|after_loss|action_cost
func EntryHash(e models.ROILogEntry) string {
	payload := strings.Join([]string{
		strconv.FormatInt(e.Sequence, 10),
		e.PrevHash,
		e.Timestamp.UTC().Truncate(time.Second).Format(time.RFC3339),
		string(e.ActionType),
		e.ActionDescription,
		fmt.Sprintf("%.2f", e.BeforeLoss),
		fmt.Sprintf("%.2f", e.AfterLoss),
		fmt.Sprintf("%.2f", e.ActionCost),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
