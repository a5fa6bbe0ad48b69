package lifecycle

import "github.com/julianstephens/moldtrack/internal/models"

// Ledger is the append-only rework history of an operation. It has no edit or delete.
type Ledger struct{}

// Append returns op with entry added after every existing entry. The input's history
// slice is never written to.
func (Ledger) Append(op models.Operation, entry models.Rework) models.Operation {
	if entry.OpType == "" {
		entry.OpType = op.Type
	}
	history := make([]models.Rework, len(op.ReworkHistory), len(op.ReworkHistory)+1)
	copy(history, op.ReworkHistory)
	op.ReworkHistory = append(history, entry)
	return op
}
