package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/marcusaleks/Portfolio-Manager/internal/models"
)

// TransactionsTable names the audited table.
const TransactionsTable = "transactions"

// NewTransactionAudit builds the audit record of a mutation of the
// transaction log. before or after is nil for inserts and deletes.
func NewTransactionAudit(action string, id int64, before, after *models.Transaction, now time.Time) models.AuditEntry {
	return models.AuditEntry{
		ID:        uuid.NewString(),
		Table:     TransactionsTable,
		RecordID:  id,
		Action:    action,
		OldData:   auditJSON(before),
		NewData:   auditJSON(after),
		Timestamp: now.UTC(),
	}
}

func auditJSON(tx *models.Transaction) string {
	if tx == nil {
		return ""
	}
	raw, err := json.Marshal(tx)
	if err != nil {
		return ""
	}
	return string(raw)
}
