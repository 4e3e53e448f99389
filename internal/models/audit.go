package models

import "time"

// Audit actions.
const (
	AuditInsert = "INSERT"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
)

// AuditEntry is an immutable record of one mutation of the transaction log.
type AuditEntry struct {
	ID        string    `json:"id"`
	Table     string    `json:"table"`
	RecordID  int64     `json:"recordId"`
	Action    string    `json:"action"`
	OldData   string    `json:"oldData,omitempty"`
	NewData   string    `json:"newData,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
