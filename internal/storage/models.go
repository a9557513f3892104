package storage

import "time"

// AuditRecord is an archived copy of a monitor audit action. The in-memory
// audit trail remains the bounded source of truth; the archive keeps the long
// history for reporting.
type AuditRecord struct {
	ID              int64
	At              time.Time
	Action          string
	Reason          string
	TransactionHash string
	RiskLevel       string
	CreatedAt       time.Time
}

// ThreatRecord is an archived copy of a registry threat.
type ThreatRecord struct {
	ThreatID    string
	Type        string
	Severity    string
	Description string
	Address     string
	At          time.Time
	CreatedAt   time.Time
}
