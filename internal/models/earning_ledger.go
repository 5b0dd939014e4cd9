package models

import (
	"time"

	"github.com/google/uuid"
)

type LedgerEntryType string

// LedgerUpiAttested is the only entry kind: a payment confirmed by the
// student. Entries are append-only.
const LedgerUpiAttested LedgerEntryType = "upi_attested"

// EarningLedgerEntry records a payment that happened outside the platform.
// Balances are never derived from it for payouts; it feeds dashboards only.
type EarningLedgerEntry struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"student_id"`
	ClientID         uuid.UUID       `gorm:"type:uuid;index" json:"client_id"`
	WorkID           uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_ledger_work_type" json:"work_id"`
	Type             LedgerEntryType `gorm:"type:varchar(20);not null;uniqueIndex:idx_ledger_work_type" json:"type"`
	Amount           int64           `gorm:"not null" json:"amount"`
	UpiTransactionID string          `gorm:"type:varchar(80)" json:"upi_transaction_id"`
	Description      string          `gorm:"type:text" json:"description"`
	CreatedAt        time.Time       `json:"created_at"`
}
