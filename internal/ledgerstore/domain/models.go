// Package domain contains the persistence model for the ledger store. The
// store is deliberately narrow: one row per bill or deposit, with the
// structured bill packed into a single free-text payload column.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordKind distinguishes bill rows from deposit rows.
type RecordKind string

const (
	KindBill    RecordKind = "bill"
	KindDeposit RecordKind = "deposit"
)

// RecordStatus values span both kinds; deletion is a status flag whenever
// the store rejects a hard delete.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusCompleted RecordStatus = "completed"
	StatusReceived  RecordStatus = "received"
	StatusDeleted   RecordStatus = "deleted"
)

// PersistedRecord is one ledger store row. Amount is the store's
// authoritative total for the record; Payload carries the encoded bill
// text for bill rows and an optional note for deposits.
type PersistedRecord struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Kind        RecordKind        `gorm:"type:text;not null;index" json:"kind"`
	PatientRef  string            `gorm:"type:text;not null;index" json:"patient_ref"`
	Amount      float64           `gorm:"not null;default:0" json:"amount"`
	Status      RecordStatus      `gorm:"type:text;not null" json:"status"`
	PaymentMode string            `gorm:"type:text" json:"payment_mode"`
	Date        *time.Time        `json:"date"`
	Payload     string            `gorm:"type:text" json:"payload"`
	Reference   string            `gorm:"type:text;index" json:"reference"`
	ReceivedBy  string            `gorm:"type:text" json:"received_by"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PersistedRecord) TableName() string { return "ledger_records" }

// ListFilter narrows List results. AfterID pages forward through the
// id-ordered listing; snowflake IDs are time-ordered so the cursor is
// stable under concurrent inserts.
type ListFilter struct {
	Kind           RecordKind
	PatientRef     string
	IncludeDeleted bool
	AfterID        snowflake.ID
	Limit          int
}

// Store is the ledger store access contract. Delete is a hard delete and
// may be rejected with ErrDeleteRejected when the store's privilege model
// forbids it; callers fall back to flagging StatusDeleted. Any other Delete
// error is transient and retryable, never a rejection.
type Store interface {
	Insert(ctx context.Context, db *gorm.DB, record *PersistedRecord) error
	Update(ctx context.Context, db *gorm.DB, record *PersistedRecord) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status RecordStatus) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PersistedRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*PersistedRecord, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

var (
	ErrNotFound       = errors.New("record_not_found")
	ErrDeleteRejected = errors.New("delete_rejected")
)
