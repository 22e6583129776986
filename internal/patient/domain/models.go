// Package domain defines the patient directory collaborator. Billing only
// needs a lookup; patient identity management lives elsewhere.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Patient is the directory's view of an admitted patient.
type Patient struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Ref           string       `gorm:"type:text;not null;uniqueIndex" json:"ref"`
	DisplayName   string       `gorm:"type:text;not null" json:"display_name"`
	AdmissionDate *time.Time   `json:"admission_date"`
	RoomInfo      string       `gorm:"type:text" json:"room_info"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Patient) TableName() string { return "patients" }

// Directory resolves patient references for billing.
type Directory interface {
	FindByRef(ctx context.Context, db *gorm.DB, ref string) (*Patient, error)
}

var ErrNotFound = errors.New("patient_not_found")
