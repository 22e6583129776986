// Package domain defines the deposit ledger contract. A deposit is a
// partial payment recorded against a patient, offsetting the bill balance.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DepositEntry is one payment toward a patient's bill. Date is already
// resolved through the precedence chain when the entry is listed.
type DepositEntry struct {
	ID         snowflake.ID `json:"id"`
	PatientRef string       `json:"patient_ref"`
	Amount     float64      `json:"amount"`
	Date       time.Time    `json:"date"`
	Mode       string       `json:"mode"`
	Reference  string       `json:"reference"`
	ReceiptNo  string       `json:"receipt_no"`
	ReceivedBy string       `json:"received_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// AddDepositRequest records a new deposit. Date is mandatory: the stored
// date always comes from explicit caller input, never a silent default.
type AddDepositRequest struct {
	PatientRef string     `json:"patient_ref"`
	Amount     float64    `json:"amount"`
	Date       *time.Time `json:"date"`
	Mode       string     `json:"mode"`
	Reference  string     `json:"reference"`
	ReceivedBy string     `json:"received_by"`
}

// EditDepositRequest updates an existing deposit. Nil fields are left
// untouched.
type EditDepositRequest struct {
	Amount     *float64   `json:"amount"`
	Date       *time.Time `json:"date"`
	Mode       *string    `json:"mode"`
	Reference  *string    `json:"reference"`
	ReceivedBy *string    `json:"received_by"`
}

// AddDepositResult carries the stored entry plus the patient's deposit sum
// re-read from the store after the write.
type AddDepositResult struct {
	Entry DepositEntry `json:"entry"`
	Sum   float64      `json:"sum"`
}

// DateOverrides carries per-record date corrections captured in the
// current editing session. They outrank every stored date source.
type DateOverrides map[snowflake.ID]time.Time

// Service is the deposit ledger. Sums and balances are always re-derived
// from a fresh read after every write; the write's echoed response is
// never trusted, because the store may normalize or default fields
// server-side.
type Service interface {
	Add(ctx context.Context, req AddDepositRequest) (AddDepositResult, error)
	Edit(ctx context.Context, id string, req EditDepositRequest) (AddDepositResult, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, patientRef string, overrides DateOverrides) ([]DepositEntry, error)
	Sum(ctx context.Context, patientRef string) (float64, error)
}

var (
	ErrInvalidAmount     = errors.New("invalid_deposit_amount")
	ErrInvalidPatientRef = errors.New("invalid_patient_ref")
	ErrDateRequired      = errors.New("deposit_date_required")
	ErrInvalidDepositID  = errors.New("invalid_deposit_id")
	ErrNotFound          = errors.New("deposit_not_found")
)
