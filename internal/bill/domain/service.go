package domain

import (
	"context"
	"errors"

	"github.com/sevacare/ipdbilling/pkg/db/pagination"
)

// EditSession is an independently-owned editable view of a persisted bill.
// Reconstructed reports that the machine-readable payload was missing or
// unusable and the snapshot came from the legacy reconstructor.
type EditSession struct {
	Snapshot      BillSnapshot `json:"snapshot"`
	Charges       ChargeSheet  `json:"charges"`
	Reconstructed bool         `json:"reconstructed"`
}

type CreateBillRequest struct {
	Charges ChargeSheet `json:"charges"`
}

type UpdateBillRequest struct {
	Charges ChargeSheet `json:"charges"`
}

// Service is the billing session orchestrator. State machine per bill:
// Draft -> Persisted(Pending) -> Persisted(Completed); edits loop on
// Pending; any persisted state -> Deleted (hard, or soft when the store
// rejects deletion).
type Service interface {
	Create(ctx context.Context, req CreateBillRequest) (BillSnapshot, error)
	LoadForEdit(ctx context.Context, id string) (EditSession, error)
	Update(ctx context.Context, id string, req UpdateBillRequest) (BillSnapshot, error)
	MarkCompleted(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByPatient(ctx context.Context, patientRef string, page pagination.Pagination) ([]BillSnapshot, *pagination.PageInfo, error)
}

var (
	ErrInvalidPatientRef = errors.New("invalid_patient_ref")
	ErrInvalidBillID     = errors.New("invalid_bill_id")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrNotFound          = errors.New("bill_not_found")
	ErrAlreadyCompleted  = errors.New("bill_already_completed")
)
