package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/sevacare/ipdbilling/internal/clock"
	"github.com/sevacare/ipdbilling/internal/deposit/domain"
	storedomain "github.com/sevacare/ipdbilling/internal/ledgerstore/domain"
	obsmetrics "github.com/sevacare/ipdbilling/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Store      storedomain.Store
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	store      storedomain.Store
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("deposit.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		store:      p.Store,
		obsMetrics: p.ObsMetrics,
	}
}

// ResolveDate applies the deposit date precedence, most to least
// authoritative: session override, the record's stored date field, the
// record's creation timestamp, today. The chain is a first-class contract,
// not an implementation detail.
func ResolveDate(override, stored *time.Time, createdAt, now time.Time) time.Time {
	switch {
	case override != nil && !override.IsZero():
		return *override
	case stored != nil && !stored.IsZero():
		return *stored
	case !createdAt.IsZero():
		return createdAt
	default:
		return now
	}
}

// validAmount rejects non-positive, NaN, and infinite amounts before they
// reach the store. NaN compares false against every bound, so the finite
// checks are explicit.
func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func (s *Service) Add(ctx context.Context, req domain.AddDepositRequest) (domain.AddDepositResult, error) {
	patientRef := strings.TrimSpace(req.PatientRef)
	if patientRef == "" {
		return domain.AddDepositResult{}, domain.ErrInvalidPatientRef
	}
	if !validAmount(req.Amount) {
		return domain.AddDepositResult{}, domain.ErrInvalidAmount
	}
	if req.Date == nil || req.Date.IsZero() {
		return domain.AddDepositResult{}, domain.ErrDateRequired
	}

	now := s.clock.Now()
	record := storedomain.PersistedRecord{
		ID:          s.genID.Generate(),
		Kind:        storedomain.KindDeposit,
		PatientRef:  patientRef,
		Amount:      req.Amount,
		Status:      storedomain.StatusReceived,
		PaymentMode: strings.TrimSpace(req.Mode),
		Date:        req.Date,
		Reference:   strings.TrimSpace(req.Reference),
		ReceivedBy:  strings.TrimSpace(req.ReceivedBy),
		Metadata:    datatypes.JSONMap{"receipt_no": ulid.Make().String()},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, s.db, &record); err != nil {
		return domain.AddDepositResult{}, err
	}
	s.obsMetrics.RecordDepositWrite(ctx, "add")

	return s.resultFromFreshRead(ctx, record.ID, patientRef)
}

func (s *Service) Edit(ctx context.Context, id string, req domain.EditDepositRequest) (domain.AddDepositResult, error) {
	recordID, err := snowflake.ParseString(id)
	if err != nil {
		return domain.AddDepositResult{}, domain.ErrInvalidDepositID
	}

	record, err := s.findDeposit(ctx, recordID)
	if err != nil {
		return domain.AddDepositResult{}, err
	}

	if req.Amount != nil {
		if !validAmount(*req.Amount) {
			return domain.AddDepositResult{}, domain.ErrInvalidAmount
		}
		record.Amount = *req.Amount
	}
	if req.Date != nil && !req.Date.IsZero() {
		record.Date = req.Date
	}
	if req.Mode != nil {
		record.PaymentMode = strings.TrimSpace(*req.Mode)
	}
	if req.Reference != nil {
		record.Reference = strings.TrimSpace(*req.Reference)
	}
	if req.ReceivedBy != nil {
		record.ReceivedBy = strings.TrimSpace(*req.ReceivedBy)
	}
	record.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, s.db, record); err != nil {
		return domain.AddDepositResult{}, err
	}
	s.obsMetrics.RecordDepositWrite(ctx, "edit")

	return s.resultFromFreshRead(ctx, record.ID, record.PatientRef)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	recordID, err := snowflake.ParseString(id)
	if err != nil {
		return domain.ErrInvalidDepositID
	}

	if _, err := s.findDeposit(ctx, recordID); err != nil {
		return err
	}

	err = s.store.Delete(ctx, s.db, recordID)
	if errors.Is(err, storedomain.ErrDeleteRejected) {
		s.log.Warn("hard delete rejected, flagging deposit deleted", zap.String("id", recordID.String()))
		err = s.store.UpdateStatus(ctx, s.db, recordID, storedomain.StatusDeleted)
	}
	if err != nil {
		return err
	}
	s.obsMetrics.RecordDepositWrite(ctx, "delete")
	return nil
}

func (s *Service) List(ctx context.Context, patientRef string, overrides domain.DateOverrides) ([]domain.DepositEntry, error) {
	patientRef = strings.TrimSpace(patientRef)
	if patientRef == "" {
		return nil, domain.ErrInvalidPatientRef
	}

	records, err := s.store.List(ctx, s.db, storedomain.ListFilter{
		Kind:       storedomain.KindDeposit,
		PatientRef: patientRef,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entries := make([]domain.DepositEntry, 0, len(records))
	for _, record := range records {
		var override *time.Time
		if overrides != nil {
			if t, ok := overrides[record.ID]; ok {
				override = &t
			}
		}
		entries = append(entries, entryFromRecord(record, override, now))
	}
	return entries, nil
}

// Sum totals all non-deleted deposits for a patient from a fresh read.
func (s *Service) Sum(ctx context.Context, patientRef string) (float64, error) {
	entries, err := s.List(ctx, patientRef, nil)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, entry := range entries {
		sum += entry.Amount
	}
	return sum, nil
}

func (s *Service) findDeposit(ctx context.Context, id snowflake.ID) (*storedomain.PersistedRecord, error) {
	record, err := s.store.FindByID(ctx, s.db, id)
	if errors.Is(err, storedomain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if record.Kind != storedomain.KindDeposit || record.Status == storedomain.StatusDeleted {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// resultFromFreshRead re-reads the stored entry and the patient's deposit
// sum after a write. The store may apply defaults that are invisible until
// re-read, so the optimistic echo is never returned.
func (s *Service) resultFromFreshRead(ctx context.Context, id snowflake.ID, patientRef string) (domain.AddDepositResult, error) {
	record, err := s.findDeposit(ctx, id)
	if err != nil {
		return domain.AddDepositResult{}, err
	}
	sum, err := s.Sum(ctx, patientRef)
	if err != nil {
		return domain.AddDepositResult{}, err
	}
	return domain.AddDepositResult{
		Entry: entryFromRecord(record, nil, s.clock.Now()),
		Sum:   sum,
	}, nil
}

func entryFromRecord(record *storedomain.PersistedRecord, override *time.Time, now time.Time) domain.DepositEntry {
	receiptNo := ""
	if record.Metadata != nil {
		if v, ok := record.Metadata["receipt_no"].(string); ok {
			receiptNo = v
		}
	}
	return domain.DepositEntry{
		ID:         record.ID,
		PatientRef: record.PatientRef,
		Amount:     record.Amount,
		Date:       ResolveDate(override, record.Date, record.CreatedAt, now),
		Mode:       record.PaymentMode,
		Reference:  record.Reference,
		ReceiptNo:  receiptNo,
		ReceivedBy: record.ReceivedBy,
		CreatedAt:  record.CreatedAt,
	}
}
