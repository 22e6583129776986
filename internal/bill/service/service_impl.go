package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/sevacare/ipdbilling/internal/bill/codec"
	"github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/internal/bill/engine"
	"github.com/sevacare/ipdbilling/internal/bill/reconstruct"
	"github.com/sevacare/ipdbilling/internal/clock"
	depositdomain "github.com/sevacare/ipdbilling/internal/deposit/domain"
	storedomain "github.com/sevacare/ipdbilling/internal/ledgerstore/domain"
	obsmetrics "github.com/sevacare/ipdbilling/internal/observability/metrics"
	"github.com/sevacare/ipdbilling/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Store         storedomain.Store
	Reconstructor *reconstruct.Reconstructor
	DepositSvc    depositdomain.Service
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

// Service is the billing session orchestrator. Each edit works on an
// isolated snapshot owned by the caller; recomputation happens only on
// explicit operations, never as a side effect of unrelated state changes.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	store         storedomain.Store
	reconstructor *reconstruct.Reconstructor
	depositSvc    depositdomain.Service
	obsMetrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("bill.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		store:         p.Store,
		reconstructor: p.Reconstructor,
		depositSvc:    p.DepositSvc,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBillRequest) (domain.BillSnapshot, error) {
	patientRef := strings.TrimSpace(req.Charges.PatientRef)
	if patientRef == "" {
		return domain.BillSnapshot{}, domain.ErrInvalidPatientRef
	}
	req.Charges.PatientRef = patientRef

	snapshot, anomalies := engine.Compute(req.Charges)
	s.reportAnomalies(ctx, patientRef, anomalies)

	now := s.clock.Now()
	record := storedomain.PersistedRecord{
		ID:          s.genID.Generate(),
		Kind:        storedomain.KindBill,
		PatientRef:  patientRef,
		Amount:      snapshot.Net,
		Status:      storedomain.StatusPending,
		PaymentMode: snapshot.PaymentMode,
		Date:        billingDate(snapshot.BillingDate, now),
		Payload:     codec.Encode(snapshot),
		Reference:   ulid.Make().String(),
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, s.db, &record); err != nil {
		return domain.BillSnapshot{}, err
	}
	s.obsMetrics.RecordBillPersisted(ctx, "create")

	snapshot.ID = record.ID
	snapshot.Reference = record.Reference
	snapshot.Status = domain.BillStatusPending
	return s.applyDeposits(ctx, snapshot)
}

// LoadForEdit fetches a persisted bill and returns an editable session
// that shares no mutable state with any other view of the same record.
// A payload without a usable machine-readable section falls through to
// the legacy reconstructor; editing never hard-fails on malformed data.
func (s *Service) LoadForEdit(ctx context.Context, id string) (domain.EditSession, error) {
	record, err := s.findBill(ctx, id)
	if err != nil {
		return domain.EditSession{}, err
	}

	snapshot, reconstructed := s.snapshotFromRecord(ctx, record)
	snapshot, err = s.applyDeposits(ctx, snapshot)
	if err != nil {
		return domain.EditSession{}, err
	}

	return domain.EditSession{
		Snapshot:      snapshot.Clone(),
		Charges:       engine.ChargesFromItems(snapshot),
		Reconstructed: reconstructed,
	}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateBillRequest) (domain.BillSnapshot, error) {
	record, err := s.findBill(ctx, id)
	if err != nil {
		return domain.BillSnapshot{}, err
	}
	// Edits loop on pending bills only.
	if record.Status == storedomain.StatusCompleted {
		return domain.BillSnapshot{}, domain.ErrAlreadyCompleted
	}

	if strings.TrimSpace(req.Charges.PatientRef) == "" {
		req.Charges.PatientRef = record.PatientRef
	}

	snapshot, anomalies := engine.Compute(req.Charges)
	s.reportAnomalies(ctx, record.PatientRef, anomalies)

	record.Amount = snapshot.Net
	record.PaymentMode = snapshot.PaymentMode
	record.Payload = codec.Encode(snapshot)
	record.Date = billingDate(snapshot.BillingDate, s.clock.Now())
	record.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, s.db, record); err != nil {
		return domain.BillSnapshot{}, err
	}
	s.obsMetrics.RecordBillPersisted(ctx, "update")

	snapshot.ID = record.ID
	snapshot.Reference = record.Reference
	snapshot.Status = billStatus(record.Status)
	return s.applyDeposits(ctx, snapshot)
}

// MarkCompleted is a status transition only; totals are not recomputed.
func (s *Service) MarkCompleted(ctx context.Context, id string) error {
	record, err := s.findBill(ctx, id)
	if err != nil {
		return err
	}
	if record.Status == storedomain.StatusCompleted {
		return domain.ErrAlreadyCompleted
	}
	return s.store.UpdateStatus(ctx, s.db, record.ID, storedomain.StatusCompleted)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.findBill(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.Delete(ctx, s.db, record.ID)
	if errors.Is(err, storedomain.ErrDeleteRejected) {
		s.log.Warn("hard delete rejected, flagging bill deleted", zap.String("id", record.ID.String()))
		err = s.store.UpdateStatus(ctx, s.db, record.ID, storedomain.StatusDeleted)
	}
	return err
}

func (s *Service) ListByPatient(ctx context.Context, patientRef string, page pagination.Pagination) ([]domain.BillSnapshot, *pagination.PageInfo, error) {
	patientRef = strings.TrimSpace(patientRef)
	if patientRef == "" {
		return nil, nil, domain.ErrInvalidPatientRef
	}

	limit := page.PageSize
	if limit < 1 {
		limit = 10
	}
	if limit > 250 {
		limit = 250
	}

	var afterID snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
		afterID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
	}

	records, err := s.store.List(ctx, s.db, storedomain.ListFilter{
		Kind:       storedomain.KindBill,
		PatientRef: patientRef,
		AfterID:    afterID,
		Limit:      limit + 1,
	})
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(records, int32(limit), func(r *storedomain.PersistedRecord) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: r.ID.String()})
		return token
	})
	if len(records) > limit {
		records = records[:limit]
	}

	depositsSum, err := s.depositSvc.Sum(ctx, patientRef)
	if err != nil {
		return nil, nil, err
	}

	snapshots := make([]domain.BillSnapshot, 0, len(records))
	for _, record := range records {
		snapshot, _ := s.snapshotFromRecord(ctx, record)
		snapshot.DepositsApplied = depositsSum
		snapshot.Balance = engine.Balance(snapshot.Net, depositsSum)
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, pageInfo, nil
}

// snapshotFromRecord decodes the machine-readable payload when present,
// otherwise reconstructs. The returned snapshot is always recomputed so
// its totals are internally consistent regardless of source.
func (s *Service) snapshotFromRecord(ctx context.Context, record *storedomain.PersistedRecord) (domain.BillSnapshot, bool) {
	items := codec.Decode(record.Payload)
	if items == nil {
		s.obsMetrics.RecordDecodeFallback(ctx)
		s.log.Info("machine-readable payload unusable, reconstructing",
			zap.String("id", record.ID.String()),
			zap.String("patient_ref", record.PatientRef))
		snapshot := s.reconstructor.Reconstruct(reconstruct.Input{
			Payload:      record.Payload,
			StoredAmount: record.Amount,
			PatientRef:   record.PatientRef,
			RecordDate:   recordDate(record),
			PaymentMode:  record.PaymentMode,
			Status:       billStatus(record.Status),
		})
		snapshot.ID = record.ID
		snapshot.Reference = record.Reference
		return snapshot, true
	}

	summary := codec.ScanSummary(record.Payload)
	sheet := engine.ChargesFromItems(domain.BillSnapshot{
		PatientRef:  record.PatientRef,
		BillingDate: recordDate(record).Format("2006-01-02"),
		LineItems:   items,
		Discount:    summary.Discount,
		Tax:         summary.Tax,
		PaymentMode: record.PaymentMode,
	})

	snapshot, anomalies := engine.Compute(sheet)
	s.reportAnomalies(ctx, record.PatientRef, anomalies)
	snapshot.ID = record.ID
	snapshot.Reference = record.Reference
	snapshot.Status = billStatus(record.Status)
	return snapshot, false
}

// applyDeposits recomputes the balance from the live deposit set. The
// balance is never cached: deleted or edited deposits must show up on the
// very next read.
func (s *Service) applyDeposits(ctx context.Context, snapshot domain.BillSnapshot) (domain.BillSnapshot, error) {
	sum, err := s.depositSvc.Sum(ctx, snapshot.PatientRef)
	if err != nil {
		return domain.BillSnapshot{}, err
	}
	snapshot.DepositsApplied = sum
	snapshot.Balance = engine.Balance(snapshot.Net, sum)
	return snapshot, nil
}

func (s *Service) findBill(ctx context.Context, id string) (*storedomain.PersistedRecord, error) {
	recordID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidBillID
	}
	record, err := s.store.FindByID(ctx, s.db, recordID)
	if errors.Is(err, storedomain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if record.Kind != storedomain.KindBill || record.Status == storedomain.StatusDeleted {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (s *Service) reportAnomalies(ctx context.Context, patientRef string, anomalies []engine.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	s.obsMetrics.RecordCalcAnomalies(ctx, len(anomalies))
	for _, anomaly := range anomalies {
		s.log.Warn("calculation anomaly",
			zap.String("patient_ref", patientRef),
			zap.String("anomaly", anomaly.String()))
	}
}

func billStatus(status storedomain.RecordStatus) domain.BillStatus {
	switch status {
	case storedomain.StatusCompleted:
		return domain.BillStatusCompleted
	case storedomain.StatusDeleted:
		return domain.BillStatusDeleted
	default:
		return domain.BillStatusPending
	}
}

func billingDate(value string, fallback time.Time) *time.Time {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(value)); err == nil {
		return &t
	}
	return &fallback
}

func recordDate(record *storedomain.PersistedRecord) time.Time {
	if record.Date != nil && !record.Date.IsZero() {
		return *record.Date
	}
	return record.CreatedAt
}
