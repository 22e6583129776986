package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sevacare/ipdbilling/internal/ledgerstore/domain"
	pkgdb "github.com/sevacare/ipdbilling/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Store {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PersistedRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_records (id, kind, patient_ref, amount, status, payment_mode, date, payload, reference, received_by, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Kind,
		record.PatientRef,
		record.Amount,
		record.Status,
		record.PaymentMode,
		record.Date,
		record.Payload,
		record.Reference,
		record.ReceivedBy,
		record.Metadata,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.PersistedRecord) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE ledger_records
		 SET amount = ?, status = ?, payment_mode = ?, date = ?, payload = ?, received_by = ?, updated_at = ?
		 WHERE id = ?`,
		record.Amount,
		record.Status,
		record.PaymentMode,
		record.Date,
		record.Payload,
		record.ReceivedBy,
		record.UpdatedAt,
		record.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.RecordStatus) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE ledger_records SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PersistedRecord, error) {
	var record domain.PersistedRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, kind, patient_ref, amount, status, payment_mode, date, payload, reference, received_by, metadata, created_at, updated_at
		 FROM ledger_records WHERE id = ?`,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.PersistedRecord, error) {
	var records []*domain.PersistedRecord
	stmt := db.WithContext(ctx).Model(&domain.PersistedRecord{})
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.PatientRef != "" {
		stmt = stmt.Where("patient_ref = ?", filter.PatientRef)
	}
	if !filter.IncludeDeleted {
		stmt = stmt.Where("status <> ?", domain.StatusDeleted)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	// Snowflake IDs are time-ordered, so id ASC is chronological and
	// agrees with the AfterID cursor.
	if err := stmt.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM ledger_records WHERE id = ?`, id)
	if result.Error != nil {
		// Stores running with delete permissions revoked reject the
		// statement; callers fall back to the status flag. Transient
		// failures surface as-is so they stay retryable.
		if pkgdb.IsPermissionDeniedErr(result.Error) {
			return domain.ErrDeleteRejected
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
