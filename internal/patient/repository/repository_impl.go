package repository

import (
	"context"
	"strings"

	"github.com/sevacare/ipdbilling/internal/patient/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Directory {
	return &repo{}
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Patient, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrNotFound
	}

	var patient domain.Patient
	err := db.WithContext(ctx).Raw(
		`SELECT id, ref, display_name, admission_date, room_info, created_at
		 FROM patients WHERE ref = ?`,
		ref,
	).Scan(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &patient, nil
}
