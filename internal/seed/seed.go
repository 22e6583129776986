// Package seed inserts demo patients for development environments.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sevacare/ipdbilling/internal/patient/domain"
	"github.com/sevacare/ipdbilling/pkg/db"
	"gorm.io/gorm"
)

func EnsureDemoPatients(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&domain.Patient{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	node, err := snowflake.NewNode(9)
	if err != nil {
		return err
	}

	admitted := time.Now().UTC().AddDate(0, 0, -3)
	patients := []domain.Patient{
		{ID: node.Generate(), Ref: "IPD-1001", DisplayName: "Asha Kulkarni", AdmissionDate: &admitted, RoomInfo: "General Ward / Bed 12"},
		{ID: node.Generate(), Ref: "IPD-1002", DisplayName: "Ravi Menon", AdmissionDate: &admitted, RoomInfo: "ICU / Bed 3"},
	}
	// Another instance may have seeded between the count and the insert.
	if err := conn.Create(&patients).Error; err != nil && !db.IsDuplicateKeyErr(err) {
		return err
	}
	return nil
}
