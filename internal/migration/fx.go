package migration

import (
	"github.com/sevacare/ipdbilling/internal/config"
	"github.com/sevacare/ipdbilling/internal/ledgerstore/domain"
	patientdomain "github.com/sevacare/ipdbilling/internal/patient/domain"
	"github.com/sevacare/ipdbilling/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql/sqlite dev environments migrate from the models.
			if err := conn.AutoMigrate(
				&domain.PersistedRecord{},
				&patientdomain.Patient{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoPatients(conn)
		}
		return nil
	}),
)
