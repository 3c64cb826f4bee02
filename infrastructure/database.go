package infrastructure

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"postulaciones/config"
	"postulaciones/domain"
)

// OpenDatabase connects to MySQL in production or SQLite for local runs and
// tests. Timestamps are written in UTC.
func OpenDatabase(driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverMySQL:
		if dsn == "" {
			return nil, errors.New("DB_DSN is not set in environment")
		}
		dialector = mysql.Open(dsn)
	case config.DriverSQLite:
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access connection pool")
	}
	if driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	log.Info().Str("driver", driver).Msg("connected to database")
	return db, nil
}

// Migrate creates the certificate and ledger tables. The directory tables
// (users, postings, submitted files) belong to other modules and are only
// created when withDirectory is set, for local runs and tests.
func Migrate(db *gorm.DB, withDirectory bool) error {
	models := []any{&domain.Certificate{}, &domain.Verification{}}
	if withDirectory {
		models = append(models,
			&domain.Applicant{}, &domain.Posting{}, &domain.CurriculumFile{}, &domain.AnnexFile{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}
	return nil
}

// SeedDemoData inserts a few postings and an HR reviewer into an empty
// directory.
func SeedDemoData(db *gorm.DB, log zerolog.Logger) error {
	var count int64
	if err := db.Model(&domain.Posting{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "failed to count postings")
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	postings := []domain.Posting{
		{
			Area:        "Área de Gestión Pedagógica",
			Position:    "Especialista en Educación Primaria",
			CASNumber:   "CAS N° 001-2025-UGEL-T",
			PublishedAt: now.AddDate(0, 0, -10),
			ClosesAt:    now.AddDate(0, 0, 20),
			Status:      domain.PostingActive,
		},
		{
			Area:        "Área de Administración",
			Position:    "Asistente Administrativo",
			CASNumber:   "CAS N° 002-2025-UGEL-T",
			PublishedAt: now.AddDate(0, 0, -3),
			ClosesAt:    now.AddDate(0, 0, 27),
			Status:      domain.PostingActive,
		},
		{
			Area:        "Área de Asesoría Jurídica",
			Position:    "Abogado",
			CASNumber:   "CAS N° 014-2024-UGEL-T",
			PublishedAt: now.AddDate(0, -6, 0),
			ClosesAt:    now.AddDate(0, -5, 0),
			Status:      domain.PostingDisabled,
		},
	}
	reviewer := domain.Applicant{
		FullName:  "Lic. María González López",
		Email:     "rrhh@ugeltalara.edu.pe",
		Role:      domain.RoleHR,
		Status:    "ACTIVO",
		CreatedAt: now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&postings).Error; err != nil {
			return err
		}
		return tx.Create(&reviewer).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to seed demo data")
	}

	log.Info().Int("postings", len(postings)).Msg("seeded demo data")
	return nil
}
