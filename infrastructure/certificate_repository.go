package infrastructure

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"postulaciones/domain"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) Save(ctx context.Context, cert *domain.Certificate) (uint, error) {
	if err := r.DB.WithContext(ctx).Create(cert).Error; err != nil {
		return 0, errors.Wrap(err, "certificateRepo.Save")
	}
	return cert.ID, nil
}

// FindByCodeFragment matches the code column exactly, then falls back to a
// substring search over file names. The fallback only considers rows issued
// before the code column existed. The most recently generated match wins.
func (r *CertificateRepository) FindByCodeFragment(ctx context.Context, fragment string) (*domain.Certificate, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, domain.ErrCertificateNotFound
	}

	var rows []domain.Certificate
	err := r.latest(ctx).Where("codigoCertificado = ?", fragment).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "certificateRepo.FindByCodeFragment")
	}
	if len(rows) == 0 {
		err = r.latest(ctx).
			Where("codigoCertificado IS NULL OR codigoCertificado = ''").
			Where("nombreArchivo LIKE ? ESCAPE '!'", "%"+escapeLike(fragment)+"%").
			Find(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "certificateRepo.FindByCodeFragment")
		}
	}
	if len(rows) == 0 {
		return nil, domain.ErrCertificateNotFound
	}
	return &rows[0], nil
}

func (r *CertificateRepository) latest(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Order("fechaGeneracion DESC").
		Order("IDCERTIFICADO DESC").
		Limit(1)
}

func (r *CertificateRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.Certificate{}).
		Where("codigoCertificado = ?", code).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "certificateRepo.CodeExists")
	}
	return count > 0, nil
}

func (r *CertificateRepository) ListByApplicant(ctx context.Context, applicantID uint) ([]domain.Certificate, error) {
	var rows []domain.Certificate
	err := r.DB.WithContext(ctx).
		Where("IDUSUARIO = ?", applicantID).
		Order("fechaGeneracion DESC").
		Order("IDCERTIFICADO DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "certificateRepo.ListByApplicant")
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
