package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"postulaciones/domain"
)

// VerificationRepository is the relational ledger. It is both the direct
// sink and the reader behind the committee listing.
type VerificationRepository struct {
	DB *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{DB: db}
}

func (r *VerificationRepository) Append(ctx context.Context, entry *domain.Verification) error {
	entry.VerifiedAt = entry.VerifiedAt.UTC()
	if err := r.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(err, "verificationRepo.Append")
	}
	return nil
}

func (r *VerificationRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]domain.Verification, error) {
	filter = filter.Normalize()
	q := r.DB.WithContext(ctx).Model(&domain.Verification{})
	if filter.From != nil {
		q = q.Where("fechaVerificacion >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("fechaVerificacion <= ?", filter.To.UTC())
	}
	var rows []domain.Verification
	err := q.Order("fechaVerificacion DESC").
		Order("IDVERIFICACION DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "verificationRepo.List")
	}
	return rows, nil
}
