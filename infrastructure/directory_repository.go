package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"postulaciones/domain"
)

// DirectoryRepository reads the tables owned by the user, posting and file
// upload modules.
type DirectoryRepository struct {
	DB *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{DB: db}
}

func (r *DirectoryRepository) FindApplicant(ctx context.Context, id uint) (*domain.Applicant, error) {
	var applicant domain.Applicant
	err := r.DB.WithContext(ctx).First(&applicant, "IDUSUARIO = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrApplicantNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "directoryRepo.FindApplicant")
	}
	return &applicant, nil
}

func (r *DirectoryRepository) LatestWithRole(ctx context.Context, role string) (*domain.Applicant, error) {
	var rows []domain.Applicant
	err := r.DB.WithContext(ctx).
		Where("rol = ?", role).
		Order("IDUSUARIO DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "directoryRepo.LatestWithRole")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *DirectoryRepository) LatestActivePosting(ctx context.Context) (*domain.Posting, error) {
	rows, err := r.postings(ctx, true, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *DirectoryRepository) LatestPosting(ctx context.Context) (*domain.Posting, error) {
	rows, err := r.postings(ctx, false, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *DirectoryRepository) ActivePostings(ctx context.Context, limit int) ([]domain.Posting, error) {
	return r.postings(ctx, true, limit)
}

func (r *DirectoryRepository) postings(ctx context.Context, activeOnly bool, limit int) ([]domain.Posting, error) {
	q := r.DB.WithContext(ctx).Model(&domain.Posting{})
	if activeOnly {
		q = q.Where("estado = ?", domain.PostingActive)
	}
	var rows []domain.Posting
	if err := q.Order("fechaPublicacion DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "directoryRepo.postings")
	}
	return rows, nil
}

func (r *DirectoryRepository) CurriculumFiles(ctx context.Context, applicantID uint) ([]domain.FileSummary, error) {
	var rows []domain.CurriculumFile
	err := r.DB.WithContext(ctx).
		Where("IDUSUARIO = ?", applicantID).
		Order("fechaSubida DESC").
		Order("IDCURRICULUM DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "directoryRepo.CurriculumFiles")
	}
	out := make([]domain.FileSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Summary())
	}
	return out, nil
}

func (r *DirectoryRepository) AnnexFiles(ctx context.Context, applicantID uint) ([]domain.FileSummary, error) {
	var rows []domain.AnnexFile
	err := r.DB.WithContext(ctx).
		Where("IDUSUARIO = ?", applicantID).
		Order("fechaCreacion DESC").
		Order("IDANEXO DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "directoryRepo.AnnexFiles")
	}
	out := make([]domain.FileSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Summary())
	}
	return out, nil
}
