package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"postulaciones/domain"
)

// AssemblerConfig tunes Assembler.
type AssemblerConfig struct {
	// Timeout bounds every collaborator call.
	Timeout          time.Duration
	Location         *time.Location
	FallbackReviewer string
}

// Assembler gathers everything a certificate asserts into one snapshot.
type Assembler struct {
	applicants domain.ApplicantReader
	postings   domain.PostingReader
	files      domain.SubmittedFileReader
	minter     *CodeMinter
	cfg        AssemblerConfig
	now        func() time.Time
	log        zerolog.Logger
}

func NewAssembler(
	applicants domain.ApplicantReader,
	postings domain.PostingReader,
	files domain.SubmittedFileReader,
	minter *CodeMinter,
	cfg AssemblerConfig,
	log zerolog.Logger,
) *Assembler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Assembler{
		applicants: applicants,
		postings:   postings,
		files:      files,
		minter:     minter,
		cfg:        cfg,
		now:        time.Now,
		log:        log.With().Str("component", "assembler").Logger(),
	}
}

// Assemble builds the snapshot for applicantID. Only the applicant lookup can
// fail; every other piece falls back to its placeholder.
func (a *Assembler) Assemble(ctx context.Context, applicantID uint) (domain.CertificateSnapshot, error) {
	applicant, err := a.findApplicant(ctx, applicantID)
	if err != nil {
		return domain.CertificateSnapshot{}, err
	}

	var (
		posting   domain.PostingInfo
		reviewer  string
		curricula []domain.FileSummary
		annexes   []domain.FileSummary
		g         errgroup.Group
	)
	g.Go(func() error {
		p, err := a.currentPosting(ctx)
		posting = fold(a.log, "posting", p, err, domain.SentinelPosting())
		return nil
	})
	g.Go(func() error {
		name, err := a.reviewerName(ctx)
		reviewer = fold(a.log, "reviewer", name, err, a.cfg.FallbackReviewer)
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
		files, err := a.files.CurriculumFiles(fctx, applicant.ID)
		curricula = fold(a.log, "curricula", files, err, []domain.FileSummary{})
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
		files, err := a.files.AnnexFiles(fctx, applicant.ID)
		annexes = fold(a.log, "annexes", files, err, []domain.FileSummary{})
		return nil
	})
	_ = g.Wait()

	now := a.now().In(a.cfg.Location)
	code := a.minter.Mint(ctx, now)

	snapshot := domain.CertificateSnapshot{
		Applicant: domain.ApplicantInfo{
			ID:       applicant.ID,
			FullName: applicant.FullName,
			Email:    applicant.Email,
		},
		Posting:      posting,
		ReviewerName: reviewer,
		Curricula:    curricula,
		Annexes:      annexes,
		Code:         code,
		IssuedAt:     now,
		Date:         domain.FormatDate(now),
		Time:         domain.FormatTime(now),
	}
	return snapshot.Clone(), nil
}

func (a *Assembler) findApplicant(ctx context.Context, id uint) (*domain.Applicant, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	applicant, err := a.applicants.FindApplicant(ctx, id)
	switch {
	case err == nil && applicant != nil:
		return applicant, nil
	case err == nil, domain.KindOf(err) == domain.KindNotFound:
		return nil, domain.ErrApplicantNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return nil, domain.Timeout("Tiempo de espera agotado al consultar el usuario.", err)
	default:
		return nil, domain.StorageFailure("Error al consultar el usuario.", err)
	}
}

// currentPosting prefers the latest active posting, then the latest of any
// state. It returns the sentinel when there are none.
func (a *Assembler) currentPosting(ctx context.Context) (domain.PostingInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	p, err := a.postings.LatestActivePosting(ctx)
	if err != nil {
		return domain.PostingInfo{}, err
	}
	if p == nil {
		if p, err = a.postings.LatestPosting(ctx); err != nil {
			return domain.PostingInfo{}, err
		}
	}
	if p == nil {
		return domain.SentinelPosting(), nil
	}
	return p.Info(), nil
}

func (a *Assembler) reviewerName(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	reviewer, err := a.applicants.LatestWithRole(ctx, domain.RoleHR)
	if err != nil {
		return "", err
	}
	if reviewer == nil || reviewer.FullName == "" {
		return a.cfg.FallbackReviewer, nil
	}
	return reviewer.FullName, nil
}

// fold returns v, or placeholder when err is set.
func fold[T any](log zerolog.Logger, what string, v T, err error, placeholder T) T {
	if err != nil {
		log.Warn().Err(err).Str("lookup", what).Msg("secondary lookup failed, using placeholder")
		return placeholder
	}
	return v
}
