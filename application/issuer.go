package application

import (
	"context"

	"github.com/rs/zerolog"

	"postulaciones/domain"
)

// IssuedCertificate is a persisted certificate together with the rendered
// document. Release must be called once the content has been delivered.
type IssuedCertificate struct {
	Certificate domain.Certificate
	Content     []byte
	artifact    domain.Artifact
}

func (c *IssuedCertificate) Release() error {
	if c == nil || c.artifact == nil {
		return nil
	}
	return c.artifact.Release()
}

// Issuer runs the issuance flow: assemble, render, store the artifact and
// persist the certificate row.
type Issuer struct {
	assembler   *Assembler
	renderer    domain.Renderer
	inspector   domain.DocumentInspector
	artifacts   domain.ArtifactStore
	store       domain.CertificateStore
	institution domain.Issuer
	metrics     Metrics
	log         zerolog.Logger
}

// NewIssuer builds an Issuer. inspector may be nil.
func NewIssuer(
	assembler *Assembler,
	renderer domain.Renderer,
	inspector domain.DocumentInspector,
	artifacts domain.ArtifactStore,
	store domain.CertificateStore,
	institution domain.Issuer,
	metrics Metrics,
	log zerolog.Logger,
) *Issuer {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Issuer{
		assembler:   assembler,
		renderer:    renderer,
		inspector:   inspector,
		artifacts:   artifacts,
		store:       store,
		institution: institution,
		metrics:     metrics,
		log:         log.With().Str("component", "issuer").Logger(),
	}
}

// Issue generates and persists a certificate for applicantID. It is detached
// from ctx cancellation so a render in flight still completes and persists.
func (s *Issuer) Issue(ctx context.Context, applicantID uint) (*IssuedCertificate, error) {
	ctx = context.WithoutCancel(ctx)

	issued, err := s.issue(ctx, applicantID)
	if err != nil {
		s.metrics.CertificateFailed(domain.KindOf(err))
		s.log.Error().Err(err).Uint("applicant_id", applicantID).Msg("certificate issuance failed")
		return nil, err
	}
	s.metrics.CertificateIssued()
	s.log.Info().
		Uint("applicant_id", applicantID).
		Str("code", issued.Certificate.Code).
		Int64("size", issued.Certificate.SizeBytes).
		Msg("certificate issued")
	return issued, nil
}

func (s *Issuer) issue(ctx context.Context, applicantID uint) (*IssuedCertificate, error) {
	snapshot, err := s.assembler.Assemble(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	payload := domain.NewVerificationPayload(snapshot, s.institution)

	content, err := s.renderer.Render(ctx, snapshot, payload)
	if err != nil {
		return nil, asKind(err, domain.KindRenderFailure, "Error al generar el certificado")
	}
	if s.inspector != nil {
		if err := s.inspector.Inspect(content, snapshot.Code); err != nil {
			return nil, asKind(err, domain.KindRenderFailure, "Error al generar el certificado")
		}
	}

	fileName := domain.CertificateFileName(snapshot.Applicant.FullName, snapshot.Code)
	artifact, err := s.artifacts.Write(ctx, fileName, content)
	if err != nil {
		return nil, asKind(err, domain.KindStorageFailure, "Error al guardar el certificado")
	}

	cert := domain.Certificate{
		ApplicantID:    snapshot.Applicant.ID,
		Code:           snapshot.Code,
		FileName:       fileName,
		StoragePath:    artifact.Path(),
		MediaType:      domain.CertificateMediaType,
		SizeBytes:      artifact.Size(),
		ApplicantName:  snapshot.Applicant.FullName,
		ApplicantEmail: snapshot.Applicant.Email,
		IssuedAt:       snapshot.IssuedAt.UTC(),
	}
	id, err := s.store.Save(ctx, &cert)
	if err != nil {
		if relErr := artifact.Release(); relErr != nil {
			s.log.Warn().Err(relErr).Str("path", artifact.Path()).Msg("failed to remove artifact")
		}
		return nil, asKind(err, domain.KindStorageFailure, "Error al guardar el certificado")
	}
	cert.ID = id

	return &IssuedCertificate{Certificate: cert, Content: content, artifact: artifact}, nil
}

// asKind keeps err when it already carries a kind, otherwise wraps it.
func asKind(err error, kind domain.Kind, msg string) error {
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return domain.Wrap(kind, msg, err)
}
