package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"postulaciones/domain"
)

const (
	MessageCodeVerified    = "Certificado verificado exitosamente"
	MessagePayloadVerified = "Certificado verificado y registrado en sesión de comité"
)

// Resolver maps a code or a scanned payload back to current data and records
// every attempt in the ledger.
type Resolver struct {
	certificates domain.CertificateStore
	applicants   domain.ApplicantReader
	postings     domain.PostingReader
	files        domain.SubmittedFileReader
	ledger       *Ledger
	metrics      Metrics
	timeout      time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

func NewResolver(
	certificates domain.CertificateStore,
	applicants domain.ApplicantReader,
	postings domain.PostingReader,
	files domain.SubmittedFileReader,
	ledger *Ledger,
	metrics Metrics,
	timeout time.Duration,
	log zerolog.Logger,
) *Resolver {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{
		certificates: certificates,
		applicants:   applicants,
		postings:     postings,
		files:        files,
		ledger:       ledger,
		metrics:      metrics,
		timeout:      timeout,
		now:          time.Now,
		log:          log.With().Str("component", "resolver").Logger(),
	}
}

// ResolveCode verifies a code typed in or taken from a verification URL.
func (r *Resolver) ResolveCode(ctx context.Context, code, source string) (*domain.CodeVerification, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrCodeRequired
	}

	resolved, err := r.resolve(ctx, code)
	query, _ := json.Marshal(code)
	r.ledger.Record(ctx, domain.Verification{
		Code:             code,
		QueryPayload:     string(query),
		ResolvedSnapshot: marshalSnapshot(resolved),
		SourceAddress:    source,
		Channel:          domain.ChannelCode,
	})
	r.metrics.Verified(domain.ChannelCode, resolved != nil)

	if err != nil {
		return nil, err
	}
	return &domain.CodeVerification{
		Valid:            true,
		ResolvedSnapshot: *resolved,
		VerifiedAt:       r.now().UTC(),
		Message:          MessageCodeVerified,
	}, nil
}

type payloadHeader struct {
	Code *string `json:"certificado"`
}

// ResolvePayload verifies a scanned payload. The response is valid even when
// the code does not resolve; Resolved is nil in that case.
func (r *Resolver) ResolvePayload(ctx context.Context, raw []byte, source string) (*domain.PayloadVerification, error) {
	var header payloadHeader
	if err := json.Unmarshal(raw, &header); err != nil || header.Code == nil || strings.TrimSpace(*header.Code) == "" {
		return nil, domain.ErrInvalidPayload
	}
	code := strings.TrimSpace(*header.Code)

	resolved, err := r.resolve(ctx, code)
	if err != nil && domain.KindOf(err) != domain.KindNotFound {
		r.log.Error().Err(err).Str("code", code).Msg("payload lookup failed, answering without resolved data")
	}

	recorded := r.ledger.Record(ctx, domain.Verification{
		Code:             code,
		QueryPayload:     string(raw),
		ResolvedSnapshot: marshalSnapshot(resolved),
		SourceAddress:    source,
		Channel:          domain.ChannelPayload,
	})
	r.metrics.Verified(domain.ChannelPayload, resolved != nil)

	now := r.now().UTC()
	return &domain.PayloadVerification{
		Valid:      true,
		Payload:    json.RawMessage(raw),
		Resolved:   resolved,
		VerifiedAt: now,
		Message:    MessagePayloadVerified,
		Session:    domain.CommitteeSession{Recorded: recorded, Timestamp: now},
	}, nil
}

// resolve looks the certificate up and re-reads the current posting and
// submitted files. Applicant identity comes from the certificate row.
func (r *Resolver) resolve(ctx context.Context, code string) (*domain.ResolvedSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cert, err := r.certificates.FindByCodeFragment(ctx, code)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.ErrCertificateNotFound
		}
		return nil, domain.StorageFailure("Error del servidor al verificar certificado.", err)
	}

	applicant := domain.ApplicantView{ID: cert.ApplicantID, FullName: cert.ApplicantName, Email: cert.ApplicantEmail}
	if applicant.FullName == "" {
		live, err := r.applicants.FindApplicant(ctx, cert.ApplicantID)
		switch {
		case err == nil && live != nil:
			applicant.FullName, applicant.Email = live.FullName, live.Email
		case domain.KindOf(err) == domain.KindNotFound, err == nil:
			return nil, domain.ErrCertificateNotFound
		default:
			return nil, domain.StorageFailure("Error del servidor al verificar certificado.", err)
		}
	}

	posting := domain.PostingView{
		Position:  domain.PlaceholderPosition,
		CASNumber: domain.PlaceholderCAS,
		Area:      domain.PlaceholderArea,
	}
	if p, err := r.postings.LatestActivePosting(ctx); err != nil {
		r.log.Warn().Err(err).Msg("posting lookup failed, using placeholder")
	} else if p != nil {
		info := p.Info()
		posting = domain.PostingView{Position: info.Position, CASNumber: info.CASNumber, Area: info.Area}
	}

	curricula, err := r.files.CurriculumFiles(ctx, cert.ApplicantID)
	curricula = fold(r.log, "curricula", curricula, err, []domain.FileSummary{})
	annexes, err := r.files.AnnexFiles(ctx, cert.ApplicantID)
	annexes = fold(r.log, "annexes", annexes, err, []domain.FileSummary{})
	if curricula == nil {
		curricula = []domain.FileSummary{}
	}
	if annexes == nil {
		annexes = []domain.FileSummary{}
	}

	certCode := cert.Code
	if certCode == "" {
		certCode = code
	}
	return &domain.ResolvedSnapshot{
		Certificate: domain.CertificateView{Code: certCode, IssuedAt: cert.IssuedAt, FileName: cert.FileName},
		Applicant:   applicant,
		Posting:     posting,
		Files:       domain.FilesView{Curricula: curricula, Annexes: annexes},
	}, nil
}

func marshalSnapshot(s *domain.ResolvedSnapshot) *string {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	out := string(b)
	return &out
}
