package domain

import (
	"encoding/json"
	"time"
)

type CertificateView struct {
	Code     string    `json:"codigo"`
	IssuedAt time.Time `json:"fechaGeneracion"`
	FileName string    `json:"nombreArchivo"`
}

type ApplicantView struct {
	ID       uint   `json:"id"`
	FullName string `json:"nombreCompleto"`
	Email    string `json:"correo"`
}

type PostingView struct {
	Position  string `json:"puesto"`
	CASNumber string `json:"numeroCas"`
	Area      string `json:"area"`
}

type FilesView struct {
	Curricula []FileSummary `json:"curriculum"`
	Annexes   []FileSummary `json:"anexos"`
}

// ResolvedSnapshot is the current authoritative view of a certificate.
type ResolvedSnapshot struct {
	Certificate CertificateView `json:"certificado"`
	Applicant   ApplicantView   `json:"postulante"`
	Posting     PostingView     `json:"convocatoria"`
	Files       FilesView       `json:"archivos"`
}

// CodeVerification is the body of a successful lookup by code.
type CodeVerification struct {
	Valid bool `json:"valido"`
	ResolvedSnapshot
	VerifiedAt time.Time `json:"fechaVerificacion"`
	Message    string    `json:"mensaje"`
}

type CommitteeSession struct {
	Recorded  bool      `json:"registrado"`
	Timestamp time.Time `json:"timestamp"`
}

// PayloadVerification is the body returned for a scanned payload. Valid is
// always true, Resolved is nil when the code did not resolve.
type PayloadVerification struct {
	Valid      bool              `json:"valido"`
	Payload    json.RawMessage   `json:"datosQR"`
	Resolved   *ResolvedSnapshot `json:"datosCompletos"`
	VerifiedAt time.Time         `json:"fechaVerificacion"`
	Message    string            `json:"mensaje"`
	Session    CommitteeSession  `json:"sesionComite"`
}
