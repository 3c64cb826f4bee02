package domain

import "strings"

// PayloadFile is a file entry inside the QR payload.
type PayloadFile struct {
	Name      string `json:"nombre"`
	SizeBytes int64  `json:"tamaño"`
	MediaType string `json:"tipo"`
}

type PayloadFiles struct {
	Count int           `json:"cantidad"`
	Files []PayloadFile `json:"archivos"`
}

// VerificationPayload is the JSON document encoded in the certificate QR and
// accepted by the payload verification endpoint. Field names are part of the
// public contract.
type VerificationPayload struct {
	Code            string       `json:"certificado"`
	ApplicantName   string       `json:"postulante"`
	Email           string       `json:"email"`
	Position        string       `json:"puesto"`
	CASNumber       string       `json:"numeroCAS"`
	Area            string       `json:"area"`
	PostingID       PostingRef   `json:"convocatoriaId"`
	Date            string       `json:"fecha"`
	Time            string       `json:"hora"`
	VerificationURL string       `json:"urlVerificacion"`
	Entity          string       `json:"entidad"`
	System          string       `json:"sistema"`
	CurriculumFiles PayloadFiles `json:"archivosCurriculum"`
	AnnexFiles      PayloadFiles `json:"archivosAnexos"`
}

// ReducedPayload is encoded when the full payload does not fit in a QR code.
type ReducedPayload struct {
	Code            string `json:"certificado"`
	ApplicantName   string `json:"postulante"`
	VerificationURL string `json:"urlVerificacion"`
}

func (p VerificationPayload) Reduced() ReducedPayload {
	return ReducedPayload{Code: p.Code, ApplicantName: p.ApplicantName, VerificationURL: p.VerificationURL}
}

// VerificationURL builds "<base>/verificar-certificado/<code>".
func VerificationURL(base, code string) string {
	return strings.TrimRight(base, "/") + "/verificar-certificado/" + code
}

// PostingURL builds the public link of a posting.
func PostingURL(base string, ref PostingRef) string {
	return strings.TrimRight(base, "/") + "/convocatorias/" + ref.String()
}

func payloadFiles(files []FileSummary) PayloadFiles {
	out := PayloadFiles{Count: len(files), Files: make([]PayloadFile, 0, len(files))}
	for _, f := range files {
		out.Files = append(out.Files, PayloadFile{Name: f.Name, SizeBytes: f.SizeBytes, MediaType: f.MediaType})
	}
	return out
}

// Issuer describes the institution printed on certificates.
type Issuer struct {
	Entity  string
	System  string
	Version string
	BaseURL string
}

// NewVerificationPayload derives the QR payload from a snapshot.
func NewVerificationPayload(s CertificateSnapshot, iss Issuer) VerificationPayload {
	return VerificationPayload{
		Code:            s.Code,
		ApplicantName:   s.Applicant.FullName,
		Email:           s.Applicant.Email,
		Position:        s.Posting.Position,
		CASNumber:       s.Posting.CASNumber,
		Area:            s.Posting.Area,
		PostingID:       s.Posting.Ref,
		Date:            s.Date,
		Time:            s.Time,
		VerificationURL: VerificationURL(iss.BaseURL, s.Code),
		Entity:          iss.Entity,
		System:          iss.System,
		CurriculumFiles: payloadFiles(s.Curricula),
		AnnexFiles:      payloadFiles(s.Annexes),
	}
}
