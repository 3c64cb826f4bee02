package domain

import "time"

// CurriculumFile maps the metadata columns of an uploaded curriculum. The
// file content column is intentionally not mapped.
type CurriculumFile struct {
	ID          uint      `gorm:"column:IDCURRICULUM;primaryKey"`
	ApplicantID uint      `gorm:"column:IDUSUARIO;not null;index"`
	FileName    string    `gorm:"column:nombreArchivo;size:255"`
	MediaType   string    `gorm:"column:tipoArchivo;size:100"`
	SizeBytes   int64     `gorm:"column:tamanoArchivo"`
	UploadedAt  time.Time `gorm:"column:fechaSubida"`
}

func (CurriculumFile) TableName() string { return "Curriculum" }

// AnnexFile maps the metadata columns of a submitted anexo declaration.
type AnnexFile struct {
	ID          uint      `gorm:"column:IDANEXO;primaryKey"`
	ApplicantID uint      `gorm:"column:IDUSUARIO;not null;index"`
	FileName    string    `gorm:"column:nombreArchivo;size:255"`
	MediaType   string    `gorm:"column:tipoArchivo;size:100"`
	SizeBytes   int64     `gorm:"column:tamanoArchivo"`
	CreatedAt   time.Time `gorm:"column:fechaCreacion"`
}

func (AnnexFile) TableName() string { return "Anexos" }

// FileSummary is the read-only projection of a submitted file used in
// certificates and verification responses.
type FileSummary struct {
	Name        string     `json:"nombre"`
	SizeBytes   int64      `json:"tamaño"`
	MediaType   string     `json:"tipo"`
	SubmittedAt *time.Time `json:"fecha"`
}

// SizeKB is the size shown on the certificate, rounded to the nearest KiB.
func (f FileSummary) SizeKB() int64 {
	return (f.SizeBytes + 512) / 1024
}

func (f CurriculumFile) Summary() FileSummary {
	return FileSummary{Name: f.FileName, SizeBytes: f.SizeBytes, MediaType: f.MediaType, SubmittedAt: timePtr(f.UploadedAt)}
}

func (f AnnexFile) Summary() FileSummary {
	return FileSummary{Name: f.FileName, SizeBytes: f.SizeBytes, MediaType: f.MediaType, SubmittedAt: timePtr(f.CreatedAt)}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
