package domain

import (
	"fmt"
	"regexp"
	"time"
)

const CertificateMediaType = "application/pdf"

// Certificate is an issued certificate. Rows are created once per successful
// render and never updated.
type Certificate struct {
	ID             uint      `gorm:"column:IDCERTIFICADO;primaryKey"`
	ApplicantID    uint      `gorm:"column:IDUSUARIO;not null;index"`
	Code           string    `gorm:"column:codigoCertificado;size:32;uniqueIndex"`
	FileName       string    `gorm:"column:nombreArchivo;size:255;not null;index"`
	StoragePath    string    `gorm:"column:rutaArchivo;size:500;not null"`
	MediaType      string    `gorm:"column:tipoArchivo;size:100;not null"`
	SizeBytes      int64     `gorm:"column:tamanoArchivo;not null"`
	ApplicantName  string    `gorm:"column:nombrePostulante;size:255"`
	ApplicantEmail string    `gorm:"column:correoPostulante;size:255"`
	IssuedAt       time.Time `gorm:"column:fechaGeneracion;index"`
}

func (Certificate) TableName() string { return "Certificados" }

var whitespace = regexp.MustCompile(`\s+`)

// CertificateFileName embeds the code in the file name so that legacy
// substring lookups over nombreArchivo keep resolving.
func CertificateFileName(applicantName, code string) string {
	name := whitespace.ReplaceAllString(applicantName, "_")
	if name == "" {
		name = "Postulante"
	}
	return fmt.Sprintf("Certificado_%s_%s.pdf", name, code)
}
