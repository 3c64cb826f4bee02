package domain

import "time"

const (
	PostingActive   = "activo"
	PostingDisabled = "desactivado"
)

// Posting is a published job opening (convocatoria). Owned by the postings
// module; the certificate core only reads it.
type Posting struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	Area        string    `gorm:"column:area;size:255;not null"`
	Position    string    `gorm:"column:puesto;size:255;not null"`
	CASNumber   string    `gorm:"column:numero_cas;size:100"`
	PublishedAt time.Time `gorm:"column:fechaPublicacion;index"`
	ClosesAt    time.Time `gorm:"column:fechaFinalizacion"`
	Status      string    `gorm:"column:estado;size:20;default:activo;index"`
}

func (Posting) TableName() string { return "convocatorias" }

func (p Posting) Active() bool { return p.Status == PostingActive }
