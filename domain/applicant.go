package domain

import "time"

const (
	RoleAdmin      = "admin"
	RoleCommittee  = "comite"
	RoleHR         = "rr.hh"
	RoleProcedures = "tramite"
	RoleApplicant  = "postulante"
)

// Applicant is a row of the user directory. Any registered user can hold a
// certificate, the HR reviewer is looked up in the same table by role.
type Applicant struct {
	ID        uint      `gorm:"column:IDUSUARIO;primaryKey"`
	FullName  string    `gorm:"column:nombreCompleto;size:255;not null"`
	Email     string    `gorm:"column:correo;size:255"`
	Role      string    `gorm:"column:rol;size:50;index"`
	Status    string    `gorm:"column:estado;size:20;default:ACTIVO"`
	CreatedAt time.Time `gorm:"column:fechaRegistro"`
}

func (Applicant) TableName() string { return "usuarios" }
