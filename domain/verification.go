package domain

import (
	"encoding/json"
	"time"
)

const (
	ChannelCode    = "codigo"
	ChannelPayload = "qr"
)

// Verification is one append-only ledger row. Code is whatever the verifier
// claimed and is not validated on write.
type Verification struct {
	ID               uint      `gorm:"column:IDVERIFICACION;primaryKey"`
	Code             string    `gorm:"column:codigoCertificado;size:255;index"`
	QueryPayload     string    `gorm:"column:datosQR;type:text"`
	ResolvedSnapshot *string   `gorm:"column:datosVerificados;type:text"`
	VerifiedAt       time.Time `gorm:"column:fechaVerificacion;index"`
	SourceAddress    string    `gorm:"column:ipVerificacion;size:64"`
	Channel          string    `gorm:"column:canal;size:16"`
}

func (Verification) TableName() string { return "VerificacionesQR" }

// LedgerFilter bounds a ledger listing. Zero values mean unbounded, except
// Limit which falls back to DefaultLedgerLimit.
type LedgerFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const (
	DefaultLedgerLimit = 100
	MaxLedgerLimit     = 1000
)

func (f LedgerFilter) Normalize() LedgerFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLedgerLimit
	}
	if f.Limit > MaxLedgerLimit {
		f.Limit = MaxLedgerLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// LedgerEntry is a Verification with its JSON columns decoded for output.
type LedgerEntry struct {
	ID               uint            `json:"id"`
	Code             string          `json:"codigoCertificado"`
	QueryPayload     json.RawMessage `json:"datosQR"`
	ResolvedSnapshot json.RawMessage `json:"datosVerificados"`
	VerifiedAt       time.Time       `json:"fechaVerificacion"`
	SourceAddress    string          `json:"ipVerificacion"`
	Channel          string          `json:"canal,omitempty"`
}

// Entry decodes the stored text columns. Text that is not valid JSON is
// returned as a JSON string so a listing never fails on one bad row.
func (v Verification) Entry() LedgerEntry {
	entry := LedgerEntry{
		ID:               v.ID,
		Code:             v.Code,
		QueryPayload:     rawJSON(v.QueryPayload),
		ResolvedSnapshot: json.RawMessage("null"),
		VerifiedAt:       v.VerifiedAt,
		SourceAddress:    v.SourceAddress,
		Channel:          v.Channel,
	}
	if v.ResolvedSnapshot != nil {
		entry.ResolvedSnapshot = rawJSON(*v.ResolvedSnapshot)
	}
	return entry
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}
