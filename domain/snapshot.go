package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

const (
	PlaceholderPosition = "No especificado"
	PlaceholderCAS      = "No especificado"
	PlaceholderArea     = "No especificada"
	PlaceholderID       = "N/A"
)

// PostingRef identifies the posting embedded in a certificate. It encodes as
// a JSON number when known and as "N/A" for the sentinel posting.
type PostingRef struct {
	ID    uint
	Known bool
}

func (r PostingRef) String() string {
	if !r.Known {
		return PlaceholderID
	}
	return strconv.FormatUint(uint64(r.ID), 10)
}

func (r PostingRef) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return json.Marshal(PlaceholderID)
	}
	return []byte(strconv.FormatUint(uint64(r.ID), 10)), nil
}

func (r *PostingRef) UnmarshalJSON(data []byte) error {
	*r = PostingRef{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		*r = PostingRef{ID: uint(id), Known: true}
	}
	return nil
}

// PostingInfo is the denormalized posting summary embedded by value.
type PostingInfo struct {
	Position  string     `json:"puesto"`
	CASNumber string     `json:"numeroCas"`
	Area      string     `json:"area"`
	Ref       PostingRef `json:"convocatoriaId"`
}

// SentinelPosting is used when no posting exists at all.
func SentinelPosting() PostingInfo {
	return PostingInfo{Position: PlaceholderPosition, CASNumber: PlaceholderCAS, Area: PlaceholderArea}
}

// Info projects a posting, replacing empty columns with placeholders.
func (p Posting) Info() PostingInfo {
	info := PostingInfo{
		Position:  p.Position,
		CASNumber: p.CASNumber,
		Area:      p.Area,
		Ref:       PostingRef{ID: p.ID, Known: true},
	}
	if info.Position == "" {
		info.Position = PlaceholderPosition
	}
	if info.CASNumber == "" {
		info.CASNumber = PlaceholderCAS
	}
	if info.Area == "" {
		info.Area = PlaceholderArea
	}
	return info
}

type ApplicantInfo struct {
	ID       uint
	FullName string
	Email    string
}

// CertificateSnapshot is everything a certificate asserts, captured once at
// issuance. It is passed by value; callers must not share the slices.
type CertificateSnapshot struct {
	Applicant    ApplicantInfo
	Posting      PostingInfo
	ReviewerName string
	Curricula    []FileSummary
	Annexes      []FileSummary
	Code         string
	IssuedAt     time.Time
	Date         string
	Time         string
}

// Clone returns a copy that does not alias the receiver's slices.
func (s CertificateSnapshot) Clone() CertificateSnapshot {
	s.Curricula = append([]FileSummary(nil), s.Curricula...)
	s.Annexes = append([]FileSummary(nil), s.Annexes...)
	if s.Curricula == nil {
		s.Curricula = []FileSummary{}
	}
	if s.Annexes == nil {
		s.Annexes = []FileSummary{}
	}
	return s
}
