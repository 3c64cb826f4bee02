package application

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"postulaciones/domain"
)

var (
	lima     = time.FixedZone("PET", -5*3600)
	issuedAt = time.Date(2025, time.March, 5, 20, 4, 5, 0, time.UTC)
)

type fixture struct {
	applicants   *fakeApplicants
	postings     *fakePostings
	files        *fakeFiles
	certificates *fakeCertificates
	sink         *fakeLedger
	renderer     *fakeRenderer
	artifacts    *fakeArtifacts

	assembler *Assembler
	issuer    *Issuer
	resolver  *Resolver
	ledger    *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()

	f := &fixture{
		applicants: &fakeApplicants{byID: map[uint]domain.Applicant{
			1: {ID: 1, FullName: "Ana María Pérez", Email: "ana@example.com", Role: domain.RoleApplicant},
		}},
		postings:     &fakePostings{},
		files:        &fakeFiles{},
		certificates: &fakeCertificates{},
		sink:         &fakeLedger{},
		renderer:     &fakeRenderer{},
		artifacts:    &fakeArtifacts{},
	}

	minter := NewCodeMinter(f.certificates, log)
	f.assembler = NewAssembler(f.applicants, f.postings, f.files, minter, AssemblerConfig{
		Timeout:          50 * time.Millisecond,
		Location:         lima,
		FallbackReviewer: "Lic. María González López",
	}, log)
	f.assembler.now = func() time.Time { return issuedAt }

	f.issuer = NewIssuer(f.assembler, f.renderer, nil, f.artifacts, f.certificates, domain.Issuer{
		Entity:  "UGEL TALARA",
		System:  "Sistema de Postulaciones",
		Version: "2025.1",
		BaseURL: "https://ugeltalara.edu.pe",
	}, nil, log)

	f.ledger = NewLedger(f.sink, f.sink, 50*time.Millisecond, nil, log)
	f.resolver = NewResolver(f.certificates, f.applicants, f.postings, f.files, f.ledger, nil, 50*time.Millisecond, log)
	return f
}

func posting(id uint, position, status string, published time.Time) domain.Posting {
	return domain.Posting{
		ID:          id,
		Area:        "Unidad de Gestión Institucional",
		Position:    position,
		CASNumber:   "CAS-00" + position[:1],
		PublishedAt: published,
		Status:      status,
	}
}
