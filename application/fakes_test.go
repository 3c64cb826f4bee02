package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"postulaciones/domain"
)

type fakeApplicants struct {
	byID  map[uint]domain.Applicant
	hr    *domain.Applicant
	err   error
	hrErr error
	block bool
}

func (f *fakeApplicants) FindApplicant(ctx context.Context, id uint) (*domain.Applicant, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrApplicantNotFound
	}
	return &a, nil
}

func (f *fakeApplicants) LatestWithRole(_ context.Context, role string) (*domain.Applicant, error) {
	if f.hrErr != nil {
		return nil, f.hrErr
	}
	if role != domain.RoleHR {
		return nil, nil
	}
	return f.hr, nil
}

type fakePostings struct {
	postings []domain.Posting
	err      error
}

func (f *fakePostings) sorted(activeOnly bool) []domain.Posting {
	var out []domain.Posting
	for _, p := range f.postings {
		if !activeOnly || p.Active() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

func (f *fakePostings) LatestActivePosting(context.Context) (*domain.Posting, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s := f.sorted(true); len(s) > 0 {
		return &s[0], nil
	}
	return nil, nil
}

func (f *fakePostings) LatestPosting(context.Context) (*domain.Posting, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s := f.sorted(false); len(s) > 0 {
		return &s[0], nil
	}
	return nil, nil
}

func (f *fakePostings) ActivePostings(_ context.Context, limit int) ([]domain.Posting, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.sorted(true)
	if len(s) > limit {
		s = s[:limit]
	}
	return s, nil
}

type fakeFiles struct {
	curricula map[uint][]domain.FileSummary
	annexes   map[uint][]domain.FileSummary
	cvErr     error
	annexErr  error
}

func (f *fakeFiles) CurriculumFiles(_ context.Context, id uint) ([]domain.FileSummary, error) {
	if f.cvErr != nil {
		return nil, f.cvErr
	}
	return f.curricula[id], nil
}

func (f *fakeFiles) AnnexFiles(_ context.Context, id uint) ([]domain.FileSummary, error) {
	if f.annexErr != nil {
		return nil, f.annexErr
	}
	return f.annexes[id], nil
}

type fakeCertificates struct {
	mu        sync.Mutex
	rows      []domain.Certificate
	saveErr   error
	findErr   error
	existsErr error
	taken     map[string]bool
}

func (f *fakeCertificates) Save(_ context.Context, cert *domain.Certificate) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	cert.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, *cert)
	return cert.ID, nil
}

func (f *fakeCertificates) FindByCodeFragment(_ context.Context, fragment string) (*domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var best *domain.Certificate
	for i := range f.rows {
		row := f.rows[i]
		if row.Code == fragment {
			return &row, nil
		}
		if row.Code == "" && strings.Contains(row.FileName, fragment) && (best == nil || row.IssuedAt.After(best.IssuedAt)) {
			best = &row
		}
	}
	if best == nil {
		return nil, domain.ErrCertificateNotFound
	}
	return best, nil
}

func (f *fakeCertificates) CodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.taken[code] {
		return true, nil
	}
	for _, row := range f.rows {
		if row.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCertificates) ListByApplicant(_ context.Context, id uint) ([]domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Certificate
	for _, row := range f.rows {
		if row.ApplicantID == id {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.Verification
	err     error
	panics  bool
}

func (f *fakeLedger) Append(ctx context.Context, entry *domain.Verification) error {
	if f.panics {
		panic("sink exploded")
	}
	if f.err != nil {
		return f.err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLedger) List(_ context.Context, filter domain.LedgerFilter) ([]domain.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Verification, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		out = append(out, f.entries[i])
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeRenderer struct {
	err      error
	snapshot domain.CertificateSnapshot
	payload  domain.VerificationPayload
	ctxErr   error
}

func (f *fakeRenderer) Render(ctx context.Context, s domain.CertificateSnapshot, p domain.VerificationPayload) ([]byte, error) {
	f.snapshot, f.payload, f.ctxErr = s, p, ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 " + s.Code), nil
}

type fakeArtifact struct {
	path     string
	size     int64
	released int
}

func (a *fakeArtifact) Path() string { return a.path }
func (a *fakeArtifact) Size() int64  { return a.size }
func (a *fakeArtifact) Release() error {
	a.released++
	return nil
}

type fakeArtifacts struct {
	written []*fakeArtifact
	err     error
}

func (f *fakeArtifacts) Write(_ context.Context, name string, content []byte) (domain.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := &fakeArtifact{path: "uploads/" + name, size: int64(len(content))}
	f.written = append(f.written, a)
	return a, nil
}

type fakeInspector struct{ err error }

func (f fakeInspector) Inspect([]byte, string) error { return f.err }

var errBoom = errors.New("boom")
