package domain

import "context"

// ApplicantReader reads the user directory.
type ApplicantReader interface {
	FindApplicant(ctx context.Context, id uint) (*Applicant, error)
	// LatestWithRole returns the most recently created user holding role,
	// nil when there is none.
	LatestWithRole(ctx context.Context, role string) (*Applicant, error)
}

// PostingReader reads published postings. Latest* methods return nil, nil
// when no posting matches.
type PostingReader interface {
	LatestActivePosting(ctx context.Context) (*Posting, error)
	LatestPosting(ctx context.Context) (*Posting, error)
	ActivePostings(ctx context.Context, limit int) ([]Posting, error)
}

// SubmittedFileReader lists submitted file metadata, newest first.
type SubmittedFileReader interface {
	CurriculumFiles(ctx context.Context, applicantID uint) ([]FileSummary, error)
	AnnexFiles(ctx context.Context, applicantID uint) ([]FileSummary, error)
}

// CertificateStore persists issued certificates.
type CertificateStore interface {
	Save(ctx context.Context, cert *Certificate) (uint, error)
	// FindByCodeFragment returns ErrCertificateNotFound when nothing matches.
	FindByCodeFragment(ctx context.Context, fragment string) (*Certificate, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByApplicant(ctx context.Context, applicantID uint) ([]Certificate, error)
}

// LedgerSink appends verification rows.
type LedgerSink interface {
	Append(ctx context.Context, entry *Verification) error
}

// LedgerReader lists verification rows, newest first.
type LedgerReader interface {
	List(ctx context.Context, filter LedgerFilter) ([]Verification, error)
}

// Renderer produces the paginated certificate document.
type Renderer interface {
	Render(ctx context.Context, snapshot CertificateSnapshot, payload VerificationPayload) ([]byte, error)
}

// DocumentInspector checks a rendered document before it is stored.
type DocumentInspector interface {
	Inspect(content []byte, code string) error
}

// Artifact is a rendered document written to shared storage. Release removes
// it and is safe to call more than once.
type Artifact interface {
	Path() string
	Size() int64
	Release() error
}

// ArtifactStore writes rendered documents to shared storage.
type ArtifactStore interface {
	Write(ctx context.Context, fileName string, content []byte) (Artifact, error)
}
