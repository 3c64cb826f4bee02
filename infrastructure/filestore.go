package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"postulaciones/domain"
)

// FileStore writes rendered certificates under a shared directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "Error con directorio de archivos.")
	}
	return &FileStore{dir: dir}, nil
}

// Write stores content as fileName. A unique prefix keeps two concurrent
// issuances for the same applicant from clobbering each other. The size is
// read back from the filesystem.
func (s *FileStore) Write(_ context.Context, fileName string, content []byte) (domain.Artifact, error) {
	path := filepath.Join(s.dir, uuid.NewString()+"_"+filepath.Base(fileName))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrap(err, "fileStore.Write")
	}
	info, err := os.Stat(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrap(err, "fileStore.Write: stat")
	}
	return &fileArtifact{path: path, size: info.Size()}, nil
}

type fileArtifact struct {
	path string
	size int64
	once sync.Once
	err  error
}

func (a *fileArtifact) Path() string { return a.path }
func (a *fileArtifact) Size() int64  { return a.size }

func (a *fileArtifact) Release() error {
	a.once.Do(func() {
		if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
			a.err = errors.Wrap(err, "fileArtifact.Release")
		}
	})
	return a.err
}
