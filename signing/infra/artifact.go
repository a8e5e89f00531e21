package infra

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"csr-gateway/signing/domain"
)

const defaultArtifactPattern = "csr-*.req"

// TempStore cria um arquivo temporário novo por requisição.
// Dir vazio usa os.TempDir().
type TempStore struct {
	Dir     string
	Pattern string
}

type TempStoreOption func(*TempStore)

func WithArtifactDir(dir string) TempStoreOption {
	return func(s *TempStore) { s.Dir = dir }
}

func WithArtifactPattern(pattern string) TempStoreOption {
	return func(s *TempStore) { s.Pattern = pattern }
}

func NewTempStore(opts ...TempStoreOption) *TempStore {
	s := &TempStore{Pattern: defaultArtifactPattern}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire grava data inteiro num arquivo de nome único e fecha (flush) antes de retornar.
// Em qualquer falha o arquivo parcial é removido.
func (s *TempStore) Acquire(data []byte) (domain.Artifact, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = defaultArtifactPattern
	}

	f, err := os.CreateTemp(s.Dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", domain.ErrArtifactIO, err)
	}

	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: write %s: %v", domain.ErrArtifactIO, f.Name(), err)
	}

	return &TempArtifact{path: f.Name()}, nil
}

// TempArtifact é o handle devolvido por TempStore.
type TempArtifact struct {
	path string

	once sync.Once
	err  error
}

func (a *TempArtifact) Path() string { return a.path }

// Release remove o arquivo uma única vez. Arquivo já ausente não é erro.
func (a *TempArtifact) Release() error {
	a.once.Do(func() {
		err := os.Remove(a.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.err = fmt.Errorf("%w: remove %s: %v", domain.ErrArtifactIO, a.path, err)
		}
	})
	return a.err
}
