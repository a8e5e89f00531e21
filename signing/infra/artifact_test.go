package infra

import (
	"os"
	"path/filepath"
	"testing"

	"csr-gateway/signing/domain"

	"github.com/stretchr/testify/require"
)

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestTempStore_AcquireWritesBytes(t *testing.T) {
	dir := t.TempDir()
	s := NewTempStore(WithArtifactDir(dir))

	data := []byte("-----BEGIN CERTIFICATE REQUEST-----\nabc\n-----END CERTIFICATE REQUEST-----\n")
	a, err := s.Acquire(data)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(a.Path()))

	got, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	require.Equal(t, data, got)

	require.NoError(t, a.Release())
	require.Equal(t, 0, countFiles(t, dir))
}

func TestTempStore_PathsAreUnique(t *testing.T) {
	dir := t.TempDir()
	s := NewTempStore(WithArtifactDir(dir))

	seen := make(map[string]bool)
	var artifacts []domain.Artifact
	for i := 0; i < 20; i++ {
		a, err := s.Acquire([]byte("x"))
		require.NoError(t, err)
		require.False(t, seen[a.Path()], "path reused: %s", a.Path())
		seen[a.Path()] = true
		artifacts = append(artifacts, a)
	}
	require.Equal(t, 20, countFiles(t, dir))

	for _, a := range artifacts {
		require.NoError(t, a.Release())
	}
	require.Equal(t, 0, countFiles(t, dir))
}

func TestTempArtifact_DoubleReleaseIsNoop(t *testing.T) {
	dir := t.TempDir()
	a, err := NewTempStore(WithArtifactDir(dir)).Acquire([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	require.Equal(t, 0, countFiles(t, dir))
}

func TestTempArtifact_ReleaseMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	a, err := NewTempStore(WithArtifactDir(dir)).Acquire([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, os.Remove(a.Path()))
	require.NoError(t, a.Release())
}

func TestTempStore_AcquireFailsOnMissingDir(t *testing.T) {
	s := NewTempStore(WithArtifactDir(filepath.Join(t.TempDir(), "does-not-exist")))

	_, err := s.Acquire([]byte("x"))
	require.ErrorIs(t, err, domain.ErrArtifactIO)
}

func TestTempStore_CustomPattern(t *testing.T) {
	dir := t.TempDir()
	a, err := NewTempStore(WithArtifactDir(dir), WithArtifactPattern("upload-*.csr")).Acquire(nil)
	require.NoError(t, err)
	defer a.Release()

	base := filepath.Base(a.Path())
	require.Regexp(t, `^upload-.*\.csr$`, base)
}
