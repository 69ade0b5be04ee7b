package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// ManifestRepo initializes a Loam repository in a temporary directory and
// writes docs into it, keyed by their path inside the repository.
// It returns the absolute repository root.
func ManifestRepo(t *testing.T, docs map[string]string, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	root, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	repo, err := loam.Init(root, opts...)
	require.NoError(t, err, "loam init")

	for name, content := range docs {
		WriteDoc(t, root, name, content)
	}
	return root, repo
}

// WriteDoc writes one manifest document under root, creating its directory.
func WriteDoc(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
