package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// FileTree represents a nested file structure for declarative test setup.
// Values are either file content (string) or a nested FileTree.
type FileTree map[string]interface{}

// CreateFileTree writes tree under basePath on the real filesystem.
func CreateFileTree(t *testing.T, basePath string, tree FileTree) {
	t.Helper()

	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fullPath := filepath.Join(basePath, name)
		switch v := tree[name].(type) {
		case string:
			WriteFile(t, fullPath, v)
		case FileTree:
			require.NoError(t, os.MkdirAll(fullPath, 0755))
			CreateFileTree(t, fullPath, v)
		default:
			t.Fatalf("invalid file tree content type for %s: %T", name, v)
		}
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// MemFile writes content into a MemoryFS, failing the test on error.
func MemFile(t *testing.T, m *MemoryFS, path, content string) {
	t.Helper()
	require.NoError(t, m.WriteFile(path, []byte(content), 0644))
}

// TempDir returns t.TempDir() with symlinks resolved, so relative link
// targets computed from it match what the kernel reports.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// ChdirTemp changes into a fresh directory for the duration of the test.
// Tests using it must not call t.Parallel.
func ChdirTemp(t *testing.T) string {
	t.Helper()
	dir := TempDir(t)
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

// RequireLink asserts that path is a symlink whose stored target is want.
func RequireLink(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.Readlink(path)
	require.NoError(t, err, "expected symlink at %s", path)
	require.Equal(t, want, got, "symlink target of %s", path)
}
