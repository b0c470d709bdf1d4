// pkg/provision/provision_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (temp dirs only)
// PURPOSE: Test idempotent creation of group directories

package provision_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/filesystem"
	"github.com/arthur-debert/mkincludes/pkg/provision"
	"github.com/arthur-debert/mkincludes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_CreatesMissingParents(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Sources", "KJ")

	dir, created, err := provision.Ensure(filesystem.NewOS(), "kj_headers", root)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, filepath.Join(root, "kj_headers"), dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsure_Idempotent(t *testing.T) {
	root := t.TempDir()
	fsys := filesystem.NewOS()

	first, created, err := provision.Ensure(fsys, "G", root)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, os.WriteFile(filepath.Join(first, "keep.h"), nil, 0644))

	second, created, err := provision.Ensure(fsys, "G", root)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(second)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsure_FileInTheWay(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "G"), nil, 0644))

	_, created, err := provision.Ensure(filesystem.NewOS(), "G", root)
	require.Error(t, err)
	assert.False(t, created)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDirCreate))
	assert.Equal(t, "G", errors.GetErrorDetails(err)["group"])
}

func TestEnsure_MkdirFailure(t *testing.T) {
	fsys := testutil.NewMemoryFS()
	fsys.WithError(testutil.OpMkdirAll, "/Sources/KJ/G", os.ErrPermission)

	dir, created, err := provision.Ensure(fsys, "G", "/Sources/KJ")
	require.Error(t, err)
	assert.False(t, created)
	assert.Equal(t, "/Sources/KJ/G", dir)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDirCreate))
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestEnsure_InMemory(t *testing.T) {
	fsys := testutil.NewMemoryFS()

	_, created, err := provision.Ensure(fsys, "G", "/Sources/KJ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"/Sources/KJ", "/Sources/KJ/G"}, fsys.Paths("/Sources"))

	_, created, err = provision.Ensure(fsys, "G", "/Sources/KJ")
	require.NoError(t, err)
	assert.False(t, created)
}
