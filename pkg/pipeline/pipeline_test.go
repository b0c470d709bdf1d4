// pkg/pipeline/pipeline_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Real filesystem (temp dirs and symlinks)
// PURPOSE: Test the end-to-end data flow between the stages

package pipeline_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/filesystem"
	"github.com/arthur-debert/mkincludes/pkg/mirror"
	"github.com/arthur-debert/mkincludes/pkg/pipeline"
	"github.com/arthur-debert/mkincludes/pkg/report"
	"github.com/arthur-debert/mkincludes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooCMake = `set(FOO_HEADERS
  a/x.h
  a/y.h
)
`

type project struct {
	root      string
	buildFile string
	include   string
}

func newProject(t *testing.T, cmake string, files ...string) project {
	t.Helper()
	root := t.TempDir()
	p := project{
		root:      root,
		buildFile: filepath.Join(root, "c++", "CMakeLists.txt"),
		include:   pipeline.IncludeRoot(root, "Sources", "KJ"),
	}
	testutil.WriteFile(t, p.buildFile, cmake)
	for _, f := range files {
		testutil.WriteFile(t, filepath.Join(root, "c++", f), "// "+f)
	}
	return p
}

func (p project) options() pipeline.Options {
	return pipeline.Options{
		BuildFile:   p.buildFile,
		Extension:   "h",
		IncludeRoot: p.include,
		Remap:       mirror.DefaultRemapTable(),
	}
}

func run(t *testing.T, opts pipeline.Options) (*pipeline.Summary, string) {
	t.Helper()
	var buf bytes.Buffer
	summary, err := pipeline.Run(filesystem.NewOS(), opts, report.New(&buf))
	require.NoError(t, err)
	return summary, buf.String()
}

func TestRun_MirrorsGroup(t *testing.T) {
	p := newProject(t, fooCMake, "a/x.h", "a/y.h")

	summary, out := run(t, p.options())

	require.Len(t, summary.Groups, 1)
	g := summary.Groups[0]
	assert.Equal(t, "FOO_HEADERS", g.Name)
	assert.Equal(t, []string{"a/x.h", "a/y.h"}, g.Refs)
	assert.Equal(t, []string{"a/x.h", "a/y.h"}, g.Normalized)
	assert.Equal(t, filepath.Join(p.include, "FOO_HEADERS"), g.Dir)

	for _, ref := range []string{"a/x.h", "a/y.h"} {
		content, err := os.ReadFile(filepath.Join(p.include, "FOO_HEADERS", ref))
		require.NoError(t, err)
		assert.Equal(t, "// "+ref, string(content))
	}
	assert.Contains(t, out, "creating subdirectory FOO_HEADERS at "+p.include)
	assert.Equal(t, 2, summary.Counts()[mirror.StatusCreated])
}

func TestRun_MirrorReceivesRawReferences(t *testing.T) {
	p := newProject(t, fooCMake, "a/x.h")

	summary, _ := run(t, p.options())

	require.Len(t, summary.Groups, 1)
	g := summary.Groups[0]
	assert.Equal(t, []string{"a/x.h"}, g.Normalized)
	require.Len(t, g.Links, 2)
	assert.Equal(t, "a/x.h", g.Links[0].Ref)
	assert.Equal(t, "a/y.h", g.Links[1].Ref)
	assert.Equal(t, mirror.StatusCreated, g.Links[1].Status)

	dangling := filepath.Join(p.include, "FOO_HEADERS", "a", "y.h")
	info, err := os.Lstat(dangling)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
	_, err = os.Stat(dangling)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_GroupWithoutExistingFilesIsSkipped(t *testing.T) {
	p := newProject(t, `set(GHOST
  gone.h
)
set(REAL
  real.h
)
`, "real.h")

	summary, _ := run(t, p.options())

	require.Len(t, summary.Groups, 2)
	assert.True(t, summary.Groups[0].Skipped)
	assert.Empty(t, summary.Groups[0].Links)
	assert.False(t, summary.Groups[1].Skipped)

	_, err := os.Stat(filepath.Join(p.include, "GHOST"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MissingBuildFile(t *testing.T) {
	root := t.TempDir()
	opts := pipeline.Options{
		BuildFile:   filepath.Join(root, "nope", "CMakeLists.txt"),
		Extension:   "h",
		IncludeRoot: filepath.Join(root, "Sources", "KJ"),
	}

	summary, out := run(t, opts)

	assert.False(t, summary.BuildFileFound)
	assert.Empty(t, summary.Groups)
	assert.Contains(t, out, "File not found: "+opts.BuildFile)
	_, err := os.Stat(filepath.Join(root, "Sources"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RemapScenario(t *testing.T) {
	p := newProject(t, `add_executable(capnp_tool
  tool/main.h
)
`, "tool/main.h")

	summary, out := run(t, p.options())

	dest := filepath.Join(p.include, "capnp_tool", "tool", "kmain.h")
	target, err := os.Readlink(dest)
	require.NoError(t, err)
	assert.Equal(t, "main.h", filepath.Base(target))
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "// tool/main.h", string(content))
	assert.Contains(t, out, "mapping main.h to kmain.h")
	assert.True(t, summary.Groups[0].Links[0].Remapped)
}

func TestRun_Subdir(t *testing.T) {
	p := newProject(t, fooCMake, "a/x.h", "a/y.h")
	opts := p.options()
	opts.Subdir = "kj"

	summary, _ := run(t, opts)

	assert.Equal(t, filepath.Join(p.include, "FOO_HEADERS"), summary.Groups[0].Dir)
	_, err := os.ReadFile(filepath.Join(p.include, "FOO_HEADERS", "kj", "a", "x.h"))
	assert.NoError(t, err)
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	p := newProject(t, fooCMake, "a/x.h", "a/y.h")

	run(t, p.options())
	summary, out := run(t, p.options())

	counts := summary.Counts()
	assert.Equal(t, 2, counts[mirror.StatusExists])
	assert.Zero(t, counts[mirror.StatusCreated])
	assert.Zero(t, counts[mirror.StatusFailed])
	assert.NotContains(t, out, "creating subdirectory")
	assert.Contains(t, out, "Symlink already exists: "+filepath.Join(p.include, "FOO_HEADERS", "a", "x.h"))
}

func TestRun_DryRun(t *testing.T) {
	p := newProject(t, fooCMake, "a/x.h", "a/y.h")
	opts := p.options()
	opts.DryRun = true

	summary, out := run(t, opts)

	assert.Equal(t, 2, summary.Counts()[mirror.StatusPlanned])
	assert.Contains(t, out, "Would create symlink:")
	_, err := os.Stat(filepath.Join(p.root, "Sources"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Exclude(t *testing.T) {
	p := newProject(t, `set(H
  pub/api.h
  pub/internal/detail.h
)
`, "pub/api.h", "pub/internal/detail.h")
	opts := p.options()
	opts.Exclude = []string{"**/internal/**"}

	summary, _ := run(t, opts)

	g := summary.Groups[0]
	assert.Equal(t, []string{"pub/api.h"}, g.Refs)
	assert.Equal(t, []string{"pub/internal/detail.h"}, g.Excluded)
	_, err := os.Lstat(filepath.Join(p.include, "H", "pub", "internal", "detail.h"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ProvisionFailureSkipsGroupOnly(t *testing.T) {
	p := newProject(t, `set(BLOCKED
  a.h
)
set(OK
  a.h
)
`, "a.h")
	require.NoError(t, os.MkdirAll(p.include, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.include, "BLOCKED"), nil, 0644))

	summary, out := run(t, p.options())

	require.Len(t, summary.Groups, 2)
	assert.True(t, summary.Groups[0].Skipped)
	assert.True(t, errors.IsErrorCode(summary.Groups[0].Err, errors.ErrDirCreate))
	assert.Contains(t, out, "Failed to create subdirectory for BLOCKED")
	assert.Equal(t, mirror.StatusCreated, summary.Groups[1].Links[0].Status)
}

func TestRun_EmptyExtensionMatchesTrailingDot(t *testing.T) {
	p := newProject(t, fooCMake, "a/x.h")
	opts := p.options()
	opts.Extension = ""

	summary, _ := run(t, opts)

	require.Len(t, summary.Groups, 1)
	assert.Equal(t, []string{"a/x.", "a/y."}, summary.Groups[0].Refs)
	assert.True(t, summary.Groups[0].Skipped)
}

func TestRun_LinkFailureIsPerReference(t *testing.T) {
	fsys := testutil.NewMemoryFS()
	testutil.MemFile(t, fsys, "/p/c++/CMakeLists.txt", fooCMake)
	testutil.MemFile(t, fsys, "/p/c++/a/x.h", "x")
	testutil.MemFile(t, fsys, "/p/c++/a/y.h", "y")
	fsys.WithError(testutil.OpSymlink, "/p/Sources/KJ/FOO_HEADERS/a/x.h", os.ErrPermission)

	var buf bytes.Buffer
	summary, err := pipeline.Run(fsys, pipeline.Options{
		BuildFile:   "/p/c++/CMakeLists.txt",
		Extension:   "h",
		IncludeRoot: "/p/Sources/KJ",
		Remap:       mirror.DefaultRemapTable(),
	}, report.New(&buf))
	require.NoError(t, err)

	links := summary.Groups[0].Links
	require.Len(t, links, 2)
	assert.Equal(t, mirror.StatusFailed, links[0].Status)
	assert.True(t, errors.IsErrorCode(links[0].Err, errors.ErrSymlinkCreate))
	assert.Equal(t, mirror.StatusCreated, links[1].Status)

	target, err := fsys.Readlink("/p/Sources/KJ/FOO_HEADERS/a/y.h")
	require.NoError(t, err)
	assert.Equal(t, "../../../../c++/a/y.h", target)
	assert.Contains(t, buf.String(), "Failed to create symlink:")
	assert.Contains(t, buf.String(), "1 failed")
}
