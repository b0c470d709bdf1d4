// Package mirror creates relative symlinks that make source files
// reachable from a destination tree.
//
// Mirroring happens in two steps. Plan computes, without touching the
// filesystem, where each link goes and what it points at. Apply creates
// the planned links one by one. A link that already exists counts as done;
// any other failure is recorded on that reference alone and the remaining
// references are still processed.
package mirror

import (
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/logging"
	"github.com/arthur-debert/mkincludes/pkg/normalize"
	"github.com/arthur-debert/mkincludes/pkg/provision"
	"github.com/arthur-debert/mkincludes/pkg/types"
)

// Status is the outcome for one reference.
type Status int

const (
	// StatusPlanned means the link was computed but not created.
	StatusPlanned Status = iota
	// StatusCreated means a new symlink was made.
	StatusCreated
	// StatusExists means something was already at the destination.
	StatusExists
	// StatusFailed means the link could not be created; see Result.Err.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "planned"
	case StatusCreated:
		return "created"
	case StatusExists:
		return "exists"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Link describes one symlink to create.
type Link struct {
	// Ref is the raw reference the link was planned from.
	Ref string
	// Source is the absolute path of the original file.
	Source string
	// Dest is where the symlink goes.
	Dest string
	// Target is the symlink content, relative to Dest's directory.
	Target string
	// Remapped is set when Dest's base name came from the remap table.
	Remapped bool
}

// Result pairs a Link with its outcome.
type Result struct {
	Link
	Status Status
	Err    error
	// Existing is the target of the symlink found at Dest when Status is
	// StatusExists. It is empty when Dest is not a symlink.
	Existing string
}

// Plan computes the links for refs. Each source is refs resolved against
// srcDir; each destination is the ref, with its base name remapped, under
// destDir.
func Plan(refs []string, destDir, srcDir string, remap RemapTable) []Result {
	results := make([]Result, 0, len(refs))
	for _, ref := range refs {
		results = append(results, planOne(ref, destDir, srcDir, remap))
	}
	return results
}

func planOne(ref, destDir, srcDir string, remap RemapTable) Result {
	mapped, remapped := remap.MapPath(ref)
	link := Link{
		Ref:      ref,
		Dest:     filepath.Join(destDir, mapped),
		Remapped: remapped,
	}

	source, err := filepath.Abs(normalize.Resolve(srcDir, ref))
	if err != nil {
		return Result{Link: link, Status: StatusFailed, Err: errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot resolve source for %s", ref)}
	}
	link.Source = source

	destParent, err := filepath.Abs(filepath.Dir(link.Dest))
	if err != nil {
		return Result{Link: link, Status: StatusFailed, Err: errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot resolve destination for %s", ref)}
	}

	target, err := filepath.Rel(destParent, source)
	if err != nil {
		return Result{Link: link, Status: StatusFailed, Err: errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot relate %s to %s", source, destParent)}
	}
	link.Target = target

	return Result{Link: link, Status: StatusPlanned}
}

// Apply creates every planned link in order. Results that are not
// StatusPlanned are passed through untouched.
func Apply(fsys types.FS, planned []Result) []Result {
	logger := logging.GetLogger("mirror")

	results := make([]Result, len(planned))
	for i, res := range planned {
		if res.Status != StatusPlanned {
			results[i] = res
			continue
		}
		results[i] = applyOne(fsys, res.Link)
		logger.Debug().
			Str("dest", res.Dest).
			Str("target", res.Target).
			Stringer("status", results[i].Status).
			Msg("Link processed")
	}
	return results
}

func applyOne(fsys types.FS, link Link) Result {
	parent := filepath.Dir(link.Dest)
	if err := fsys.MkdirAll(parent, provision.DirPerm); err != nil {
		return Result{
			Link:   link,
			Status: StatusFailed,
			Err:    errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", parent),
		}
	}

	if err := fsys.Symlink(link.Target, link.Dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Result{Link: link, Status: StatusExists, Existing: existingTarget(fsys, link.Dest)}
		}
		return Result{
			Link:   link,
			Status: StatusFailed,
			Err: errors.Wrap(err, errors.ErrSymlinkCreate, "failed to create symlink").
				WithDetail("target", link.Target).
				WithDetail("dest", link.Dest),
		}
	}
	return Result{Link: link, Status: StatusCreated}
}

// existingTarget reads the symlink occupying dest, if there is one.
func existingTarget(fsys types.FS, dest string) string {
	info, err := fsys.Lstat(dest)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return ""
	}
	target, err := fsys.Readlink(dest)
	if err != nil {
		return ""
	}
	return target
}

// Mirror plans and applies links for refs in one go.
func Mirror(fsys types.FS, refs []string, destDir, srcDir string, remap RemapTable) []Result {
	return Apply(fsys, Plan(refs, destDir, srcDir, remap))
}

// Counts tallies results by status.
func Counts(results []Result) map[Status]int {
	counts := make(map[Status]int)
	for _, res := range results {
		counts[res.Status]++
	}
	return counts
}
