// Package pipeline runs the mkincludes stages in order:
// extract -> (per group) normalize -> provision -> mirror.
//
// The normalized reference list only decides whether a group is processed
// at all. The mirror is always handed the group's raw references, so a
// reference whose file is missing still gets a (dangling) link as long as
// one other reference in the group exists.
package pipeline

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/extract"
	"github.com/arthur-debert/mkincludes/pkg/logging"
	"github.com/arthur-debert/mkincludes/pkg/mirror"
	"github.com/arthur-debert/mkincludes/pkg/normalize"
	"github.com/arthur-debert/mkincludes/pkg/provision"
	"github.com/arthur-debert/mkincludes/pkg/report"
	"github.com/arthur-debert/mkincludes/pkg/types"
)

// Options describes one run.
type Options struct {
	// BuildFile is the configuration file to scan, e.g. c++/CMakeLists.txt.
	BuildFile string
	// Extension is the reference extension without the leading dot.
	Extension string
	// IncludeRoot receives one subdirectory per group.
	IncludeRoot string
	// Subdir, when non-empty, is inserted between the group directory and
	// the mirrored references.
	Subdir string
	// Keywords open a group. Empty means extract.DefaultKeywords.
	Keywords []string
	// Exclude lists doublestar patterns; matching references are dropped
	// before normalization.
	Exclude []string
	// Remap is applied to destination file names. The zero value maps
	// nothing; callers normally pass mirror.DefaultRemapTable().
	Remap mirror.RemapTable
	// DryRun plans links without creating directories or links.
	DryRun bool
}

// GroupResult records what happened to one group.
type GroupResult struct {
	Name       string
	Refs       []string
	Excluded   []string
	Normalized []string
	// Dir is the provisioned group directory; empty when skipped.
	Dir     string
	Skipped bool
	Err     error
	Links   []mirror.Result
}

// Summary is the outcome of a run.
type Summary struct {
	BuildFileFound bool
	Groups         []GroupResult
}

// Counts tallies link outcomes over every group.
func (s *Summary) Counts() map[mirror.Status]int {
	var all []mirror.Result
	for _, g := range s.Groups {
		all = append(all, g.Links...)
	}
	return mirror.Counts(all)
}

// IncludeRoot returns workDir/sourcesDir/root.
func IncludeRoot(workDir, sourcesDir, root string) string {
	return filepath.Join(workDir, sourcesDir, root)
}

// Run executes the stages. Per-group and per-link failures are reported and
// recorded in the Summary; only problems that stop the scan itself are
// returned as errors.
func Run(fsys types.FS, opts Options, rep *report.Reporter) (*Summary, error) {
	logger := logging.GetLogger("pipeline")
	done := logging.LogOperationStart(logger, "run")
	defer done()

	keywords := opts.Keywords
	if len(keywords) == 0 {
		keywords = extract.DefaultKeywords
	}
	extractor, err := extract.New(keywords)
	if err != nil {
		return nil, err
	}

	summary := &Summary{BuildFileFound: true}

	groups, err := extractor.Extract(fsys, opts.BuildFile, opts.Extension)
	if err != nil {
		if !errors.IsErrorCode(err, errors.ErrFileNotFound) {
			return nil, err
		}
		summary.BuildFileFound = false
		rep.FileNotFound(opts.BuildFile)
		logger.Warn().Str("path", opts.BuildFile).Msg("Build file not found, nothing to do")
	}

	srcDir := filepath.Dir(opts.BuildFile)
	logger.Info().
		Str("buildFile", opts.BuildFile).
		Str("includeRoot", opts.IncludeRoot).
		Int("groups", groups.Len()).
		Bool("dryRun", opts.DryRun).
		Msg("Scanned build file")

	for _, name := range groups.Names() {
		summary.Groups = append(summary.Groups, runGroup(fsys, opts, rep, srcDir, name, groups.Refs(name)))
	}

	rep.Summary(len(summary.Groups), summary.Counts())
	return summary, nil
}

func runGroup(fsys types.FS, opts Options, rep *report.Reporter, srcDir, name string, refs []string) GroupResult {
	logger := logging.GetLogger("pipeline").With().Str("group", name).Logger()
	result := GroupResult{Name: name}

	result.Refs, result.Excluded = exclude(refs, opts.Exclude)
	if len(result.Excluded) > 0 {
		logger.Debug().Strs("excluded", result.Excluded).Msg("References excluded")
	}

	result.Normalized = normalize.Paths(fsys, result.Refs, srcDir)
	if len(result.Normalized) == 0 {
		logger.Debug().Int("refs", len(result.Refs)).Msg("No existing references, skipping group")
		result.Skipped = true
		return result
	}

	destDir := filepath.Join(opts.IncludeRoot, name, opts.Subdir)

	if opts.DryRun {
		result.Dir = filepath.Join(opts.IncludeRoot, name)
		rep.MirroringGroup(destDir, srcDir)
		result.Links = mirror.Plan(result.Refs, destDir, srcDir, opts.Remap)
	} else {
		dir, created, err := provision.Ensure(fsys, name, opts.IncludeRoot)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to provision group directory")
			rep.ProvisionFailed(name, err)
			result.Skipped = true
			result.Err = err
			return result
		}
		if created {
			rep.CreatingSubdirectory(name, opts.IncludeRoot)
		}
		result.Dir = dir

		rep.MirroringGroup(destDir, srcDir)
		result.Links = mirror.Mirror(fsys, result.Refs, destDir, srcDir, opts.Remap)
	}

	for _, link := range result.Links {
		rep.Link(link)
	}
	return result
}

// exclude splits refs into those kept and those matching any pattern.
func exclude(refs, patterns []string) (kept, dropped []string) {
	if len(patterns) == 0 {
		return refs, nil
	}
	kept = make([]string, 0, len(refs))
	for _, ref := range refs {
		if matchesAny(filepath.ToSlash(ref), patterns) {
			dropped = append(dropped, ref)
			continue
		}
		kept = append(kept, ref)
	}
	return kept, dropped
}

func matchesAny(ref string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, ref); err == nil && ok {
			return true
		}
	}
	return false
}
