// Package normalize filters raw references down to those that name an
// existing file relative to a base directory.
package normalize

import (
	"path/filepath"

	"github.com/arthur-debert/mkincludes/pkg/logging"
	"github.com/arthur-debert/mkincludes/pkg/types"
)

// Resolve joins ref onto baseDir and cleans the result. Absolute references
// are returned cleaned and unchanged otherwise.
func Resolve(baseDir, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(baseDir, ref)
}

// Paths returns, in their original order, the refs that resolve against
// baseDir to an existing regular file. Symlinks are followed. Everything
// else is dropped silently.
func Paths(fsys types.FS, refs []string, baseDir string) []string {
	logger := logging.GetLogger("normalize")

	kept := make([]string, 0, len(refs))
	for _, ref := range refs {
		resolved := Resolve(baseDir, ref)
		info, err := fsys.Stat(resolved)
		if err != nil || !info.Mode().IsRegular() {
			logger.Debug().Str("ref", ref).Str("resolved", resolved).Msg("Dropping reference without a file")
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}
