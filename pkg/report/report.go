// Package report prints the console messages of a mirroring run.
//
// Every non-fatal condition (a missing configuration file, a link that
// already exists, a link that could not be created) is surfaced here and
// only here; none of them changes the exit status.
package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/mirror"
)

// Reporter writes human-readable progress lines to an output stream.
type Reporter struct {
	w      io.Writer
	styles styles
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

// FileNotFound reports a configuration file that does not exist.
func (r *Reporter) FileNotFound(path string) {
	r.printf("%s %s", r.styles.warning.Render("File not found:"), r.styles.path.Render(path))
}

// CreatingSubdirectory reports a group directory being created under root.
func (r *Reporter) CreatingSubdirectory(group, root string) {
	r.printf("%s %s at %s", r.styles.info.Render("creating subdirectory"), group, r.styles.path.Render(root))
}

// ProvisionFailed reports a group directory that could not be created.
func (r *Reporter) ProvisionFailed(group string, err error) {
	r.printf("%s %s: %v", r.styles.failure.Render("Failed to create subdirectory for"), group, cause(err))
}

// MirroringGroup announces the links about to be made from srcDir into destDir.
func (r *Reporter) MirroringGroup(destDir, srcDir string) {
	r.printf("%s %s, %s", r.styles.info.Render("creating symlinks for headers in:"), r.styles.path.Render(destDir), r.styles.path.Render(srcDir))
}

// Link reports the outcome of one link.
func (r *Reporter) Link(res mirror.Result) {
	if res.Remapped {
		r.printf("%s %s to %s", r.styles.muted.Render("mapping"), filepath.Base(res.Ref), filepath.Base(res.Dest))
	}

	switch res.Status {
	case mirror.StatusCreated:
		r.printf("%s %s -> %s", r.styles.success.Render("Created symlink:"), res.Target, r.styles.path.Render(res.Dest))
	case mirror.StatusExists:
		if res.Existing != "" && res.Existing != res.Target {
			r.printf("%s %s (points to %s, not %s)", r.styles.warning.Render("Symlink already exists:"), r.styles.path.Render(res.Dest), res.Existing, res.Target)
			return
		}
		r.printf("%s %s", r.styles.muted.Render("Symlink already exists:"), r.styles.path.Render(res.Dest))
	case mirror.StatusPlanned:
		r.printf("%s %s -> %s", r.styles.info.Render("Would create symlink:"), res.Target, r.styles.path.Render(res.Dest))
	case mirror.StatusFailed:
		r.printf("%s %s -> %s: %v", r.styles.failure.Render("Failed to create symlink:"), res.Target, r.styles.path.Render(res.Dest), cause(res.Err))
	}
}

// Summary prints totals for the whole run.
func (r *Reporter) Summary(groups int, counts map[mirror.Status]int) {
	r.printf("%s %d group(s): %d created, %d already present, %d failed, %d planned",
		r.styles.info.Render("Processed"),
		groups,
		counts[mirror.StatusCreated],
		counts[mirror.StatusExists],
		counts[mirror.StatusFailed],
		counts[mirror.StatusPlanned],
	)
}

// cause strips the coded wrapper so the underlying system message is shown.
func cause(err error) error {
	var coded *errors.Error
	if errors.As(err, &coded) && coded.Wrapped != nil {
		return coded.Wrapped
	}
	return err
}
