// Package provision creates the per-group destination directories under an
// include root.
package provision

import (
	"path/filepath"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/types"
)

// DirPerm is the mode used for every directory mkincludes creates.
const DirPerm = 0755

// Ensure makes sure root/group exists as a directory, creating missing
// parents. It returns the directory path and whether anything was created.
// Calling it again with the same arguments is a no-op.
func Ensure(fsys types.FS, group, root string) (string, bool, error) {
	dir := filepath.Join(root, group)

	if info, err := fsys.Stat(dir); err == nil {
		if !info.IsDir() {
			return dir, false, errors.Newf(errors.ErrDirCreate, "%s exists and is not a directory", dir).
				WithDetail("group", group)
		}
		return dir, false, nil
	}

	if err := fsys.MkdirAll(dir, DirPerm); err != nil {
		return dir, false, errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", dir).
			WithDetail("group", group)
	}
	return dir, true, nil
}
