package mirror

import (
	"path/filepath"
)

// builtinRemap holds the destination renames every run applies.
var builtinRemap = map[string]string{
	"main.h":   "kmain.h",
	"main.c++": "kmain.c++",
}

// RemapTable substitutes exact base file names on the destination side of
// a link. The zero value maps nothing. A table cannot be modified after it
// is built.
type RemapTable struct {
	names map[string]string
}

// DefaultRemapTable returns the built-in table.
func DefaultRemapTable() RemapTable {
	return NewRemapTable(nil)
}

// NewRemapTable returns the built-in table extended with extra. Entries in
// extra replace built-ins with the same name.
func NewRemapTable(extra map[string]string) RemapTable {
	names := make(map[string]string, len(builtinRemap)+len(extra))
	for from, to := range builtinRemap {
		names[from] = to
	}
	for from, to := range extra {
		names[from] = to
	}
	return RemapTable{names: names}
}

// Lookup returns the replacement for base, if there is one.
func (t RemapTable) Lookup(base string) (string, bool) {
	to, ok := t.names[base]
	return to, ok
}

// MapPath applies the table to the final component of ref only.
func (t RemapTable) MapPath(ref string) (string, bool) {
	to, ok := t.Lookup(filepath.Base(ref))
	if !ok {
		return ref, false
	}
	return filepath.Join(filepath.Dir(ref), to), true
}

// Len returns the number of entries.
func (t RemapTable) Len() int {
	return len(t.names)
}
