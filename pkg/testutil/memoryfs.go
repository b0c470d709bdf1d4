package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxLinkHops bounds symlink resolution in Stat and ReadFile.
const maxLinkHops = 40

// Op names an FS method for error injection.
type Op string

const (
	OpStat     Op = "stat"
	OpLstat    Op = "lstat"
	OpReadFile Op = "readfile"
	OpMkdirAll Op = "mkdirall"
	OpSymlink  Op = "symlink"
	OpReadlink Op = "readlink"
)

// MemoryFS implements types.FS with in-memory storage. Paths are absolute
// after cleaning; relative paths are taken relative to "/".
type MemoryFS struct {
	mu    sync.RWMutex
	nodes map[string]*node

	// Error injection, keyed by operation then cleaned path
	errs map[Op]map[string]error
}

type node struct {
	mode     fs.FileMode
	modTime  time.Time
	content  []byte
	linkDest string
}

// NewMemoryFS creates an empty filesystem containing only "/".
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		nodes: map[string]*node{"/": {mode: fs.ModeDir | 0755, modTime: time.Now()}},
		errs:  make(map[Op]map[string]error),
	}
}

func clean(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join("/", path)
	}
	return filepath.Clean(path)
}

// WithError makes op fail with err for path.
func (m *MemoryFS) WithError(op Op, path string, err error) *MemoryFS {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errs[op] == nil {
		m.errs[op] = make(map[string]error)
	}
	m.errs[op][clean(path)] = err
	return m
}

func (m *MemoryFS) injected(op Op, path string) error {
	if byPath, ok := m.errs[op]; ok {
		return byPath[path]
	}
	return nil
}

// WriteFile stores a regular file, creating parent directories.
func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := clean(name)
	if err := m.mkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if n, ok := m.nodes[path]; ok && n.mode.IsDir() {
		return &fs.PathError{Op: "write", Path: name, Err: errors.New("is a directory")}
	}
	content := make([]byte, len(data))
	copy(content, data)
	m.nodes[path] = &node{mode: perm.Perm(), modTime: time.Now(), content: content}
	return nil
}

// resolve follows symlinks until a non-link node is reached.
func (m *MemoryFS) resolve(op, path string) (string, *node, error) {
	for hops := 0; hops < maxLinkHops; hops++ {
		n, ok := m.nodes[path]
		if !ok {
			return path, nil, &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
		}
		if n.mode&fs.ModeSymlink == 0 {
			return path, n, nil
		}
		target := n.linkDest
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		path = filepath.Clean(target)
	}
	return path, nil, &fs.PathError{Op: op, Path: path, Err: errors.New("too many levels of symbolic links")}
}

// Stat returns file info, following symlinks.
func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := clean(name)
	if err := m.injected(OpStat, path); err != nil {
		return nil, err
	}
	_, n, err := m.resolve("stat", path)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: filepath.Base(path), node: n}, nil
}

// Lstat returns file info without following a final symlink.
func (m *MemoryFS) Lstat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := clean(name)
	if err := m.injected(OpLstat, path); err != nil {
		return nil, err
	}
	n, ok := m.nodes[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrNotExist}
	}
	return &fileInfo{name: filepath.Base(path), node: n}, nil
}

// ReadFile returns a copy of the file content, following symlinks.
func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := clean(name)
	if err := m.injected(OpReadFile, path); err != nil {
		return nil, err
	}
	_, n, err := m.resolve("open", path)
	if err != nil {
		return nil, err
	}
	if n.mode.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errors.New("is a directory")}
	}
	content := make([]byte, len(n.content))
	copy(content, n.content)
	return content, nil
}

// MkdirAll creates a directory and all missing parents.
func (m *MemoryFS) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mkdirAll(clean(path), perm)
}

func (m *MemoryFS) mkdirAll(path string, perm fs.FileMode) error {
	if err := m.injected(OpMkdirAll, path); err != nil {
		return err
	}
	if _, ok := m.nodes[path]; ok {
		if _, target, err := m.resolve("mkdir", path); err == nil && target.mode.IsDir() {
			return nil
		}
		return &fs.PathError{Op: "mkdir", Path: path, Err: errors.New("not a directory")}
	}
	if parent := filepath.Dir(path); parent != path {
		if err := m.mkdirAll(parent, perm); err != nil {
			return err
		}
	}
	m.nodes[path] = &node{mode: fs.ModeDir | perm.Perm(), modTime: time.Now()}
	return nil
}

// Symlink creates newname pointing at oldname. The target is stored verbatim.
func (m *MemoryFS) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := clean(newname)
	if err := m.injected(OpSymlink, path); err != nil {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: err}
	}
	if _, ok := m.nodes[path]; ok {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: fs.ErrExist}
	}
	if _, parent, err := m.resolve("symlink", filepath.Dir(path)); err != nil || !parent.mode.IsDir() {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: fs.ErrNotExist}
	}
	m.nodes[path] = &node{mode: fs.ModeSymlink | 0777, modTime: time.Now(), linkDest: oldname}
	return nil
}

// Readlink returns the stored target of a symlink.
func (m *MemoryFS) Readlink(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := clean(name)
	if err := m.injected(OpReadlink, path); err != nil {
		return "", err
	}
	n, ok := m.nodes[path]
	if !ok {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrNotExist}
	}
	if n.mode&fs.ModeSymlink == 0 {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: errors.New("invalid argument")}
	}
	return n.linkDest, nil
}

// Paths lists every path under root (root excluded), sorted.
func (m *MemoryFS) Paths(root string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root = clean(root)
	prefix := strings.TrimSuffix(root, "/") + "/"
	var out []string
	for p := range m.nodes {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

type fileInfo struct {
	name string
	node *node
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(len(fi.node.content)) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.node.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.node.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.node.mode.IsDir() }
func (fi *fileInfo) Sys() interface{}   { return nil }
