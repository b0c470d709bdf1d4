// Package testutil provides utilities for testing mkincludes components.
//
// Key components:
//   - MemoryFS: in-memory types.FS with symlinks and per-operation error injection
//   - FileTree: declarative directory layout written to a real temp directory
//   - ChdirTemp: runs a test inside a fresh working directory
//
// Usage guidelines:
//   - Stage logic (extract, normalize, provision) should prefer MemoryFS
//   - Symlink resolution through the kernel needs the real filesystem
//   - All test data should be defined inline, not in external files
package testutil
