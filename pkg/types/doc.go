// Package types defines the core types and interfaces shared by the
// mkincludes stages: the filesystem abstraction every stage performs I/O
// through, and the ordered Groups collection produced by the extractor.
package types
