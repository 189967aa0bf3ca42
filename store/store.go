// Package store provides the file-store adapter the core consumes (and, for
// the artifact cache, writes through). It is intentionally a thin interface:
// the actual persistent storage engine lives outside this module, so this
// package only defines the contract and ships two implementations, an
// in-memory one for tests and the WASM bridge, and an OS-backed one for the
// CLI.
package store

import (
	"errors"
	"io/fs"
)

// FileType distinguishes virtual files from folders.
type FileType int

const (
	// File is a regular virtual file.
	File FileType = iota
	// Folder is a virtual directory.
	Folder
)

// VirtualFile is a file or folder in the virtual project tree. Binary files
// carry their content in Binary rather than Content and are not evaluable
// by the loader.
type VirtualFile struct {
	ID       string
	Path     string
	Type     FileType
	Content  string
	IsBinary bool
	Binary   []byte
}

// ErrNotFound is returned by Read and by Stat-like lookups when the path
// does not exist in the store.
var ErrNotFound = errors.New("store: not found")

// Adapter is the read-only (from the core's perspective) view over the
// external persistent store, plus the write operations the artifact cache
// uses to persist transpile output.
type Adapter interface {
	// Read fetches the file at the exact project-relative path. Returns
	// ErrNotFound if it does not exist.
	Read(project, appPath string) (*VirtualFile, error)

	// ListByPrefix returns every file and folder whose path is at or below
	// prefix.
	ListByPrefix(project, prefix string) ([]*VirtualFile, error)

	// Exists reports whether appPath exists in the store.
	Exists(project, appPath string) (bool, error)

	// WriteFile creates or overwrites a file used only by the artifact
	// cache to persist transpiled code and metadata blobs.
	WriteFile(project, appPath string, content []byte) error

	// Remove deletes a file, used by cache eviction and invalidation.
	Remove(project, appPath string) error
}

// IsNotFound reports whether err wraps ErrNotFound or an fs.ErrNotExist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
