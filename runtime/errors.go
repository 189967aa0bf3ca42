package runtime

import "fmt"

// CannotFindModuleError is returned when the resolver finds no candidate
// for a specifier, whether at entry-file resolution or from a require()
// call inside a module body.
type CannotFindModuleError struct {
	Spec     string
	FromFile string
	Err      error
}

func (e *CannotFindModuleError) Error() string {
	return fmt.Sprintf("cannot find module %q from %q: %v", e.Spec, e.FromFile, e.Err)
}

func (e *CannotFindModuleError) Unwrap() error { return e.Err }

// Specifier returns the specifier that could not be resolved.
func (e *CannotFindModuleError) Specifier() string { return e.Spec }

// NotPreloadedError is thrown into the module body when require() is
// called with a specifier that cannot be dispatched at all, such as an
// empty string.
type NotPreloadedError struct {
	Spec     string
	FromFile string
}

func (e *NotPreloadedError) Error() string {
	return fmt.Sprintf("require() cannot dispatch specifier %q (required from %q)", e.Spec, e.FromFile)
}

// Specifier returns the specifier require() could not dispatch.
func (e *NotPreloadedError) Specifier() string { return e.Spec }

// FileNotFoundError is returned when the store adapter has no file at a
// path the loader was told to read.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %q: %v", e.Path, e.Err)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// PathName returns the path that could not be read.
func (e *FileNotFoundError) PathName() string { return e.Path }

// BinaryNotExecutableError is returned when the load target is a binary
// file, which the loader can never evaluate.
type BinaryNotExecutableError struct {
	Path string
}

func (e *BinaryNotExecutableError) Error() string {
	return fmt.Sprintf("cannot execute binary file: %q", e.Path)
}

// PathName returns the binary path that was rejected.
func (e *BinaryNotExecutableError) PathName() string { return e.Path }

// TranspileError is returned when the transpiler driver's capability fails
// or times out for a path.
type TranspileError struct {
	Path string
	Err  error
}

func (e *TranspileError) Error() string {
	return fmt.Sprintf("failed to transpile %q: %v", e.Path, e.Err)
}

func (e *TranspileError) Unwrap() error { return e.Err }

// PathName returns the path whose transpile failed.
func (e *TranspileError) PathName() string { return e.Path }
