package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	gofs "io/fs"

	"go.modrun.dev/core/fs"
	"go.modrun.dev/core/vpath"
)

// OSAdapter implements Adapter over a real directory on disk. When used
// with a non-empty project name, files live under <Root>/projects/<project>,
// matching the multi-project virtual layout a browser-hosted store would
// use. A CLI run against a single real checkout passes an empty project
// name, in which case Root itself is the project root with no extra
// indirection.
type OSAdapter struct {
	fsys fs.FileSystem
	root string
}

// NewOSAdapter creates an adapter rooted at root. When callers pass a
// non-empty project to its methods, root should be the directory that
// contains a "projects" subdirectory, matching the virtual layout
// "/projects/<projectName>"; callers driving a single real directory (the
// CLI) pass an empty project and root is used directly.
func NewOSAdapter(root string) *OSAdapter {
	return &OSAdapter{fsys: fs.NewOSFileSystem(), root: root}
}

func (a *OSAdapter) realPath(project, appPath string) string {
	base := a.root
	if project != "" {
		base = filepath.Join(a.root, "projects", project)
	}
	return filepath.Join(base, filepath.FromSlash(vpath.ToAppPath(appPath)))
}

// Read implements Adapter.
func (a *OSAdapter) Read(project, appPath string) (*VirtualFile, error) {
	real := a.realPath(project, appPath)
	info, err := a.fsys.Stat(real)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, appPath)
		}
		return nil, err
	}
	if info.IsDir() {
		return &VirtualFile{Path: vpath.ToAppPath(appPath), Type: Folder}, nil
	}
	data, err := a.fsys.ReadFile(real)
	if err != nil {
		return nil, err
	}
	vf := &VirtualFile{Path: vpath.ToAppPath(appPath), Type: File}
	if isBinary(data) {
		vf.IsBinary = true
		vf.Binary = data
	} else {
		vf.Content = string(data)
	}
	return vf, nil
}

// ListByPrefix implements Adapter.
func (a *OSAdapter) ListByPrefix(project, prefix string) ([]*VirtualFile, error) {
	root := a.realPath(project, prefix)
	base := a.root
	if project != "" {
		base = filepath.Join(a.root, "projects", project)
	}
	var out []*VirtualFile
	err := filepathWalk(a.fsys, root, func(real string, d gofs.DirEntry) error {
		rel, err := filepath.Rel(base, real)
		if err != nil {
			return err
		}
		appPath := vpath.ToAppPath(filepath.ToSlash(rel))
		if d.IsDir() {
			out = append(out, &VirtualFile{Path: appPath, Type: Folder})
			return nil
		}
		data, err := a.fsys.ReadFile(real)
		if err != nil {
			return err
		}
		vf := &VirtualFile{Path: appPath, Type: File}
		if isBinary(data) {
			vf.IsBinary = true
			vf.Binary = data
		} else {
			vf.Content = string(data)
		}
		out = append(out, vf)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

// Exists implements Adapter.
func (a *OSAdapter) Exists(project, appPath string) (bool, error) {
	return a.fsys.Exists(a.realPath(project, appPath)), nil
}

// WriteFile implements Adapter.
func (a *OSAdapter) WriteFile(project, appPath string, content []byte) error {
	real := a.realPath(project, appPath)
	if err := a.fsys.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return err
	}
	return a.fsys.WriteFile(real, content, 0o644)
}

// Remove implements Adapter.
func (a *OSAdapter) Remove(project, appPath string) error {
	return a.fsys.Remove(a.realPath(project, appPath))
}

// isBinary applies the same crude-but-cheap heuristic most editors use: a
// NUL byte or invalid UTF-8 in the first chunk marks content as binary.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	if bytes.IndexByte(probe, 0) != -1 {
		return true
	}
	return !utf8.Valid(probe)
}

// filepathWalk walks real using the FileSystem abstraction rather than
// os.* directly, so OSAdapter stays testable against fake FileSystem
// implementations.
func filepathWalk(fsys fs.FileSystem, root string, fn func(path string, d gofs.DirEntry) error) error {
	info, err := fsys.Stat(root)
	if err != nil {
		return err
	}
	return walkRec(fsys, root, dirEntryFromInfo(info), fn)
}

func walkRec(fsys fs.FileSystem, path string, d gofs.DirEntry, fn func(string, gofs.DirEntry) error) error {
	if err := fn(path, d); err != nil {
		return err
	}
	if !d.IsDir() {
		return nil
	}
	entries, err := fsys.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := walkRec(fsys, filepath.Join(path, e.Name()), e, fn); err != nil {
			return err
		}
	}
	return nil
}

type dirEntryFromInfoType struct{ gofs.FileInfo }

func (d dirEntryFromInfoType) Type() gofs.FileMode          { return d.FileInfo.Mode().Type() }
func (d dirEntryFromInfoType) Info() (gofs.FileInfo, error) { return d.FileInfo, nil }

func dirEntryFromInfo(info gofs.FileInfo) gofs.DirEntry {
	return dirEntryFromInfoType{info}
}
