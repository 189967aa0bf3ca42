package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.modrun.dev/core/vpath"
)

// Memory is an in-memory Adapter, used by tests and by the WASM bridge
// (whose host populates it from a browser-side persistent store before
// calling Execute).
type Memory struct {
	mu    sync.RWMutex
	files map[string]map[string]*VirtualFile // project -> appPath -> file
	seq   int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]map[string]*VirtualFile)}
}

func (m *Memory) projectFiles(project string) map[string]*VirtualFile {
	pf, ok := m.files[project]
	if !ok {
		pf = make(map[string]*VirtualFile)
		m.files[project] = pf
	}
	return pf
}

// AddFile seeds a text file into the store, creating implied parent
// folders. Intended for test fixtures.
func (m *Memory) AddFile(project, appPath, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appPath = vpath.ToAppPath(appPath)
	m.ensureParents(project, appPath)
	m.seq++
	m.projectFiles(project)[appPath] = &VirtualFile{
		ID:      fmt.Sprintf("f%d", m.seq),
		Path:    appPath,
		Type:    File,
		Content: content,
	}
}

// AddBinaryFile seeds a binary file, which the loader must refuse to
// evaluate.
func (m *Memory) AddBinaryFile(project, appPath string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appPath = vpath.ToAppPath(appPath)
	m.ensureParents(project, appPath)
	m.seq++
	m.projectFiles(project)[appPath] = &VirtualFile{
		ID:       fmt.Sprintf("f%d", m.seq),
		Path:     appPath,
		Type:     File,
		IsBinary: true,
		Binary:   data,
	}
}

// AddFolder seeds an explicit folder entry. Folders are also implied by any
// file underneath them, so this is only needed for empty folders.
func (m *Memory) AddFolder(project, appPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appPath = vpath.ToAppPath(appPath)
	m.seq++
	m.projectFiles(project)[appPath] = &VirtualFile{
		ID:   fmt.Sprintf("d%d", m.seq),
		Path: appPath,
		Type: Folder,
	}
}

func (m *Memory) ensureParents(project, appPath string) {
	dir := vpath.Dirname(appPath)
	for dir != "/" {
		if _, ok := m.projectFiles(project)[dir]; !ok {
			m.seq++
			m.projectFiles(project)[dir] = &VirtualFile{
				ID:   fmt.Sprintf("d%d", m.seq),
				Path: dir,
				Type: Folder,
			}
		}
		dir = vpath.Dirname(dir)
	}
}

// Read implements Adapter.
func (m *Memory) Read(project, appPath string) (*VirtualFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.projectFiles(project)[vpath.ToAppPath(appPath)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, appPath)
	}
	clone := *f
	return &clone, nil
}

// ListByPrefix implements Adapter.
func (m *Memory) ListByPrefix(project, prefix string) ([]*VirtualFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix = vpath.ToAppPath(prefix)
	var out []*VirtualFile
	for p, f := range m.projectFiles(project) {
		if vpath.HasPrefix(p, prefix) {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Exists implements Adapter.
func (m *Memory) Exists(project, appPath string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.projectFiles(project)[vpath.ToAppPath(appPath)]
	return ok, nil
}

// WriteFile implements Adapter.
func (m *Memory) WriteFile(project, appPath string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appPath = vpath.ToAppPath(appPath)
	m.ensureParents(project, appPath)
	existing, ok := m.projectFiles(project)[appPath]
	id := ""
	if ok {
		id = existing.ID
	} else {
		m.seq++
		id = fmt.Sprintf("f%d", m.seq)
	}
	m.projectFiles(project)[appPath] = &VirtualFile{
		ID:      id,
		Path:    appPath,
		Type:    File,
		Content: string(content),
	}
	return nil
}

// Remove implements Adapter.
func (m *Memory) Remove(project, appPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appPath = vpath.ToAppPath(appPath)
	delete(m.projectFiles(project), appPath)
	return nil
}

// Snapshot returns a debug-friendly sorted list of all paths in a project,
// used by tests to assert store contents without depending on map order.
func (m *Memory) Snapshot(project string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.projectFiles(project)))
	for p := range m.projectFiles(project) {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// HasPathUnder reports whether any stored path for project sits at or below
// prefix — a small helper used by the modcache tests.
func (m *Memory) HasPathUnder(project, prefix string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix = vpath.ToAppPath(prefix)
	for p := range m.projectFiles(project) {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
