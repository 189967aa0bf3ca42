// Package modcache implements the persistent, content-addressed artifact
// cache that sits between the transpiler driver and the loader.
package modcache

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.modrun.dev/core/internal/rtlog"
	"go.modrun.dev/core/store"
	"go.modrun.dev/core/transpile"
	"go.modrun.dev/core/vpath"
)

const (
	cacheDir = "/cache/modules"
	metaDir  = "/cache/meta"

	// DefaultCeiling is the default total-size watermark ceiling in bytes
	//.
	DefaultCeiling int64 = 100 * 1024 * 1024

	// DefaultWatermark is the default fraction of the ceiling eviction
	// targets.
	DefaultWatermark = 0.7
)

// Cache is the artifact cache. It satisfies transpile.Cache so a Driver can
// use it directly, and exposes a richer get/set/invalidate/clear surface
// for direct callers (e.g. the loader invalidating on file edit).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	graph   *DependencyGraph

	store   store.Adapter
	project string

	Ceiling int64
	// Watermark is the fraction of Ceiling gc evicts down to; zero means
	// DefaultWatermark.
	Watermark float64
	Clock     func() time.Time
	Logger    rtlog.Logger
}

func (c *Cache) watermark() float64 {
	if c.Watermark <= 0 {
		return DefaultWatermark
	}
	return c.Watermark
}

func (c *Cache) logger() rtlog.Logger {
	if c.Logger == nil {
		return rtlog.Nop{}
	}
	return c.Logger
}

var _ transpile.Cache = (*Cache)(nil)

// NewCache creates a cache persisted through adapter under project, with
// the default size ceiling.
func NewCache(adapter store.Adapter, project string) *Cache {
	return &Cache{
		entries:   make(map[string]*Entry),
		graph:     NewDependencyGraph(),
		store:     adapter,
		project:   project,
		Ceiling:   DefaultCeiling,
		Watermark: DefaultWatermark,
		Clock:     time.Now,
		Logger:    rtlog.Nop{},
	}
}

// Get implements transpile.Cache: a hash mismatch invalidates the stale
// entry and reports a miss.
func (c *Cache) Get(appPath, contentHash string) (transpile.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[appPath]
	if !ok {
		return transpile.CacheEntry{}, false
	}
	if contentHash != "" && e.ContentHash != contentHash {
		c.invalidateLocked(appPath)
		return transpile.CacheEntry{}, false
	}
	e.LastAccess = c.Clock().UnixNano()
	return transpile.CacheEntry{ContentHash: e.ContentHash, Code: e.Code, Deps: e.Deps}, true
}

// GetEntry returns the full cache entry for appPath, for callers that
// need deps/mtime/size beyond what transpile.Cache exposes.
func (c *Cache) GetEntry(appPath string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[appPath]
	if !ok {
		return nil, false
	}
	clone := *e
	return &clone, true
}

// SetParams is the full entry shape SetFull accepts.
type SetParams struct {
	OriginalPath string
	ContentHash  string
	Code         string
	SourceMap    string
	Deps         []string
	MTime        int64
	Size         int
}

// Set implements transpile.Cache with the minimal shape the driver
// produces; full metadata (original path, mtime, explicit size) defaults
// from appPath/len(Code) the way a bare transpile result would.
func (c *Cache) Set(appPath string, entry transpile.CacheEntry) {
	c.SetFull(appPath, SetParams{
		OriginalPath: appPath,
		ContentHash:  entry.ContentHash,
		Code:         entry.Code,
		Deps:         entry.Deps,
	})
}

// SetFull writes a cache entry with full metadata: original path, source
// map, explicit dependency list, mtime, and size.
func (c *Cache) SetFull(appPath string, p SetParams) error {
	c.mu.Lock()

	// Drop this path's own outgoing edges before re-adding, in case the
	// dependency set changed between transpiles. Leaves edges recorded by
	// other entries that depend on appPath untouched.
	c.graph.RemoveDependencies(appPath)

	size := p.Size
	if size == 0 {
		size = len(p.Code)
	}
	now := c.Clock()
	e := &Entry{
		OriginalPath: p.OriginalPath,
		ContentHash:  p.ContentHash,
		Code:         p.Code,
		SourceMap:    p.SourceMap,
		Deps:         append([]string{}, p.Deps...),
		MTime:        p.MTime,
		Size:         size,
		LastAccess:   now.UnixNano(),
	}
	if e.MTime == 0 {
		e.MTime = now.UnixNano()
	}
	c.entries[appPath] = e

	// Recorded unconditionally: appPath's own entry is what's new here, so
	// a dependency that hasn't been transpiled yet still gets its incoming
	// edge, the same way the dependent side of a require graph is known
	// before the thing it requires has necessarily been visited.
	for _, d := range e.Deps {
		c.graph.AddDependency(appPath, d)
	}
	c.mu.Unlock()

	if err := c.persist(appPath, e); err != nil {
		c.mu.Lock()
		c.graph.RemovePath(appPath)
		delete(c.entries, appPath)
		c.mu.Unlock()
		return err
	}
	c.gc()
	return nil
}

// Dependents returns the app paths directly recorded as depending on
// appPath, regardless of whether appPath itself has a live entry.
func (c *Cache) Dependents(appPath string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph.Dependents(appPath)
}

// Invalidate cascades to every dependent first, then detaches appPath from
// the graph and removes it from memory and the store.
func (c *Cache) Invalidate(appPath string) {
	c.mu.Lock()
	c.invalidateLocked(appPath)
	c.mu.Unlock()
}

func (c *Cache) invalidateLocked(appPath string) {
	for _, dependent := range c.graph.Dependents(appPath) {
		c.invalidateLocked(dependent)
	}
	c.graph.RemovePath(appPath)
	delete(c.entries, appPath)
	c.removeFromStore(appPath)
}

// Clear drops every in-memory entry without touching the underlying store.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.graph = NewDependencyGraph()
}

// LoadFromStore rebuilds the in-memory map from persisted metadata at
// startup. Entries whose code blob is missing, or whose metadata fails to
// parse, are silently skipped.
func (c *Cache) LoadFromStore() error {
	files, err := c.store.ListByPrefix(c.project, metaDir)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range files {
		if f.Type != store.File {
			continue
		}
		var m meta
		if err := json.Unmarshal([]byte(f.Content), &m); err != nil {
			continue
		}
		name := vpath.Basename(f.Path)
		if len(name) < 6 || name[len(name)-5:] != ".json" {
			continue
		}
		safe := name[:len(name)-5]
		codePath := vpath.Join(cacheDir, safe+".js")
		codeFile, err := c.store.Read(c.project, codePath)
		if err != nil {
			continue
		}
		appPath := m.OriginalPath
		if appPath == "" {
			continue
		}
		e := &Entry{
			OriginalPath: m.OriginalPath,
			ContentHash:  m.ContentHash,
			Code:         codeFile.Content,
			SourceMap:    m.SourceMap,
			Deps:         m.Deps,
			MTime:        m.MTime,
			Size:         m.Size,
			LastAccess:   m.LastAccess,
		}
		c.entries[appPath] = e
	}

	for appPath, e := range c.entries {
		for _, d := range e.Deps {
			c.graph.AddDependency(appPath, d)
		}
	}
	return nil
}

func (c *Cache) persist(appPath string, e *Entry) error {
	if c.store == nil {
		return nil
	}
	safe := safeName(appPath)
	if err := c.store.WriteFile(c.project, vpath.Join(cacheDir, safe+".js"), []byte(e.Code)); err != nil {
		wrapped := &CacheIOError{Op: "write", Path: appPath, Err: err}
		c.logger().Warn("%v", wrapped)
		return wrapped
	}
	m := meta{
		OriginalPath: e.OriginalPath,
		ContentHash:  e.ContentHash,
		SourceMap:    e.SourceMap,
		Deps:         e.Deps,
		MTime:        e.MTime,
		Size:         e.Size,
		LastAccess:   e.LastAccess,
	}
	data, err := json.Marshal(m)
	if err != nil {
		wrapped := &CacheIOError{Op: "marshal", Path: appPath, Err: err}
		c.logger().Warn("%v", wrapped)
		return wrapped
	}
	if err := c.store.WriteFile(c.project, vpath.Join(metaDir, safe+".json"), data); err != nil {
		wrapped := &CacheIOError{Op: "write", Path: appPath, Err: err}
		c.logger().Warn("%v", wrapped)
		return wrapped
	}
	return nil
}

func (c *Cache) removeFromStore(appPath string) {
	if c.store == nil {
		return
	}
	safe := safeName(appPath)
	if err := c.store.Remove(c.project, vpath.Join(cacheDir, safe+".js")); err != nil {
		c.logger().Warn("%v", &CacheIOError{Op: "remove", Path: appPath, Err: err})
	}
	if err := c.store.Remove(c.project, vpath.Join(metaDir, safe+".json")); err != nil {
		c.logger().Warn("%v", &CacheIOError{Op: "remove", Path: appPath, Err: err})
	}
}

// gc implements watermark eviction: after any set, if total
// size exceeds the ceiling, evict the least-recently-accessed entries until
// total size is back at or below Watermark * Ceiling.
func (c *Cache) gc() {
	c.mu.Lock()
	var total int64
	for _, e := range c.entries {
		total += int64(e.Size)
	}
	if total <= c.Ceiling {
		c.mu.Unlock()
		return
	}

	type ranked struct {
		path       string
		lastAccess int64
		size       int64
	}
	rankedEntries := make([]ranked, 0, len(c.entries))
	for path, e := range c.entries {
		rankedEntries = append(rankedEntries, ranked{path, e.LastAccess, int64(e.Size)})
	}
	sort.Slice(rankedEntries, func(i, j int) bool { return rankedEntries[i].lastAccess < rankedEntries[j].lastAccess })

	target := int64(float64(c.Ceiling) * c.watermark())
	var toEvict []string
	for _, r := range rankedEntries {
		if total <= target {
			break
		}
		toEvict = append(toEvict, r.path)
		total -= r.size
	}
	c.mu.Unlock()

	for _, path := range toEvict {
		c.Invalidate(path)
	}
}
