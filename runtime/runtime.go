// Package runtime composes the resolver, transpiler driver, artifact cache,
// and a goja ECMAScript VM into a single Execute/ExecuteCode surface: given
// a project-relative entry file, it loads and evaluates it and everything
// it transitively requires, the way a CommonJS host would, inside one
// sandboxed VM per call.
package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dop251/goja"

	"go.modrun.dev/core/builtins"
	"go.modrun.dev/core/internal/rtlog"
	"go.modrun.dev/core/modcache"
	"go.modrun.dev/core/resolver"
	"go.modrun.dev/core/store"
	"go.modrun.dev/core/transpile"
)

// TerminalSize describes the pseudo-terminal dimensions a console built on
// top of a real terminal may want to report through process.stdout.
type TerminalSize struct {
	Cols int
	Rows int
}

// ExecuteOptions configures one Execute or ExecuteCode call.
type ExecuteOptions struct {
	// ProjectID and ProjectName identify the caller's project for logging
	// and diagnostics; the Runtime itself is already bound to one project
	// at construction, so these are not consulted for resolution.
	ProjectID   string
	ProjectName string

	FilePath string
	Argv     []string

	// Console receives stdout/stderr as the evaluated program produces it.
	// When nil, Execute accumulates output itself and returns it in
	// ExecuteResult.
	Console Sink

	// OnInput is reserved for a future interactive stdin bridge; nothing
	// in this runtime calls it yet.
	OnInput func() (string, bool)

	TerminalSize *TerminalSize

	// Conditions overrides the resolver's package.json "exports" condition
	// priority for this call; nil keeps the resolver's own default order.
	Conditions []string
}

// ExecuteResult is what Execute and ExecuteCode return alongside any error.
type ExecuteResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runtime is bound to one project's store adapter, and owns that project's
// shared artifact cache and transpiler driver. Each Execute/ExecuteCode
// call gets its own goja.Runtime, execution cache, and resolver (with its
// manifest cache); only the artifact cache persists across calls.
type Runtime struct {
	adapter store.Adapter
	project string
	cache   *modcache.Cache
	driver  *transpile.Driver

	// Logger receives warnings for recoverable failures: a package.json
	// that failed to parse, a cache write that failed, an unimplemented
	// builtin a program required. Defaults to a no-op.
	Logger rtlog.Logger

	loadOnce sync.Once
	mu       sync.Mutex
	disposed bool
}

// NewRuntime builds a Runtime over adapter for project, registering the
// transpile capabilities the driver dispatches TypeScript/JSX through.
func NewRuntime(adapter store.Adapter, project string) *Runtime {
	cache := modcache.NewCache(adapter, project)
	driver := transpile.NewDriver(cache)
	driver.Register(transpile.NormalizeCapability{})
	driver.Register(transpile.TreesitterCapability{})
	return &Runtime{
		adapter: adapter,
		project: project,
		cache:   cache,
		driver:  driver,
		Logger:  rtlog.Nop{},
	}
}

// SetCacheCeiling overrides the artifact cache's total-size eviction
// ceiling in bytes.
func (rt *Runtime) SetCacheCeiling(bytes int64) {
	rt.cache.Ceiling = bytes
}

// SetGCWatermark overrides the fraction of the ceiling eviction targets
// down to.
func (rt *Runtime) SetGCWatermark(fraction float64) {
	rt.cache.Watermark = fraction
}

// SetTranspileTimeout overrides how long a single capability gets to
// transpile one file before it is treated as a failure.
func (rt *Runtime) SetTranspileTimeout(d time.Duration) {
	rt.driver.Timeout = d
}

func (rt *Runtime) logger() rtlog.Logger {
	if rt.Logger == nil {
		return rtlog.Nop{}
	}
	return rt.Logger
}

// Execute loads and evaluates opts.FilePath inside a fresh sandboxed VM,
// loading each dependency the moment its own require() call reaches it,
// and returns its collected output. A *CannotFindModuleError,
// *FileNotFoundError, *BinaryNotExecutableError, or *TranspileError
// raised while loading a dependency propagates out through the require()
// call that triggered it, same as the entry file failing outright.
func (rt *Runtime) Execute(opts ExecuteOptions) (ExecuteResult, error) {
	rt.mu.Lock()
	if rt.disposed {
		rt.mu.Unlock()
		return ExecuteResult{}, errors.New("runtime: Execute called after Dispose")
	}
	rt.mu.Unlock()

	rt.cache.Logger = rt.logger()
	rt.loadOnce.Do(func() { _ = rt.cache.LoadFromStore() })

	sink := opts.Console
	var buffer *BufferSink
	if sink == nil {
		buffer = &BufferSink{}
		sink = buffer
	}

	file, err := rt.adapter.Read(rt.project, opts.FilePath)
	if err != nil {
		return ExecuteResult{}, &FileNotFoundError{Path: opts.FilePath, Err: err}
	}
	if file.IsBinary {
		return ExecuteResult{}, &BinaryNotExecutableError{Path: opts.FilePath}
	}

	ctx := context.Background()
	tr, err := rt.driver.Transpile(ctx, opts.FilePath, file.Content)
	if err != nil {
		return ExecuteResult{}, &TranspileError{Path: opts.FilePath, Err: err}
	}

	vm := goja.New()
	resv := resolver.New(rt.adapter, rt.project)
	resv.Logger = rt.logger()
	if opts.Conditions != nil {
		resv.Conditions = opts.Conditions
	}
	rt.driver.Resolve = func(spec, fromFile string) (string, bool) {
		res, err := resv.Resolve(spec, fromFile)
		if err != nil || res.IsBuiltin {
			return "", false
		}
		return res.Path, true
	}
	reg := builtins.New(vm, rt.logger())

	console, err := buildGlobals(vm, sink, reg, opts)
	if err != nil {
		return ExecuteResult{}, err
	}

	sess := &execSession{
		ctx:         ctx,
		vm:          vm,
		cells:       make(map[string]*execCell),
		resolver:    resv,
		driver:      rt.driver,
		adapter:     rt.adapter,
		project:     rt.project,
		builtinsReg: reg,
		console:     console,
	}

	if _, err := sess.loadEntry(opts.FilePath, tr); err != nil {
		return rt.resultFrom(buffer), err
	}

	return rt.resultFrom(buffer), nil
}

// ExecuteCode stages code as a temporary file under the project and runs it
// through Execute as the entry point.
func (rt *Runtime) ExecuteCode(code string, opts ExecuteOptions) (ExecuteResult, error) {
	path := opts.FilePath
	if path == "" {
		path = "/__inline__.js"
	}
	if err := rt.adapter.WriteFile(rt.project, path, []byte(code)); err != nil {
		return ExecuteResult{}, err
	}
	opts.FilePath = path
	return rt.Execute(opts)
}

// ClearCache drops every in-memory artifact cache entry. The execution
// cache that backs require() never outlives a single Execute call, so there
// is nothing else to clear.
func (rt *Runtime) ClearCache() {
	rt.cache.Clear()
}

// Dispose releases this Runtime. Further Execute/ExecuteCode calls fail.
func (rt *Runtime) Dispose() {
	rt.mu.Lock()
	rt.disposed = true
	rt.mu.Unlock()
	rt.cache.Clear()
}

func (rt *Runtime) resultFrom(buffer *BufferSink) ExecuteResult {
	if buffer == nil {
		return ExecuteResult{}
	}
	return ExecuteResult{Stdout: buffer.Stdout.String(), Stderr: buffer.Stderr.String()}
}
