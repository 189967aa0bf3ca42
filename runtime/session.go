package runtime

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"go.modrun.dev/core/builtins"
	"go.modrun.dev/core/resolver"
	"go.modrun.dev/core/store"
	"go.modrun.dev/core/transpile"
	"go.modrun.dev/core/vpath"
)

// execCell is one entry in the execution cache a single Execute call
// maintains: rebuilt fresh every call, never shared across them, so a
// second run never observes exports left over from a prior one.
type execCell struct {
	exports goja.Value
	loading bool
	loaded  bool
}

// execSession holds everything one Execute call threads through its
// recursive module loading and the require() closures it hands to each
// module body.
type execSession struct {
	ctx context.Context

	vm          *goja.Runtime
	cells       map[string]*execCell
	resolver    *resolver.Resolver
	driver      *transpile.Driver
	adapter     store.Adapter
	project     string
	builtinsReg *builtins.Registry
	console     goja.Value
}

// load resolves spec from fromFile, reads and transpiles the target if it
// isn't already cached, and delegates to evalAndCache to evaluate its body.
// It is re-entrant: a module whose body is already running (a require
// cycle) is recognized via the execution cache and its current partial
// exports are returned instead of re-reading or re-evaluating it. Builtins
// bypass the execution cache entirely: the builtin registry is its own
// cache.
func (s *execSession) load(spec, fromFile string) (goja.Value, error) {
	res, err := s.resolver.Resolve(spec, fromFile)
	if err != nil {
		return nil, &CannotFindModuleError{Spec: spec, FromFile: fromFile, Err: err}
	}
	if res.IsBuiltin {
		return s.builtinsReg.Get(res.Path)
	}

	p := res.Path
	if cell, ok := s.cells[p]; ok {
		if cell.loaded || cell.loading {
			return cell.exports, nil
		}
	}

	file, err := s.adapter.Read(s.project, p)
	if err != nil {
		return nil, &FileNotFoundError{Path: p, Err: err}
	}
	if file.IsBinary {
		return nil, &BinaryNotExecutableError{Path: p}
	}

	tr, err := s.driver.Transpile(s.ctx, p, file.Content)
	if err != nil {
		return nil, &TranspileError{Path: p, Err: err}
	}

	final, err := s.evalAndCache(p, tr, false)
	if err != nil {
		return nil, err
	}

	if resolver.Classify(spec) == resolver.KindPackage {
		s.resolver.RememberBareSpecifier(spec, p)
	}
	return final, nil
}

// loadEntry evaluates the already-read-and-transpiled entry file at p. It
// runs through the same cache-insertion path as load(), so a dependency
// that happens to require the entry file back (a cycle through the
// program's own entry point) resolves instead of deadlocking, but wraps
// the body in the async form that tolerates top-level await and awaits the
// resulting promise before returning.
func (s *execSession) loadEntry(p string, tr transpile.Result) (goja.Value, error) {
	return s.evalAndCache(p, tr, true)
}

// evalAndCache inserts a loading placeholder for p, then compiles and
// evaluates its body. Dependencies are loaded lazily, from inside the body,
// the moment its own require() calls reach them — not ahead of time — so a
// require cycle sees whatever the other side of the cycle has assigned to
// its exports object so far, matching what the body order actually
// produces. Any failure after the placeholder is inserted deletes it, so a
// later retry never observes a half-built cell.
func (s *execSession) evalAndCache(p string, tr transpile.Result, async bool) (goja.Value, error) {
	if cell, ok := s.cells[p]; ok {
		if cell.loaded || cell.loading {
			return cell.exports, nil
		}
	}

	exportsObj := s.vm.NewObject()
	cell := &execCell{exports: exportsObj, loading: true}
	s.cells[p] = cell

	var wrapped string
	if async {
		wrapped = wrapEntryBody(tr.Code)
	} else {
		wrapped = wrapModuleBody(tr.Code)
	}
	prog, err := goja.Compile(p, wrapped, false)
	if err != nil {
		delete(s.cells, p)
		return nil, &TranspileError{Path: p, Err: err}
	}
	fnVal, err := s.vm.RunProgram(prog)
	if err != nil {
		delete(s.cells, p)
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		delete(s.cells, p)
		return nil, fmt.Errorf("module %q did not compile to a callable wrapper", p)
	}

	moduleObj := s.vm.NewObject()
	moduleObj.Set("exports", exportsObj)
	dirname := vpath.Dirname(p)

	result, err := fn(goja.Undefined(), moduleObj, exportsObj, s.requireFuncFor(p), s.vm.ToValue(p), s.vm.ToValue(dirname), s.console)
	if err != nil {
		delete(s.cells, p)
		return nil, err
	}
	if async {
		if _, err := awaitTopLevel(s.vm, result); err != nil {
			delete(s.cells, p)
			return nil, err
		}
	}

	final := moduleObj.Get("exports")
	cell.exports = final
	cell.loading = false
	cell.loaded = true
	return final, nil
}

// requireFuncFor returns the require() closure a module evaluated at
// fromFile sees: synchronous, and re-entrant into the same loader a
// require cycle would otherwise deadlock on.
func (s *execSession) requireFuncFor(fromFile string) goja.Value {
	return s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		v, err := s.requireSync(spec, fromFile)
		if err != nil {
			panic(s.vm.NewGoError(err))
		}
		return v
	})
}

// requireSync implements the synchronous require() dispatch: builtins go
// straight to the registry, everything else recurses into load() right
// here, at the point the call site actually needs it. Because load()
// checks the execution cache before touching the store, a require cycle
// finds its own in-progress cell and gets back the partial exports object
// the other side of the cycle has mutated so far, instead of either
// deadlocking or forcing an earlier, out-of-order evaluation.
func (s *execSession) requireSync(spec, fromFile string) (goja.Value, error) {
	if spec == "" {
		return nil, &NotPreloadedError{Spec: spec, FromFile: fromFile}
	}
	if resolver.BuiltinSet[spec] {
		return s.builtinsReg.Get(spec)
	}
	return s.load(spec, fromFile)
}
