// Package builtins registers the fixed set of Node-style builtin module
// emulations the sandbox's require() recognizes: path, util, events,
// buffer, querystring, and assert, each implemented as a small embedded
// JavaScript source evaluated once per goja.Runtime. Every other builtin
// name still resolves (the resolver classifies every name in the builtin
// set unconditionally) but returns an empty stub object, with a
// NotImplemented warning logged the first time a program requires it.
package builtins

import (
	"embed"
	"fmt"

	"github.com/dop251/goja"

	"go.modrun.dev/core/internal/rtlog"
)

//go:embed js/*.js
var sources embed.FS

var emulated = map[string]string{
	"path":        "js/path.js",
	"util":        "js/util.js",
	"events":      "js/events.js",
	"buffer":      "js/buffer.js",
	"querystring": "js/querystring.js",
	"assert":      "js/assert.js",
}

// Registry builds and memoizes builtin module objects inside one
// goja.Runtime. A Registry is scoped to a single execute() call, matching
// the one-VM-per-execution model.
type Registry struct {
	rt     *goja.Runtime
	logger rtlog.Logger
	cache  map[string]goja.Value
	warned map[string]bool
}

// New creates a Registry bound to rt. logger may be nil, in which case
// NotImplemented warnings are discarded.
func New(rt *goja.Runtime, logger rtlog.Logger) *Registry {
	if logger == nil {
		logger = rtlog.Nop{}
	}
	return &Registry{
		rt:     rt,
		logger: logger,
		cache:  make(map[string]goja.Value),
		warned: make(map[string]bool),
	}
}

// Get returns the module object for a builtin name, building and caching it
// on first access. Unrecognized names never fail: they resolve to an empty
// stub object, consistent with the resolver classifying every listed name
// as a builtin regardless of whether this registry emulates it.
func (r *Registry) Get(name string) (goja.Value, error) {
	if v, ok := r.cache[name]; ok {
		return v, nil
	}

	if path, ok := emulated[name]; ok {
		src, err := sources.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("builtins: missing embedded source for %q: %w", name, err)
		}
		v, err := r.rt.RunString(string(src))
		if err != nil {
			return nil, fmt.Errorf("builtins: failed to evaluate %q: %w", name, err)
		}
		r.cache[name] = v
		return v, nil
	}

	v := r.stub(name)
	r.cache[name] = v
	return v, nil
}

// IsKnown reports whether name has a real emulation (as opposed to a stub).
func IsKnown(name string) bool {
	_, ok := emulated[name]
	return ok
}

func (r *Registry) stub(name string) goja.Value {
	if !r.warned[name] {
		r.warned[name] = true
		r.logger.Warn("builtins: %q is not implemented; returning an empty stub", name)
	}
	return r.rt.NewObject()
}
