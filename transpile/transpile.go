// Package transpile drives source transformation: a content hash guards a
// cache lookup, a cheap source scan decides whether transpilation is even
// needed, and the work is delegated to a registered Capability keyed by
// file extension.
package transpile

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.modrun.dev/core/normalize"
)

// Result is what a Capability (and the driver itself) produce.
type Result struct {
	Code string
	Deps []string
}

// Options configures a single Transpile call.
type Options struct {
	AppPath string
}

// Capability is an external collaborator that knows how to transpile one or
// more extensions into an evaluable CommonJS body.
type Capability interface {
	Extensions() []string
	Transpile(ctx context.Context, code string, opts Options) (Result, error)
}

// TranspileError is returned on worker failure or timeout.
type TranspileError struct {
	AppPath string
	Err     error
}

func (e *TranspileError) Error() string {
	return "transpile: " + e.AppPath + ": " + e.Err.Error()
}

func (e *TranspileError) Unwrap() error { return e.Err }

// CacheEntry is the shape a cache (modcache) needs to persist; the driver
// is cache-agnostic and only calls the two functions it's given.
type CacheEntry struct {
	ContentHash string
	Code        string
	Deps        []string
}

// Cache is the subset of modcache.Cache the driver depends on.
type Cache interface {
	Get(appPath, contentHash string) (CacheEntry, bool)
	Set(appPath string, entry CacheEntry)
}

// DefaultTimeout is the default transpile worker timeout.
const DefaultTimeout = 10 * time.Second

var fullTranspileExt = map[string]bool{
	".ts": true, ".tsx": true, ".mts": true, ".cts": true, ".jsx": true,
}

var esmOrRequireHint = regexp.MustCompile(`\b(import|export)\b|require\(`)

// Driver runs the decision procedure against a set of
// registered capabilities.
type Driver struct {
	capabilities map[string]Capability
	cache        Cache
	Timeout      time.Duration

	// Resolve, when set, turns a dependency specifier a capability or the
	// normalizer extracted (a raw "./y", "@/x", or bare package string)
	// into the project-relative path it actually points at, so cached
	// Deps are paths the cache's own dependents graph can match against
	// other entries rather than opaque specifier text. A false second
	// return (unresolvable, or a builtin with no file of its own) drops
	// the dependency from what gets cached.
	Resolve func(spec, fromFile string) (string, bool)
}

// NewDriver creates a Driver with no capabilities registered.
func NewDriver(cache Cache) *Driver {
	return &Driver{capabilities: make(map[string]Capability), cache: cache, Timeout: DefaultTimeout}
}

// Register associates a Capability with every extension it declares.
func (d *Driver) Register(c Capability) {
	for _, ext := range c.Extensions() {
		d.capabilities[ext] = c
	}
}

// Transpile hashes source, checks the cache, decides whether the file needs
// transpiling at all, and dispatches to a registered Capability (or the
// plain ESM/CommonJS normalizer when none is registered for the extension).
func (d *Driver) Transpile(ctx context.Context, appPath, source string) (Result, error) {
	hash := ContentHash(source)

	if d.cache != nil {
		if entry, ok := d.cache.Get(appPath, hash); ok {
			return Result{Code: entry.Code, Deps: entry.Deps}, nil
		}
	}

	ext := extOf(appPath)
	needsTranspile := fullTranspileExt[ext] || (ext != ".json" && looksLikeModuleSource(source))

	var result Result
	if !needsTranspile {
		result = Result{Code: source, Deps: []string{}}
	} else if cap, ok := d.capabilities[ext]; ok {
		r, err := d.runWithTimeout(ctx, cap, source, Options{AppPath: appPath})
		if err != nil {
			return Result{}, &TranspileError{AppPath: appPath, Err: err}
		}
		result = r
	} else {
		norm := normalize.Normalize(source)
		result = Result{Code: norm.Code, Deps: norm.Dependencies}
	}

	if d.Resolve != nil {
		result.Deps = d.resolveDeps(result.Deps, appPath)
	}

	if d.cache != nil {
		d.cache.Set(appPath, CacheEntry{ContentHash: hash, Code: result.Code, Deps: result.Deps})
	}
	return result, nil
}

// resolveDeps turns each raw specifier in deps into the project-relative
// path it resolves to from fromFile, dropping anything Resolve can't place
// (builtins, or a specifier nothing on disk backs).
func (d *Driver) resolveDeps(deps []string, fromFile string) []string {
	if len(deps) == 0 {
		return deps
	}
	resolved := make([]string, 0, len(deps))
	for _, dep := range deps {
		if p, ok := d.Resolve(dep, fromFile); ok {
			resolved = append(resolved, p)
		}
	}
	return resolved
}

func (d *Driver) runWithTimeout(ctx context.Context, cap Capability, source string, opts Options) (Result, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := cap.Transpile(ctx, source, opts)
		done <- outcome{r, err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, errors.New("transpile timed out")
	case o := <-done:
		return o.result, o.err
	}
}

func extOf(appPath string) string {
	idx := strings.LastIndex(appPath, ".")
	slash := strings.LastIndex(appPath, "/")
	if idx <= slash {
		return ""
	}
	return appPath[idx:]
}

// looksLikeModuleSource detects ES-module syntax or a require( token after
// masking comments/strings so a require(...) call or import/export keyword
// inside a comment or string literal doesn't trigger a needless transpile.
func looksLikeModuleSource(source string) bool {
	return esmOrRequireHint.MatchString(maskCommentsAndStrings(source))
}

var commentOrString = regexp.MustCompile("//[^\n]*|/\\*[\\s\\S]*?\\*/|'(?:[^'\\\\]|\\\\.)*'|\"(?:[^\"\\\\]|\\\\.)*\"|`(?:[^`\\\\]|\\\\.)*`")

func maskCommentsAndStrings(source string) string {
	return commentOrString.ReplaceAllStringFunc(source, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

// ContentHash computes a 32-bit FNV-1a rolling hash rendered in base36.
func ContentHash(source string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(source); i++ {
		h ^= uint32(source[i])
		h *= 16777619
	}
	return toBase36(h)
}

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

func toBase36(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [13]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base36Digits[n%36]
		n /= 36
	}
	return string(buf[i:])
}
