// Package resolver implements specifier resolution: mapping an import/require
// string plus the file it appears in to a concrete project-relative path.
package resolver

import (
	"errors"
	"strings"
	"sync"

	"go.modrun.dev/core/internal/rtlog"
	"go.modrun.dev/core/manifest"
	"go.modrun.dev/core/store"
	"go.modrun.dev/core/vpath"
)

// Kind classifies a specifier by its leading token.
type Kind int

const (
	KindBuiltin Kind = iota
	KindSubpathImports
	KindRelative
	KindAlias
	KindAbsolute
	KindPackage
)

// BuiltinSet is the fixed set of built-in specifier names.
var BuiltinSet = map[string]bool{
	"fs": true, "fs/promises": true, "path": true, "os": true, "util": true,
	"http": true, "https": true, "buffer": true, "readline": true,
	"crypto": true, "stream": true, "events": true, "url": true,
	"querystring": true, "assert": true, "child_process": true,
	"cluster": true, "dgram": true, "dns": true, "domain": true,
	"net": true, "tls": true, "tty": true, "zlib": true,
}

// extensionsInOrder lists the extensions extension-probing appends, in
// order.
var extensionsInOrder = []string{".js", ".mjs", ".ts", ".mts", ".tsx", ".jsx", ".json"}

// recognizedExtensions are extensions a candidate may already carry and be
// accepted outright if the file exists.
var recognizedExtensions = map[string]bool{
	".js": true, ".mjs": true, ".cjs": true, ".ts": true, ".mts": true,
	".cts": true, ".tsx": true, ".jsx": true, ".json": true,
}

var indexCandidates = []string{"/index.js", "/index.mjs", "/index.ts", "/index.mts", "/index.tsx"}

// ErrNotFound is returned (not panicked) when no candidate file exists for
// a specifier.
var ErrNotFound = errors.New("resolver: cannot find module")

// Classify determines a specifier's Kind from its leading token.
func Classify(spec string) Kind {
	switch {
	case BuiltinSet[spec]:
		return KindBuiltin
	case strings.HasPrefix(spec, "#"):
		return KindSubpathImports
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"), spec == ".", spec == "..":
		return KindRelative
	case strings.HasPrefix(spec, "@/"):
		return KindAlias
	case strings.HasPrefix(spec, "/"):
		return KindAbsolute
	default:
		return KindPackage
	}
}

// Resolution is the result of resolving a specifier.
type Resolution struct {
	Path         string
	IsBuiltin    bool
	IsNodeModule bool
	PackageJSON  *manifest.Manifest
}

// Resolver resolves specifiers against a project tree via a store.Adapter.
// One Resolver should be used per project; its caches are not meant to be
// shared across projects.
type Resolver struct {
	adapter    store.Adapter
	project    string
	manifests  *manifest.Cache
	exists     sync.Map // appPath -> bool
	nameMap    sync.Map // bare specifier -> resolved path, populated by the loader
	Conditions []string
	Logger     rtlog.Logger
}

// New creates a Resolver for the given project over adapter.
func New(adapter store.Adapter, project string) *Resolver {
	return &Resolver{
		adapter:   adapter,
		project:   project,
		manifests: manifest.NewCache(),
		Logger:    rtlog.Nop{},
	}
}

func (r *Resolver) logger() rtlog.Logger {
	if r.Logger == nil {
		return rtlog.Nop{}
	}
	return r.Logger
}

// RememberBareSpecifier records which concrete path a bare package
// specifier resolved to, for use by the loader's synchronous require.
func (r *Resolver) RememberBareSpecifier(spec, resolvedPath string) {
	r.nameMap.Store(spec, resolvedPath)
}

// LookupBareSpecifier returns a previously remembered resolution, if any.
func (r *Resolver) LookupBareSpecifier(spec string) (string, bool) {
	v, ok := r.nameMap.Load(spec)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (r *Resolver) conditions() *manifest.ResolveOptions {
	if len(r.Conditions) == 0 {
		return nil
	}
	return &manifest.ResolveOptions{Conditions: r.Conditions}
}

// Resolve classifies spec and dispatches to the matching resolution branch.
func (r *Resolver) Resolve(spec, fromFile string) (*Resolution, error) {
	switch Classify(spec) {
	case KindBuiltin:
		return &Resolution{Path: spec, IsBuiltin: true}, nil
	case KindSubpathImports:
		return r.resolveSubpathImport(spec, fromFile)
	case KindRelative:
		base := vpath.Dirname(fromFile)
		candidate := vpath.ResolveRelative(base, spec)
		return r.probeResolution(candidate, false)
	case KindAlias:
		candidate := vpath.ToAppPath("/src/" + strings.TrimPrefix(spec, "@/"))
		return r.probeResolution(candidate, false)
	case KindAbsolute:
		return r.probeResolution(vpath.ToAppPath(spec), false)
	default:
		return r.resolvePackage(spec)
	}
}

// probeResolution runs extension probing on candidate and wraps the result.
func (r *Resolver) probeResolution(candidate string, isNodeModule bool) (*Resolution, error) {
	found, ok := r.probe(candidate)
	if !ok {
		return nil, ErrNotFound
	}
	return &Resolution{Path: found, IsNodeModule: isNodeModule}, nil
}

// probe implements extension probing.
func (r *Resolver) probe(candidate string) (string, bool) {
	ext := vpath.Extname(candidate)
	if recognizedExtensions[ext] {
		if r.exist(candidate) {
			return candidate, true
		}
		return "", false
	}
	for _, ext := range extensionsInOrder {
		c := candidate + ext
		if r.exist(c) {
			return c, true
		}
	}
	for _, idx := range indexCandidates {
		c := candidate + idx
		if r.exist(c) {
			return c, true
		}
	}
	return "", false
}

func (r *Resolver) exist(p string) bool {
	if v, ok := r.exists.Load(p); ok {
		return v.(bool)
	}
	ok, _ := r.adapter.Exists(r.project, p)
	r.exists.Store(p, ok)
	return ok
}

// resolveSubpathImport implements step 2.
func (r *Resolver) resolveSubpathImport(spec, fromFile string) (*Resolution, error) {
	pkgDir, m, err := r.nearestManifest(vpath.Dirname(fromFile))
	if err != nil || m == nil {
		return nil, ErrNotFound
	}
	target, err := m.ResolveImport(spec, r.conditions())
	if err != nil {
		return nil, ErrNotFound
	}
	candidate := vpath.Join(pkgDir, target)
	return r.probeResolution(candidate, strings.Contains(pkgDir, "/node_modules/"))
}

// nearestManifest walks from dir upward toward the project root looking for
// the nearest package.json, stopping at a node_modules package root if dir
// is inside one.
func (r *Resolver) nearestManifest(dir string) (pkgDir string, m *manifest.Manifest, err error) {
	boundary := nodeModulesPackageRoot(dir)
	for {
		candidate := vpath.Join(dir, "package.json")
		if r.exist(candidate) {
			m, err := r.loadManifest(candidate)
			if err == nil {
				return dir, m, nil
			}
			r.logger().Warn("resolver: failed to parse %s: %v", candidate, err)
		}
		if dir == boundary || dir == "/" {
			return "", nil, ErrNotFound
		}
		dir = vpath.Dirname(dir)
	}
}

// nodeModulesPackageRoot returns "/.../node_modules/<pkg>" if dir is inside
// a node_modules package, else "" (no boundary short of the project root).
func nodeModulesPackageRoot(dir string) string {
	idx := strings.LastIndex(dir, "/node_modules/")
	if idx == -1 {
		return ""
	}
	rest := dir[idx+len("/node_modules/"):]
	segments := strings.SplitN(rest, "/", 2)
	pkg := segments[0]
	if strings.HasPrefix(pkg, "@") && len(segments) > 1 {
		inner := strings.SplitN(segments[1], "/", 2)
		pkg = pkg + "/" + inner[0]
	}
	return dir[:idx] + "/node_modules/" + pkg
}

func (r *Resolver) loadManifest(path string) (*manifest.Manifest, error) {
	return r.manifests.GetOrLoad(path, func() (*manifest.Manifest, error) {
		f, err := r.adapter.Read(r.project, path)
		if err != nil {
			return nil, err
		}
		return manifest.Parse([]byte(f.Content))
	})
}

// resolvePackage implements step 6.
func (r *Resolver) resolvePackage(spec string) (*Resolution, error) {
	pkgName, subpath := splitPackageSpecifier(spec)
	pkgDir := vpath.Join("/node_modules", pkgName)
	manifestPath := vpath.Join(pkgDir, "package.json")

	m, manifestErr := r.loadManifest(manifestPath)
	if manifestErr != nil && r.exist(manifestPath) {
		r.logger().Warn("resolver: failed to parse %s: %v", manifestPath, manifestErr)
	}

	if manifestErr == nil && m != nil {
		if subpath != "" && m.Exports != nil {
			if target, err := m.ResolveExport("./"+subpath, r.conditions()); err == nil {
				candidate := vpath.Join(pkgDir, target)
				if res, err := r.probeResolution(candidate, true); err == nil {
					res.PackageJSON = m
					return res, nil
				}
			}
		} else if subpath == "" {
			entry, err := m.ResolveExport(".", r.conditions())
			if err != nil && m.Module != "" {
				entry, err = strings.TrimPrefix(m.Module, "./"), nil
			}
			if err != nil && m.Main != "" {
				entry, err = strings.TrimPrefix(m.Main, "./"), nil
			}
			if err == nil {
				candidate := vpath.Join(pkgDir, entry)
				if res, err := r.probeResolution(candidate, true); err == nil {
					res.PackageJSON = m
					return res, nil
				}
			}
		}
	}

	// Fallback chain.
	tail := subpath
	if tail == "" {
		tail = "index.js"
	}
	fallbacks := []string{
		vpath.Join(pkgDir, tail),
		vpath.Join(pkgDir, "dist/index.js"),
		vpath.Join(pkgDir, "lib/index.js"),
		vpath.Join(pkgDir, "src/index.js"),
	}
	for _, candidate := range fallbacks {
		if res, err := r.probeResolution(candidate, true); err == nil {
			res.PackageJSON = m
			return res, nil
		}
	}
	return nil, ErrNotFound
}

// splitPackageSpecifier splits a bare specifier into its package name and
// subpath tail, honoring scoped packages.
func splitPackageSpecifier(spec string) (pkgName, subpath string) {
	if strings.HasPrefix(spec, "@") {
		parts := strings.SplitN(spec, "/", 3)
		if len(parts) >= 2 {
			pkgName = parts[0] + "/" + parts[1]
		}
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return pkgName, subpath
	}
	parts := strings.SplitN(spec, "/", 2)
	pkgName = parts[0]
	if len(parts) == 2 {
		subpath = parts[1]
	}
	return pkgName, subpath
}
