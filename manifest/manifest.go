// Package manifest parses package.json and resolves its exports/imports
// fields against the conditions grammar shared by both.
package manifest

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrNotExported is returned when a subpath is not exported/imported by the
// manifest under the active conditions.
var ErrNotExported = errors.New("manifest: not exported")

// DefaultConditions is the condition priority order: import, require,
// default, in that order.
var DefaultConditions = []string{"import", "require", "default"}

// Manifest is the subset of package.json relevant to module resolution.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type,omitempty"`
	Main    string `json:"main,omitempty"`
	Module  string `json:"module,omitempty"`
	Exports any    `json:"exports,omitempty"`
	Imports any    `json:"imports,omitempty"`

	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// ResolveOptions configures which conditions are tried, and in what order.
type ResolveOptions struct {
	Conditions []string
}

func (o *ResolveOptions) conditions() []string {
	if o != nil && len(o.Conditions) > 0 {
		return o.Conditions
	}
	return DefaultConditions
}

// Parse parses package.json bytes into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsESM reports whether this package declares itself an ES module via
// "type": "module".
func (m *Manifest) IsESM() bool {
	return m.Type == "module"
}

// ResolveExport resolves the "." (main) or "./subpath" export: exact key
// match wins; otherwise the longest matching "*"-tail pattern, with the
// captured tail substituted into the target. Falls back to the
// "main"/"module" fields when there is no "exports" field at all.
func (m *Manifest) ResolveExport(subpath string, opts *ResolveOptions) (string, error) {
	if m.Exports == nil {
		if subpath == "." {
			if m.Module != "" {
				return trimDotSlash(m.Module), nil
			}
			if m.Main != "" {
				return trimDotSlash(m.Main), nil
			}
		}
		return "", ErrNotExported
	}
	return resolveSubpathMap(m.Exports, subpath, opts)
}

// ResolveImport resolves a "#specifier" against the manifest's "imports"
// map, using the same exact/"*"-tail/conditions grammar as ResolveExport.
func (m *Manifest) ResolveImport(specifier string, opts *ResolveOptions) (string, error) {
	if m.Imports == nil {
		return "", ErrNotExported
	}
	return resolveSubpathMap(m.Imports, specifier, opts)
}

// resolveSubpathMap implements the shared lookup algorithm for both
// "exports" and "imports": string shorthand, exact subpath match, longest
// "*"-tail pattern match, and recursive condition resolution.
func resolveSubpathMap(field any, subpath string, opts *ResolveOptions) (string, error) {
	if s, ok := field.(string); ok {
		if subpath == "." {
			return trimDotSlash(s), nil
		}
		return "", ErrNotExported
	}

	asMap, ok := field.(map[string]any)
	if !ok {
		return "", ErrNotExported
	}

	if !hasSubpathKeys(asMap) {
		// Condition-only map for the main/self entry.
		if subpath == "." {
			return resolveConditions(asMap, opts)
		}
		return "", ErrNotExported
	}

	if value, ok := asMap[subpath]; ok {
		return resolveValue(value, opts)
	}

	if target, ok := matchWildcard(asMap, subpath, opts); ok {
		return target, nil
	}

	return "", ErrNotExported
}

// hasSubpathKeys reports whether m is keyed by subpaths ("." / "./x" / "#x")
// rather than being a bare condition map ("import"/"require"/"default"/...).
func hasSubpathKeys(m map[string]any) bool {
	for key := range m {
		if strings.HasPrefix(key, ".") || strings.HasPrefix(key, "#") {
			return true
		}
	}
	return false
}

// matchWildcard finds the longest "*"-tail pattern key matching subpath and
// substitutes the captured tail into the resolved target.
func matchWildcard(m map[string]any, subpath string, opts *ResolveOptions) (string, bool) {
	type candidate struct {
		prefix, suffix string
		value          any
	}
	var candidates []candidate
	for key, value := range m {
		idx := strings.Index(key, "*")
		if idx == -1 {
			continue
		}
		prefix, suffix := key[:idx], key[idx+1:]
		if strings.HasPrefix(subpath, prefix) && strings.HasSuffix(subpath, suffix) &&
			len(subpath) >= len(prefix)+len(suffix) {
			candidates = append(candidates, candidate{prefix, suffix, value})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return len(candidates[i].prefix) > len(candidates[j].prefix)
	})
	best := candidates[0]
	tail := subpath[len(best.prefix) : len(subpath)-len(best.suffix)]

	target, err := resolveValue(best.value, opts)
	if err != nil {
		return "", false
	}
	if !strings.Contains(target, "*") {
		return "", false
	}
	return strings.Replace(target, "*", tail, 1), true
}

func resolveValue(value any, opts *ResolveOptions) (string, error) {
	switch v := value.(type) {
	case string:
		return trimDotSlash(v), nil
	case map[string]any:
		return resolveConditions(v, opts)
	case []any:
		for _, item := range v {
			if s, err := resolveValue(item, opts); err == nil {
				return s, nil
			}
		}
	}
	return "", ErrNotExported
}

// resolveConditions tries each condition in order, recursing into nested
// condition maps.
func resolveConditions(conditions map[string]any, opts *ResolveOptions) (string, error) {
	for _, cond := range opts.conditions() {
		value, ok := conditions[cond]
		if !ok {
			continue
		}
		if s, err := resolveValue(value, opts); err == nil {
			return s, nil
		}
	}
	return "", ErrNotExported
}

func trimDotSlash(p string) string {
	return strings.TrimPrefix(p, "./")
}
