// Package normalize rewrites ES-module and CommonJS source into a single
// evaluable CommonJS body, without a full parser.
package normalize

import (
	"regexp"
	"strings"
)

// Result is the output of Normalize.
type Result struct {
	Code         string
	Dependencies []string
}

var (
	metaMask    = regexp.MustCompile(`import\s*\.\s*meta`)
	dynImport   = regexp.MustCompile(`\bimport\s*\([^()]*\)`)
	importNS    = regexp.MustCompile(`import\s*\*\s*as\s+(\w+)\s+from\s+['"]([^'"]+)['"]\s*;?`)
	importDN    = regexp.MustCompile(`import\s+(\w+)\s*,\s*\{([^}]*)\}\s+from\s+['"]([^'"]+)['"]\s*;?`)
	importDef   = regexp.MustCompile(`import\s+(\w+)\s+from\s+['"]([^'"]+)['"]\s*;?`)
	importNamed = regexp.MustCompile(`import\s*\{([^}]*)\}\s+from\s+['"]([^'"]+)['"]\s*;?`)
	importBare  = regexp.MustCompile(`import\s+['"]([^'"]+)['"]\s*;?`)

	exportDefault = regexp.MustCompile(`export\s+default\s+([^\n;]+);?`)
	exportDecl    = regexp.MustCompile(`export\s+(const|let|var)\s+([^\n;]+;?)`)
	exportFnClass = regexp.MustCompile(`export\s+(function\s*\*?|class)\s+(\w+)`)
	exportFrom    = regexp.MustCompile(`export\s*\{([^}]*)\}\s+from\s+['"]([^'"]+)['"]\s*;?`)
	exportNamed   = regexp.MustCompile(`export\s*\{([^}]*)\}\s*;?`)
	exportStar    = regexp.MustCompile(`export\s*\*\s*from\s+['"]([^'"]+)['"]\s*;?`)
	requireCall   = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)

	identRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// Normalize applies the ESM-to-CommonJS rewrite table and returns the
// rewritten body plus the deduplicated set of specifiers it saw.
func Normalize(source string) Result {
	deps := newDepSet()

	masked, restore := maskDynamic(source)
	code := masked

	code = importNS.ReplaceAllStringFunc(code, func(m string) string {
		g := importNS.FindStringSubmatch(m)
		deps.add(g[2])
		return "const " + g[1] + " = require('" + g[2] + "')"
	})

	code = importDN.ReplaceAllStringFunc(code, func(m string) string {
		g := importDN.FindStringSubmatch(m)
		deps.add(g[3])
		return "const __t = require('" + g[3] + "'); const " + g[1] +
			" = (__t && __t.default!==undefined)?__t.default:__t; const {" + strings.TrimSpace(g[2]) + "} = __t"
	})

	code = importDef.ReplaceAllStringFunc(code, func(m string) string {
		g := importDef.FindStringSubmatch(m)
		deps.add(g[2])
		return "const " + g[1] + " = (t => t && t.default!==undefined ? t.default : t)(require('" + g[2] + "'))"
	})

	code = importNamed.ReplaceAllStringFunc(code, func(m string) string {
		g := importNamed.FindStringSubmatch(m)
		deps.add(g[2])
		return "const { " + rewriteNamedBindings(g[1]) + " } = require('" + g[2] + "')"
	})

	code = importBare.ReplaceAllStringFunc(code, func(m string) string {
		g := importBare.FindStringSubmatch(m)
		deps.add(g[1])
		return "require('" + g[1] + "')"
	})

	var exported []string

	code = exportDefault.ReplaceAllStringFunc(code, func(m string) string {
		g := exportDefault.FindStringSubmatch(m)
		return "module.exports.default = " + g[1] + ";"
	})

	code = exportFrom.ReplaceAllStringFunc(code, func(m string) string {
		g := exportFrom.FindStringSubmatch(m)
		deps.add(g[2])
		var b strings.Builder
		b.WriteString("const __r = require('")
		b.WriteString(g[2])
		b.WriteString("');")
		for _, pair := range splitTopLevel(g[1]) {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			local, exportedName := splitAsClause(pair)
			b.WriteString(" module.exports.")
			b.WriteString(exportedName)
			b.WriteString(" = __r.")
			b.WriteString(local)
			b.WriteString(";")
		}
		return b.String()
	})

	code = exportStar.ReplaceAllStringFunc(code, func(m string) string {
		g := exportStar.FindStringSubmatch(m)
		deps.add(g[1])
		return "const __r = require('" + g[1] + "'); for (const k in __r) if (k!=='default') module.exports[k] = __r[k];"
	})

	code = exportNamed.ReplaceAllStringFunc(code, func(m string) string {
		g := exportNamed.FindStringSubmatch(m)
		var b strings.Builder
		for _, pair := range splitTopLevel(g[1]) {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			local, exportedName := splitAsClause(pair)
			b.WriteString("module.exports.")
			b.WriteString(exportedName)
			b.WriteString(" = ")
			b.WriteString(local)
			b.WriteString("; ")
		}
		return strings.TrimSpace(b.String())
	})

	code = exportDecl.ReplaceAllStringFunc(code, func(m string) string {
		g := exportDecl.FindStringSubmatch(m)
		names := collectDeclaratorNames(g[2])
		exported = append(exported, names...)
		return g[1] + " " + g[2]
	})

	code = exportFnClass.ReplaceAllStringFunc(code, func(m string) string {
		g := exportFnClass.FindStringSubmatch(m)
		exported = append(exported, g[2])
		return g[1] + " " + g[2]
	})

	for _, m := range requireCall.FindAllStringSubmatch(code, -1) {
		deps.add(m[1])
	}

	code = restore(code)

	seen := make(map[string]bool)
	var tail strings.Builder
	for _, name := range exported {
		if seen[name] {
			continue
		}
		seen[name] = true
		marker := "module.exports." + name + " ="
		if strings.Contains(code, marker) {
			continue
		}
		tail.WriteString("\nmodule.exports.")
		tail.WriteString(name)
		tail.WriteString(" = ")
		tail.WriteString(name)
		tail.WriteString(";")
	}

	return Result{Code: code + tail.String(), Dependencies: deps.list()}
}

func splitAsClause(pair string) (local, exported string) {
	parts := strings.Split(pair, " as ")
	local = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		exported = strings.TrimSpace(parts[1])
	} else {
		exported = local
	}
	return local, exported
}

func rewriteNamedBindings(inner string) string {
	var parts []string
	for _, item := range splitTopLevel(inner) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, " as ") {
			kv := strings.SplitN(item, " as ", 2)
			parts = append(parts, strings.TrimSpace(kv[0])+": "+strings.TrimSpace(kv[1]))
		} else {
			parts = append(parts, item)
		}
	}
	return strings.Join(parts, ", ")
}

// maskDynamic hides import.meta and dynamic import(...) expressions behind
// opaque tokens so later rewrite rules never touch them, restoring the
// original text once every other rewrite has run.
func maskDynamic(source string) (masked string, restore func(string) string) {
	var originals []string
	mask := func(s string) string {
		idx := len(originals)
		originals = append(originals, s)
		return "\x00MASK" + itoa(idx) + "\x00"
	}
	out := metaMask.ReplaceAllStringFunc(source, mask)
	out = dynImport.ReplaceAllStringFunc(out, mask)
	return out, func(s string) string {
		for i, orig := range originals {
			s = strings.ReplaceAll(s, "\x00MASK"+itoa(i)+"\x00", orig)
		}
		return s
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

type depSet struct {
	order []string
	seen  map[string]bool
}

func newDepSet() *depSet { return &depSet{seen: make(map[string]bool)} }

func (d *depSet) add(spec string) {
	if d.seen[spec] {
		return
	}
	d.seen[spec] = true
	d.order = append(d.order, spec)
}

func (d *depSet) list() []string {
	if d.order == nil {
		return []string{}
	}
	return d.order
}
