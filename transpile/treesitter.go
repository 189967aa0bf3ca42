package transpile

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"go.modrun.dev/core/normalize"
)

// TreesitterCapability strips TypeScript-only syntax using a real parse
// tree, then hands the result to the normalizer for the ESM-to-CommonJS
// rewrite.
type TreesitterCapability struct{}

// Extensions implements Capability.
func (TreesitterCapability) Extensions() []string {
	return []string{".ts", ".mts", ".cts", ".tsx", ".jsx"}
}

// Transpile implements Capability.
func (TreesitterCapability) Transpile(ctx context.Context, code string, opts Options) (Result, error) {
	qm, err := getQueryManager()
	if err != nil {
		return Result{}, err
	}

	jsx := strings.HasSuffix(opts.AppPath, ".tsx") || strings.HasSuffix(opts.AppPath, ".jsx")
	content := []byte(code)

	parser := getParser(jsx)
	defer putParser(jsx, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return Result{}, fmt.Errorf("transpile: failed to parse %s", opts.AppPath)
	}
	defer tree.Close()

	deps := extractSpecifiers(qm.imports[jsx], tree.RootNode(), content)
	stripped := stripTypeSyntax(qm.strip[jsx], tree.RootNode(), content)
	stripped = stripInlineTypeSyntax(stripped)

	norm := normalize.Normalize(stripped)

	allDeps := append([]string{}, deps...)
	seen := make(map[string]bool, len(allDeps))
	for _, d := range allDeps {
		seen[d] = true
	}
	for _, d := range norm.Dependencies {
		if !seen[d] {
			seen[d] = true
			allDeps = append(allDeps, d)
		}
	}

	return Result{Code: norm.Code, Deps: allDeps}, nil
}

// extractSpecifiers walks query matches over the parse tree and collects
// each captured specifier string, deduplicated in first-seen order.
func extractSpecifiers(query *ts.Query, root ts.Node, content []byte) []string {
	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	var specs []string
	seen := make(map[string]bool)

	matches := cursor.Matches(query, root, content)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			name := captureNames[capture.Index]
			switch name {
			case "import.spec", "reexport.spec", "dynamicImport.spec":
				text := capture.Node.Utf8Text(content)
				if !seen[text] {
					seen[text] = true
					specs = append(specs, text)
				}
			}
		}
	}
	return specs
}

// stripTypeSyntax blanks whole-declaration TS-only nodes (interfaces, type
// aliases, ambient declarations) and lowers enum declarations to object
// literals, using byte ranges from the real parse tree.
func stripTypeSyntax(query *ts.Query, root ts.Node, content []byte) string {
	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	type edit struct {
		start, end uint
		replace    string
	}
	var edits []edit

	captureNames := query.CaptureNames()
	matches := cursor.Matches(query, root, content)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		var enumName string
		var enumNode *ts.Node
		for _, capture := range match.Captures {
			switch captureNames[capture.Index] {
			case "strip.whole":
				n := capture.Node
				edits = append(edits, edit{uint(n.StartByte()), uint(n.EndByte()), ""})
			case "enum.name":
				enumName = capture.Node.Utf8Text(content)
			case "strip.enum":
				n := capture.Node
				enumNode = &n
			}
		}
		if enumNode != nil {
			edits = append(edits, edit{uint(enumNode.StartByte()), uint(enumNode.EndByte()), lowerEnum(enumName, enumNode, content)})
		}
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out strings.Builder
	pos := uint(0)
	for _, e := range edits {
		if e.start < pos {
			continue // overlapping edit, keep the first
		}
		out.Write(content[pos:e.start])
		out.WriteString(e.replace)
		pos = e.end
	}
	out.Write(content[pos:])
	return out.String()
}

var enumMemberRE = regexp.MustCompile(`(?m)^\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*,?\s*$`)

// lowerEnum renders a string enum's members as a plain object literal,
// mapping each member name to its own name as a string.
func lowerEnum(name string, node *ts.Node, content []byte) string {
	body := node.Utf8Text(content)
	open := strings.Index(body, "{")
	closeIdx := strings.LastIndex(body, "}")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "const " + name + " = {};"
	}
	inner := body[open+1 : closeIdx]
	var b strings.Builder
	b.WriteString("const ")
	b.WriteString(name)
	b.WriteString(" = {")
	for _, raw := range strings.Split(inner, ",") {
		member := strings.TrimSpace(raw)
		if member == "" {
			continue
		}
		if idx := strings.Index(member, "="); idx != -1 {
			member = strings.TrimSpace(member[:idx])
		}
		if member == "" {
			continue
		}
		b.WriteString(member)
		b.WriteString(": \"")
		b.WriteString(member)
		b.WriteString("\", ")
	}
	b.WriteString("};")
	return b.String()
}

var (
	asExpr       = regexp.MustCompile(`\s+as\s+(const|readonly\s+)?[A-Za-z_$][\w$.<>\[\],\s|&]*`)
	satisfiesExp = regexp.MustCompile(`\s+satisfies\s+[A-Za-z_$][\w$.<>\[\],\s|&]*`)
	nonNull      = regexp.MustCompile(`([A-Za-z0-9_$\)\]])!([\s;,)\].]|$)`)
	typeParams   = regexp.MustCompile(`<[A-Za-z_$][\w$,\s<>\[\]]*>(\s*[({])`)
	paramType    = regexp.MustCompile(`([A-Za-z_$][\w$]*\??)\s*:\s*[A-Za-z_$][\w$.<>\[\],\s|&]*([,)=])`)
)

// stripInlineTypeSyntax removes the TS constructs too fine-grained for the
// whole-declaration tree-sitter pass: type assertions, non-null assertions,
// generic type parameter lists, and colon-style parameter/return type
// annotations. This is the same regex-driven, no-full-parser idiom the
// normalizer uses, applied here only after the real parse tree has already
// removed every standalone type declaration.
func stripInlineTypeSyntax(code string) string {
	code = asExpr.ReplaceAllString(code, "")
	code = satisfiesExp.ReplaceAllString(code, "")
	code = nonNull.ReplaceAllString(code, "$1$2")
	code = typeParams.ReplaceAllString(code, "$1")
	code = paramType.ReplaceAllString(code, "$1$2")
	return code
}
