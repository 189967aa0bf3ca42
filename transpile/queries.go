package transpile

import (
	"embed"
	"fmt"
	"path"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

// languages holds the two grammars the TypeScript-aware capability needs:
// plain TypeScript and its JSX-permitting TSX variant.
var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTypescript()),
	ts.NewLanguage(tsTypescript.LanguageTSX()),
}

var (
	tsParserPool = sync.Pool{
		New: func() any {
			p := ts.NewParser()
			if err := p.SetLanguage(languages.typescript); err != nil {
				panic("transpile: failed to set typescript language: " + err.Error())
			}
			return p
		},
	}
	tsxParserPool = sync.Pool{
		New: func() any {
			p := ts.NewParser()
			if err := p.SetLanguage(languages.tsx); err != nil {
				panic("transpile: failed to set tsx language: " + err.Error())
			}
			return p
		},
	}
)

func getParser(jsx bool) *ts.Parser {
	if jsx {
		return tsxParserPool.Get().(*ts.Parser)
	}
	return tsParserPool.Get().(*ts.Parser)
}

func putParser(jsx bool, p *ts.Parser) {
	p.Reset()
	if jsx {
		tsxParserPool.Put(p)
	} else {
		tsParserPool.Put(p)
	}
}

// queryManager holds the two queries the capability runs per parse: one to
// extract import/export/dynamic-import specifiers, one to find whole
// TS-only declarations to strip.
type queryManager struct {
	mu      sync.Mutex
	imports map[bool]*ts.Query // keyed by jsx
	strip   map[bool]*ts.Query
}

func newQueryManager() (*queryManager, error) {
	qm := &queryManager{imports: make(map[bool]*ts.Query), strip: make(map[bool]*ts.Query)}
	for _, jsx := range []bool{false, true} {
		lang := languages.typescript
		if jsx {
			lang = languages.tsx
		}
		imports, err := loadQuery(lang, "imports")
		if err != nil {
			return nil, err
		}
		strip, err := loadQuery(lang, "strip")
		if err != nil {
			return nil, err
		}
		qm.imports[jsx] = imports
		qm.strip[jsx] = strip
	}
	return qm, nil
}

func loadQuery(lang *ts.Language, name string) (*ts.Query, error) {
	data, err := queryFiles.ReadFile(path.Join("queries", "typescript", name+".scm"))
	if err != nil {
		return nil, fmt.Errorf("transpile: read query %s: %w", name, err)
	}
	q, err := ts.NewQuery(lang, string(data))
	if err != nil {
		return nil, fmt.Errorf("transpile: parse query %s: %w", name, err)
	}
	return q, nil
}

var (
	globalQM     *queryManager
	globalQMOnce sync.Once
	globalQMErr  error
)

func getQueryManager() (*queryManager, error) {
	globalQMOnce.Do(func() {
		globalQM, globalQMErr = newQueryManager()
	})
	return globalQM, globalQMErr
}
