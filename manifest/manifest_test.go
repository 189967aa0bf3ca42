package manifest_test

import (
	"testing"

	"go.modrun.dev/core/manifest"
)

func TestResolveExportStringShorthand(t *testing.T) {
	m, err := manifest.Parse([]byte(`{"exports": "./index.js"}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveExport(".", nil)
	if err != nil || got != "index.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestResolveExportConditions(t *testing.T) {
	// Scenario 5: first of import/require/default.
	m, err := manifest.Parse([]byte(`{
		"exports": {
			".": {"import": "./esm/index.js", "require": "./cjs/index.js"}
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveExport(".", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "esm/index.js" {
		t.Errorf("got %q, want esm/index.js", got)
	}
}

func TestResolveExportFallsBackToRequire(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"exports": {".": {"require": "./cjs/index.js", "default": "./other.js"}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveExport(".", nil)
	if err != nil || got != "cjs/index.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestResolveExportWildcard(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"exports": {"./*": "./dist/*.js", "./feature/special": "./special.js"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveExport("./feature/special", nil)
	if err != nil || got != "special.js" {
		t.Fatalf("exact key should win over wildcard: got %q, %v", got, err)
	}
	got, err = m.ResolveExport("./feature/other", nil)
	if err != nil || got != "dist/feature/other.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestResolveExportNoSubpath(t *testing.T) {
	m, err := manifest.Parse([]byte(`{"exports": {".": "./index.js"}}`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.ResolveExport("./missing", nil)
	if err != manifest.ErrNotExported {
		t.Fatalf("expected ErrNotExported, got %v", err)
	}
}

func TestResolveImportSubpathWildcard(t *testing.T) {
	// Scenario 6.
	m, err := manifest.Parse([]byte(`{
		"imports": {"#internal/*": "./lib/*.js"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveImport("#internal/util", nil)
	if err != nil || got != "lib/util.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestResolveImportNestedConditions(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"imports": {"#dep": {"import": {"default": "./esm.js"}, "require": "./cjs.js"}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveImport("#dep", nil)
	if err != nil || got != "esm.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestResolveExportMainFallback(t *testing.T) {
	m, err := manifest.Parse([]byte(`{"main": "./lib/index.js"}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveExport(".", nil)
	if err != nil || got != "lib/index.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestCustomConditionOrder(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"exports": {".": {"browser": "./browser.js", "default": "./node.js"}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ResolveExport(".", &manifest.ResolveOptions{Conditions: []string{"browser", "default"}})
	if err != nil || got != "browser.js" {
		t.Fatalf("got %q, %v", got, err)
	}
}
