package resolver_test

import (
	"testing"

	"go.modrun.dev/core/resolver"
	"go.modrun.dev/core/store"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		spec string
		want resolver.Kind
	}{
		{"fs", resolver.KindBuiltin},
		{"path", resolver.KindBuiltin},
		{"#internal/util", resolver.KindSubpathImports},
		{"./a.js", resolver.KindRelative},
		{"../a.js", resolver.KindRelative},
		{"@/components/Button", resolver.KindAlias},
		{"/abs/path.js", resolver.KindAbsolute},
		{"lodash", resolver.KindPackage},
		{"@scope/pkg", resolver.KindPackage},
		{"@scope/pkg/sub", resolver.KindPackage},
	}
	for _, c := range cases {
		if got := resolver.Classify(c.spec); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.spec, got, c.want)
		}
	}
}

func TestResolveBuiltin(t *testing.T) {
	r := resolver.New(store.NewMemory(), "p")
	res, err := r.Resolve("fs", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsBuiltin || res.Path != "fs" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveBuiltinUnknownBareSpecifierFails(t *testing.T) {
	mem := store.NewMemory()
	r := resolver.New(mem, "p")
	_, err := r.Resolve("totally-unknown-package", "/index.js")
	if err != resolver.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveRelativeWithExtensionProbing(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/src/util.ts", "export const x = 1;")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("./util", "/src/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/src/util.ts" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveRelativeIndexFallback(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/lib/feature/index.js", "module.exports = {};")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("./feature", "/lib/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/lib/feature/index.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveAlias(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/src/components/Button.tsx", "export default function Button(){}")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("@/components/Button", "/src/app/page.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/src/components/Button.tsx" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveAbsolute(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/config/settings.json", "{}")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("/config/settings", "/anywhere/file.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/config/settings.json" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveSubpathImports(t *testing.T) {
	// Scenario 6.
	mem := store.NewMemory()
	mem.AddFile("p", "/package.json", `{"imports": {"#internal/*": "./lib/*.js"}}`)
	mem.AddFile("p", "/lib/util.js", "module.exports = {};")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("#internal/util", "/src/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/lib/util.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveSubpathImportsStopsAtNodeModulesBoundary(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/package.json", `{"imports": {"#shared": "./outer.js"}}`)
	mem.AddFile("p", "/node_modules/dep/package.json", `{"name": "dep"}`)
	r := resolver.New(mem, "p")

	_, err := r.Resolve("#shared", "/node_modules/dep/index.js")
	if err != resolver.ErrNotFound {
		t.Fatalf("expected ErrNotFound because dep's own manifest has no #shared import, got %v", err)
	}
}

func TestResolvePackageWithExportsMap(t *testing.T) {
	// Scenario 5.
	mem := store.NewMemory()
	mem.AddFile("p", "/node_modules/left-pad/package.json", `{
		"name": "left-pad",
		"exports": {".": {"import": "./esm/index.js", "require": "./cjs/index.js"}}
	}`)
	mem.AddFile("p", "/node_modules/left-pad/esm/index.js", "export default function(){}")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("left-pad", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/node_modules/left-pad/esm/index.js" {
		t.Errorf("got %q", res.Path)
	}
	if !res.IsNodeModule {
		t.Error("expected IsNodeModule")
	}
}

func TestResolvePackageSubpathExport(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/node_modules/ui/package.json", `{
		"name": "ui",
		"exports": {".": "./index.js", "./*": "./dist/*.js"}
	}`)
	mem.AddFile("p", "/node_modules/ui/dist/button.js", "module.exports = {};")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("ui/button", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/node_modules/ui/dist/button.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolvePackageFallsBackToMainWhenExportsHasNoDotKey(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/node_modules/legacy-ui/package.json", `{
		"name": "legacy-ui",
		"exports": {"./*": "./dist/*.js"},
		"main": "./lib/foo.js"
	}`)
	mem.AddFile("p", "/node_modules/legacy-ui/lib/foo.js", "module.exports = {};")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("legacy-ui", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/node_modules/legacy-ui/lib/foo.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveScopedPackage(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/node_modules/@scope/pkg/package.json", `{"name": "@scope/pkg", "main": "./lib/main.js"}`)
	mem.AddFile("p", "/node_modules/@scope/pkg/lib/main.js", "module.exports = {};")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("@scope/pkg", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/node_modules/@scope/pkg/lib/main.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolvePackageFallsBackWithoutManifest(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/node_modules/legacy/dist/index.js", "module.exports = {};")
	r := resolver.New(mem, "p")

	res, err := r.Resolve("legacy", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/node_modules/legacy/dist/index.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestResolveCustomConditionOrder(t *testing.T) {
	mem := store.NewMemory()
	mem.AddFile("p", "/node_modules/ui/package.json", `{
		"exports": {".": {"browser": "./browser.js", "default": "./node.js"}}
	}`)
	mem.AddFile("p", "/node_modules/ui/browser.js", "")
	mem.AddFile("p", "/node_modules/ui/node.js", "")
	r := resolver.New(mem, "p")
	r.Conditions = []string{"browser", "default"}

	res, err := r.Resolve("ui", "/index.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/node_modules/ui/browser.js" {
		t.Errorf("got %q", res.Path)
	}
}

func TestRememberAndLookupBareSpecifier(t *testing.T) {
	r := resolver.New(store.NewMemory(), "p")
	if _, ok := r.LookupBareSpecifier("lodash"); ok {
		t.Fatal("expected no entry yet")
	}
	r.RememberBareSpecifier("lodash", "/node_modules/lodash/index.js")
	got, ok := r.LookupBareSpecifier("lodash")
	if !ok || got != "/node_modules/lodash/index.js" {
		t.Fatalf("got %q, %v", got, ok)
	}
}
