package store_test

import (
	"testing"

	"go.modrun.dev/core/store"
)

func TestMemoryReadWrite(t *testing.T) {
	m := store.NewMemory()
	m.AddFile("p1", "/src/a.js", "console.log(1)")

	f, err := m.Read("p1", "/src/a.js")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Content != "console.log(1)" {
		t.Errorf("Content = %q", f.Content)
	}
	if f.Type != store.File {
		t.Errorf("expected File type")
	}
}

func TestMemoryReadNotFound(t *testing.T) {
	m := store.NewMemory()
	_, err := m.Read("p1", "/missing.js")
	if !store.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestMemoryListByPrefix(t *testing.T) {
	m := store.NewMemory()
	m.AddFile("p1", "/src/a.js", "a")
	m.AddFile("p1", "/src/util/b.js", "b")
	m.AddFile("p1", "/other.js", "c")

	files, err := m.ListByPrefix("p1", "/src")
	if err != nil {
		t.Fatalf("ListByPrefix: %v", err)
	}
	paths := map[string]bool{}
	for _, f := range files {
		paths[f.Path] = true
	}
	if !paths["/src/a.js"] || !paths["/src/util/b.js"] {
		t.Errorf("missing expected files in %v", paths)
	}
	if paths["/other.js"] {
		t.Errorf("unexpected file outside prefix: %v", paths)
	}
}

func TestMemoryExists(t *testing.T) {
	m := store.NewMemory()
	m.AddFile("p1", "/a.js", "x")
	ok, _ := m.Exists("p1", "/a.js")
	if !ok {
		t.Error("expected /a.js to exist")
	}
	ok, _ = m.Exists("p1", "/b.js")
	if ok {
		t.Error("did not expect /b.js to exist")
	}
}

func TestMemoryWriteThenRemove(t *testing.T) {
	m := store.NewMemory()
	if err := m.WriteFile("p1", "/cache/modules/x.js", []byte("code")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := m.Read("p1", "/cache/modules/x.js")
	if err != nil || f.Content != "code" {
		t.Fatalf("Read after WriteFile failed: %v %+v", err, f)
	}
	if err := m.Remove("p1", "/cache/modules/x.js"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := m.Exists("p1", "/cache/modules/x.js"); ok {
		t.Error("expected file to be removed")
	}
}

func TestMemoryBinaryFile(t *testing.T) {
	m := store.NewMemory()
	m.AddBinaryFile("p1", "/logo.png", []byte{0x89, 0x50, 0x4e, 0x47})
	f, err := m.Read("p1", "/logo.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !f.IsBinary {
		t.Error("expected IsBinary = true")
	}
}

func TestMemoryProjectIsolation(t *testing.T) {
	m := store.NewMemory()
	m.AddFile("p1", "/a.js", "one")
	m.AddFile("p2", "/a.js", "two")

	f1, _ := m.Read("p1", "/a.js")
	f2, _ := m.Read("p2", "/a.js")
	if f1.Content == f2.Content {
		t.Error("expected project-scoped content to differ")
	}
}
