package vpath_test

import (
	"testing"

	"go.modrun.dev/core/vpath"
)

func TestToAppPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "/"},
		{"already root", "/", "/"},
		{"no leading slash", "a/b", "/a/b"},
		{"repeated slashes", "/a//b///c", "/a/b/c"},
		{"trailing slash", "/a/b/", "/a/b"},
		{"root trailing slash", "//", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vpath.ToAppPath(tt.in); got != tt.want {
				t.Errorf("ToAppPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToAppPathIdempotent(t *testing.T) {
	for _, p := range []string{"/a/b/c", "/", "/x", "weird//path/"} {
		once := vpath.ToAppPath(p)
		twice := vpath.ToAppPath(once)
		if once != twice {
			t.Errorf("ToAppPath not idempotent for %q: %q vs %q", p, once, twice)
		}
	}
}

func TestNormalizeDotSegments(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/a/../../x", "/x"},
		{"/a/./b", "/a/b"},
		{"/a/b/..", "/a"},
		{"/../../..", "/"},
		{"/a/b/./../c", "/a/c"},
	}
	for _, tt := range tests {
		if got := vpath.NormalizeDotSegments(tt.in); got != tt.want {
			t.Errorf("NormalizeDotSegments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDotSegmentsIdempotent(t *testing.T) {
	for _, p := range []string{"/a/../../x", "/a/./b/../c"} {
		once := vpath.NormalizeDotSegments(vpath.ToAppPath(p))
		twice := vpath.NormalizeDotSegments(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q vs %q", p, once, twice)
		}
	}
}

func TestDirname(t *testing.T) {
	tests := map[string]string{
		"/":         "/",
		"/a":        "/",
		"/a/b":      "/a",
		"/a/b/c.js": "/a/b",
	}
	for in, want := range tests {
		if got := vpath.Dirname(in); got != want {
			t.Errorf("Dirname(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBasename(t *testing.T) {
	tests := map[string]string{
		"/":         "/",
		"/a":        "a",
		"/a/b/c.js": "c.js",
	}
	for in, want := range tests {
		if got := vpath.Basename(in); got != want {
			t.Errorf("Basename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtname(t *testing.T) {
	tests := map[string]string{
		"/a/b.ts":  ".ts",
		"/a/b":     "",
		"/a/.env":  "",
		"/a/b.tar": ".tar",
	}
	for in, want := range tests {
		if got := vpath.Extname(in); got != want {
			t.Errorf("Extname(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		base, rel, want string
	}{
		{"/", "x.js", "/x.js"},
		{"/a/b", "./c.js", "/a/b/c.js"},
		{"/a/b", "../c.js", "/a/c.js"},
		{"/a/b", "../../../c.js", "/c.js"},
	}
	for _, tt := range tests {
		if got := vpath.ResolveRelative(tt.base, tt.rel); got != tt.want {
			t.Errorf("ResolveRelative(%q, %q) = %q, want %q", tt.base, tt.rel, got, tt.want)
		}
	}
}

func TestFSPathRoundTrip(t *testing.T) {
	for _, p := range []string{"/src/main.ts", "/", "/a/b/c.js"} {
		fsPath := vpath.ToFSPath("proj1", p)
		back := vpath.FSPathToAppPath(fsPath, "proj1")
		want := vpath.ToAppPath(p)
		if back != want {
			t.Errorf("round trip failed for %q: fsPath=%q back=%q want=%q", p, fsPath, back, want)
		}
	}
}

func TestHasPrefix(t *testing.T) {
	if !vpath.HasPrefix("/a/b", "/a") {
		t.Error("expected /a/b to have prefix /a")
	}
	if vpath.HasPrefix("/ab", "/a") {
		t.Error("did not expect /ab to have prefix /a (segment boundary)")
	}
	if !vpath.HasPrefix("/a", "/a") {
		t.Error("expected /a to have prefix /a (equal)")
	}
}
