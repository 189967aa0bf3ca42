// Package vpath provides pure functions over virtual project paths.
//
// A virtual path is project-relative, always begins with "/", never contains
// "." or ".." segments once normalized, and never repeats "/". These
// functions never fail: ambiguous input (e.g. ".." above root) resolves
// deterministically rather than erroring.
package vpath

import "strings"

// ToAppPath normalizes p to a project-relative path: single leading "/",
// no repeated "/", no trailing "/" except for root itself. Empty input
// normalizes to root.
func ToAppPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	segments := strings.Split(p, "/")
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		cleaned = append(cleaned, seg)
	}
	if len(cleaned) == 0 {
		return "/"
	}
	return "/" + strings.Join(cleaned, "/")
}

// NormalizeDotSegments resolves "." and ".." left-to-right. A ".." that
// would climb above root is clamped: it has no further effect.
func NormalizeDotSegments(p string) string {
	p = ToAppPath(p)
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

// Dirname returns the parent of p. Dirname("/") is "/".
func Dirname(p string) string {
	p = ToAppPath(p)
	if p == "/" {
		return "/"
	}
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// Basename returns the final path segment of p, or "/" for the root.
func Basename(p string) string {
	p = ToAppPath(p)
	if p == "/" {
		return "/"
	}
	idx := strings.LastIndex(p, "/")
	return p[idx+1:]
}

// Extname returns the extension of p's basename, including the leading dot,
// or "" if there is none.
func Extname(p string) string {
	base := Basename(p)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

// Join joins path segments with "/" and normalizes the result.
func Join(parts ...string) string {
	return ToAppPath(strings.Join(parts, "/"))
}

// ResolveRelative resolves a relative specifier against a base path's
// directory-equivalent context. base is treated as a directory when it ends
// in "/" and as a file's containing directory otherwise is the caller's
// responsibility (callers typically pass Dirname(fromFile) as base).
func ResolveRelative(base, rel string) string {
	return NormalizeDotSegments(Join(base, rel))
}

// ToFSPath prefixes an app path with the project root, producing a path of
// the form "/projects/<project>/<app path without leading slash>".
func ToFSPath(project, app string) string {
	app = ToAppPath(app)
	if app == "/" {
		return "/projects/" + project
	}
	return "/projects/" + project + app
}

// FSPathToAppPath strips the "/projects/<project>" prefix from fsPath,
// returning the project-relative view. If fsPath does not carry that
// prefix, it is returned normalized as-is.
func FSPathToAppPath(fsPath, project string) string {
	prefix := "/projects/" + project
	if fsPath == prefix {
		return "/"
	}
	if HasPrefix(fsPath, prefix) {
		return ToAppPath(strings.TrimPrefix(fsPath, prefix))
	}
	return ToAppPath(fsPath)
}

// HasPrefix reports whether p equals prefix or begins with prefix + "/".
func HasPrefix(p, prefix string) bool {
	p = ToAppPath(p)
	prefix = ToAppPath(prefix)
	if p == prefix {
		return true
	}
	if prefix == "/" {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}
