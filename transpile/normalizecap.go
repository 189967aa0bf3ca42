package transpile

import (
	"context"

	"go.modrun.dev/core/normalize"
)

// NormalizeCapability wraps the §4.4 normalizer as a driver Capability for
// plain .js/.mjs/.cjs source that needs ESM-to-CommonJS rewriting.
type NormalizeCapability struct{}

// Extensions implements Capability.
func (NormalizeCapability) Extensions() []string {
	return []string{".js", ".mjs", ".cjs"}
}

// Transpile implements Capability.
func (NormalizeCapability) Transpile(_ context.Context, code string, _ Options) (Result, error) {
	r := normalize.Normalize(code)
	return Result{Code: r.Code, Deps: r.Dependencies}, nil
}
