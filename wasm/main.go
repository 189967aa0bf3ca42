//go:build js && wasm

// Package main provides the WASM entry point exposing the runtime's
// execute/executeCode/clearCache/dispose surface to host JavaScript.
package main

import (
	"errors"
	"syscall/js"

	"go.modrun.dev/core/runtime"
	"go.modrun.dev/core/store"
)

// Version is the modrun WASM bridge version.
const Version = "0.1.0"

const project = "default"

var (
	mem = store.NewMemory()
	rt  = runtime.NewRuntime(mem, project)
)

func main() {
	modrun := make(map[string]any)
	modrun["execute"] = js.FuncOf(execute)
	modrun["executeCode"] = js.FuncOf(executeCode)
	modrun["clearCache"] = js.FuncOf(clearCache)
	modrun["dispose"] = js.FuncOf(dispose)
	modrun["writeFile"] = js.FuncOf(writeFile)
	modrun["version"] = Version

	js.Global().Set("modrun", js.ValueOf(modrun))

	select {}
}

// writeFile lets the host populate the in-memory store before calling
// execute/executeCode; the browser-side persistent-store sync protocol
// itself is outside this bridge's scope.
func writeFile(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return jsThrow("writeFile requires a path and content")
	}
	path := args[0].String()
	content := args[1].String()
	if err := mem.WriteFile(project, path, []byte(content)); err != nil {
		return jsThrow(err.Error())
	}
	return js.Undefined()
}

// execute runs opts.filePath and everything it transitively requires,
// returning a Promise that resolves to {stdout, stderr, exitCode}.
func execute(this js.Value, args []js.Value) any {
	opts := parseOptions(args, 0)
	return runAsPromise(func() (runtime.ExecuteResult, error) {
		return rt.Execute(opts)
	})
}

// executeCode stages code as a temporary entry file, then runs it like
// execute.
func executeCode(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return rejectedPromise("executeCode requires a source string")
	}
	code := args[0].String()
	opts := parseOptions(args, 1)
	return runAsPromise(func() (runtime.ExecuteResult, error) {
		return rt.ExecuteCode(code, opts)
	})
}

func clearCache(this js.Value, args []js.Value) any {
	rt.ClearCache()
	return js.Undefined()
}

func dispose(this js.Value, args []js.Value) any {
	rt.Dispose()
	return js.Undefined()
}

// runAsPromise runs work on its own goroutine and settles a Promise from
// its result, since syscall/js Promise resolution must never block the
// single JS thread.
func runAsPromise(work func() (runtime.ExecuteResult, error)) js.Value {
	handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
		resolve := promiseArgs[0]
		reject := promiseArgs[1]

		go func() {
			result, err := work()
			if err != nil {
				reject.Invoke(errorToJS(err))
				return
			}
			resolve.Invoke(resultToJS(result))
		}()

		return nil
	})
	promise := js.Global().Get("Promise").New(handler)
	handler.Release()
	return promise
}

func rejectedPromise(message string) js.Value {
	handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
		promiseArgs[1].Invoke(js.Global().Get("Error").New(message))
		return nil
	})
	promise := js.Global().Get("Promise").New(handler)
	handler.Release()
	return promise
}

func resultToJS(result runtime.ExecuteResult) map[string]any {
	return map[string]any{
		"stdout":   result.Stdout,
		"stderr":   result.Stderr,
		"exitCode": result.ExitCode,
	}
}

// errorToJS renders the closed set of sentinel error types by name and
// offending path/specifier, so the host can branch on error.name without
// string-matching Error().
func errorToJS(err error) js.Value {
	jsErr := js.Global().Get("Error").New(err.Error())

	var cannotFind *runtime.CannotFindModuleError
	var notPreloaded *runtime.NotPreloadedError
	var fileNotFound *runtime.FileNotFoundError
	var binaryErr *runtime.BinaryNotExecutableError
	var transpileErr *runtime.TranspileError

	switch {
	case errors.As(err, &cannotFind):
		jsErr.Set("name", "CannotFindModuleError")
		jsErr.Set("specifier", cannotFind.Specifier())
	case errors.As(err, &notPreloaded):
		jsErr.Set("name", "NotPreloadedError")
		jsErr.Set("specifier", notPreloaded.Specifier())
	case errors.As(err, &fileNotFound):
		jsErr.Set("name", "FileNotFoundError")
		jsErr.Set("path", fileNotFound.PathName())
	case errors.As(err, &binaryErr):
		jsErr.Set("name", "BinaryNotExecutableError")
		jsErr.Set("path", binaryErr.PathName())
	case errors.As(err, &transpileErr):
		jsErr.Set("name", "TranspileError")
		jsErr.Set("path", transpileErr.PathName())
	}
	return jsErr
}

func jsThrow(message string) any {
	panic(js.Global().Get("Error").New(message))
}

// parseOptions reads an ExecuteOptions-shaped object from args[at], if
// present.
func parseOptions(args []js.Value, at int) runtime.ExecuteOptions {
	opts := runtime.ExecuteOptions{}
	if len(args) <= at || args[at].IsUndefined() || args[at].IsNull() {
		return opts
	}
	obj := args[at]

	if v := obj.Get("filePath"); !v.IsUndefined() && !v.IsNull() {
		opts.FilePath = v.String()
	}
	if v := obj.Get("projectId"); !v.IsUndefined() && !v.IsNull() {
		opts.ProjectID = v.String()
	}
	if v := obj.Get("projectName"); !v.IsUndefined() && !v.IsNull() {
		opts.ProjectName = v.String()
	}
	if v := obj.Get("argv"); !v.IsUndefined() && !v.IsNull() {
		length := v.Length()
		argv := make([]string, length)
		for i := range length {
			argv[i] = v.Index(i).String()
		}
		opts.Argv = argv
	}
	return opts
}
