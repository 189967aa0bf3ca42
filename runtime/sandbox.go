package runtime

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"go.modrun.dev/core/builtins"
)

// Sink is the host console a sandboxed execution writes through: log/error/
// warn/clear, matching the shape evaluated code sees as the console global.
type Sink interface {
	Log(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Clear()
}

// BufferSink is the Sink used when ExecuteOptions.Console is nil: it
// accumulates plain text so Execute can return it as stdout/stderr.
type BufferSink struct {
	Stdout strings.Builder
	Stderr strings.Builder
}

func (b *BufferSink) Log(args ...any)   { fmt.Fprintln(&b.Stdout, joinArgs(args)) }
func (b *BufferSink) Warn(args ...any)  { fmt.Fprintln(&b.Stdout, joinArgs(args)) }
func (b *BufferSink) Error(args ...any) { fmt.Fprintln(&b.Stderr, joinArgs(args)) }
func (b *BufferSink) Clear()            { b.Stdout.Reset(); b.Stderr.Reset() }

func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}

func exportArgs(call goja.FunctionCall) []any {
	out := make([]any, len(call.Arguments))
	for i, v := range call.Arguments {
		out[i] = v.Export()
	}
	return out
}

// buildGlobals wires the sandbox surface onto vm: console, process, Buffer,
// and a handful of timer shims. require() is bound separately per module,
// since each module body sees a require scoped to its own __filename.
func buildGlobals(vm *goja.Runtime, sink Sink, reg *builtins.Registry, opts ExecuteOptions) (*goja.Object, error) {
	console := vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		sink.Log(exportArgs(call)...)
		return goja.Undefined()
	})
	console.Set("warn", func(call goja.FunctionCall) goja.Value {
		sink.Warn(exportArgs(call)...)
		return goja.Undefined()
	})
	console.Set("error", func(call goja.FunctionCall) goja.Value {
		sink.Error(exportArgs(call)...)
		return goja.Undefined()
	})
	console.Set("clear", func(call goja.FunctionCall) goja.Value {
		sink.Clear()
		return goja.Undefined()
	})
	if err := vm.Set("console", console); err != nil {
		return nil, err
	}

	process := vm.NewObject()
	process.Set("argv", append([]string{"node", opts.FilePath}, opts.Argv...))
	process.Set("env", map[string]string{})
	process.Set("platform", "browser")
	process.Set("version", "v0.0.0-modrun")
	process.Set("cwd", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue("/")
	})
	stdout := vm.NewObject()
	stdout.Set("write", func(call goja.FunctionCall) goja.Value {
		sink.Log(exportArgs(call)...)
		return vm.ToValue(true)
	})
	stderr := vm.NewObject()
	stderr.Set("write", func(call goja.FunctionCall) goja.Value {
		sink.Error(exportArgs(call)...)
		return vm.ToValue(true)
	})
	stdin := vm.NewObject()
	stdin.Set("on", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	process.Set("stdout", stdout)
	process.Set("stderr", stderr)
	process.Set("stdin", stdin)
	process.Set("exit", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	if err := vm.Set("process", process); err != nil {
		return nil, err
	}

	if bufferMod, err := reg.Get("buffer"); err == nil {
		if obj, ok := bufferMod.(*goja.Object); ok {
			vm.Set("Buffer", obj.Get("Buffer"))
		}
	}

	installTimers(vm)

	return console, nil
}

// installTimers gives evaluated code setTimeout/setInterval/clear* globals.
// goja has no real event loop: setTimeout runs its callback synchronously and
// immediately, setInterval never runs its callback, and clearTimeout and
// clearInterval do nothing. That is enough for the single-pass, non-realtime evaluation this engine
// performs, and keeps Execute from ever blocking on a host timer.
func installTimers(vm *goja.Runtime) {
	var nextHandle int64
	vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		if fn, ok := goja.AssertFunction(call.Argument(0)); ok {
			fn(goja.Undefined())
		}
		nextHandle++
		return vm.ToValue(nextHandle)
	})
	vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		nextHandle++
		return vm.ToValue(nextHandle)
	})
	vm.Set("clearTimeout", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	vm.Set("clearInterval", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
}
