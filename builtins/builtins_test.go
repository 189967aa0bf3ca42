package builtins_test

import (
	"testing"

	"github.com/dop251/goja"

	"go.modrun.dev/core/builtins"
)

type recordingLogger struct{ warnings []string }

func (r *recordingLogger) Warn(format string, args ...any)  { r.warnings = append(r.warnings, format) }
func (r *recordingLogger) Error(format string, args ...any) {}
func (r *recordingLogger) Debug(format string, args ...any) {}

func TestPathBuiltinJoinAndDirname(t *testing.T) {
	rt := goja.New()
	reg := builtins.New(rt, nil)

	mod, err := reg.Get("path")
	if err != nil {
		t.Fatal(err)
	}
	rt.Set("path", mod)

	v, err := rt.RunString("path.join('/a', 'b', '../c')")
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "/a/c" {
		t.Fatalf("join = %q", got)
	}

	v, err = rt.RunString("path.dirname('/a/b/c.js')")
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "/a/b" {
		t.Fatalf("dirname = %q", got)
	}
}

func TestEventsBuiltinEmitsToListener(t *testing.T) {
	rt := goja.New()
	reg := builtins.New(rt, nil)

	mod, err := reg.Get("events")
	if err != nil {
		t.Fatal(err)
	}
	rt.Set("events", mod)

	v, err := rt.RunString(`
		var e = new events.EventEmitter();
		var seen = null;
		e.on('ping', function(x) { seen = x; });
		e.emit('ping', 42);
		seen;
	`)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.ToInteger(); got != 42 {
		t.Fatalf("seen = %v", got)
	}
}

func TestAssertBuiltinThrowsOnFailure(t *testing.T) {
	rt := goja.New()
	reg := builtins.New(rt, nil)

	mod, err := reg.Get("assert")
	if err != nil {
		t.Fatal(err)
	}
	rt.Set("assert", mod)

	_, err = rt.RunString("assert.strictEqual(1, 2);")
	if err == nil {
		t.Fatal("expected strictEqual(1, 2) to throw")
	}

	if _, err := rt.RunString("assert.strictEqual(1, 1);"); err != nil {
		t.Fatalf("expected strictEqual(1, 1) not to throw: %v", err)
	}
}

func TestUnknownBuiltinReturnsStubAndWarnsOnce(t *testing.T) {
	rt := goja.New()
	logger := &recordingLogger{}
	reg := builtins.New(rt, logger)

	if _, err := reg.Get("child_process"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("child_process"); err != nil {
		t.Fatal(err)
	}
	if len(logger.warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(logger.warnings))
	}
	if builtins.IsKnown("child_process") {
		t.Fatal("child_process should not be a known emulation")
	}
}

func TestBufferBuiltinRoundTripsBase64(t *testing.T) {
	rt := goja.New()
	reg := builtins.New(rt, nil)

	mod, err := reg.Get("buffer")
	if err != nil {
		t.Fatal(err)
	}
	rt.Set("buffer", mod)

	v, err := rt.RunString(`
		var b = buffer.Buffer.from('hello', 'utf8');
		buffer.bufferToString(b, 'base64');
	`)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "aGVsbG8=" {
		t.Fatalf("base64 = %q", got)
	}
}
