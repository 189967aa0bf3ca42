// Package rtlog is the minimal logging seam threaded through the resolver,
// cache, and loader wherever a failure is logged-and-swallowed rather than
// surfaced to the caller. Deliberately a narrow hand-rolled interface
// rather than a structured logging library: the packages that consume it
// only ever need leveled, printf-style lines, and at most one of them is
// live per execution (a host console sink through ConsoleLogger, stderr
// from the CLI) — see DESIGN.md.
package rtlog

import (
	"fmt"
	"io"
	"log"
)

// Logger is implemented by anything that can receive leveled diagnostic
// lines from the engine.
type Logger interface {
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Debug(format string, args ...any)
}

// Nop discards every message. Useful as a zero-value default so callers
// never need a nil check.
type Nop struct{}

func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
func (Nop) Debug(string, ...any) {}

// Std writes leveled lines to an underlying *log.Logger with a component
// prefix, for the CLI entrypoint where there is no host console sink.
type Std struct {
	logger *log.Logger
}

// NewStd creates a Std logger writing to w, prefixing every line with
// "[component] ".
func NewStd(w io.Writer, component string) *Std {
	return &Std{logger: log.New(w, "["+component+"] ", log.LstdFlags)}
}

func (s *Std) Warn(format string, args ...any) {
	s.logger.Printf("WARN "+format, args...)
}

func (s *Std) Error(format string, args ...any) {
	s.logger.Printf("ERROR "+format, args...)
}

func (s *Std) Debug(format string, args ...any) {
	s.logger.Printf("DEBUG "+format, args...)
}

// Sink is the host-provided console the sandbox exposes to evaluated code
// (console.log/error/warn). ConsoleLogger adapts it into a Logger so the
// same diagnostics a CLI run prints to stderr surface through the host's
// own console when running inside execute().
type Sink interface {
	Log(args ...any)
	Error(args ...any)
	Warn(args ...any)
}

// ConsoleLogger routes Warn/Error/Debug through a host Sink.
type ConsoleLogger struct {
	Sink Sink
}

func (c ConsoleLogger) Warn(format string, args ...any) {
	c.Sink.Warn(fmt.Sprintf(format, args...))
}

func (c ConsoleLogger) Error(format string, args ...any) {
	c.Sink.Error(fmt.Sprintf(format, args...))
}

func (c ConsoleLogger) Debug(format string, args ...any) {
	c.Sink.Log(fmt.Sprintf(format, args...))
}
