// Package diag funnels every user-visible diagnostic through one place, the
// way the teacher's CLI funnels every fatal condition through
// fmt.Fprintln(os.Stderr, err); os.Exit(1). Grounded on 8cc's error.c: one
// formatting routine, a label ("ERROR"/"WARN"), TTY-conditional coloring,
// and warnings that promote to fatal under -Werror.
package diag

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"modernc.org/token"
)

// Position locates a diagnostic in source text. Shaped like
// modernc.org/token.Position, whose type we reuse directly for Filename,
// Line and Column rather than hand-roll an equivalent struct.
type Position = token.Position

// Kind groups diagnostics by the origin spec.md §7 taxonomizes.
type Kind int

const (
	KindLexical Kind = iota
	KindPreprocessor
	KindParse
	KindSemantic
	KindCodegen
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindPreprocessor:
		return "preprocessor"
	case KindParse:
		return "parse"
	case KindSemantic:
		return "semantic"
	case KindCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// Error is a fatal diagnostic, returned (never panicked) by every pass so
// callers can unwind cleanly instead of relying on 8cc's process-exit
// propagation.
type Error struct {
	Pos     Position
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: [%s] %s", formatPos(e.Pos), e.Kind, e.Message)
}

// Errorf builds a fatal *Error at pos with kind k.
func Errorf(pos Position, k Kind, format string, args ...any) *Error {
	return &Error{Pos: pos, Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Sink is where Report and Warnf write; tests substitute a buffer, and
// WarningsAsErrors flips warnings into fatal Errors instead of printing.
type Sink struct {
	Out              io.Writer
	WarningsAsErrors bool
	WarningsEnabled  bool
	Color            bool
}

// NewSink builds a Sink writing to stderr, auto-detecting TTY coloring the
// way 8cc's print_error checks isatty(fileno(stderr)).
func NewSink() *Sink {
	return &Sink{
		Out:             os.Stderr,
		WarningsEnabled: true,
		Color:           term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Warnf prints a non-fatal diagnostic, or returns a fatal *Error if
// WarningsAsErrors is set (the -Werror behavior).
func (s *Sink) Warnf(pos Position, k Kind, format string, args ...any) error {
	if !s.WarningsEnabled {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if s.WarningsAsErrors {
		return &Error{Pos: pos, Kind: k, Message: msg}
	}
	s.print("WARN", pos, msg)
	return nil
}

// Report prints a fatal *Error's message without terminating the process;
// internal/driver decides the exit code after the pass returns, unlike
// 8cc's errorf, which calls exit(1) directly.
func (s *Sink) Report(err *Error) {
	s.print("ERROR", err.Pos, err.Message)
}

func (s *Sink) print(label string, pos Position, msg string) {
	if s.Color {
		color := "\x1b[1;33m"
		if label == "ERROR" {
			color = "\x1b[1;31m"
		}
		fmt.Fprintf(s.Out, "%s[%s]\x1b[0m %s: %s\n", color, label, formatPos(pos), msg)
		return
	}
	fmt.Fprintf(s.Out, "[%s] %s: %s\n", label, formatPos(pos), msg)
}

func formatPos(pos Position) string {
	if pos.Filename == "" {
		return "(unknown)"
	}
	return pos.String()
}
