// Package codegen lowers the typed ast.Node tree to AT&T-syntax x86-64
// assembly following the System V AMD64 ABI, per spec.md §4.6. Grounded
// on 8cc's gen.c for the lowering algorithm itself, and on the teacher's
// own assembly-text emission style (strings.Builder accumulation, one
// write-style method per instruction shape, a final bufio.Writer flush)
// for *Emitter's shape.
package codegen

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Emitter accumulates assembly text in memory and flushes it once, the
// way the teacher's Line/strings.Builder pipeline defers all output
// formatting to a single pass rather than writing instruction-by-
// instruction to the destination file.
type Emitter struct {
	sb strings.Builder

	debugFile string
	debugLine int
	noDebug   bool
}

func (e *Emitter) emit(format string, args ...any) {
	e.sb.WriteString("\t")
	fmt.Fprintf(&e.sb, format, args...)
	e.sb.WriteByte('\n')
}

func (e *Emitter) raw(s string) {
	e.sb.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		e.sb.WriteByte('\n')
	}
}

func (e *Emitter) label(name string) {
	fmt.Fprintf(&e.sb, "%s:\n", name)
}

// loc emits a .file/.loc pair when the source position changed since the
// last call, gated on -fno-dump-source per spec.md §4.6. Nothing in this
// package calls it, so the generated assembly has no debug lines.
func (e *Emitter) loc(file string, line int) {
	if e.noDebug || file == "" {
		return
	}
	if file == e.debugFile && line == e.debugLine {
		return
	}
	if file != e.debugFile {
		e.debugFile = file
		e.emit(".file 1 %q", file)
	}
	e.debugLine = line
	e.emit(".loc 1 %d 0", line)
}

// Flush writes the accumulated assembly to w.
func (e *Emitter) Flush(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(e.sb.String()); err != nil {
		return err
	}
	return bw.Flush()
}

// regName returns the sub-register spelling of base ("ax", "cx", "di", ...)
// at the given byte width, per the SysV register-naming convention.
func regName(base string, size int) string {
	wide := map[string]string{"ax": "rax", "cx": "rcx", "dx": "rdx", "bx": "rbx",
		"si": "rsi", "di": "rdi", "bp": "rbp", "sp": "rsp"}
	if r, ok := wide[base]; ok {
		switch size {
		case 1:
			return map[string]string{"rax": "al", "rcx": "cl", "rdx": "dl", "rbx": "bl",
				"rsi": "sil", "rdi": "dil", "rbp": "bpl", "rsp": "spl"}[r]
		case 2:
			return base
		case 4:
			return "e" + base
		default:
			return r
		}
	}
	// r8-r15 style names: already width-agnostic apart from a suffix.
	switch size {
	case 1:
		return base + "b"
	case 2:
		return base + "w"
	case 4:
		return base + "d"
	default:
		return base
	}
}

var intArgRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

func roundUp(n, align int) int {
	if align <= 0 {
		return n
	}
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}
