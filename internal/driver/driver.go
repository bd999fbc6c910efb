// Package driver wires internal/lexer, internal/cpp, internal/parser and
// internal/codegen into the single-translation-unit pipeline cmd/goatc
// drives: read source, preprocess, parse, generate assembly, optionally
// assemble. Grounded on the teacher's TranslateUnit: an explicit-field
// struct built by a constructor, a handful of phase methods, and one
// top-level Translate()-equivalent that calls them in order and returns
// the first error, unwrapped with %w.
package driver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gorse-io/goatc/internal/codegen"
	"github.com/gorse-io/goatc/internal/cpp"
	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/parser"
	"modernc.org/sortutil"
)

// Options carries every flag spec.md §6's CLI table lists, independent of
// cobra so tests can build a Unit without going through cmd/goatc.
type Options struct {
	IncludePaths []string // -I, searched in order after the including file's directory
	Defines      []string // -Dname or -Dname=body
	Undefines    []string // -U

	Output string // -o; empty picks a name derived from the source path

	PreprocessOnly bool // -E: print reconstructed source, skip parse/codegen
	StopAtAssembly bool // -S: stop after emitting assembly text
	Assemble       bool // -c: additionally invoke `as`

	DumpAST      bool // -fdump-ast
	DumpStack    bool // -fdump-stack
	NoDumpSource bool // -fno-dump-source

	WarnAll   bool // -Wall (warnings already default on; kept for CLI symmetry)
	WarnError bool // -Werror
	NoWarn    bool // -w
}

// Unit is one translation unit's compile pipeline state, the CompileUnit
// analogue SPEC_FULL.md §2 names (the teacher's TranslateUnit, generalized
// from "parse with someone else's C front end, translate asm" to "parse
// with our own front end, emit asm directly").
type Unit struct {
	Source string // input path, or "-" for stdin
	Output string // resolved final output path (.s or .o depending on mode)

	asmPath string // where assembly text is written, even under -c
	opts    Options
	sink    *diag.Sink
}

// dedupeIncludePaths sorts and removes duplicate entries from paths,
// the way a driver accumulating repeated `-I` flags across a long build
// command line should before handing the list to internal/cpp, grounded
// on modernc.org/sortutil's Dedupe operating over a sorted sort.Interface.
func dedupeIncludePaths(paths []string) []string {
	if len(paths) < 2 {
		return paths
	}
	cp := append([]string(nil), paths...)
	sort.Strings(cp)
	ss := sort.StringSlice(cp)
	n := sortutil.Dedupe(ss)
	return []string(ss)[:n]
}

// NewUnit builds a Unit for source under opts, resolving the output path
// the way the teacher's NewTranslateUnit derives Assembly/Object from the
// source's extension-stripped basename.
func NewUnit(source string, opts Options, sink *diag.Sink) (*Unit, error) {
	opts.IncludePaths = dedupeIncludePaths(opts.IncludePaths)

	base := source
	if base == "-" {
		base = "stdin"
	}
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	u := &Unit{Source: source, opts: opts, sink: sink}
	switch {
	case opts.Output != "":
		u.Output = opts.Output
	case opts.Assemble:
		u.Output = stem + ".o"
	default:
		u.Output = stem + ".s"
	}
	if opts.Assemble {
		u.asmPath = u.Output + ".s.tmp"
	} else {
		u.asmPath = u.Output
	}
	return u, nil
}

func (u *Unit) openSource() (io.ReadCloser, string, error) {
	if u.Source == "-" {
		return io.NopCloser(os.Stdin), "<stdin>", nil
	}
	f, err := os.Open(u.Source)
	if err != nil {
		return nil, "", fmt.Errorf("driver: %w", err)
	}
	return f, u.Source, nil
}

// Compile runs the whole pipeline: preprocess, and unless -E stopped it
// early, parse and generate assembly, and unless -S stopped it there,
// assemble. Every intermediate and final file it creates is removed on
// error, and the `-c` intermediate `.s` file is always removed once `as`
// has consumed it, per SPEC_FULL.md §5's "cleanup on every exit, normal
// or error" resource rule.
func (u *Unit) Compile() (err error) {
	f, name, err := u.openSource()
	if err != nil {
		return err
	}
	defer f.Close()

	pp := cpp.New(name, f, u.sink, u.opts.IncludePaths)
	for _, d := range u.opts.Defines {
		pp.Define(d)
	}
	for _, n := range u.opts.Undefines {
		pp.Undef(n)
	}

	if u.opts.PreprocessOnly {
		return u.reconstructSource(pp, os.Stdout)
	}

	p := parser.New(pp, u.sink)
	decls, err := p.Parse()
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	if u.opts.DumpAST {
		if err := DumpAST(os.Stdout, decls); err != nil {
			return fmt.Errorf("driver: %w", err)
		}
	}

	asmFile, err := os.Create(u.asmPath)
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	cleanupAsm := u.opts.Assemble // the .s is a throwaway intermediate under -c
	defer func() {
		asmFile.Close()
		if cleanupAsm {
			os.Remove(u.asmPath)
		}
		if err != nil {
			os.Remove(u.Output)
		}
	}()

	if err := codegen.Generate(decls, asmFile, u.opts.NoDumpSource); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if err := asmFile.Close(); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	// Close is idempotent-safe to call twice from the deferred cleanup above;
	// os.File.Close returns an error the second time, which we discard there.

	if !u.opts.Assemble {
		return nil
	}
	return u.assemble()
}

// assemble shells out to the system `as`, the same os/exec.Command pattern
// the teacher uses to invoke clang/objdump, per SPEC_FULL.md §4.0.
func (u *Unit) assemble() error {
	cmd := exec.Command("as", u.asmPath, "-o", u.Output)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("driver: as: %s: %w", strings.TrimSpace(string(out)), err)
		}
		return fmt.Errorf("driver: as: %w", err)
	}
	return nil
}

// reconstructSource implements `-E`: every macro-expanded token is
// respelled back to source text, with a space wherever the original had
// one and a newline whenever the source line advances, per spec.md §6's
// "print reconstructed source to stdout".
func (u *Unit) reconstructSource(pp *cpp.Preprocessor, w io.Writer) error {
	bw := bufio.NewWriter(w)
	lastLine := -1
	for {
		tok, err := pp.Next()
		if err != nil {
			return fmt.Errorf("driver: %w", err)
		}
		if tok.IsEOF() {
			break
		}
		spelled, err := cpp.SpellToken(tok)
		if err != nil {
			return fmt.Errorf("driver: %w", err)
		}
		switch {
		case lastLine < 0:
		case tok.Line != lastLine:
			bw.WriteByte('\n')
		case tok.Space:
			bw.WriteByte(' ')
		}
		lastLine = tok.Line
		bw.WriteString(spelled)
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
