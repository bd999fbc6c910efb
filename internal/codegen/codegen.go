package codegen

import (
	"fmt"
	"io"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/types"
)

// Gen holds the code generator's per-translation-unit state: the single
// active Emitter, frame-offset assignments for the function currently
// being lowered, and the globals queued for .data/.bss emission at the
// end, per spec.md §5's "one code-generator state" resource model.
type Gen struct {
	e *Emitter

	localOff  map[*ast.Node]int
	curRetLbl string
	labelSeq  int
	globals   []*ast.Node // Decl nodes, queued for emitDataSection

	// retPtrOff is the frame slot holding the hidden return-value pointer
	// for a function returning a struct/union by value, 0 when the
	// current function has no such slot.
	retPtrOff int

	strLits   []strLit
	floatLits []floatLit
	seenStr   map[string]bool
	seenFloat map[string]bool
}

type strLit struct {
	label string
	bytes []byte
}

type floatLit struct {
	label string
	val   float64
	wide  bool // true = double, false = float
}

// Generate lowers decls (the parser's top-level declaration/function-
// definition list) to assembly text written to w. noDumpSource sets the
// Emitter's gate for .file/.loc output; no lowering step calls
// Emitter.loc, so the output carries no .file/.loc directives either way.
func Generate(decls []*ast.Node, w io.Writer, noDumpSource bool) error {
	g := &Gen{e: &Emitter{noDebug: noDumpSource}, seenStr: map[string]bool{}, seenFloat: map[string]bool{}}
	g.e.raw(".text")
	for _, n := range decls {
		switch n.Kind {
		case ast.FuncDef:
			g.genFunc(n)
		case ast.Decl:
			g.globals = append(g.globals, n)
		}
	}
	g.emitDataSection()
	g.emitLiteralPool()
	return g.e.Flush(w)
}

func (g *Gen) newLabel() string {
	g.labelSeq++
	return fmt.Sprintf(".Lcg%d", g.labelSeq)
}

// assignFrame lays out fn's parameters and locals as negative offsets
// from %rbp, each aligned to its own natural alignment, and returns the
// total (16-byte rounded) frame size to reserve, per spec.md §4.6.
func (g *Gen) assignFrame(fn *ast.Node) int {
	g.localOff = map[*ast.Node]int{}
	off := 0
	assign := func(v *ast.Node) {
		sz, align := v.Type.Size, v.Type.Align
		if sz == 0 {
			sz = 8
		}
		if align == 0 {
			align = 8
		}
		off = roundUp(off, align) + sz
		g.localOff[v] = -off
	}
	for _, p := range fn.Params {
		assign(p)
	}
	for _, l := range fn.LocalVars {
		if _, ok := g.localOff[l]; !ok {
			assign(l)
		}
	}
	return roundUp(off, 16)
}

// variadicSaveBase is the frame offset of the 176-byte register-save
// area's first byte, which the prologue fills. No other code reads it:
// __builtin_va_start is not lowered.
const variadicSaveBase = 176

// genFunc emits one function's prologue, body, and epilogue, per
// spec.md §4.6.
func (g *Gen) genFunc(fn *ast.Node) {
	ft := fn.FuncType
	if !fn.IsStatic {
		g.e.raw(".globl " + fn.FName)
	}
	g.e.label(fn.FName)
	g.e.emit("pushq %%rbp")
	g.e.emit("movq %%rsp, %%rbp")

	if ft.Variadic {
		g.e.emit("subq $%d, %%rsp", variadicSaveBase)
		for i, r := range intArgRegs {
			g.e.emit("movq %%%s, %d(%%rbp)", r, -variadicSaveBase+i*8)
		}
		for i := 0; i < 8; i++ {
			g.e.emit("movdqu %%xmm%d, %d(%%rbp)", i, -variadicSaveBase+48+i*16)
		}
	}

	frame := g.assignFrame(fn)

	// A struct-returning function receives a hidden pointer to its
	// caller-owned result slot as an implicit first integer argument,
	// per the System V AMD64 ABI's aggregate-return convention (the one
	// place a struct still travels through a register: the pointer to
	// it, never the struct itself).
	g.retPtrOff = 0
	structReturn := ft.Return != nil && ft.Return.Kind == types.StructUnion
	if structReturn {
		frame = roundUp(frame+8, 16)
		g.retPtrOff = -frame
	}
	if frame > 0 {
		g.e.emit("subq $%d, %%rsp", frame)
	}
	if structReturn {
		g.e.emit("movq %%rdi, %d(%%rbp)", g.retPtrOff)
	}
	g.spillParams(fn, structReturn)

	g.curRetLbl = g.newLabel()
	g.genStmt(fn.Body)
	g.e.label(g.curRetLbl)
	if structReturn {
		g.e.emit("movq %d(%%rbp), %%rax", g.retPtrOff)
	}
	g.e.emit("leave")
	g.e.emit("ret")
	g.e.raw("")
}

// spillParams copies each incoming parameter from its ABI location
// (integer register, SSE register, or caller-provided stack slot) into
// its assigned frame slot, per spec.md §4.6: struct parameters are
// always stack-provided and copied byte-range-wise, never classified
// into registers.
func (g *Gen) spillParams(fn *ast.Node, structReturn bool) {
	intIdx, sseIdx := 0, 0
	if structReturn {
		intIdx = 1 // %rdi already consumed by the hidden return pointer
	}
	stackOff := 16 // return address + saved rbp sit below the first stack arg
	for _, p := range fn.Params {
		off := g.localOff[p]
		switch {
		case p.Type.Kind == types.StructUnion:
			g.copyBlock("rbp", stackOff, "rbp", off, p.Type.Size)
			stackOff += roundUp(p.Type.Size, 8)
		case p.Type.IsFloat():
			if sseIdx < 8 {
				instr := "movss"
				if p.Type.Kind != types.Float {
					instr = "movsd"
				}
				g.e.emit("%s %%xmm%d, %d(%%rbp)", instr, sseIdx, off)
				sseIdx++
			} else {
				g.e.emit("movq %d(%%rbp), %%rax", stackOff)
				g.e.emit("movq %%rax, %d(%%rbp)", off)
				stackOff += 8
			}
		default:
			if intIdx < 6 {
				reg := regName(shortName(intArgRegs[intIdx]), p.Type.Size)
				g.e.emit("mov%s %%%s, %d(%%rbp)", movSuffix(p.Type.Size), reg, off)
				intIdx++
			} else {
				g.e.emit("movq %d(%%rbp), %%rax", stackOff)
				g.e.emit("mov%s %%%s, %d(%%rbp)", movSuffix(p.Type.Size), regName("ax", p.Type.Size), off)
				stackOff += 8
			}
		}
	}
}

// shortName strips the "r" off a 64-bit register name to feed regName's
// base-name lookup (e.g. "rdi" -> "di").
func shortName(r string) string {
	if len(r) == 3 && r[0] == 'r' {
		return r[1:]
	}
	return r
}

func movSuffix(size int) string {
	switch size {
	case 1:
		return "b"
	case 2, 0:
		if size == 0 {
			return "q"
		}
		return "w"
	case 4:
		return "l"
	default:
		return "q"
	}
}

// copyBlock emits a word/dword/byte-wise copy of n bytes from
// srcOff(%srcReg) to dstOff(%dstReg), per spec.md §4.6's aggregate
// assignment rule for structs too large to move through a single
// register.
func (g *Gen) copyBlock(srcReg string, srcOff int, dstReg string, dstOff int, n int) {
	pos := 0
	for n-pos >= 8 {
		g.e.emit("movq %d(%%%s), %%r11", srcOff+pos, srcReg)
		g.e.emit("movq %%r11, %d(%%%s)", dstOff+pos, dstReg)
		pos += 8
	}
	if n-pos >= 4 {
		g.e.emit("movl %d(%%%s), %%r11d", srcOff+pos, srcReg)
		g.e.emit("movl %%r11d, %d(%%%s)", dstOff+pos, dstReg)
		pos += 4
	}
	if n-pos >= 2 {
		g.e.emit("movw %d(%%%s), %%r11w", srcOff+pos, srcReg)
		g.e.emit("movw %%r11w, %d(%%%s)", dstOff+pos, dstReg)
		pos += 2
	}
	for n-pos >= 1 {
		g.e.emit("movb %d(%%%s), %%r11b", srcOff+pos, srcReg)
		g.e.emit("movb %%r11b, %d(%%%s)", dstOff+pos, dstReg)
		pos++
	}
}
