package codegen

import (
	"math"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/types"
)

func floatBits32(v float64) uint32 { return math.Float32bits(float32(v)) }
func floatBits64(v float64) uint64 { return math.Float64bits(v) }

// emitDataSection emits every queued global variable, per spec.md §4.6:
// a global with an initializer goes to .data as literal directive bytes
// (even when every byte is zero), one with no initializer goes to .bss
// via .lcomm, grounded on 8cc's gen.c emit_data/emit_bss. String and
// float literals are emitted separately by emitLiteralPool.
func (g *Gen) emitDataSection() {
	for _, n := range g.globals {
		g.emitGlobalDecl(n)
	}
}

func (g *Gen) emitGlobalDecl(n *ast.Node) {
	v := n.DeclVar
	if !v.IsStatic {
		g.e.raw(".globl " + v.GLabel)
	}
	if len(n.DeclInit) == 0 {
		g.e.raw(".bss")
		g.e.emit(".align %d", alignOf(v.Type))
		g.e.emit(".lcomm %s, %d", v.GLabel, v.Type.Size)
		return
	}
	g.e.raw(".data")
	g.e.emit(".align %d", alignOf(v.Type))
	g.e.label(v.GLabel)
	g.emitInitBytes(v.Type.Size, n.DeclInit)
}

func alignOf(ty *types.Type) int {
	if ty.Align == 0 {
		return 1
	}
	return ty.Align
}

// emitInitBytes walks the offset-sorted LvarInit entries, emitting
// directive bytes for each and zero-fill .zero gaps between them, per
// spec.md §4.4's flattened-initializer design.
func (g *Gen) emitInitBytes(totalSize int, inits []ast.LvarInit) {
	pos := 0
	for _, init := range inits {
		if init.Off > pos {
			g.e.emit(".zero %d", init.Off-pos)
			pos = init.Off
		}
		n := g.emitOneInit(init)
		pos += n
	}
	if totalSize > pos {
		g.e.emit(".zero %d", totalSize-pos)
	}
}

// emitOneInit emits one initializer entry's directive and returns the
// number of bytes it occupies.
func (g *Gen) emitOneInit(init ast.LvarInit) int {
	v := init.Value
	ty := init.Type
	switch {
	case ty.IsFloat():
		if ty.Kind == types.Float {
			g.e.emit(".long %d", floatBits32(v.FVal))
		} else {
			g.e.emit(".quad %d", floatBits64(v.FVal))
		}
		return ty.Size
	case ty.Kind == types.Ptr && v.Kind == ast.GlobalVar:
		g.e.emit(".quad %s", v.GLabel)
		return 8
	case ty.Kind == types.Ptr && v.Kind == ast.Literal && v.SVal != nil:
		if !g.seenStr[v.SLabel] {
			g.seenStr[v.SLabel] = true
			g.strLits = append(g.strLits, strLit{label: v.SLabel, bytes: v.SVal})
		}
		g.e.emit(".quad %s", v.SLabel)
		return 8
	case ty.Kind == types.Ptr && v.Kind == ast.Addr:
		g.e.emit(".quad %s+%d", addrBaseLabel(v.Operand), addrBaseOffset(v.Operand))
		return 8
	default:
		switch ty.Size {
		case 1:
			g.e.emit(".byte %d", v.IVal)
		case 2:
			g.e.emit(".word %d", v.IVal)
		case 4:
			g.e.emit(".long %d", v.IVal)
		default:
			g.e.emit(".quad %d", v.IVal)
		}
		return ty.Size
	}
}

func addrBaseLabel(n *ast.Node) string {
	switch n.Kind {
	case ast.GlobalVar:
		return n.GLabel
	case ast.StructRef:
		return addrBaseLabel(n.Struc)
	}
	return ""
}

func addrBaseOffset(n *ast.Node) int {
	if n.Kind == ast.StructRef {
		return n.FieldOffset + addrBaseOffset(n.Struc)
	}
	return 0
}

// emitLiteralPool materializes the .rodata backing every string and
// float/double literal referenced by the functions generated so far,
// collected on first reference by genLiteral.
func (g *Gen) emitLiteralPool() {
	if len(g.strLits) == 0 && len(g.floatLits) == 0 {
		return
	}
	g.e.raw(".section .rodata")
	for _, s := range g.strLits {
		g.e.label(s.label)
		for _, b := range s.bytes {
			g.e.emit(".byte %d", b)
		}
	}
	for _, f := range g.floatLits {
		g.e.emit(".align %d", map[bool]int{true: 8, false: 4}[f.wide])
		g.e.label(f.label)
		if f.wide {
			g.e.emit(".quad %d", floatBits64(f.val))
		} else {
			g.e.emit(".long %d", floatBits32(f.val))
		}
	}
}
