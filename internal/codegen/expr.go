package codegen

import (
	"fmt"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/token"
	"github.com/gorse-io/goatc/internal/types"
)

// genExpr lowers n so its value sits in %rax (integer/pointer) or %xmm0
// (float/double), per spec.md §4.6's single-accumulator convention,
// grounded on 8cc's gen.c emit_expr dispatch.
func (g *Gen) genExpr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Literal:
		g.genLiteral(n)
	case ast.LocalVar, ast.GlobalVar, ast.Deref, ast.StructRef:
		g.genLoad(n)
	case ast.Addr:
		g.genAddr(n.Operand)
	case ast.Conv, ast.Cast:
		g.genConv(n)
	case ast.Binary:
		g.genBinary(n)
	case ast.Unary:
		g.genUnary(n)
	case ast.PreInc, ast.PreDec, ast.PostInc, ast.PostDec:
		g.genIncDec(n)
	case ast.FuncCall:
		g.genCall(n)
	case ast.FuncPtrCall:
		g.genPtrCall(n)
	case ast.FuncDesg:
		g.e.emit("leaq %s(%%rip), %%rax", n.FName)
	case ast.If:
		g.genTernary(n)
	case ast.StmtExpr:
		g.genStmt(n.Body)
	case ast.NoopStmt:
		// asm() passthrough, nothing to evaluate.
	default:
		panic(fmt.Sprintf("codegen: unhandled expression kind %d", n.Kind))
	}
}

func (g *Gen) genLiteral(n *ast.Node) {
	switch {
	case n.Type.IsFloat():
		lbl := n.FLabel
		if !g.seenFloat[lbl] {
			g.seenFloat[lbl] = true
			g.floatLits = append(g.floatLits, floatLit{label: lbl, val: n.FVal, wide: n.Type.Kind != types.Float})
		}
		if n.Type.Kind == types.Float {
			g.e.emit("movss %s(%%rip), %%xmm0", lbl)
		} else {
			g.e.emit("movsd %s(%%rip), %%xmm0", lbl)
		}
	case n.SVal != nil:
		if !g.seenStr[n.SLabel] {
			g.seenStr[n.SLabel] = true
			g.strLits = append(g.strLits, strLit{label: n.SLabel, bytes: n.SVal})
		}
		g.e.emit("leaq %s(%%rip), %%rax", n.SLabel)
	default:
		g.e.emit("movq $%d, %%rax", n.IVal)
	}
}

// genAddr computes n's address into %rax.
func (g *Gen) genAddr(n *ast.Node) {
	switch n.Kind {
	case ast.LocalVar:
		g.e.emit("leaq %d(%%rbp), %%rax", g.localOff[n])
	case ast.GlobalVar:
		g.e.emit("leaq %s(%%rip), %%rax", n.GLabel)
	case ast.Deref:
		g.genExpr(n.Operand)
	case ast.StructRef:
		g.genAddr(n.Struc)
		if n.FieldOffset != 0 {
			g.e.emit("addq $%d, %%rax", n.FieldOffset)
		}
	default:
		panic("codegen: not an lvalue")
	}
}

// genLoad loads n's value from memory into %rax/%xmm0, applying
// bit-field shift-and-mask for StructRef nodes whose field is a
// bit-field (FieldBitSize >= 0), per spec.md §4.6.
func (g *Gen) genLoad(n *ast.Node) {
	g.genAddr(n)
	if n.Kind == ast.StructRef && n.FieldBitSize >= 0 {
		g.loadBitfield(n)
		return
	}
	g.loadFromRax(n.Type)
}

func (g *Gen) loadFromRax(ty *types.Type) {
	switch {
	case ty.Kind == types.Array || ty.Kind == types.Func:
		// array/function decay: address already computed, nothing to load.
	case ty.IsFloat():
		instr := "movsd"
		if ty.Kind == types.Float {
			instr = "movss"
		}
		g.e.emit("%s (%%rax), %%xmm0", instr)
	case ty.Kind == types.StructUnion:
		// struct value: %rax already holds its address, left for the
		// caller (assignment/argument copy) to block-copy from.
	default:
		g.widenLoad(ty)
	}
}

func (g *Gen) widenLoad(ty *types.Type) {
	switch ty.Size {
	case 1:
		if ty.Unsigned {
			g.e.emit("movzbq (%%rax), %%rax")
		} else {
			g.e.emit("movsbq (%%rax), %%rax")
		}
	case 2:
		if ty.Unsigned {
			g.e.emit("movzwq (%%rax), %%rax")
		} else {
			g.e.emit("movswq (%%rax), %%rax")
		}
	case 4:
		if ty.Unsigned {
			g.e.emit("movl (%%rax), %%eax")
		} else {
			g.e.emit("movslq (%%rax), %%rax")
		}
	default:
		g.e.emit("movq (%%rax), %%rax")
	}
}

func (g *Gen) loadBitfield(n *ast.Node) {
	g.e.emit("movq (%%rax), %%rax")
	if n.FieldBitOff != 0 {
		g.e.emit("shrq $%d, %%rax", n.FieldBitOff)
	}
	mask := int64(1)<<uint(n.FieldBitSize) - 1
	g.e.emit("andq $%d, %%rax", mask)
	if !n.Type.Unsigned {
		shift := 64 - n.FieldBitSize
		g.e.emit("shlq $%d, %%rax", shift)
		g.e.emit("sarq $%d, %%rax", shift)
	}
}

// store writes %rax/%xmm0 into the address held in %rcx (callers move
// genAddr(dst)'s %rax result there first), per spec.md §4.6's assignment
// rule.
func (g *Gen) store(dst *ast.Node) {
	if dst.Kind == ast.StructRef && dst.FieldBitSize >= 0 {
		g.storeBitfield(dst)
		return
	}
	ty := dst.Type
	switch {
	case ty.IsFloat():
		instr := "movsd"
		if ty.Kind == types.Float {
			instr = "movss"
		}
		g.e.emit("%s %%xmm0, (%%rcx)", instr)
	case ty.Kind == types.StructUnion:
		g.copyBlock("rax", 0, "rcx", 0, ty.Size)
	default:
		g.e.emit("mov%s %%%s, (%%rcx)", movSuffix(ty.Size), regName("ax", ty.Size))
	}
}

func (g *Gen) storeBitfield(dst *ast.Node) {
	width := dst.FieldBitSize
	mask := int64(1)<<uint(width) - 1
	g.e.emit("andq $%d, %%rax", mask)
	if dst.FieldBitOff != 0 {
		g.e.emit("shlq $%d, %%rax", dst.FieldBitOff)
	}
	g.e.emit("movq (%%rcx), %%rdx")
	clearMask := ^(mask << uint(dst.FieldBitOff))
	g.e.emit("andq $%d, %%rdx", clearMask)
	g.e.emit("orq %%rdx, %%rax")
	g.e.emit("movq %%rax, (%%rcx)")
}

func (g *Gen) genConv(n *ast.Node) {
	g.genExpr(n.Operand)
	from, to := n.Operand.Type, n.Type
	switch {
	case from.IsFloat() && to.IsInt():
		instr := "cvttsd2siq"
		if from.Kind == types.Float {
			instr = "cvttss2siq"
		}
		g.e.emit("%s %%xmm0, %%rax", instr)
	case from.IsInt() && to.IsFloat():
		instr := "cvtsi2sdq"
		if to.Kind == types.Float {
			instr = "cvtsi2ssq"
		}
		g.e.emit("%s %%rax, %%xmm0", instr)
	case from.IsFloat() && to.IsFloat() && from.Kind != to.Kind:
		if to.Kind == types.Float {
			g.e.emit("cvtsd2ss %%xmm0, %%xmm0")
		} else {
			g.e.emit("cvtss2sd %%xmm0, %%xmm0")
		}
	case from.IsInt() && to.IsInt():
		g.convertIntWidth(from, to)
	}
}

func (g *Gen) convertIntWidth(from, to *types.Type) {
	if to.Size <= from.Size {
		return
	}
	switch from.Size {
	case 1:
		if from.Unsigned {
			g.e.emit("movzbq %%al, %%rax")
		} else {
			g.e.emit("movsbq %%al, %%rax")
		}
	case 2:
		if from.Unsigned {
			g.e.emit("movzwq %%ax, %%rax")
		} else {
			g.e.emit("movswq %%ax, %%rax")
		}
	case 4:
		if from.Unsigned {
			g.e.emit("movl %%eax, %%eax")
		} else {
			g.e.emit("movslq %%eax, %%rax")
		}
	}
}

func (g *Gen) genUnary(n *ast.Node) {
	switch n.Op {
	case '-':
		g.genExpr(n.Operand)
		if n.Type.IsFloat() {
			lbl := g.newLabel()
			g.e.raw(".section .rodata")
			if n.Type.Kind == types.Float {
				g.e.label(lbl)
				g.e.raw(".long 0x80000000")
				g.e.raw(".text")
				g.e.emit("movss %s(%%rip), %%xmm1", lbl)
				g.e.emit("xorps %%xmm1, %%xmm0")
			} else {
				g.e.label(lbl)
				g.e.raw(".quad 0x8000000000000000")
				g.e.raw(".text")
				g.e.emit("movsd %s(%%rip), %%xmm1", lbl)
				g.e.emit("xorpd %%xmm1, %%xmm0")
			}
		} else {
			g.e.emit("negq %%rax")
		}
	case '~':
		g.genExpr(n.Operand)
		g.e.emit("notq %%rax")
	case '!':
		g.genExpr(n.Operand)
		g.e.emit("testq %%rax, %%rax")
		g.e.emit("sete %%al")
		g.e.emit("movzbq %%al, %%rax")
	case '+':
		g.genExpr(n.Operand)
	default:
		panic(fmt.Sprintf("codegen: unhandled unary op %d", n.Op))
	}
}

func (g *Gen) genIncDec(n *ast.Node) {
	delta := int64(1)
	if n.Type.Kind == types.Ptr {
		delta = int64(n.Type.Elem.Size)
	}
	g.genAddr(n.Operand)
	g.e.emit("movq %%rax, %%rcx")
	g.loadFromRax(n.Type)
	switch n.Kind {
	case ast.PreInc, ast.PostInc:
		if n.Kind == ast.PostInc {
			g.e.emit("movq %%rax, %%rdx") // save old value
		}
		g.e.emit("addq $%d, %%rax", delta)
	case ast.PreDec, ast.PostDec:
		if n.Kind == ast.PostDec {
			g.e.emit("movq %%rax, %%rdx")
		}
		g.e.emit("subq $%d, %%rax", delta)
	}
	g.store(n.Operand)
	if n.Kind == ast.PostInc || n.Kind == ast.PostDec {
		g.e.emit("movq %%rdx, %%rax")
	}
}

// genBinary lowers a binary operator, per spec.md §4.6: pointer
// arithmetic is scaled by pointee size (done by the parser, which
// multiplies the integer operand into a Binary(*, n, sizeof) subtree
// before reaching here), && / || short-circuit, and assignment stores
// into the left operand's address.
func (g *Gen) genBinary(n *ast.Node) {
	switch n.Op {
	case '=':
		g.genAddr(n.Left)
		g.e.emit("pushq %%rax")
		g.genExpr(n.Right)
		g.e.emit("popq %%rcx")
		g.store(n.Left)
		return
	case token.PuncLogAnd:
		g.genShortCircuitAnd(n)
		return
	case token.PuncLogOr:
		g.genShortCircuitOr(n)
		return
	}
	if n.Type.IsFloat() || n.Left.Type.IsFloat() || n.Right.Type.IsFloat() {
		g.genFloatBinary(n)
		return
	}
	g.genIntBinary(n)
}

func (g *Gen) genShortCircuitAnd(n *ast.Node) {
	lFalse := g.newLabel()
	end := g.newLabel()
	g.genExpr(n.Left)
	g.e.emit("testq %%rax, %%rax")
	g.e.emit("je %s", lFalse)
	g.genExpr(n.Right)
	g.e.emit("testq %%rax, %%rax")
	g.e.emit("je %s", lFalse)
	g.e.emit("movq $1, %%rax")
	g.e.emit("jmp %s", end)
	g.e.label(lFalse)
	g.e.emit("movq $0, %%rax")
	g.e.label(end)
}

func (g *Gen) genShortCircuitOr(n *ast.Node) {
	lTrue := g.newLabel()
	end := g.newLabel()
	g.genExpr(n.Left)
	g.e.emit("testq %%rax, %%rax")
	g.e.emit("jne %s", lTrue)
	g.genExpr(n.Right)
	g.e.emit("testq %%rax, %%rax")
	g.e.emit("jne %s", lTrue)
	g.e.emit("movq $0, %%rax")
	g.e.emit("jmp %s", end)
	g.e.label(lTrue)
	g.e.emit("movq $1, %%rax")
	g.e.label(end)
}

func (g *Gen) genIntBinary(n *ast.Node) {
	g.genExpr(n.Left)
	g.e.emit("pushq %%rax")
	g.genExpr(n.Right)
	g.e.emit("movq %%rax, %%rcx")
	g.e.emit("popq %%rax")
	unsigned := n.Left.Type.Unsigned || n.Right.Type.Unsigned
	switch n.Op {
	case '+':
		g.e.emit("addq %%rcx, %%rax")
	case '-':
		g.e.emit("subq %%rcx, %%rax")
	case '*':
		g.e.emit("imulq %%rcx, %%rax")
	case '/', '%':
		if unsigned {
			g.e.emit("xorq %%rdx, %%rdx")
			g.e.emit("divq %%rcx")
		} else {
			g.e.emit("cqto")
			g.e.emit("idivq %%rcx")
		}
		if n.Op == '%' {
			g.e.emit("movq %%rdx, %%rax")
		}
	case '&':
		g.e.emit("andq %%rcx, %%rax")
	case '|':
		g.e.emit("orq %%rcx, %%rax")
	case '^':
		g.e.emit("xorq %%rcx, %%rax")
	case token.PuncShl:
		g.e.emit("shlq %%cl, %%rax")
	case token.PuncShr:
		if unsigned {
			g.e.emit("shrq %%cl, %%rax")
		} else {
			g.e.emit("sarq %%cl, %%rax")
		}
	case '<', '>', token.PuncLe, token.PuncGe, token.PuncEq, token.PuncNe:
		g.e.emit("cmpq %%rcx, %%rax")
		g.e.emit("%s %%al", setccFor(n.Op, unsigned))
		g.e.emit("movzbq %%al, %%rax")
	default:
		panic(fmt.Sprintf("codegen: unhandled int binary op %d", n.Op))
	}
}

func setccFor(op int, unsigned bool) string {
	switch op {
	case '<':
		if unsigned {
			return "setb"
		}
		return "setl"
	case '>':
		if unsigned {
			return "seta"
		}
		return "setg"
	case token.PuncLe:
		if unsigned {
			return "setbe"
		}
		return "setle"
	case token.PuncGe:
		if unsigned {
			return "setae"
		}
		return "setge"
	case token.PuncEq:
		return "sete"
	case token.PuncNe:
		return "setne"
	}
	return "sete"
}

func (g *Gen) genFloatBinary(n *ast.Node) {
	isF := n.Left.Type.Kind == types.Float && n.Right.Type.Kind == types.Float
	suf := "sd"
	if isF {
		suf = "ss"
	}
	g.genExpr(n.Left)
	g.e.emit("subq $8, %%rsp")
	g.e.emit("movsd %%xmm0, (%%rsp)")
	g.genExpr(n.Right)
	g.e.emit("movsd %%xmm0, %%xmm1")
	g.e.emit("movsd (%%rsp), %%xmm0")
	g.e.emit("addq $8, %%rsp")
	switch n.Op {
	case '+':
		g.e.emit("add%s %%xmm1, %%xmm0", suf)
	case '-':
		g.e.emit("sub%s %%xmm1, %%xmm0", suf)
	case '*':
		g.e.emit("mul%s %%xmm1, %%xmm0", suf)
	case '/':
		g.e.emit("div%s %%xmm1, %%xmm0", suf)
	case '<', '>', token.PuncLe, token.PuncGe, token.PuncEq, token.PuncNe:
		g.e.emit("ucomi%s %%xmm1, %%xmm0", suf)
		g.e.emit("%s %%al", setccFor(n.Op, true))
		g.e.emit("movzbq %%al, %%rax")
	default:
		panic(fmt.Sprintf("codegen: unhandled float binary op %d", n.Op))
	}
}

func (g *Gen) genTernary(n *ast.Node) {
	lElse := g.newLabel()
	end := g.newLabel()
	g.genExpr(n.Cond)
	g.e.emit("testq %%rax, %%rax")
	g.e.emit("je %s", lElse)
	g.genExpr(n.Then)
	g.e.emit("jmp %s", end)
	g.e.label(lElse)
	g.genExpr(n.Els)
	g.e.label(end)
}
