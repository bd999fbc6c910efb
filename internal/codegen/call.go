package codegen

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/types"
)

// genCall lowers a direct call, per spec.md §4.6: up to 6 integer/pointer
// arguments in rdi/rsi/rdx/rcx/r8/r9, up to 8 floating arguments in
// xmm0-7, everything else (including every struct argument, regardless
// of size) pushed on the stack, 16-byte aligned at the call instruction,
// with %al set to the number of vector registers used for a variadic
// callee.
func (g *Gen) genCall(n *ast.Node) {
	g.genCallArgs(n.Args, n.FuncType, func() {
		g.e.emit("call %s", n.FName)
	})
}

func (g *Gen) genPtrCall(n *ast.Node) {
	g.genExpr(n.FuncPtr)
	g.e.emit("pushq %%rax")
	g.genCallArgs(n.Args, n.FuncType, func() {
		g.e.emit("popq %%r11")
		g.e.emit("call *%%r11")
	})
}

func (g *Gen) genCallArgs(args []*ast.Node, ft *types.Type, emitCall func()) {
	var intArgs, floatArgs, stackArgs []*ast.Node
	intN, floatN := 0, 0
	for _, a := range args {
		switch {
		case a.Type.Kind == types.StructUnion:
			stackArgs = append(stackArgs, a)
		case a.Type.IsFloat():
			if floatN < 8 {
				floatArgs = append(floatArgs, a)
				floatN++
			} else {
				stackArgs = append(stackArgs, a)
			}
		default:
			if intN < 6 {
				intArgs = append(intArgs, a)
				intN++
			} else {
				stackArgs = append(stackArgs, a)
			}
		}
	}

	// Stack arguments are pushed last-to-first so they land in the
	// caller's intended left-to-right order at increasing addresses.
	stackBytes := 0
	for _, a := range stackArgs {
		if a.Type.Kind == types.StructUnion {
			stackBytes += roundUp(a.Type.Size, 8)
		} else {
			stackBytes += 8
		}
	}
	pad := 0
	if stackBytes%16 != 0 {
		pad = 8
	}
	if pad != 0 {
		g.e.emit("subq $%d, %%rsp", pad)
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		a := stackArgs[i]
		if a.Type.Kind == types.StructUnion {
			g.genAddr(a)
			g.e.emit("subq $%d, %%rsp", roundUp(a.Type.Size, 8))
			g.copyBlock("rax", 0, "rsp", 0, a.Type.Size)
		} else {
			g.genExpr(a)
			g.e.emit("pushq %%rax")
		}
	}

	// Register arguments evaluate left-to-right onto the value stack,
	// then pop into place only after every argument has been evaluated,
	// so no argument's evaluation can clobber a register already holding
	// another.
	for _, a := range intArgs {
		g.genExpr(a)
		g.e.emit("pushq %%rax")
	}
	// Each floating argument evaluates through %xmm0 and is spilled to the
	// stack immediately, on top of the integer values, with the same
	// left-to-right-evaluate, right-to-left-load scheme.
	for _, a := range floatArgs {
		g.genExpr(a)
		g.e.emit("subq $8, %%rsp")
		g.e.emit("movsd %%xmm0, (%%rsp)")
	}
	for i := len(floatArgs) - 1; i >= 0; i-- {
		g.e.emit("movsd (%%rsp), %%xmm%d", i)
		g.e.emit("addq $8, %%rsp")
	}
	for i := len(intArgs) - 1; i >= 0; i-- {
		g.e.emit("popq %%%s", intArgRegs[i])
	}

	if ft != nil && ft.Variadic {
		g.e.emit("movb $%d, %%al", len(floatArgs))
	}
	emitCall()
	if stackBytes+pad > 0 {
		g.e.emit("addq $%d, %%rsp", stackBytes+pad)
	}
}
