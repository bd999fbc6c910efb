package codegen

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/types"
)

// genStmt lowers one statement node, per spec.md §4.4's desugared
// label/goto/if/compound-statement primitives: by the time a Node
// reaches here, for/while/do/switch have already been rewritten away by
// the parser, so genStmt only needs to handle this small fixed set.
func (g *Gen) genStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.CompoundStmt:
		for _, s := range n.Stmts {
			g.genStmt(s)
		}
	case ast.Decl:
		g.genDecl(n)
	case ast.Label:
		g.e.label(n.Label_)
	case ast.Goto:
		g.e.emit("jmp %s", n.Label_)
	case ast.ComputedGoto:
		g.genExpr(n.Operand)
		g.e.emit("jmp *%%rax")
	case ast.If:
		g.genIf(n)
	case ast.Return:
		g.genReturn(n)
	case ast.NoopStmt:
		// asm() passthrough statement: nothing to emit.
	default:
		g.genExpr(n)
	}
}

func (g *Gen) genIf(n *ast.Node) {
	if n.Type != nil {
		// Ternary used as an expression statement; fall back to the
		// expression path so its value (if any) is simply discarded.
		g.genExpr(n)
		return
	}
	g.genExpr(n.Cond)
	g.e.emit("testq %%rax, %%rax")
	if n.Els == nil {
		end := g.newLabel()
		g.e.emit("je %s", end)
		g.genStmt(n.Then)
		g.e.label(end)
		return
	}
	elseLbl, end := g.newLabel(), g.newLabel()
	g.e.emit("je %s", elseLbl)
	g.genStmt(n.Then)
	g.e.emit("jmp %s", end)
	g.e.label(elseLbl)
	g.genStmt(n.Els)
	g.e.label(end)
}

func (g *Gen) genReturn(n *ast.Node) {
	if n.Operand != nil {
		if n.Operand.Type.Kind == types.StructUnion {
			g.genAddr(n.Operand)
			g.e.emit("movq %d(%%rbp), %%rcx", g.retPtrOff)
			g.copyBlock("rax", 0, "rcx", 0, n.Operand.Type.Size)
		} else {
			g.genExpr(n.Operand)
		}
	}
	g.e.emit("jmp %s", g.curRetLbl)
}

// genDecl lowers a local declaration's initializer, storing each flattened
// LvarInit entry at its offset within the variable, per spec.md §4.4's
// initializer-flattening design.
func (g *Gen) genDecl(n *ast.Node) {
	if len(n.DeclInit) == 0 {
		return
	}
	base := g.localOff[n.DeclVar]
	for _, init := range n.DeclInit {
		g.genExpr(init.Value)
		off := base + init.Off
		switch {
		case init.Type.IsFloat():
			instr := "movsd"
			if init.Type.Kind == types.Float {
				instr = "movss"
			}
			g.e.emit("%s %%xmm0, %d(%%rbp)", instr, off)
		case init.Type.Kind == types.StructUnion:
			g.copyBlock("rax", 0, "rbp", off, init.Type.Size)
		default:
			g.e.emit("mov%s %%%s, %d(%%rbp)", movSuffix(init.Type.Size), regName("ax", init.Type.Size), off)
		}
	}
}
