package parser

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/token"
)

// readCompoundStmt reads a `{ ... }` block in its own scope and wraps it
// in a CompoundStmt node.
func (p *Parser) readCompoundStmt() (*ast.Node, error) {
	if _, err := p.expect('{'); err != nil {
		return nil, err
	}
	stmts, err := p.readCompoundStmtBody()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.CompoundStmt, Stmts: stmts}, nil
}

// readCompoundStmtBody reads the declaration/statement sequence up to
// (and consuming) the closing `}`, without wrapping it in a node; shared
// by readCompoundStmt and the GNU statement-expression form `({ ... })`.
func (p *Parser) readCompoundStmtBody() ([]*ast.Node, error) {
	p.pushScope()
	defer p.popScope()
	var stmts []*ast.Node
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		if t.Is('}') {
			p.next()
			return stmts, nil
		}
		if t.IsEOF() {
			return nil, p.errf(t, "'}' expected before end of file")
		}
		if p.startsDecl(t) {
			decls, err := p.readLocalDecl()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, decls...)
			continue
		}
		s, err := p.readStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			stmts = append(stmts, s)
		}
	}
}

// startsDecl reports whether t can begin a local declaration, as opposed
// to an expression-statement.
func (p *Parser) startsDecl(t *token.Token) bool {
	if t.Kind == token.Identifier {
		return p.isTypedefName(t.Name)
	}
	if t.Kind != token.Keyword {
		return false
	}
	switch t.ID {
	case token.KwTypedef, token.KwExtern, token.KwStatic, token.KwAuto, token.KwRegister,
		token.KwVoid, token.KwBool, token.KwChar, token.KwShort, token.KwInt, token.KwLong,
		token.KwFloat, token.KwDouble, token.KwSigned, token.KwUnsigned, token.KwStruct,
		token.KwUnion, token.KwEnum, token.KwConst, token.KwVolatile, token.KwRestrict,
		token.KwAtomic, token.KwInline, token.KwNoreturn, token.KwAlignas, token.KwTypeof:
		return true
	}
	return false
}

// readLocalDecl reads a local declaration, declaring each name in the
// current block scope and returning a Decl node per declarator (a
// typedef produces no node).
func (p *Parser) readLocalDecl() ([]*ast.Node, error) {
	base, ds, err := p.readDeclSpecs()
	if err != nil {
		return nil, err
	}
	var out []*ast.Node
	if ok, err := p.accept(';'); err != nil {
		return nil, err
	} else if ok {
		return out, nil
	}
	for {
		name, ty, err := p.readDeclarator(base)
		if err != nil {
			return nil, err
		}
		if err := p.skipAttributes(); err != nil {
			return nil, err
		}
		if ds.storage == "typedef" {
			p.declareTypedef(name, ty)
		} else {
			var n *ast.Node
			if ds.storage == "static" {
				n = p.newGlobalVar(p.newStrLabel()+"."+name, ty, true)
			} else {
				n = &ast.Node{Kind: ast.LocalVar, Type: ty, VarName: name}
				p.fn.locals = append(p.fn.locals, n)
				p.declareVar(name, n)
			}
			decl := &ast.Node{Kind: ast.Decl, DeclVar: n}
			if ok, err := p.accept('='); err != nil {
				return nil, err
			} else if ok {
				init, err := p.readInitializer(ty)
				if err != nil {
					return nil, err
				}
				decl.DeclInit = init
			}
			out = append(out, decl)
		}
		if ok, err := p.accept(','); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(';'); err != nil {
		return nil, err
	}
	return out, nil
}

// readStmt reads one statement, desugaring control constructs to
// label/goto/if primitives per spec.md §4.4.
func (p *Parser) readStmt() (*ast.Node, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case t.Is('{'):
		p.unget(t)
		return p.readCompoundStmt()
	case t.Is(';'):
		return nil, nil
	case t.Is(token.KwIf):
		return p.readIfStmt()
	case t.Is(token.KwWhile):
		return p.readWhileStmt()
	case t.Is(token.KwDo):
		return p.readDoWhileStmt()
	case t.Is(token.KwFor):
		return p.readForStmt()
	case t.Is(token.KwSwitch):
		return p.readSwitchStmt()
	case t.Is(token.KwCase):
		return p.readCaseLabel(t)
	case t.Is(token.KwDefault):
		return p.readDefaultLabel(t)
	case t.Is(token.KwBreak):
		if _, err := p.expect(';'); err != nil {
			return nil, err
		}
		if p.fn.breakLabel == "" {
			return nil, p.errf(t, "break statement not within a loop or switch")
		}
		return &ast.Node{Kind: ast.Goto, Label_: p.fn.breakLabel, Loc: locOf(t)}, nil
	case t.Is(token.KwContinue):
		if _, err := p.expect(';'); err != nil {
			return nil, err
		}
		if p.fn.continueLabel == "" {
			return nil, p.errf(t, "continue statement not within a loop")
		}
		return &ast.Node{Kind: ast.Goto, Label_: p.fn.continueLabel, Loc: locOf(t)}, nil
	case t.Is(token.KwReturn):
		return p.readReturnStmt(t)
	case t.Is(token.KwGoto):
		return p.readGotoStmt(t)
	case t.Is(token.KwAsm):
		if err := p.skipAsmBody(); err != nil {
			return nil, err
		}
		if _, err := p.expect(';'); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.NoopStmt}, nil
	case t.Kind == token.Identifier:
		nt, err := p.peek()
		if err != nil {
			return nil, err
		}
		if nt.Is(':') {
			p.next()
			return p.readLabel(t)
		}
	}
	p.unget(t)
	e, err := p.readExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(';'); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) readLabel(nameTok *token.Token) (*ast.Node, error) {
	lbl := &ast.Node{Kind: ast.Label, Label_: nameTok.Name, Loc: locOf(nameTok)}
	p.fn.labels.Put(nameTok.Name, lbl)
	return lbl, nil
}

func (p *Parser) readGotoStmt(at *token.Token) (*ast.Node, error) {
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if ok, err := p.accept('*'); err != nil {
		return nil, err
	} else if ok {
		target, err := p.readExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(';'); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.ComputedGoto, Operand: target, Loc: locOf(at)}, nil
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(';'); err != nil {
		return nil, err
	}
	g := &ast.Node{Kind: ast.Goto, Label_: name.Name, Loc: locOf(at)}
	p.fn.pendGotos = append(p.fn.pendGotos, g)
	_ = t
	return g, nil
}

func (p *Parser) readReturnStmt(at *token.Token) (*ast.Node, error) {
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.Return, Loc: locOf(at)}
	if !t.Is(';') {
		v, err := p.readExpr()
		if err != nil {
			return nil, err
		}
		n.Operand = p.convertAssign(v, p.fn.retType)
	}
	if _, err := p.expect(';'); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) readIfStmt() (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	cond, err := p.readExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	then, err := p.readStmt()
	if err != nil {
		return nil, err
	}
	var els *ast.Node
	if ok, err := p.accept(token.KwElse); err != nil {
		return nil, err
	} else if ok {
		els, err = p.readStmt()
		if err != nil {
			return nil, err
		}
	}
	return &ast.Node{Kind: ast.If, Cond: cond, Then: then, Els: els}, nil
}

// readWhileStmt desugars `while (cond) body` to
// `beg: if (!cond) goto end; body; goto beg; end:`, per spec.md §4.4.
func (p *Parser) readWhileStmt() (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	cond, err := p.readExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	beg, end := p.newLabel(), p.newLabel()
	prevBreak, prevCont := p.fn.breakLabel, p.fn.continueLabel
	p.fn.breakLabel, p.fn.continueLabel = end, beg
	body, err := p.readStmt()
	p.fn.breakLabel, p.fn.continueLabel = prevBreak, prevCont
	if err != nil {
		return nil, err
	}
	return wrapLoop(beg, end, cond, body, nil), nil
}

// readDoWhileStmt desugars `do body while (cond);` to
// `beg: body; mid: if (cond) goto beg; end:`, with continue bound to mid.
func (p *Parser) readDoWhileStmt() (*ast.Node, error) {
	beg, mid, end := p.newLabel(), p.newLabel(), p.newLabel()
	prevBreak, prevCont := p.fn.breakLabel, p.fn.continueLabel
	p.fn.breakLabel, p.fn.continueLabel = end, mid
	body, err := p.readStmt()
	p.fn.breakLabel, p.fn.continueLabel = prevBreak, prevCont
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwWhile); err != nil {
		return nil, err
	}
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	cond, err := p.readExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	if _, err := p.expect(';'); err != nil {
		return nil, err
	}
	stmts := []*ast.Node{
		{Kind: ast.Label, Label_: beg},
		body,
		{Kind: ast.Label, Label_: mid},
		{Kind: ast.If, Cond: cond, Then: &ast.Node{Kind: ast.Goto, Label_: beg}},
		{Kind: ast.Label, Label_: end},
	}
	return &ast.Node{Kind: ast.CompoundStmt, Stmts: stmts}, nil
}

// wrapLoop builds the label/goto skeleton shared by while and for:
// `beg: if (!cond) goto end; body; [step;] goto beg; end:`.
func wrapLoop(beg, end string, cond, body, step *ast.Node) *ast.Node {
	var notCond *ast.Node
	if cond != nil {
		notCond = &ast.Node{Kind: ast.Unary, Op: '!', Operand: cond}
	}
	stmts := []*ast.Node{{Kind: ast.Label, Label_: beg}}
	if notCond != nil {
		stmts = append(stmts, &ast.Node{Kind: ast.If, Cond: notCond, Then: &ast.Node{Kind: ast.Goto, Label_: end}})
	}
	if body != nil {
		stmts = append(stmts, body)
	}
	if step != nil {
		stmts = append(stmts, step)
	}
	stmts = append(stmts, &ast.Node{Kind: ast.Goto, Label_: beg}, &ast.Node{Kind: ast.Label, Label_: end})
	return &ast.Node{Kind: ast.CompoundStmt, Stmts: stmts}
}

// readForStmt desugars `for (init; cond; step) body` to
// `init; beg: if (!cond) goto end; body; mid: step; goto beg; end:`,
// with continue bound to mid and break to end, per spec.md §4.4.
func (p *Parser) readForStmt() (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	p.pushScope()
	defer p.popScope()

	var init []*ast.Node
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Is(';') {
		p.next()
	} else if p.startsDecl(t) {
		init, err = p.readLocalDecl()
		if err != nil {
			return nil, err
		}
	} else {
		e, err := p.readExpr()
		if err != nil {
			return nil, err
		}
		init = append(init, e)
		if _, err := p.expect(';'); err != nil {
			return nil, err
		}
	}

	var cond *ast.Node
	t, err = p.peek()
	if err != nil {
		return nil, err
	}
	if !t.Is(';') {
		cond, err = p.readExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(';'); err != nil {
		return nil, err
	}

	var step *ast.Node
	t, err = p.peek()
	if err != nil {
		return nil, err
	}
	if !t.Is(')') {
		step, err = p.readExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}

	beg, mid, end := p.newLabel(), p.newLabel(), p.newLabel()
	prevBreak, prevCont := p.fn.breakLabel, p.fn.continueLabel
	p.fn.breakLabel, p.fn.continueLabel = end, mid
	body, err := p.readStmt()
	p.fn.breakLabel, p.fn.continueLabel = prevBreak, prevCont
	if err != nil {
		return nil, err
	}

	var notCond *ast.Node
	if cond != nil {
		notCond = &ast.Node{Kind: ast.Unary, Op: '!', Operand: cond}
	}
	stmts := append([]*ast.Node{}, init...)
	stmts = append(stmts, &ast.Node{Kind: ast.Label, Label_: beg})
	if notCond != nil {
		stmts = append(stmts, &ast.Node{Kind: ast.If, Cond: notCond, Then: &ast.Node{Kind: ast.Goto, Label_: end}})
	}
	if body != nil {
		stmts = append(stmts, body)
	}
	stmts = append(stmts, &ast.Node{Kind: ast.Label, Label_: mid})
	if step != nil {
		stmts = append(stmts, step)
	}
	stmts = append(stmts, &ast.Node{Kind: ast.Goto, Label_: beg}, &ast.Node{Kind: ast.Label, Label_: end})
	return &ast.Node{Kind: ast.CompoundStmt, Stmts: stmts}, nil
}

// readSwitchStmt desugars `switch (sel) { case c1: ...; case c2 ... c3:
// ...; default: ...; }` into the selector stored in a temporary followed
// by a sequence of `if (sel == ci) goto Li` guards (or
// `if (cj <= sel && sel <= ck) goto Li` for a case range), falling
// through to `default` or the end label, per spec.md §4.4.
func (p *Parser) readSwitchStmt() (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	sel, err := p.readExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	selVar := p.newLocalVar(sel.Type)
	assign := &ast.Node{Kind: ast.Binary, Op: '=', Type: selVar.Type, Left: selVar, Right: sel}

	end := p.newLabel()
	var cases []switchCase
	prevBreak := p.fn.breakLabel
	prevCases := p.fn.switchCases
	p.fn.breakLabel = end
	p.fn.switchCases = &cases
	defaultLabel := ""
	prevDefault := p.defaultLabel
	p.defaultLabel = &defaultLabel

	body, err := p.readStmt()

	p.fn.breakLabel = prevBreak
	p.fn.switchCases = prevCases
	p.defaultLabel = prevDefault
	if err != nil {
		return nil, err
	}

	var guards []*ast.Node
	for _, c := range cases {
		var cond *ast.Node
		if c.lo == c.hi {
			lit := ast.NewLiteral(selVar.Type)
			lit.IVal = c.lo
			cond = &ast.Node{Kind: ast.Binary, Op: token.PuncEq, Type: selVar.Type, Left: selVar, Right: lit}
		} else {
			loLit, hiLit := ast.NewLiteral(selVar.Type), ast.NewLiteral(selVar.Type)
			loLit.IVal, hiLit.IVal = c.lo, c.hi
			ge := &ast.Node{Kind: ast.Binary, Op: token.PuncGe, Left: selVar, Right: loLit}
			le := &ast.Node{Kind: ast.Binary, Op: token.PuncLe, Left: selVar, Right: hiLit}
			cond = &ast.Node{Kind: ast.Binary, Op: token.PuncLogAnd, Left: ge, Right: le}
		}
		guards = append(guards, &ast.Node{Kind: ast.If, Cond: cond, Then: &ast.Node{Kind: ast.Goto, Label_: c.label}})
	}
	if defaultLabel != "" {
		guards = append(guards, &ast.Node{Kind: ast.Goto, Label_: defaultLabel})
	} else {
		guards = append(guards, &ast.Node{Kind: ast.Goto, Label_: end})
	}

	stmts := []*ast.Node{assign}
	stmts = append(stmts, guards...)
	if body != nil {
		stmts = append(stmts, body)
	}
	stmts = append(stmts, &ast.Node{Kind: ast.Label, Label_: end})
	return &ast.Node{Kind: ast.CompoundStmt, Stmts: stmts}, nil
}

// readCaseStmt and readDefaultStmt are dispatched from readStmt via the
// keyword check below; kept here next to readSwitchStmt for locality.
func (p *Parser) readCaseLabel(at *token.Token) (*ast.Node, error) {
	if p.fn.switchCases == nil {
		return nil, p.errf(at, "case label not within a switch statement")
	}
	lo, err := p.readConstIntExpr()
	if err != nil {
		return nil, err
	}
	hi := lo
	if ok, err := p.accept(token.PuncEllipsis); err != nil {
		return nil, err
	} else if ok {
		hi, err = p.readConstIntExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(':'); err != nil {
		return nil, err
	}
	label := p.newLabel()
	*p.fn.switchCases = append(*p.fn.switchCases, switchCase{lo: lo, hi: hi, label: label})
	return &ast.Node{Kind: ast.Label, Label_: label}, nil
}

func (p *Parser) readDefaultLabel(at *token.Token) (*ast.Node, error) {
	if p.defaultLabel == nil {
		return nil, p.errf(at, "default label not within a switch statement")
	}
	if _, err := p.expect(':'); err != nil {
		return nil, err
	}
	label := p.newLabel()
	*p.defaultLabel = label
	return &ast.Node{Kind: ast.Label, Label_: label}, nil
}
