package parser

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/constexpr"
	"github.com/gorse-io/goatc/internal/token"
	"github.com/gorse-io/goatc/internal/transcode"
	"github.com/gorse-io/goatc/internal/types"
)

// readExpr reads a full expression, including the comma operator, per
// C11 6.5.17. Used at statement position and in for-loop init/step slots.
func (p *Parser) readExpr() (*ast.Node, error) {
	left, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	for {
		ok, err := p.accept(',')
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.readAssignExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Node{Kind: ast.Binary, Op: ',', Type: right.Type, Left: left, Right: right}
	}
}

var assignOps = map[int]int{
	'=': 0, token.PuncAddEq: '+', token.PuncSubEq: '-', token.PuncMulEq: '*',
	token.PuncDivEq: '/', token.PuncModEq: '%', token.PuncAndEq: '&',
	token.PuncOrEq: '|', token.PuncXorEq: '^', token.PuncShlEq: token.PuncShl,
	token.PuncShrEq: token.PuncShr,
}

// readAssignExpr reads an assignment-expression: a conditional-expression,
// optionally followed by an assignment operator and a right-hand
// assignment-expression (right-associative), per C11 6.5.16.
func (p *Parser) readAssignExpr() (*ast.Node, error) {
	left, err := p.readCondExpr()
	if err != nil {
		return nil, err
	}
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Kind != token.Keyword {
		return left, nil
	}
	op, isAssign := assignOps[t.ID]
	if !isAssign {
		return left, nil
	}
	p.next()
	if !left.IsLvalue() {
		return nil, p.errf(t, "assignment to non-lvalue")
	}
	right, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	if op != 0 {
		// Compound assignment: lhs = lhs OP rhs, evaluated once this
		// parser re-reads the lvalue node (safe for all of our lvalue
		// shapes, none of which have side effects of their own).
		binOp, err := p.buildBinary(op, left, right, t)
		if err != nil {
			return nil, err
		}
		right = binOp
	}
	conv := p.convertAssign(right, left.Type)
	return &ast.Node{Kind: ast.Binary, Op: '=', Type: left.Type, Left: left, Right: conv}, nil
}

// readCondExpr reads a conditional-expression: a logical-or-expression
// optionally followed by `? expr : conditional-expr`.
func (p *Parser) readCondExpr() (*ast.Node, error) {
	cond, err := p.readLogOr()
	if err != nil {
		return nil, err
	}
	ok, err := p.accept('?')
	if err != nil {
		return nil, err
	}
	if !ok {
		return cond, nil
	}
	then, err := p.readExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(':'); err != nil {
		return nil, err
	}
	els, err := p.readCondExpr()
	if err != nil {
		return nil, err
	}
	ty := commonType(then.Type, els.Type)
	return &ast.Node{Kind: ast.If, Type: ty, Cond: cond, Then: then, Els: els}, nil
}

// binaryChain builds one left-associative precedence level: next parses
// the tighter-binding level, ids lists the acceptable operator ids at
// this level.
func (p *Parser) binaryChain(ids []int, next func() (*ast.Node, error)) (*ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		matched := false
		for _, id := range ids {
			if t.Is(id) {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		p.next()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left, err = p.buildBinary(t.ID, left, right, t)
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) readLogOr() (*ast.Node, error) {
	return p.binaryChain([]int{token.PuncLogOr}, p.readLogAnd)
}
func (p *Parser) readLogAnd() (*ast.Node, error) {
	return p.binaryChain([]int{token.PuncLogAnd}, p.readBitOr)
}
func (p *Parser) readBitOr() (*ast.Node, error)  { return p.binaryChain([]int{'|'}, p.readBitXor) }
func (p *Parser) readBitXor() (*ast.Node, error) { return p.binaryChain([]int{'^'}, p.readBitAnd) }
func (p *Parser) readBitAnd() (*ast.Node, error) { return p.binaryChain([]int{'&'}, p.readEquality) }
func (p *Parser) readEquality() (*ast.Node, error) {
	return p.binaryChain([]int{token.PuncEq, token.PuncNe}, p.readRelational)
}
func (p *Parser) readRelational() (*ast.Node, error) {
	return p.binaryChain([]int{'<', '>', token.PuncLe, token.PuncGe}, p.readShift)
}
func (p *Parser) readShift() (*ast.Node, error) {
	return p.binaryChain([]int{token.PuncShl, token.PuncShr}, p.readAdditive)
}
func (p *Parser) readAdditive() (*ast.Node, error) {
	return p.binaryChain([]int{'+', '-'}, p.readMultiplicative)
}
func (p *Parser) readMultiplicative() (*ast.Node, error) {
	return p.binaryChain([]int{'*', '/', '%'}, p.readCast)
}

// readCast reads a cast-expression: `( type-name ) cast-expression`, a
// compound literal `( type-name ) { init-list }`, or a unary-expression.
// Disambiguated by peeking past `(` for a type-name, per C11 6.5.4.
func (p *Parser) readCast() (*ast.Node, error) {
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Is('(') {
		inner, err := p.peekN(1)
		if err != nil {
			return nil, err
		}
		if p.startsTypeName(inner) {
			p.next()
			ty, err := p.readTypeName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(')'); err != nil {
				return nil, err
			}
			lb, err := p.peek()
			if err != nil {
				return nil, err
			}
			if lb.Is('{') {
				return p.readCompoundLiteral(ty)
			}
			operand, err := p.readCast()
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.Cast, Type: ty, Operand: operand}, nil
		}
	}
	return p.readUnary()
}

// readCompoundLiteral reads a compound literal `(type){ init }`: an
// anonymous object (local if inside a function, global otherwise) whose
// initializer is the bracketed list, evaluating to its lvalue, per
// spec.md §4.4.
func (p *Parser) readCompoundLiteral(ty *types.Type) (*ast.Node, error) {
	init, err := p.readInitializer(ty)
	if err != nil {
		return nil, err
	}
	var v *ast.Node
	if p.fn != nil {
		v = p.newLocalVar(ty)
	} else {
		v = p.newGlobalVar(p.newStrLabel(), ty, true)
	}
	v.LvarInit = init
	return v, nil
}

func (p *Parser) newLocalVar(ty *types.Type) *ast.Node {
	n := &ast.Node{Kind: ast.LocalVar, Type: ty}
	p.fn.locals = append(p.fn.locals, n)
	return n
}

var unaryOps = map[int]bool{'&': true, '*': true, '+': true, '-': true, '~': true, '!': true}

// readUnary reads a unary-expression: prefix ++/--, sizeof, _Alignof,
// address-of/dereference/sign/bitwise-not/logical-not, or a
// postfix-expression, per C11 6.5.3.
func (p *Parser) readUnary() (*ast.Node, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case t.Is(token.PuncInc), t.Is(token.PuncDec):
		operand, err := p.readUnary()
		if err != nil {
			return nil, err
		}
		kind := ast.PreInc
		if t.Is(token.PuncDec) {
			kind = ast.PreDec
		}
		return &ast.Node{Kind: kind, Type: operand.Type, Operand: operand}, nil

	case t.Is(token.KwSizeof):
		return p.readSizeofOrAlignof(t, false)
	case t.Is(token.KwAlignof):
		return p.readSizeofOrAlignof(t, true)

	case t.Is(token.KwAsm):
		return p.readAsmExpr()

	case t.Kind == token.Keyword && unaryOps[t.ID]:
		operand, err := p.readCast()
		if err != nil {
			return nil, err
		}
		return p.buildUnary(t, operand)
	}
	p.unget(t)
	return p.readPostfix()
}

// readAsmExpr accepts (and discards) an `asm("...")`/`asm volatile(...)`
// expression occurring inside an expression context (e.g. a statement
// expression), per the GNU-extension tolerance in spec.md §4.4.
func (p *Parser) readAsmExpr() (*ast.Node, error) {
	if err := p.skipAsmBody(); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.NoopStmt}, nil
}

func (p *Parser) skipAsmBody() error {
	t, err := p.peek()
	if err != nil {
		return err
	}
	if t.IsIdent("volatile") || t.Is(token.KwVolatile) {
		p.next()
	}
	if _, err := p.expect('('); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.Is('(') {
			depth++
		} else if t.Is(')') {
			depth--
		}
	}
	return nil
}

func (p *Parser) readSizeofOrAlignof(kw *token.Token, isAlign bool) (*ast.Node, error) {
	nt, err := p.peek()
	if err != nil {
		return nil, err
	}
	var ty *types.Type
	if nt.Is('(') {
		inner, err := p.peekN(1)
		if err != nil {
			return nil, err
		}
		if p.startsTypeName(inner) {
			p.next()
			ty, err = p.readTypeName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(')'); err != nil {
				return nil, err
			}
		}
	}
	if ty == nil {
		operand, err := p.readUnary()
		if err != nil {
			return nil, err
		}
		ty = operand.Type
	}
	n := sizeofValue(ty, isAlign)
	lit := ast.NewLiteral(types.NewBase(types.Long, true))
	lit.IVal = n
	_ = kw
	return lit, nil
}

// sizeofValue folds sizeof/_Alignof to a byte count, with the GNU
// extension that sizeof(void) and sizeof(a function type) is 1 rather
// than an error, per spec.md §4.4.
func sizeofValue(ty *types.Type, isAlign bool) int64 {
	if isAlign {
		if ty.Align == 0 {
			return 1
		}
		return int64(ty.Align)
	}
	if ty.Kind == types.Void || ty.Kind == types.Func {
		return 1
	}
	return int64(ty.Size)
}

func (p *Parser) buildUnary(t *token.Token, operand *ast.Node) (*ast.Node, error) {
	switch {
	case t.Is('&'):
		if !operand.IsLvalue() {
			return nil, p.errf(t, "lvalue expected for unary '&'")
		}
		return &ast.Node{Kind: ast.Addr, Type: types.NewPtr(operand.Type), Operand: operand}, nil
	case t.Is('*'):
		operand = p.decay(operand)
		if operand.Type.Kind != types.Ptr {
			return nil, p.errf(t, "pointer expected for unary '*'")
		}
		return &ast.Node{Kind: ast.Deref, Type: operand.Type.Elem, Operand: operand}, nil
	case t.Is('+'):
		return p.promote(operand), nil
	case t.Is('-'):
		v := p.promote(operand)
		return &ast.Node{Kind: ast.Unary, Op: '-', Type: v.Type, Operand: v}, nil
	case t.Is('~'):
		v := p.promote(operand)
		return &ast.Node{Kind: ast.Unary, Op: '~', Type: v.Type, Operand: v}, nil
	case t.Is('!'):
		return &ast.Node{Kind: ast.Unary, Op: '!', Type: types.NewBase(types.Int, false), Operand: operand}, nil
	}
	return nil, p.errf(t, "unsupported unary operator")
}

// readPostfix reads a postfix-expression: a primary-expression followed
// by any run of `[]`, `()`, `.`, `->`, `++`, `--`.
func (p *Parser) readPostfix() (*ast.Node, error) {
	n, err := p.readPrimary()
	if err != nil {
		return nil, err
	}
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch {
		case t.Is('['):
			p.next()
			idx, err := p.readExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(']'); err != nil {
				return nil, err
			}
			n, err = p.buildSubscript(n, idx, t)
			if err != nil {
				return nil, err
			}
		case t.Is('('):
			p.next()
			n, err = p.readCallArgs(n, t)
			if err != nil {
				return nil, err
			}
		case t.Is('.'):
			p.next()
			field, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			n, err = p.buildStructRef(n, field, t)
			if err != nil {
				return nil, err
			}
		case t.Is(token.PuncArrow):
			p.next()
			field, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			deref := &ast.Node{Kind: ast.Deref, Type: derefType(n.Type), Operand: p.decay(n)}
			n, err = p.buildStructRef(deref, field, t)
			if err != nil {
				return nil, err
			}
		case t.Is(token.PuncInc), t.Is(token.PuncDec):
			p.next()
			kind := ast.PostInc
			if t.Is(token.PuncDec) {
				kind = ast.PostDec
			}
			n = &ast.Node{Kind: kind, Type: n.Type, Operand: n}
		default:
			return n, nil
		}
	}
}

func derefType(t *types.Type) *types.Type {
	if t.Kind == types.Ptr || t.Kind == types.Array {
		return t.Elem
	}
	return t
}

// buildSubscript desugars `a[i]` to `*(a + i)`, per spec.md §4.4.
func (p *Parser) buildSubscript(arr, idx *ast.Node, at *token.Token) (*ast.Node, error) {
	sum, err := p.buildBinary('+', arr, idx, at)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Deref, Type: sum.Type, Operand: sum}, nil
}

func (p *Parser) buildStructRef(s *ast.Node, field *token.Token, at *token.Token) (*ast.Node, error) {
	st := s.Type
	if st.Kind != types.StructUnion {
		return nil, p.errf(at, "struct/union expected before '.'")
	}
	f, ok := st.Fields.Get(field.Name)
	if !ok {
		return nil, p.errf(field, "no member named '%s'", field.Name)
	}
	return &ast.Node{
		Kind: ast.StructRef, Type: f.Type, Struc: s, Field: field.Name,
		FieldType: f.Type, FieldOffset: f.Offset, FieldBitOff: f.BitOff, FieldBitSize: f.BitSize,
	}, nil
}

// readCallArgs reads a call's argument list and builds a FuncCall or
// FuncPtrCall node depending on whether fn names a declared function or
// is itself a pointer-valued expression.
func (p *Parser) readCallArgs(fn *ast.Node, at *token.Token) (*ast.Node, error) {
	var args []*ast.Node
	ok, err := p.accept(')')
	if err != nil {
		return nil, err
	}
	if !ok {
		for {
			a, err := p.readAssignExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, p.decay(a))
			if ok, err := p.accept(','); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
		if _, err := p.expect(')'); err != nil {
			return nil, err
		}
	}
	if fn.Kind == ast.FuncDesg {
		return &ast.Node{Kind: ast.FuncCall, FName: fn.FName, FuncType: fn.FuncType,
			Type: fn.FuncType.Return, Args: args}, nil
	}
	ft := fn.Type
	if ft.Kind == types.Ptr {
		ft = ft.Elem
	}
	return &ast.Node{Kind: ast.FuncPtrCall, FuncPtr: fn, FuncType: ft, Type: ft.Return, Args: args}, nil
}

// readPrimary reads a primary-expression: literal, identifier, `(expr)`,
// a GNU statement-expression `({ ... })`, or the
// __builtin_types_compatible_p/__builtin_choose_expr/_Generic forms
// supplemented from original_source/parse.c.
func (p *Parser) readPrimary() (*ast.Node, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch t.Kind {
	case token.Number:
		return p.buildNumberLiteral(t)
	case token.Char:
		n := ast.NewLiteral(types.NewBase(types.Int, false))
		n.IVal = int64(t.CharVal)
		return n, nil
	case token.String:
		return p.buildStringLiteral(t), nil
	case token.Identifier:
		switch t.Name {
		case "__builtin_types_compatible_p":
			return p.readBuiltinTypesCompatible(t)
		case "__builtin_choose_expr":
			return p.readBuiltinChooseExpr(t)
		}
		return p.readIdentExpr(t)
	case token.Keyword:
		switch {
		case t.Is('('):
			if ok, err := p.accept('{'); err != nil {
				return nil, err
			} else if ok {
				return p.readStmtExpr(t)
			}
			n, err := p.readExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(')'); err != nil {
				return nil, err
			}
			return n, nil
		case t.Is(token.KwGeneric):
			return p.readGeneric(t)
		}
	}
	return nil, p.errf(t, "unexpected token in expression: %s", describe(t))
}

func (p *Parser) readStmtExpr(at *token.Token) (*ast.Node, error) {
	body, err := p.readCompoundStmtBody()
	if err != nil {
		return nil, err
	}
	ty := types.NewBase(types.Void, false)
	if n := len(body); n > 0 && body[n-1].Type != nil {
		ty = body[n-1].Type
	}
	return &ast.Node{Kind: ast.StmtExpr, Type: ty, Stmts: body, Loc: locOf(at)}, nil
}

// readGeneric reads `_Generic(expr, type: e, ..., default: e)`, selecting
// the association whose type structurally matches the controlling
// expression's type, per C11 6.5.1.1 / spec.md §4.4.
func (p *Parser) readGeneric(at *token.Token) (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	ctrl, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	var dflt *ast.Node
	var match *ast.Node
	for {
		if _, err := p.expect(','); err != nil {
			return nil, err
		}
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		if t.Is(token.KwDefault) {
			p.next()
			if _, err := p.expect(':'); err != nil {
				return nil, err
			}
			e, err := p.readAssignExpr()
			if err != nil {
				return nil, err
			}
			dflt = e
		} else {
			ty, err := p.readTypeName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(':'); err != nil {
				return nil, err
			}
			e, err := p.readAssignExpr()
			if err != nil {
				return nil, err
			}
			if match == nil && typesEqual(ty, ctrl.Type) {
				match = e
			}
		}
		ok, err := p.accept(')')
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
	}
	if match != nil {
		return match, nil
	}
	if dflt != nil {
		return dflt, nil
	}
	return nil, p.errf(at, "_Generic: no matching association and no default")
}

func (p *Parser) readBuiltinTypesCompatible(at *token.Token) (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	t1, err := p.readTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(','); err != nil {
		return nil, err
	}
	t2, err := p.readTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	n := ast.NewLiteral(types.NewBase(types.Int, false))
	if typesEqual(t1, t2) {
		n.IVal = 1
	}
	return n, nil
}

func (p *Parser) readBuiltinChooseExpr(at *token.Token) (*ast.Node, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	cond, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(','); err != nil {
		return nil, err
	}
	a, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(','); err != nil {
		return nil, err
	}
	b, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	v, err := p.foldIntConst(cond)
	if err != nil {
		return nil, err
	}
	if v != 0 {
		return a, nil
	}
	return b, nil
}

func (p *Parser) readIdentExpr(t *token.Token) (*ast.Node, error) {
	id, ok := p.lookupVar(t.Name)
	if !ok {
		nt, err := p.peek()
		if err != nil {
			return nil, err
		}
		if nt.Is('(') {
			// Implicit int-returning function declaration (pre-C99
			// tolerance, common in 8cc's own test corpus).
			ft := types.NewFunc(types.NewBase(types.Int, false), nil, nil, true, true)
			return &ast.Node{Kind: ast.FuncDesg, FName: t.Name, FuncType: ft, Type: ft}, nil
		}
		return nil, p.errf(t, "undefined identifier: %s", t.Name)
	}
	switch {
	case id.enumVal != nil:
		n := ast.NewLiteral(types.NewBase(types.Int, false))
		n.IVal = *id.enumVal
		return n, nil
	case id.varNode != nil:
		v := id.varNode
		if v.Type.Kind == types.Func {
			return &ast.Node{Kind: ast.FuncDesg, FName: v.VarName, FuncType: v.Type, Type: v.Type}, nil
		}
		return v, nil
	}
	return nil, p.errf(t, "'%s' does not name a value", t.Name)
}

func (p *Parser) buildNumberLiteral(t *token.Token) (*ast.Node, error) {
	v, isFloat, isUnsigned, longness, ok := parseNumberSpelling(t.Name)
	if !ok {
		return nil, p.errf(t, "invalid numeric literal: %s", t.Name)
	}
	if isFloat {
		n := ast.NewLiteral(types.NewBase(types.Double, false))
		n.FVal = v
		n.FLabel = p.newFloatLabel()
		return n, nil
	}
	kind := types.Int
	if longness >= 2 {
		kind = types.LLong
	} else if longness == 1 {
		kind = types.Long
	}
	n := ast.NewLiteral(types.NewBase(kind, isUnsigned))
	n.IVal = int64(v)
	return n, nil
}

// buildStringLiteral widens t's decoded UTF-8 body to its prefix's code-
// unit width via internal/transcode (narrow and `u8` stay single-byte;
// `u` becomes UTF-16 with surrogate pairs; `U`/`L` become UTF-32), per
// spec.md §3's string-literal encoding tag.
func (p *Parser) buildStringLiteral(t *token.Token) *ast.Node {
	elemTy := stringElemType(t.Enc)
	units := transcode.RuneCount(t.StrVal, t.Enc)
	n := ast.NewLiteral(types.NewArray(elemTy, units+1))
	n.SVal = append(transcode.Encode(t.StrVal, t.Enc), make([]byte, transcode.Width(t.Enc))...)
	n.SLabel = p.newStrLabel()
	return n
}

// stringElemType maps a string literal's encoding prefix to the element
// type its array-of decays to: `char` for narrow/u8, `char16_t`-shaped
// unsigned short for `u`, and an unsigned int standing in for
// char32_t/wchar_t for `U`/`L` (wchar_t is `int` per the builtin
// preamble's typedef, but its string form stores 32-bit units the same
// as char32_t, matching glibc's `wchar_t` choice on this target).
func stringElemType(enc token.Encoding) *types.Type {
	switch enc {
	case token.EncChar16:
		return types.NewBase(types.Short, true)
	case token.EncChar32, token.EncWChar:
		return types.NewBase(types.Int, true)
	default:
		return types.NewBase(types.Char, false)
	}
}

// decay inserts array-to-pointer and function-to-pointer conversion
// nodes, per C11 6.3.2.1.
func (p *Parser) decay(n *ast.Node) *ast.Node {
	switch n.Type.Kind {
	case types.Array:
		return &ast.Node{Kind: ast.Conv, Type: types.NewPtr(n.Type.Elem), Operand: n}
	case types.Func:
		return &ast.Node{Kind: ast.Conv, Type: types.NewPtr(n.Type), Operand: n}
	}
	return n
}

// promote applies integer promotion (bool/char/short to int), per
// C11 6.3.1.1.
func (p *Parser) promote(n *ast.Node) *ast.Node {
	if !n.Type.IsInt() {
		return n
	}
	switch n.Type.Kind {
	case types.Bool, types.Char, types.Short:
		return &ast.Node{Kind: ast.Conv, Type: types.NewBase(types.Int, false), Operand: n}
	}
	return n
}

// rank orders integer types for the usual arithmetic conversions.
func rank(k types.Kind) int {
	switch k {
	case types.Bool:
		return 0
	case types.Char:
		return 1
	case types.Short:
		return 2
	case types.Int, types.Enum:
		return 3
	case types.Long:
		return 4
	case types.LLong:
		return 5
	}
	return -1
}

// commonType computes the usual-arithmetic-conversion result type of a
// and b, per C11 6.3.1.8: pointers win over integers (pointer
// arithmetic), floats win over integers, and among integers the higher
// rank wins, with the unsigned type winning on a rank tie.
func commonType(a, b *types.Type) *types.Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Kind == types.Ptr {
		return a
	}
	if b.Kind == types.Ptr {
		return b
	}
	if a.IsFloat() || b.IsFloat() {
		if a.Kind == types.LDouble || b.Kind == types.LDouble {
			return types.NewBase(types.LDouble, false)
		}
		if a.Kind == types.Double || b.Kind == types.Double {
			return types.NewBase(types.Double, false)
		}
		return types.NewBase(types.Float, false)
	}
	ra, rb := rank(a.Kind), rank(b.Kind)
	hi, unsigned := a, a.Unsigned
	if rb > ra {
		hi = b
	}
	if ra == rb {
		unsigned = a.Unsigned || b.Unsigned
	} else if rb > ra {
		unsigned = b.Unsigned
	}
	k := hi.Kind
	if k < types.Int {
		k = types.Int
	}
	return types.NewBase(k, unsigned)
}

func typesEqual(a, b *types.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case types.Ptr:
		return typesEqual(a.Elem, b.Elem)
	case types.Array:
		return a.Len == b.Len && typesEqual(a.Elem, b.Elem)
	case types.StructUnion:
		if a.IsStruct != b.IsStruct || a.Fields.Len() != b.Fields.Len() {
			return false
		}
		for _, k := range a.Fields.Keys() {
			fa, _ := a.Fields.GetLocal(k)
			fb, ok := b.Fields.GetLocal(k)
			if !ok || !typesEqual(fa.Type, fb.Type) {
				return false
			}
		}
		return true
	default:
		return a.Unsigned == b.Unsigned
	}
}

// buildBinary builds a binary-operator node, decaying/promoting operands
// and applying the pointer-arithmetic special cases of C11 6.5.6.
func (p *Parser) buildBinary(op int, l, r *ast.Node, at *token.Token) (*ast.Node, error) {
	l, r = p.decay(l), p.decay(r)

	if op == '+' || op == '-' {
		if l.Type.Kind == types.Ptr || l.Type.Kind == types.Array {
			return p.buildPtrArith(op, l, r, at)
		}
		if op == '+' && (r.Type.Kind == types.Ptr || r.Type.Kind == types.Array) {
			return p.buildPtrArith(op, r, l, at)
		}
		if op == '-' && r.Type.Kind == types.Ptr {
			if l.Type.Kind != types.Ptr {
				return nil, p.errf(at, "pointer expected on both sides of '-'")
			}
			diff := &ast.Node{Kind: ast.Binary, Op: '-', Type: types.NewBase(types.Long, false), Left: l, Right: r}
			sz := ast.NewLiteral(types.NewBase(types.Long, false))
			sz.IVal = int64(l.Type.Elem.Size)
			if sz.IVal == 0 {
				sz.IVal = 1
			}
			return &ast.Node{Kind: ast.Binary, Op: '/', Type: diff.Type, Left: diff, Right: sz}, nil
		}
	}

	switch op {
	case token.PuncLogAnd, token.PuncLogOr:
		return &ast.Node{Kind: ast.Binary, Op: op, Type: types.NewBase(types.Int, false), Left: l, Right: r}, nil
	}

	l, r = p.promote(l), p.promote(r)
	ty := commonType(l.Type, r.Type)
	lc := p.convertArith(l, ty)
	rc := p.convertArith(r, ty)

	switch op {
	case token.PuncEq, token.PuncNe, '<', '>', token.PuncLe, token.PuncGe:
		return &ast.Node{Kind: ast.Binary, Op: op, Type: types.NewBase(types.Int, false), Left: lc, Right: rc}, nil
	case token.PuncShl, token.PuncShr:
		// Shift count doesn't participate in the common-type promotion;
		// only the left operand's (promoted) type governs the result.
		return &ast.Node{Kind: ast.Binary, Op: op, Type: l.Type, Left: l, Right: p.promote(r)}, nil
	default:
		return &ast.Node{Kind: ast.Binary, Op: op, Type: ty, Left: lc, Right: rc}, nil
	}
}

func (p *Parser) buildPtrArith(op int, ptr, n *ast.Node, at *token.Token) (*ast.Node, error) {
	elemSize := ptr.Type.Elem.Size
	if elemSize == 0 {
		elemSize = 1
	}
	n = p.promote(n)
	scale := ast.NewLiteral(n.Type)
	scale.IVal = int64(elemSize)
	scaled := &ast.Node{Kind: ast.Binary, Op: '*', Type: n.Type, Left: n, Right: scale}
	resultTy := types.NewPtr(ptr.Type.Elem)
	return &ast.Node{Kind: ast.Binary, Op: op, Type: resultTy, Left: ptr, Right: scaled}, nil
}

// convertArith inserts a Conv node if n's type differs from want.
func (p *Parser) convertArith(n *ast.Node, want *types.Type) *ast.Node {
	if typesEqual(n.Type, want) {
		return n
	}
	return &ast.Node{Kind: ast.Conv, Type: want, Operand: n}
}

// convertAssign converts the right-hand side of an assignment/
// initializer to target's type, per C11 6.5.16.1.
func (p *Parser) convertAssign(n *ast.Node, target *types.Type) *ast.Node {
	n = p.decay(n)
	if typesEqual(n.Type, target) {
		return n
	}
	return &ast.Node{Kind: ast.Conv, Type: target, Operand: n}
}

// foldIntConst evaluates n as an integer constant expression via
// internal/constexpr, for array bounds, case labels, and enumerator
// values.
func (p *Parser) foldIntConst(n *ast.Node) (int64, error) {
	v, err := constexpr.Eval(n)
	if err != nil {
		return 0, p.errf(&token.Token{}, "constant expression required: %v", err)
	}
	return v.Int, nil
}
