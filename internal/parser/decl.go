package parser

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/container"
	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/token"
	"github.com/gorse-io/goatc/internal/types"
)

// declSpecs accumulates the pieces of a declaration-specifier list as they
// are read, so conflicts (two storage classes, "short double", ...) can be
// diagnosed once the whole list is known. Grounded on 8cc's
// read_decl_spec, which folds into the same kind of running state instead
// of a grammar with one production per legal combination.
type declSpecs struct {
	storage  string // "", "typedef", "extern", "static", "auto", "register"
	inline   bool
	noreturn bool

	kindType  *types.Type // set directly by struct/union/enum/typedef-name/typeof
	void, boo bool
	char      bool
	short     bool
	int_      bool
	longCount int
	float_    bool
	double    bool
	signed_   bool
	unsigned_ bool

	align int // from _Alignas, 0 = unspecified
}

// readDeclSpecs reads a declaration-specifier list, per C11 6.7. Returns
// the resolved type and the storage-class/inline/noreturn flags gathered
// alongside it. tok0 is used only for diagnostics when the list is empty.
func (p *Parser) readDeclSpecs() (*types.Type, *declSpecs, error) {
	ds := &declSpecs{}
loop:
	for {
		t, err := p.next()
		if err != nil {
			return nil, nil, err
		}
		switch {
		case t.Is(token.KwTypedef):
			ds.storage = "typedef"
		case t.Is(token.KwExtern):
			ds.storage = "extern"
		case t.Is(token.KwStatic):
			ds.storage = "static"
		case t.Is(token.KwAuto):
			ds.storage = "auto"
		case t.Is(token.KwRegister):
			ds.storage = "register"
		case t.Is(token.KwInline):
			ds.inline = true
		case t.Is(token.KwNoreturn):
			ds.noreturn = true
		case t.Is(token.KwConst), t.Is(token.KwVolatile), t.Is(token.KwRestrict), t.Is(token.KwAtomic):
			// Qualifiers don't affect layout/codegen in this compiler; accepted and discarded.
		case t.Is(token.KwVoid):
			ds.void = true
		case t.Is(token.KwBool):
			ds.boo = true
		case t.Is(token.KwChar):
			ds.char = true
		case t.Is(token.KwShort):
			ds.short = true
		case t.Is(token.KwInt):
			ds.int_ = true
		case t.Is(token.KwLong):
			ds.longCount++
		case t.Is(token.KwFloat):
			ds.float_ = true
		case t.Is(token.KwDouble):
			ds.double = true
		case t.Is(token.KwSigned):
			ds.signed_ = true
		case t.Is(token.KwUnsigned):
			ds.unsigned_ = true
		case t.Is(token.KwComplex), t.Is(token.KwImaginary):
			return nil, nil, p.errf(t, "_Complex/_Imaginary are not supported")
		case t.Is(token.KwStruct), t.Is(token.KwUnion):
			rt, err := p.readStructUnionSpec(t.Is(token.KwStruct))
			if err != nil {
				return nil, nil, err
			}
			ds.kindType = rt
		case t.Is(token.KwEnum):
			rt, err := p.readEnumSpec()
			if err != nil {
				return nil, nil, err
			}
			ds.kindType = rt
		case t.Is(token.KwAlignas):
			n, err := p.readAlignas()
			if err != nil {
				return nil, nil, err
			}
			ds.align = n
		case t.Is(token.KwTypeof):
			rt, err := p.readTypeofSpec()
			if err != nil {
				return nil, nil, err
			}
			ds.kindType = rt
		case t.Kind == token.Identifier && ds.kindType == nil && !ds.void && !ds.boo && !ds.char &&
			!ds.short && !ds.int_ && ds.longCount == 0 && !ds.float_ && !ds.double &&
			p.isTypedefName(t.Name):
			id, _ := p.lookupVar(t.Name)
			ds.kindType = id.typedef
		default:
			p.unget(t)
			break loop
		}
	}
	ty, err := ds.resolve(p, nil)
	if err != nil {
		return nil, nil, err
	}
	return ty, ds, nil
}

func (ds *declSpecs) resolve(p *Parser, at *token.Token) (*types.Type, error) {
	switch {
	case ds.kindType != nil:
		return ds.kindType, nil
	case ds.void:
		return types.NewBase(types.Void, false), nil
	case ds.boo:
		return types.NewBase(types.Bool, false), nil
	case ds.char:
		return types.NewBase(types.Char, ds.unsigned_), nil
	case ds.float_:
		return types.NewBase(types.Float, false), nil
	case ds.double:
		if ds.longCount > 0 {
			return types.NewBase(types.LDouble, false), nil
		}
		return types.NewBase(types.Double, false), nil
	case ds.short:
		return types.NewBase(types.Short, ds.unsigned_), nil
	case ds.longCount >= 2:
		return types.NewBase(types.LLong, ds.unsigned_), nil
	case ds.longCount == 1:
		return types.NewBase(types.Long, ds.unsigned_), nil
	case ds.int_, ds.signed_, ds.unsigned_:
		return types.NewBase(types.Int, ds.unsigned_), nil
	default:
		// No type specifier at all defaults to int, per historic C and
		// what K&R parameter lists rely on; a real compiler would warn.
		return types.NewBase(types.Int, false), nil
	}
}

// readAlignas reads `_Alignas(expr-or-type)` and returns the requested
// byte alignment.
func (p *Parser) readAlignas() (int, error) {
	if _, err := p.expect('('); err != nil {
		return 0, err
	}
	t, err := p.peek()
	if err != nil {
		return 0, err
	}
	var n int64
	if p.startsTypeName(t) {
		ty, err := p.readTypeName()
		if err != nil {
			return 0, err
		}
		n = int64(ty.Align)
	} else {
		v, err := p.readConstIntExpr()
		if err != nil {
			return 0, err
		}
		n = v
	}
	if _, err := p.expect(')'); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (p *Parser) readTypeofSpec() (*types.Type, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	var ty *types.Type
	if p.startsTypeName(t) {
		ty, err = p.readTypeName()
	} else {
		var n *ast.Node
		n, err = p.readExpr()
		if err == nil {
			ty = n.Type
		}
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	return ty, nil
}

// startsTypeName reports whether t can begin a declaration-specifier
// list / type-name, used to disambiguate casts and compound literals
// from parenthesized expressions, and typeof's argument form.
func (p *Parser) startsTypeName(t *token.Token) bool {
	if t.Kind == token.Identifier {
		return p.isTypedefName(t.Name)
	}
	if t.Kind != token.Keyword {
		return false
	}
	switch t.ID {
	case token.KwVoid, token.KwBool, token.KwChar, token.KwShort, token.KwInt, token.KwLong,
		token.KwFloat, token.KwDouble, token.KwSigned, token.KwUnsigned, token.KwStruct,
		token.KwUnion, token.KwEnum, token.KwConst, token.KwVolatile, token.KwRestrict,
		token.KwAtomic, token.KwTypeof, token.KwComplex, token.KwImaginary:
		return true
	}
	return false
}

// readTypeName reads an abstract declarator's type: a declaration-specifier
// list followed by an optional pointer/array/function suffix with no name,
// per C11 6.7.7 (used by casts, sizeof(type), compound literals, _Generic
// associations, __builtin_types_compatible_p).
func (p *Parser) readTypeName() (*types.Type, error) {
	base, _, err := p.readDeclSpecs()
	if err != nil {
		return nil, err
	}
	_, ty, err := p.readDeclarator(base)
	return ty, err
}

// readDeclarator parses one declarator against base, per spec.md §4.4's
// "stub type passed inward and back-patched on return": a parenthesized
// inner declarator is parsed against a fresh stub, and once the outer
// array/function/pointer shape wrapping base is known, the stub is
// back-patched to become a copy of it, producing the correct
// outer-to-inner composition (e.g. `int (*)(void)` is pointer-to-
// function-returning-int, not function-returning-pointer-to-int).
func (p *Parser) readDeclarator(base *types.Type) (string, *types.Type, error) {
	for {
		ok, err := p.accept('*')
		if err != nil {
			return "", nil, err
		}
		if !ok {
			break
		}
		for {
			t, err := p.peek()
			if err != nil {
				return "", nil, err
			}
			if t.Is(token.KwConst) || t.Is(token.KwVolatile) || t.Is(token.KwRestrict) {
				p.next()
				continue
			}
			break
		}
		base = types.NewPtr(base)
	}

	t, err := p.next()
	if err != nil {
		return "", nil, err
	}
	if t.Is('(') {
		stub := types.NewStub()
		name, inner, err := p.readDeclarator(stub)
		if err != nil {
			return "", nil, err
		}
		if _, err := p.expect(')'); err != nil {
			return "", nil, err
		}
		full, err := p.readDeclaratorTail(base)
		if err != nil {
			return "", nil, err
		}
		stub.BecomeCopyOf(full)
		return name, inner, nil
	}
	if t.Kind == token.Identifier {
		full, err := p.readDeclaratorTail(base)
		if err != nil {
			return "", nil, err
		}
		return t.Name, full, nil
	}
	// Abstract declarator: no name.
	p.unget(t)
	full, err := p.readDeclaratorTail(base)
	if err != nil {
		return "", nil, err
	}
	return "", full, nil
}

// readDeclaratorTail reads the chain of `[n]`/`(params)` direct-declarator
// suffixes following an identifier (or closing paren), wrapping base from
// the innermost dimension outward, per C11 6.7.6.
func (p *Parser) readDeclaratorTail(base *types.Type) (*types.Type, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case t.Is('['):
		length := -1
		lt, err := p.peek()
		if err != nil {
			return nil, err
		}
		if !lt.Is(']') {
			n, err := p.readConstIntExpr()
			if err != nil {
				return nil, err
			}
			length = int(n)
		}
		if _, err := p.expect(']'); err != nil {
			return nil, err
		}
		elem, err := p.readDeclaratorTail(base)
		if err != nil {
			return nil, err
		}
		return types.NewArray(elem, length), nil

	case t.Is('('):
		params, names, variadic, oldStyle, err := p.readParamList()
		if err != nil {
			return nil, err
		}
		ret, err := p.readDeclaratorTail(base)
		if err != nil {
			return nil, err
		}
		return types.NewFunc(ret, params, names, variadic, oldStyle), nil

	default:
		p.unget(t)
		return base, nil
	}
}

// readParamList reads a `(...)` parameter-type-list. An empty list or one
// containing only bare identifiers (no type specifier on the first
// token) is a K&R old-style parameter-name list, per spec.md §4.4.
func (p *Parser) readParamList() ([]*types.Type, []string, bool, bool, error) {
	if ok, err := p.accept(')'); err != nil {
		return nil, nil, false, false, err
	} else if ok {
		return nil, nil, false, true, nil
	}
	first, err := p.peek()
	if err != nil {
		return nil, nil, false, false, err
	}
	if first.Is(token.KwVoid) {
		second, err := p.peekN(1)
		if err != nil {
			return nil, nil, false, false, err
		}
		if second.Is(')') {
			p.next()
			p.next()
			return nil, nil, false, false, nil
		}
	}
	oldStyle := first.Kind == token.Identifier && !p.startsTypeName(first)

	var params []*types.Type
	var names []string
	variadic := false
	for {
		t, err := p.peek()
		if err != nil {
			return nil, nil, false, false, err
		}
		if t.Is(token.PuncEllipsis) {
			p.next()
			variadic = true
			break
		}
		if oldStyle {
			name, err := p.expectIdent()
			if err != nil {
				return nil, nil, false, false, err
			}
			names = append(names, name.Name)
			params = append(params, types.NewBase(types.Int, false))
		} else {
			base, _, err := p.readDeclSpecs()
			if err != nil {
				return nil, nil, false, false, err
			}
			name, ty, err := p.readDeclarator(base)
			if err != nil {
				return nil, nil, false, false, err
			}
			ty = adjustParamType(ty)
			params = append(params, ty)
			names = append(names, name)
		}
		if ok, err := p.accept(','); err != nil {
			return nil, nil, false, false, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(')'); err != nil {
		return nil, nil, false, false, err
	}
	return params, names, variadic, oldStyle, nil
}

// adjustParamType decays an array-of-T or function-T parameter type to
// pointer-to-T, per C11 6.7.6.3p7-8.
func adjustParamType(t *types.Type) *types.Type {
	switch t.Kind {
	case types.Array:
		return types.NewPtr(t.Elem)
	case types.Func:
		return types.NewPtr(t)
	}
	return t
}

// readTopLevel reads one top-level declaration-specifier list followed by
// one or more declarators, dispatching each to a typedef, a global
// variable (with optional initializer), or (for exactly one declarator
// immediately followed by a K&R parameter-declaration run and/or `{`) a
// function definition.
func (p *Parser) readTopLevel() ([]*ast.Node, error) {
	base, ds, err := p.readDeclSpecs()
	if err != nil {
		return nil, err
	}
	if ok, err := p.accept(';'); err != nil {
		return nil, err
	} else if ok {
		return nil, nil
	}

	var out []*ast.Node
	for {
		name, ty, err := p.readDeclarator(base)
		if err != nil {
			return nil, err
		}
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		isFuncDef := ty.Kind == types.Func && (t.Is('{') || (ty.OldStyle && canStartDecl(t)))
		if isFuncDef {
			fn, err := p.readFuncDef(name, ty)
			if err != nil {
				return nil, err
			}
			out = append(out, fn)
			return out, nil
		}

		if ds.storage == "typedef" {
			p.declareTypedef(name, ty)
		} else {
			n := p.newGlobalVar(name, ty, ds.storage == "static")
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
		} else if ok {
			continue
		}
		if _, err := p.expect(';'); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func canStartDecl(t *token.Token) bool {
	return t.Kind == token.Keyword && (t.ID == token.KwInt || t.ID == token.KwChar ||
		t.ID == token.KwShort || t.ID == token.KwLong || t.ID == token.KwFloat ||
		t.ID == token.KwDouble || t.ID == token.KwUnsigned || t.ID == token.KwSigned ||
		t.ID == token.KwStruct || t.ID == token.KwUnion || t.ID == token.KwEnum ||
		t.ID == token.KwRegister)
}

func (p *Parser) newGlobalVar(name string, ty *types.Type, static bool) *ast.Node {
	n := &ast.Node{Kind: ast.GlobalVar, Type: ty, VarName: name, GLabel: name, IsStatic: static}
	p.declareVar(name, n)
	return n
}

// readFuncDef reads a function body (and, for K&R definitions, the
// parameter-type declarations preceding it), resolving pending gotos
// against the label map once the body is fully read.
func (p *Parser) readFuncDef(name string, ty *types.Type) (*ast.Node, error) {
	if ty.OldStyle {
		if err := p.readKRParamDecls(ty); err != nil {
			return nil, err
		}
	}

	p.pushScope()
	defer p.popScope()
	prevFn := p.fn
	p.fn = &funcState{retType: ty.Return, labels: container.NewOrderedMap[*ast.Node]()}
	defer func() { p.fn = prevFn }()

	params := make([]*ast.Node, len(ty.Params))
	for i, pt := range ty.Params {
		pname := ""
		if i < len(ty.ParamNames) {
			pname = ty.ParamNames[i]
		}
		lv := &ast.Node{Kind: ast.LocalVar, Type: pt, VarName: pname}
		p.declareVar(pname, lv)
		params[i] = lv
	}

	fnNode := &ast.Node{Kind: ast.FuncDef, FName: name, FuncType: ty, Params: params, IsStatic: false}
	p.declareVar(name, &ast.Node{Kind: ast.GlobalVar, Type: ty, VarName: name, GLabel: name})

	body, err := p.readCompoundStmt()
	if err != nil {
		return nil, err
	}
	fnNode.Body = body
	fnNode.LocalVars = p.fn.locals

	for _, g := range p.fn.pendGotos {
		if _, ok := p.fn.labels.Get(g.Label_); !ok {
			return nil, p.errf(&token.Token{File: g.Loc.File, Line: g.Loc.Line}, "use of undeclared label '%s'", g.Label_)
		}
	}
	return fnNode, nil
}

// readKRParamDecls reads the `type name, name;` declarations between a
// K&R parameter-name list and the function body, updating ty.Params in
// place; any name left undeclared defaults to int with a warning, per
// spec.md §4.4.
func (p *Parser) readKRParamDecls(ty *types.Type) error {
	declared := map[string]*types.Type{}
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.Is('{') {
			break
		}
		base, _, err := p.readDeclSpecs()
		if err != nil {
			return err
		}
		for {
			name, pty, err := p.readDeclarator(base)
			if err != nil {
				return err
			}
			declared[name] = adjustParamType(pty)
			if ok, err := p.accept(','); err != nil {
				return err
			} else if !ok {
				break
			}
		}
		if _, err := p.expect(';'); err != nil {
			return err
		}
	}
	for i, name := range ty.ParamNames {
		if pt, ok := declared[name]; ok {
			ty.Params[i] = pt
		} else if p.sink != nil {
			p.sink.Warnf(diag.Position{}, diag.KindParse,
				"parameter '%s' has no declaration, defaulting to int", name)
		}
	}
	return nil
}

// readConstIntExpr folds an expression that must be an integer constant
// (array bounds, case labels, _Alignas), via internal/constexpr.
func (p *Parser) readConstIntExpr() (int64, error) {
	n, err := p.readCondExpr()
	if err != nil {
		return 0, err
	}
	return p.foldIntConst(n)
}
