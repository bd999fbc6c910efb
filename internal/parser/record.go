package parser

import (
	"github.com/gorse-io/goatc/internal/token"
	"github.com/gorse-io/goatc/internal/types"
)

// skipAttributes discards zero or more `__attribute__((...))` clauses,
// per the GNU-extension tolerance supplemented from original_source/
// parse.c: system headers routinely decorate declarations with these and
// a strict compiler would otherwise refuse to parse them.
func (p *Parser) skipAttributes() error {
	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if !t.IsIdent("__attribute__") && !t.IsIdent("__declspec") {
			return nil
		}
		p.next()
		if _, err := p.expect('('); err != nil {
			return err
		}
		depth := 1
		for depth > 0 {
			tt, err := p.next()
			if err != nil {
				return err
			}
			if tt.Is('(') {
				depth++
			} else if tt.Is(')') {
				depth--
			}
		}
	}
}

// readStructUnionSpec reads `struct|union [tag] [{ field-decl-list }]`,
// building (or completing) the tagged type, per C11 6.7.2.1. A forward
// reference (`struct Foo *p;` before `struct Foo { ... };`) registers a
// Stub type in the tag scope, back-patched once the real body is seen, so
// pointer identity already captured by earlier declarators stays valid.
func (p *Parser) readStructUnionSpec(isStruct bool) (*types.Type, error) {
	if err := p.skipAttributes(); err != nil {
		return nil, err
	}
	tag := ""
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.Identifier {
		p.next()
		tag = t.Name
	}
	if err := p.skipAttributes(); err != nil {
		return nil, err
	}
	hasBody, err := p.accept('{')
	if err != nil {
		return nil, err
	}
	if !hasBody {
		if tag == "" {
			return nil, p.errf(t, "struct/union tag or body expected")
		}
		if existing, ok := p.lookupTag(tag); ok {
			return existing, nil
		}
		stub := types.NewStub()
		stub.Kind = types.StructUnion
		stub.IsStruct = isStruct
		p.declareTag(tag, stub)
		return stub, nil
	}

	var fields []types.RecordField
	for {
		ok, err := p.accept('}')
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		more, err := p.readRecordFieldDecl()
		if err != nil {
			return nil, err
		}
		fields = append(fields, more...)
	}

	var result *types.Type
	if isStruct {
		fmap, size, align := types.LayoutStruct(fields)
		result = &types.Type{Kind: types.StructUnion, IsStruct: true, Fields: fmap, Size: size, Align: align}
	} else {
		fmap, size, align := types.LayoutUnion(fields)
		result = &types.Type{Kind: types.StructUnion, IsStruct: false, Fields: fmap, Size: size, Align: align}
	}

	if tag != "" {
		if existing, ok := p.cur.tags.GetLocal(tag); ok {
			existing.BecomeCopyOf(result)
			return existing, nil
		}
		p.declareTag(tag, result)
	}
	return result, nil
}

// readRecordFieldDecl reads one `type-spec declarator-list ;` line inside
// a struct/union body, expanding into one or more RecordFields (an
// anonymous nested struct/union member is carried through with Name ""
// so LayoutStruct/LayoutUnion squash it, per spec.md §4.4).
func (p *Parser) readRecordFieldDecl() ([]types.RecordField, error) {
	base, _, err := p.readDeclSpecs()
	if err != nil {
		return nil, err
	}
	var out []types.RecordField
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Is(';') {
		p.next()
		out = append(out, types.RecordField{Name: "", Type: base})
		return out, nil
	}
	for {
		name, ty, err := p.readDeclarator(base)
		if err != nil {
			return nil, err
		}
		if ok, err := p.accept(':'); err != nil {
			return nil, err
		} else if ok {
			n, err := p.readConstIntExpr()
			if err != nil {
				return nil, err
			}
			ty = ty.WithBitSize(int(n))
		}
		if err := p.skipAttributes(); err != nil {
			return nil, err
		}
		out = append(out, types.RecordField{Name: name, Type: ty})
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

// readEnumSpec reads `enum [tag] [{ enumerator-list }]`, declaring each
// enumerator as an int-valued constant in the current variable namespace
// (8cc's enum constants share the ordinary identifier namespace, not a
// separate one, matching C's actual scoping rule).
func (p *Parser) readEnumSpec() (*types.Type, error) {
	tag := ""
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.Identifier {
		p.next()
		tag = t.Name
	}
	hasBody, err := p.accept('{')
	if err != nil {
		return nil, err
	}
	ty := types.NewBase(types.Enum, false)
	if !hasBody {
		if tag == "" {
			return nil, p.errf(t, "enum tag or body expected")
		}
		if existing, ok := p.lookupTag(tag); ok {
			return existing, nil
		}
		p.declareTag(tag, ty)
		return ty, nil
	}
	var next int64
	for {
		ok, err := p.accept('}')
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if ok, err := p.accept('='); err != nil {
			return nil, err
		} else if ok {
			n, err := p.readConstIntExpr()
			if err != nil {
				return nil, err
			}
			next = n
		}
		p.declareEnumConst(name.Name, next)
		next++
		if ok, err := p.accept(','); err != nil {
			return nil, err
		} else if !ok {
			if _, err := p.expect('}'); err != nil {
				return nil, err
			}
			break
		}
	}
	if tag != "" {
		p.declareTag(tag, ty)
	}
	return ty, nil
}
