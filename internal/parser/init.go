package parser

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/token"
	"github.com/gorse-io/goatc/internal/types"
)

// readInitializer reads an initializer for an object of type ty and
// flattens it into offset-sorted {type, offset, value} entries, per
// spec.md §4.4. A bare scalar initializer (no braces) is the common case;
// a braced list recurses per-member/per-element, honoring `.field` and
// `[index]` designators by repositioning the cursor, and excess entries
// past a fixed array length are diagnosed and skipped.
func (p *Parser) readInitializer(ty *types.Type) ([]ast.LvarInit, error) {
	var out []ast.LvarInit
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.String && ty.Kind == types.Array && ty.Elem.Kind == types.Char {
		p.next()
		return stringInit(ty, t), nil
	}
	if t.Is('{') {
		p.next()
		out, err = p.readInitList(ty, 0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect('}'); err != nil {
			return nil, err
		}
		return sortInits(out), nil
	}
	v, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	conv := p.convertAssign(v, ty)
	out = append(out, ast.LvarInit{Type: ty, Off: 0, Value: conv})
	return out, nil
}

// stringInit expands a string literal initializing a char[] into one
// byte entry per character, null-terminated if length permits, per
// spec.md §4.4.
func stringInit(ty *types.Type, t *token.Token) []ast.LvarInit {
	var out []ast.LvarInit
	charTy := types.NewBase(types.Char, false)
	limit := len(t.StrVal) + 1
	if ty.Len >= 0 && ty.Len < limit {
		limit = ty.Len
	}
	for i := 0; i < limit; i++ {
		var c byte
		if i < len(t.StrVal) {
			c = t.StrVal[i]
		}
		lit := ast.NewLiteral(charTy)
		lit.IVal = int64(c)
		out = append(out, ast.LvarInit{Type: charTy, Off: i, Value: lit})
	}
	return out
}

// readInitList reads the comma-separated entries of a braced initializer
// list at base offset off, recursing into nested aggregates.
func (p *Parser) readInitList(ty *types.Type, off int) ([]ast.LvarInit, error) {
	var out []ast.LvarInit
	switch ty.Kind {
	case types.Array:
		idx := 0
		for {
			t, err := p.peek()
			if err != nil {
				return nil, err
			}
			if t.Is('}') {
				break
			}
			if ok, err := p.accept('['); err != nil {
				return nil, err
			} else if ok {
				n, err := p.readConstIntExpr()
				if err != nil {
					return nil, err
				}
				idx = int(n)
				if _, err := p.expect(']'); err != nil {
					return nil, err
				}
				if ok, err := p.accept('='); err != nil {
					return nil, err
				} else if !ok {
					return nil, p.errf(t, "'=' expected after array designator")
				}
			}
			if ty.Len >= 0 && idx >= ty.Len {
				if p.sink != nil {
					p.sink.Warnf(posOf(t), diag.KindParse, "excess elements in array initializer")
				}
				if err := p.skipInitEntry(); err != nil {
					return nil, err
				}
			} else {
				entries, err := p.readInitEntry(ty.Elem, off+idx*ty.Elem.Size)
				if err != nil {
					return nil, err
				}
				out = append(out, entries...)
			}
			idx++
			if ok, err := p.accept(','); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}

	case types.StructUnion:
		keys := ty.Fields.Keys()
		i := 0
		for {
			t, err := p.peek()
			if err != nil {
				return nil, err
			}
			if t.Is('}') {
				break
			}
			if ok, err := p.accept('.'); err != nil {
				return nil, err
			} else if ok {
				name, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				for j, k := range keys {
					if k == name.Name {
						i = j
					}
				}
				if ok, err := p.accept('='); err != nil {
					return nil, err
				} else if !ok {
					return nil, p.errf(t, "'=' expected after member designator")
				}
			}
			if i >= len(keys) {
				if err := p.skipInitEntry(); err != nil {
					return nil, err
				}
			} else {
				f, _ := ty.Fields.GetLocal(keys[i])
				entries, err := p.readInitEntry(f.Type, off+f.Offset)
				if err != nil {
					return nil, err
				}
				out = append(out, entries...)
				if !ty.IsStruct {
					i = len(keys) // union initializer sets only the first member
				}
			}
			i++
			if ok, err := p.accept(','); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}

	default:
		entries, err := p.readInitEntry(ty, off)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// readInitEntry reads one element/member's initializer, recursing for a
// nested braced list or a nested string-literal char array, otherwise a
// single scalar assignment-expression.
func (p *Parser) readInitEntry(ty *types.Type, off int) ([]ast.LvarInit, error) {
	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Is('{') {
		p.next()
		entries, err := p.readInitList(ty, off)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect('}'); err != nil {
			return nil, err
		}
		return entries, nil
	}
	if t.Kind == token.String && ty.Kind == types.Array && ty.Elem.Kind == types.Char {
		p.next()
		base := stringInit(ty, t)
		for i := range base {
			base[i].Off += off
		}
		return base, nil
	}
	v, err := p.readAssignExpr()
	if err != nil {
		return nil, err
	}
	conv := p.convertAssign(v, ty)
	return []ast.LvarInit{{Type: ty, Off: off, Value: conv}}, nil
}

func (p *Parser) skipInitEntry() error {
	t, err := p.peek()
	if err != nil {
		return err
	}
	if t.Is('{') {
		p.next()
		depth := 1
		for depth > 0 {
			tt, err := p.next()
			if err != nil {
				return err
			}
			if tt.Is('{') {
				depth++
			} else if tt.Is('}') {
				depth--
			}
		}
		return nil
	}
	_, err = p.readAssignExpr()
	return err
}

func sortInits(in []ast.LvarInit) []ast.LvarInit {
	out := make([]ast.LvarInit, len(in))
	copy(out, in)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Off > out[j].Off; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
