// Package constexpr evaluates integer constant expressions and
// address-of-global-plus-offset expressions, per spec.md §4.5. Grounded on
// 8cc's constexpr.c, generalized to cover the full binary-operator set
// 8cc's commented-out switch only sketches, using 64-bit two's-complement
// arithmetic per spec.md §9's wraparound note.
package constexpr

import (
	"fmt"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/token"
)

// Value is the result of evaluating a constant expression: either a plain
// integer, or an address built from a global symbol plus a byte offset
// (spec.md §4.5's "address of a named global plus an integer offset").
type Value struct {
	Int    int64
	Label  string // non-empty if this is an address constant
	Offset int64  // byte offset added to &Label
}

// IsAddr reports whether v denotes &Label + Offset rather than a plain int.
func (v Value) IsAddr() bool { return v.Label != "" }

// Error reports a node that could not be folded.
type Error struct {
	Node *ast.Node
}

func (e *Error) Error() string {
	return fmt.Sprintf("constant expression expected, got node kind %d", e.Node.Kind)
}

// Eval folds n to a Value, or returns *Error if n isn't a constant
// expression.
func Eval(n *ast.Node) (Value, error) {
	switch n.Kind {
	case ast.Literal:
		if n.Type == nil || !n.Type.IsInt() {
			return Value{}, &Error{n}
		}
		return Value{Int: n.IVal}, nil

	case ast.Conv, ast.Cast:
		return Eval(n.Operand)

	case ast.Unary:
		v, err := Eval(n.Operand)
		if err != nil {
			return Value{}, err
		}
		if v.IsAddr() {
			return Value{}, &Error{n}
		}
		switch n.Op {
		case '!':
			return boolValue(v.Int == 0), nil
		case '~':
			return Value{Int: ^v.Int}, nil
		case '-':
			return Value{Int: -v.Int}, nil
		}
		return Value{}, &Error{n}

	case ast.Addr:
		return evalAddr(n.Operand)

	case ast.Deref:
		// &*p folds back to p's address; a bare dereference of a
		// non-address operand is not a constant expression.
		v, err := Eval(n.Operand)
		if err != nil {
			return Value{}, err
		}
		if v.IsAddr() {
			return v, nil
		}
		return Value{}, &Error{n}

	case ast.If:
		cv, err := Eval(n.Cond)
		if err != nil {
			return Value{}, err
		}
		taken := cv.IsAddr() || cv.Int != 0
		if taken {
			if n.Then != nil {
				return Eval(n.Then)
			}
			return cv, nil
		}
		return Eval(n.Els)

	case ast.Binary:
		return evalBinary(n)

	case ast.StructRef:
		// &s.field: address of a struct member, rooted at a global.
		base, err := evalAddr(n.Struc)
		if err != nil {
			return Value{}, err
		}
		base.Offset += int64(n.FieldOffset)
		return base, nil
	}
	return Value{}, &Error{n}
}

// evalAddr folds the operand of an address-of expression: a bare global
// variable, or a struct-reference rooted at one.
func evalAddr(n *ast.Node) (Value, error) {
	switch n.Kind {
	case ast.GlobalVar:
		return Value{Label: n.GLabel}, nil
	case ast.StructRef:
		base, err := evalAddr(n.Struc)
		if err != nil {
			return Value{}, err
		}
		base.Offset += int64(n.FieldOffset)
		return base, nil
	case ast.Deref:
		return Eval(n.Operand)
	}
	return Value{}, &Error{n}
}

func boolValue(b bool) Value {
	if b {
		return Value{Int: 1}
	}
	return Value{Int: 0}
}

// evalBinary folds a binary-operator node. Pointer/address operands are
// only accepted for +/- against a plain integer offset (address + int).
func evalBinary(n *ast.Node) (Value, error) {
	l, err := Eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	r, err := Eval(n.Right)
	if err != nil {
		return Value{}, err
	}
	unsigned := n.Type != nil && n.Type.Unsigned

	if l.IsAddr() || r.IsAddr() {
		return evalAddrArith(n.Op, l, r)
	}

	a, b := l.Int, r.Int
	switch n.Op {
	case '+':
		return Value{Int: a + b}, nil
	case '-':
		return Value{Int: a - b}, nil
	case '*':
		return Value{Int: a * b}, nil
	case '/':
		if b == 0 {
			return Value{}, &Error{n}
		}
		if unsigned {
			return Value{Int: int64(uint64(a) / uint64(b))}, nil
		}
		return Value{Int: a / b}, nil
	case '%':
		if b == 0 {
			return Value{}, &Error{n}
		}
		if unsigned {
			return Value{Int: int64(uint64(a) % uint64(b))}, nil
		}
		return Value{Int: a % b}, nil
	case '&':
		return Value{Int: a & b}, nil
	case '|':
		return Value{Int: a | b}, nil
	case '^':
		return Value{Int: a ^ b}, nil
	case '<':
		if unsigned {
			return boolValue(uint64(a) < uint64(b)), nil
		}
		return boolValue(a < b), nil
	case '>':
		if unsigned {
			return boolValue(uint64(a) > uint64(b)), nil
		}
		return boolValue(a > b), nil
	case token.PuncShl:
		return Value{Int: a << uint(b)}, nil
	case token.PuncShr:
		if unsigned {
			return Value{Int: int64(uint64(a) >> uint(b))}, nil
		}
		return Value{Int: a >> uint(b)}, nil
	case token.PuncEq:
		return boolValue(a == b), nil
	case token.PuncNe:
		return boolValue(a != b), nil
	case token.PuncLe:
		if unsigned {
			return boolValue(uint64(a) <= uint64(b)), nil
		}
		return boolValue(a <= b), nil
	case token.PuncGe:
		if unsigned {
			return boolValue(uint64(a) >= uint64(b)), nil
		}
		return boolValue(a >= b), nil
	case token.PuncLogAnd:
		return boolValue(a != 0 && b != 0), nil
	case token.PuncLogOr:
		return boolValue(a != 0 || b != 0), nil
	}
	return Value{}, &Error{n}
}

func evalAddrArith(op int, l, r Value) (Value, error) {
	switch op {
	case '+':
		if l.IsAddr() && !r.IsAddr() {
			l.Offset += r.Int
			return l, nil
		}
		if r.IsAddr() && !l.IsAddr() {
			r.Offset += l.Int
			return r, nil
		}
	case '-':
		if l.IsAddr() && !r.IsAddr() {
			l.Offset -= r.Int
			return l, nil
		}
		if l.IsAddr() && r.IsAddr() && l.Label == r.Label {
			return Value{Int: l.Offset - r.Offset}, nil
		}
	}
	return Value{}, fmt.Errorf("address constant does not support operator %d", op)
}
