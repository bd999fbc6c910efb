package constexpr

import (
	"math"
	"testing"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/types"
)

func intLit(v int64) *ast.Node {
	n := ast.NewLiteral(types.NewBase(types.Int, false))
	n.IVal = v
	return n
}

func binary(op int, l, r *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Binary, Op: op, Left: l, Right: r, Type: types.NewBase(types.Int, false)}
}

// scenario 1 of spec.md §8: `1+2*3` folds to 7, checking operator
// precedence is already baked into the tree by the time the evaluator
// sees it (constexpr itself performs no precedence climbing).
func TestEvalPrecedence(t *testing.T) {
	// 1 + (2*3)
	n := binary('+', intLit(1), binary('*', intLit(2), intLit(3)))
	v, err := Eval(n)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Int != 7 {
		t.Fatalf("got %d, want 7", v.Int)
	}
}

// Two's-complement wraparound per spec.md §9's ambiguity note: signed
// overflow wraps as 64-bit two's complement rather than panicking or
// saturating.
func TestEvalWraparound(t *testing.T) {
	n := binary('+', intLit(math.MaxInt64), intLit(1))
	v, err := Eval(n)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Int != math.MinInt64 {
		t.Fatalf("got %d, want %d", v.Int, int64(math.MinInt64))
	}
}

func TestEvalDivisionByZeroIsNotConstant(t *testing.T) {
	n := binary('/', intLit(1), intLit(0))
	if _, err := Eval(n); err == nil {
		t.Fatal("expected an error for division by zero")
	}
}

func TestEvalUnaryAndTernary(t *testing.T) {
	cond := intLit(1)
	tern := &ast.Node{Kind: ast.If, Cond: cond, Then: intLit(10), Els: intLit(20), Type: types.NewBase(types.Int, false)}
	v, err := Eval(tern)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Int != 10 {
		t.Fatalf("got %d, want 10", v.Int)
	}

	neg := &ast.Node{Kind: ast.Unary, Op: '-', Operand: intLit(5), Type: types.NewBase(types.Int, false)}
	v, err = Eval(neg)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.Int != -5 {
		t.Fatalf("got %d, want -5", v.Int)
	}
}

func TestEvalAddressOfGlobalPlusOffset(t *testing.T) {
	g := &ast.Node{Kind: ast.GlobalVar, GLabel: "arr", Type: types.NewArray(types.NewBase(types.Int, false), 4)}
	idx := &ast.Node{Kind: ast.StructRef, Struc: g, FieldOffset: 8, Type: types.NewBase(types.Int, false)}
	addr := &ast.Node{Kind: ast.Addr, Operand: idx, Type: types.NewPtr(types.NewBase(types.Int, false))}
	v, err := Eval(addr)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !v.IsAddr() || v.Label != "arr" || v.Offset != 8 {
		t.Fatalf("got %+v, want &arr+8", v)
	}
}
