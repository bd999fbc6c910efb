package parser

import (
	"strings"
	"testing"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/cpp"
	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/types"
)

func parseSrc(t *testing.T, src string) []*ast.Node {
	t.Helper()
	pp := cpp.New("<test>", strings.NewReader(src), diag.NewSink(), nil)
	p := New(pp, diag.NewSink())
	decls, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return decls
}

func findFunc(t *testing.T, decls []*ast.Node, name string) *ast.Node {
	t.Helper()
	for _, d := range decls {
		if d.Kind == ast.FuncDef && d.FName == name {
			return d
		}
	}
	t.Fatalf("no FuncDef named %s in %d decls", name, len(decls))
	return nil
}

// scenario 6 of spec.md §8: _Generic folds to the matching association at
// parse time, picking the int case for a plain int literal controlling
// expression.
func TestGenericSelectsMatchingType(t *testing.T) {
	decls := parseSrc(t, `int main(void) { return _Generic(5, int: 1, float: 2, default: 3); }`)
	fn := findFunc(t, decls, "main")
	ret := fn.Body.Stmts[0]
	if ret.Kind != ast.Return {
		t.Fatalf("got %v, want Return", ret.Kind)
	}
	if ret.Operand.Kind != ast.Literal || ret.Operand.IVal != 1 {
		t.Fatalf("got %+v, want literal 1", ret.Operand)
	}
}

// The same scenario's second clause: a float controlling expression falls
// through to the default association when no float-typed case is the first
// match and int does not apply.
func TestGenericFallsBackToDefault(t *testing.T) {
	decls := parseSrc(t, `int main(void) { return _Generic(5.0, int: 1, default: 3); }`)
	fn := findFunc(t, decls, "main")
	ret := fn.Body.Stmts[0]
	if ret.Operand.Kind != ast.Literal || ret.Operand.IVal != 3 {
		t.Fatalf("got %+v, want literal 3", ret.Operand)
	}
}

// scenario 7 of spec.md §8: a K&R-style definition's parameter-declaration
// run patches the old-style int-defaulted parameter types in place.
func TestKRStyleFuncDefParamTypes(t *testing.T) {
	decls := parseSrc(t, `int f(a,b) int a; double b; { return a; }`)
	fn := findFunc(t, decls, "f")
	if !fn.FuncType.OldStyle {
		t.Fatalf("FuncType.OldStyle = false, want true")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
	if fn.Params[0].Type.Kind != types.Int {
		t.Fatalf("param a: kind = %v, want Int", fn.Params[0].Type.Kind)
	}
	if fn.Params[1].Type.Kind != types.Double {
		t.Fatalf("param b: kind = %v, want Double", fn.Params[1].Type.Kind)
	}
}

func TestSimpleArithmeticParses(t *testing.T) {
	decls := parseSrc(t, `int main(void) { return 1+2*3; }`)
	fn := findFunc(t, decls, "main")
	if len(fn.Body.Stmts) != 1 || fn.Body.Stmts[0].Kind != ast.Return {
		t.Fatalf("got %+v, want single Return statement", fn.Body.Stmts)
	}
}
