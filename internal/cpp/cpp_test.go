package cpp

import (
	"strings"
	"testing"

	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/token"
)

// expandAllTokens preprocesses src to EOF and returns each token's spelling,
// skipping nothing: callers compare against the expected expansion shape.
func expandAllTokens(t *testing.T, src string) []string {
	t.Helper()
	p := New("<test>", strings.NewReader(src), diag.NewSink(), nil)
	var out []string
	for {
		tok, err := p.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.IsEOF() {
			return out
		}
		s, err := SpellToken(tok)
		if err != nil {
			t.Fatalf("SpellToken: %v", err)
		}
		out = append(out, s)
	}
}

// scenario 2 of spec.md §8: SQR(1+2) must substitute the argument's tokens
// unevaluated into the parenthesized body, giving ((1+2)*(1+2)), which
// evaluates to 9 (an unparenthesized x*x body would give 1+2*1+2 = 5).
func TestFuncLikeMacroArgumentNotPreEvaluated(t *testing.T) {
	src := "#define SQR(x) ((x)*(x))\nSQR(1+2)\n"
	got := strings.Join(expandAllTokens(t, src), " ")
	want := "( ( 1 + 2 ) * ( 1 + 2 ) )"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// scenario 3 of spec.md §8: a variadic macro's __VA_ARGS__ collects every
// trailing argument verbatim.
func TestVariadicMacroExpansion(t *testing.T) {
	src := "#define A(x,...) f(x,__VA_ARGS__)\nA(1,2,3)\n"
	got := strings.Join(expandAllTokens(t, src), " ")
	want := "f ( 1 , 2 , 3 )"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// Hide-set invariant (spec.md §8): F(F(a)) must not re-expand the inner
// F once it has already been substituted in, per the standard's painted-blue
// rule (8cc's hideset mechanism).
func TestHidesetPreventsRecursiveExpansion(t *testing.T) {
	src := "#define F(a) F(a)\nF(F(x))\n"
	got := strings.Join(expandAllTokens(t, src), " ")
	want := "F ( F ( x ) )"
	if got != want {
		t.Fatalf("got %q, want %q (inner F must not re-expand)", got, want)
	}
}

// Plain object-like macro expansion still works alongside hideset tracking.
func TestObjectLikeMacro(t *testing.T) {
	src := "#define FOO 42\nFOO\n"
	got := expandAllTokens(t, src)
	if len(got) != 1 || got[0] != "42" {
		t.Fatalf("got %v, want [42]", got)
	}
}

func TestDefineAndUndefFromDriverOptions(t *testing.T) {
	p := New("<test>", strings.NewReader("X\n"), diag.NewSink(), nil)
	p.Define("X=7")
	tok, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Kind != token.Number || tok.Name != "7" {
		t.Fatalf("got %+v, want number 7", tok)
	}

	p2 := New("<test>", strings.NewReader("Y\n"), diag.NewSink(), nil)
	p2.Define("Y")
	p2.Undef("Y")
	tok2, err := p2.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok2.Kind != token.Identifier || tok2.Name != "Y" {
		t.Fatalf("got %+v, want identifier Y (undefined)", tok2)
	}
}
