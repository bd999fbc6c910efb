// Package cpp implements the macro preprocessor: directive handling,
// hide-set based object/function-like macro expansion, stringize and
// token-paste, conditional inclusion, and #include file search. Grounded
// on 8cc's cpp.c and lex.c's skip_cond_incl, restructured around
// internal/container's persistent Hideset and internal/token's Token
// rather than 8cc's Dict/List.
package cpp

import "github.com/gorse-io/goatc/internal/token"

// macroKind tags a Macro's variant.
type macroKind int

const (
	objMacro macroKind = iota
	funcMacro
	specialMacro
)

// SpecialHandler produces the replacement token for a special macro like
// __LINE__, given the invocation token (for its source position).
type SpecialHandler func(p *Preprocessor, tmpl *token.Token) (*token.Token, error)

// Macro is a #define'd name: an object-like or function-like replacement
// list, or a built-in special macro backed by a handler function.
// Grounded on 8cc's Macro struct in cpp.c.
type Macro struct {
	Kind     macroKind
	Body     []*token.Token
	NArgs    int
	Variadic bool
	Handler  SpecialHandler
}

func newObjMacro(body []*token.Token) *Macro {
	return &Macro{Kind: objMacro, Body: body}
}

func newFuncMacro(body []*token.Token, nargs int, variadic bool) *Macro {
	return &Macro{Kind: funcMacro, Body: body, NArgs: nargs, Variadic: variadic}
}

func newSpecialMacro(fn SpecialHandler) *Macro {
	return &Macro{Kind: specialMacro, Handler: fn}
}

// macroParam builds a placeholder token standing in for the pos'th
// parameter in a function-like macro's body, substituted by subst.
func macroParam(pos int, vararg bool) *token.Token {
	return &token.Token{Kind: token.MacroParam, ParamIndex: pos, IsVararg: vararg}
}
