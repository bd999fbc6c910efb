// Package parser implements spec.md §4.4: a recursive-descent C11 parser
// that reads tokens from an *cpp.Preprocessor and builds the internal/ast
// tree, resolving types through internal/types as it goes. Grounded on
// 8cc's parse.c, with its Dict-chained scopes reworked around
// container.OrderedMap and its stub-type back-patch declarator algorithm
// kept verbatim in spirit (types.NewStub/BecomeCopyOf).
package parser

import (
	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/container"
	"github.com/gorse-io/goatc/internal/types"
)

// ident is what a name can resolve to in the variable/typedef namespace:
// 8cc's globalenv/localenv store either a Var node, an enum constant
// value, or a Type (typedef); we keep those as three optional fields on
// one entry rather than a union.
type ident struct {
	varNode *ast.Node // LocalVar/GlobalVar
	typedef *types.Type
	enumVal *int64 // non-nil for an enumerator constant
}

// scope is one lexical block: the variable/typedef namespace for this
// block, chained to its parent for lookup. Tag names (struct/union/enum)
// and labels live in their own namespaces, per spec.md §4.4.
type scope struct {
	vars   *container.OrderedMap[*ident]
	tags   *container.OrderedMap[*types.Type]
	parent *scope
}

func newGlobalScope() *scope {
	return &scope{
		vars: container.NewOrderedMap[*ident](),
		tags: container.NewOrderedMap[*types.Type](),
	}
}

func newChildScope(parent *scope) *scope {
	return &scope{
		vars:   container.NewChildMap(parent.vars),
		tags:   container.NewChildMap(parent.tags),
		parent: parent,
	}
}

// funcState is the per-function bookkeeping spec.md §4.4 lists: locals,
// pending gotos, loop/switch context, and the enclosing return type.
type funcState struct {
	retType   *types.Type
	locals    []*ast.Node // LocalVar nodes, including temporaries
	labels    *container.OrderedMap[*ast.Node]
	pendGotos []*ast.Node // Goto nodes awaiting label resolution

	breakLabel    string
	continueLabel string
	switchCases   *[]switchCase // nil outside a switch
}

type switchCase struct {
	lo, hi int64 // lo==hi for a single case
	label  string
}
