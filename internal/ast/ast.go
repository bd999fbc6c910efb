// Package ast defines the typed syntax tree the parser builds and the code
// generator walks: spec.md §3's Node tagged union, reworked as a Go struct
// with a Kind tag and kind-specific payload fields, mirroring 8cc's Node
// union in 8cc.h but giving every payload a named field instead of an
// overlapping union (8cc's ival/fval/sval/varname/etc. share storage; Go
// has no such overlap, so each lives in its own field and callers read only
// the ones their Kind documents).
package ast

import (
	"github.com/gorse-io/goatc/internal/types"
)

// Kind tags a Node's payload.
type Kind int

const (
	Literal Kind = iota
	LocalVar
	GlobalVar
	Typedef
	FuncCall
	FuncPtrCall
	FuncDesg
	FuncDef
	Decl
	Init
	Conv  // implicit conversion
	Cast  // explicit cast
	Addr  // address-of
	Deref // dereference
	If    // if or ternary
	Return
	CompoundStmt
	StructRef
	Goto
	ComputedGoto
	Label
	LabelAddr
	PreInc
	PreDec
	PostInc
	PostDec
	Binary
	Unary
	StmtExpr // ({ ... })
	NoopStmt // asm() passthrough
)

// Loc is a source location, carried by most nodes for diagnostics and -g.
type Loc struct {
	File string
	Line int
}

// LvarInit is one `{target-type, offset, value}` initializer-list entry,
// per spec.md §3, produced by initializer flattening and stored sorted by
// Offset.
type LvarInit struct {
	Type  *types.Type
	Off   int
	Value *Node
}

// Node is the typed tree's universal node type. Every expression node
// carries a non-nil Type after parsing (spec.md §3's invariant); Type is
// nil only on pure control nodes (CompoundStmt, Label, Goto, ...).
type Node struct {
	Kind Kind
	Type *types.Type
	Loc  *Loc

	// Literal.
	IVal   int64
	FVal   float64
	FLabel string
	SVal   []byte
	SLabel string

	// Local/global variable.
	VarName  string
	LocalOff int
	LvarInit []LvarInit
	GLabel   string

	// Binary operator; Op holds the token id (see token.Punc*/rune).
	Op    int
	Left  *Node
	Right *Node

	// Unary operator / conversion / addr / deref / return / label-addr.
	Operand *Node

	// Function call / pointer call / designator / definition.
	FName     string
	Args      []*Node
	FuncType  *types.Type
	FuncPtr   *Node
	Params    []*Node // LocalVar nodes
	LocalVars []*Node // LocalVar nodes, including temporaries
	Body      *Node   // CompoundStmt
	IsStatic  bool

	// Declaration.
	DeclVar  *Node
	DeclInit []LvarInit

	// Initializer (flattened entry used transiently during parsing).
	InitVal *Node
	InitOff int
	ToType  *types.Type

	// If / ternary.
	Cond *Node
	Then *Node
	Els  *Node

	// Goto / label.
	Label_   string
	NewLabel string

	// Compound statement.
	Stmts []*Node

	// Struct reference.
	Struc        *Node
	Field        string
	FieldType    *types.Type
	FieldOffset  int // byte offset of Field within Struc's type
	FieldBitOff  int
	FieldBitSize int // -1 if not a bit-field
}

// NewLiteral builds an integer/float/string literal node.
func NewLiteral(ty *types.Type) *Node { return &Node{Kind: Literal, Type: ty} }

// IsLvalue reports whether n denotes an object in memory: a variable,
// dereference, struct reference, or array-subscript expression (the latter
// is desugared to Deref(Binary(+, ...)) by the parser).
func (n *Node) IsLvalue() bool {
	switch n.Kind {
	case LocalVar, GlobalVar, Deref, StructRef:
		return true
	}
	return false
}
