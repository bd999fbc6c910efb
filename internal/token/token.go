// Package token defines the preprocessing-token type the lexer produces and
// the preprocessor/parser consume, plus the keyword/punctuator spelling
// table both look identifiers up in. Grounded on 8cc's Token union
// (8cc.h) and its keyword.inc-driven id space.
package token

import (
	"fmt"

	"github.com/gorse-io/goatc/internal/container"
	modtoken "modernc.org/token"
)

// Position locates a point in source text; an alias of modernc.org/token's
// type so internal/diag's Position (the same alias) accepts one directly
// without a conversion, per diag.go's own "reuse directly" note.
type Position = modtoken.Position

// Kind tags a Token's payload, matching spec.md §3's kind set.
type Kind int

const (
	Identifier Kind = iota
	Keyword
	Number
	Char
	String
	EOF
	Invalid
	// cpp-only kinds, never seen by the parser
	Newline
	Space
	MacroParam
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case Keyword:
		return "keyword"
	case Number:
		return "number"
	case Char:
		return "char"
	case String:
		return "string"
	case EOF:
		return "eof"
	case Invalid:
		return "invalid"
	case Newline:
		return "newline"
	case Space:
		return "space"
	case MacroParam:
		return "macro-param"
	default:
		return "?"
	}
}

// Encoding tags the prefix on a string/char literal.
type Encoding int

const (
	EncNone Encoding = iota
	EncChar16
	EncChar32
	EncUTF8
	EncWChar
)

// Token is a preprocessing token: spec.md §3's tagged union, attributes,
// and hide-set in one struct. Only the fields relevant to Kind are
// populated; this mirrors 8cc's Token union but as plain Go fields since Go
// has no tagged unions.
type Token struct {
	Kind Kind

	File   string
	Line   int
	Column int
	Count  int // per-file sequence number

	Space bool // leading-space flag
	BOL   bool // begin-of-line flag

	Hideset *container.Hideset

	// Identifier/Number spelling, or Keyword's punctuator text.
	Name string

	// Keyword: punctuator/keyword id (see ids.go).
	ID int

	// Char/String payload.
	StrVal  []byte
	Enc     Encoding
	CharVal rune // Char literal's codepoint

	// MacroParam payload.
	ParamIndex int
	IsVararg   bool

	// PasteAvoid marks a token that must not be glued to the previous one
	// by plain respelling (used when reconstructing source for -E).
	PasteAvoid bool
}

// Is reports whether t is the keyword/punctuator with the given id.
func (t *Token) Is(id int) bool {
	return t.Kind == Keyword && t.ID == id
}

// IsIdent reports whether t is an identifier spelled name.
func (t *Token) IsIdent(name string) bool {
	return t.Kind == Identifier && t.Name == name
}

// IsEOF reports whether t is the end-of-file marker.
func (t *Token) IsEOF() bool { return t.Kind == EOF }

// Pos formats t's source location as "file:line:column".
func (t *Token) Pos() string {
	if t.File == "" {
		return "(unknown)"
	}
	return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
}

// Copy returns a shallow copy of t, used whenever a token's hide-set or
// space/BOL flags must change without mutating a shared original (macro
// bodies are re-substituted many times from the same stored tokens).
func (t *Token) Copy() *Token {
	c := *t
	return &c
}
