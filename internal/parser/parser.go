package parser

import (
	"fmt"

	"github.com/gorse-io/goatc/internal/ast"
	"github.com/gorse-io/goatc/internal/cpp"
	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/token"
	"github.com/gorse-io/goatc/internal/types"
)

// Parser drives a *cpp.Preprocessor through declaration, statement, and
// expression grammar, producing a flat list of top-level Decl/FuncDef
// nodes (spec.md §3's translation-unit shape).
type Parser struct {
	pp   *cpp.Preprocessor
	sink *diag.Sink
	buf  []*token.Token // local pushback, for lookahead beyond one token

	global *scope
	cur    *scope
	fn     *funcState

	// defaultLabel points at the innermost switch's default-label slot,
	// set by readSwitchStmt and written to by a `default:` label.
	defaultLabel *string

	labelSeq      int
	strLabelSeq   int
	floatLabelSeq int
}

// New builds a Parser reading from pp, reporting warnings through sink.
func New(pp *cpp.Preprocessor, sink *diag.Sink) *Parser {
	g := newGlobalScope()
	return &Parser{pp: pp, sink: sink, global: g, cur: g}
}

// Parse reads the whole translation unit and returns its top-level
// declarations and function definitions in source order.
func (p *Parser) Parse() ([]*ast.Node, error) {
	var out []*ast.Node
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.IsEOF() {
			return out, nil
		}
		nodes, err := p.readTopLevel()
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
}

// --- token plumbing -------------------------------------------------

func (p *Parser) next() (*token.Token, error) {
	if n := len(p.buf); n > 0 {
		t := p.buf[n-1]
		p.buf = p.buf[:n-1]
		return t, nil
	}
	t, err := p.pp.Next()
	if err != nil {
		return nil, err
	}
	return reclassifyKeyword(t), nil
}

// reclassifyKeyword turns an Identifier token spelled like a reserved word
// into a Keyword token carrying that word's id, per token.Keywords' own
// "reclassified ... by the parser, not the lexer" contract. Tokens already
// pushed back via unget have been through this once already, so a second
// pass is a no-op.
func reclassifyKeyword(t *token.Token) *token.Token {
	if t.Kind != token.Identifier {
		return t
	}
	id, ok := token.Keywords[t.Name]
	if !ok {
		return t
	}
	c := t.Copy()
	c.Kind = token.Keyword
	c.ID = id
	return c
}

func (p *Parser) unget(t *token.Token) {
	p.buf = append(p.buf, t)
}

func (p *Parser) peek() (*token.Token, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	p.unget(t)
	return t, nil
}

// peekN returns the nth token of lookahead (n=0 is the same as peek).
func (p *Parser) peekN(n int) (*token.Token, error) {
	var pulled []*token.Token
	for i := 0; i <= n; i++ {
		t, err := p.next()
		if err != nil {
			for j := len(pulled) - 1; j >= 0; j-- {
				p.unget(pulled[j])
			}
			return nil, err
		}
		pulled = append(pulled, t)
	}
	for j := len(pulled) - 1; j >= 0; j-- {
		p.unget(pulled[j])
	}
	return pulled[n], nil
}

func (p *Parser) errf(tok *token.Token, format string, args ...any) error {
	return diag.Errorf(posOf(tok), diag.KindParse, format, args...)
}

func posOf(tok *token.Token) diag.Position {
	return diag.Position{Filename: tok.File, Line: tok.Line, Column: tok.Column}
}

func locOf(tok *token.Token) *ast.Loc {
	return &ast.Loc{File: tok.File, Line: tok.Line}
}

// accept consumes and returns true if the next token is the given
// keyword/punctuator id; otherwise it leaves the stream untouched.
func (p *Parser) accept(id int) (bool, error) {
	t, err := p.next()
	if err != nil {
		return false, err
	}
	if t.Is(id) {
		return true, nil
	}
	p.unget(t)
	return false, nil
}

func (p *Parser) expect(id int) (*token.Token, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if !t.Is(id) {
		return nil, p.errf(t, "'%s' expected, got %s", spellID(id), describe(t))
	}
	return t, nil
}

func (p *Parser) expectIdent() (*token.Token, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.Kind != token.Identifier {
		return nil, p.errf(t, "identifier expected, got %s", describe(t))
	}
	return t, nil
}

func describe(t *token.Token) string {
	switch t.Kind {
	case token.Identifier, token.Number:
		return t.Name
	case token.EOF:
		return "<eof>"
	case token.Keyword:
		return spellID(t.ID)
	default:
		return t.Kind.String()
	}
}

func spellID(id int) string {
	if id < 256 {
		return string(rune(id))
	}
	for s, v := range token.Puncts {
		if v == id {
			return s
		}
	}
	for s, v := range token.Keywords {
		if v == id {
			return s
		}
	}
	return fmt.Sprintf("<%d>", id)
}

// --- scope helpers ---------------------------------------------------

func (p *Parser) pushScope() { p.cur = newChildScope(p.cur) }
func (p *Parser) popScope()  { p.cur = p.cur.parent }

func (p *Parser) declareVar(name string, n *ast.Node) {
	p.cur.vars.Put(name, &ident{varNode: n})
}

func (p *Parser) declareTypedef(name string, t *types.Type) {
	p.cur.vars.Put(name, &ident{typedef: t})
}

func (p *Parser) declareEnumConst(name string, v int64) {
	p.cur.vars.Put(name, &ident{enumVal: &v})
}

func (p *Parser) lookupVar(name string) (*ident, bool) {
	return p.cur.vars.Get(name)
}

func (p *Parser) isTypedefName(name string) bool {
	id, ok := p.cur.vars.Get(name)
	return ok && id.typedef != nil
}

func (p *Parser) lookupTag(name string) (*types.Type, bool) {
	return p.cur.tags.Get(name)
}

func (p *Parser) declareTag(name string, t *types.Type) {
	p.cur.tags.Put(name, t)
}

func (p *Parser) newLabel() string {
	p.labelSeq++
	return fmt.Sprintf(".L%d", p.labelSeq)
}

func (p *Parser) newStrLabel() string {
	p.strLabelSeq++
	return fmt.Sprintf(".LC%d", p.strLabelSeq)
}

func (p *Parser) newFloatLabel() string {
	p.floatLabelSeq++
	return fmt.Sprintf(".LF%d", p.floatLabelSeq)
}
