package cpp

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorse-io/goatc/internal/container"
	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/lexer"
	"github.com/gorse-io/goatc/internal/stream"
	"github.com/gorse-io/goatc/internal/token"
)

// condCtx distinguishes the #if branch a conditional-inclusion frame is
// currently in, per 8cc's CondInclCtx.
type condCtx int

const (
	inThen condCtx = iota
	inElse
)

type condIncl struct {
	ctx     condCtx
	wasTrue bool
}

// Preprocessor drives the lexer through directive handling and macro
// expansion, implementing spec.md §4.3 on top of internal/lexer's
// pp-tokens. Grounded on 8cc's cpp.c, with its two unget mechanisms
// (read_cpp_token's file-scoped unget buffer and set_input_buffer's
// temporary token-list source, swapped in for expand_all/#if scanning)
// unified into a single stash stack: normal pushback lives at stash[0]
// (always present), and expandAll pushes a further level that reports
// synthetic EOF once drained instead of falling through to the file.
type Preprocessor struct {
	lex    *lexer.Lexer
	stream *stream.Stream
	sink   *diag.Sink

	macros       *container.OrderedMap[*Macro]
	condStack    []*condIncl
	includePaths []string

	stash   [][]*token.Token // stash[0] is the permanent unget buffer
	counter int              // __COUNTER__

	clock func() time.Time // __DATE__/__TIME__'s source; overridable for reproducible tests
}

// New builds a Preprocessor reading filename from r, with includePaths
// searched (in order) for angle-bracket #includes.
func New(filename string, r io.Reader, sink *diag.Sink, includePaths []string) *Preprocessor {
	s := stream.New(filename, r)
	p := &Preprocessor{
		lex:          lexer.New(s),
		stream:       s,
		sink:         sink,
		macros:       container.NewOrderedMap[*Macro](),
		includePaths: includePaths,
		stash:        [][]*token.Token{nil},
		clock:        time.Now,
	}
	p.initBuiltins()
	return p
}

// Define installs an object-like macro as if by `-Dname` or `-Dname=body`,
// the command-line driver's equivalent of a `#define` line appearing
// ahead of the translation unit, per spec.md §6's `-D` entry.
func (p *Preprocessor) Define(nameVal string) {
	name, body, ok := strings.Cut(nameVal, "=")
	if !ok || body == "" {
		body = "1"
	}
	p.macros.Put(name, newObjMacro(tokenizePreamble(body)))
}

// Undef removes name's macro definition as if by `-Uname`, per spec.md
// §6's `-U` entry. A no-op if name was never defined.
func (p *Preprocessor) Undef(name string) {
	p.macros.Remove(name)
}

func (p *Preprocessor) errf(tok *token.Token, format string, args ...any) error {
	return diag.Errorf(posOf(tok), diag.KindPreprocessor, format, args...)
}

func posOf(tok *token.Token) diag.Position {
	return diag.Position{Filename: tok.File, Line: tok.Line, Column: tok.Column}
}

func eofToken() *token.Token { return &token.Token{Kind: token.EOF} }

// here builds a positionless token carrying the stream's current location,
// for diagnostics that aren't anchored to a specific already-read token.
func (p *Preprocessor) here() *token.Token {
	name, line, col := p.stream.Position()
	return &token.Token{File: name, Line: line, Column: col}
}

// readCppToken reads one raw token: from the top pushed stash level while
// one is active (synthetic EOF once it is drained), otherwise the permanent
// unget buffer, then the lexer. No macro expansion, no directive handling;
// this is 8cc's read_cpp_token.
func (p *Preprocessor) readCppToken() (*token.Token, error) {
	top := len(p.stash) - 1
	if top > 0 {
		buf := p.stash[top]
		if n := len(buf); n > 0 {
			t := buf[n-1]
			p.stash[top] = buf[:n-1]
			return t, nil
		}
		return eofToken(), nil
	}
	if n := len(p.stash[0]); n > 0 {
		t := p.stash[0][n-1]
		p.stash[0] = p.stash[0][:n-1]
		return t, nil
	}
	return p.lex.Next()
}

// unget pushes tok back onto the current stash level, to be re-read by the
// next readCppToken call.
func (p *Preprocessor) unget(tok *token.Token) {
	if tok.Kind == token.EOF {
		return
	}
	top := len(p.stash) - 1
	p.stash[top] = append(p.stash[top], tok)
}

// ungetAll pushes tokens back in reverse, so the first call to
// readCppToken returns tokens[0], the second tokens[1], and so on.
func (p *Preprocessor) ungetAll(tokens []*token.Token) {
	for i := len(tokens) - 1; i >= 0; i-- {
		p.unget(tokens[i])
	}
}

// pushStash enters a virtual token source: readCppToken drains tokens in
// order, then reports synthetic EOF forever until popStash. Used by
// expandAll, mirroring 8cc's set_input_buffer/get_input_buffer pair.
func (p *Preprocessor) pushStash(tokens []*token.Token) {
	rev := make([]*token.Token, len(tokens))
	for i, t := range tokens {
		rev[len(tokens)-1-i] = t
	}
	p.stash = append(p.stash, rev)
}

func (p *Preprocessor) popStash() {
	p.stash = p.stash[:len(p.stash)-1]
}

func (p *Preprocessor) inStash() bool { return len(p.stash) > 1 }

// expandAll macro-expands tokens in isolation (used for ## operands and
// plain-parameter substitution), per 8cc's expand_all.
func (p *Preprocessor) expandAll(tokens []*token.Token) ([]*token.Token, error) {
	p.pushStash(tokens)
	defer p.popStash()
	var r []*token.Token
	for {
		tok, err := p.readExpand()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.EOF {
			return r, nil
		}
		r = append(r, tok)
	}
}

// addHideSet returns copies of toks with hs unioned into each one's
// hide-set, per 8cc's add_hide_set.
func addHideSet(toks []*token.Token, hs *container.Hideset) []*token.Token {
	r := make([]*token.Token, len(toks))
	for i, t := range toks {
		c := t.Copy()
		c.Hideset = container.Union(t.Hideset, hs)
		r[i] = c
	}
	return r
}

// readExpand reads the next token with macro expansion applied, per 8cc's
// read_expand: identifiers naming a live macro (not already in their own
// hide-set) are substituted and re-scanned; everything else passes through.
func (p *Preprocessor) readExpand() (*token.Token, error) {
	tok, err := p.readCppToken()
	if err != nil {
		return nil, err
	}
	if tok.Kind == token.EOF {
		return tok, nil
	}
	if tok.Kind == token.Newline {
		return p.readExpand()
	}
	if tok.Kind != token.Identifier {
		return tok, nil
	}
	macro, ok := p.macros.Get(tok.Name)
	if !ok || tok.Hideset.Has(tok.Name) {
		return tok, nil
	}
	switch macro.Kind {
	case objMacro:
		hideset := tok.Hideset.Add(tok.Name)
		toks, err := p.subst(macro, nil, hideset)
		if err != nil {
			return nil, err
		}
		p.ungetAll(toks)
		return p.readExpand()

	case funcMacro:
		args, ok, err := p.readArgs(macro)
		if err != nil {
			return nil, err
		}
		if !ok {
			// No '(' follows: an unparenthesized function-like macro name
			// is just an ordinary identifier, per C11 6.10.3p10.
			return tok, nil
		}
		rparen, err := p.readCppToken()
		if err != nil {
			return nil, err
		}
		if !rparen.Is(')') {
			return nil, p.errf(rparen, "')' expected in macro invocation, got %s", describe(rparen))
		}
		hideset := container.Intersect(tok.Hideset, rparen.Hideset).Add(tok.Name)
		toks, err := p.subst(macro, args, hideset)
		if err != nil {
			return nil, err
		}
		p.ungetAll(toks)
		return p.readExpand()

	case specialMacro:
		repl, err := macro.Handler(p, tok)
		if err != nil {
			return nil, err
		}
		p.unget(repl)
		return p.readExpand()
	}
	return tok, nil
}

// readTokenInt is the public-facing combinator: directives are recognized
// at the start of a line (before or after the first macro-expansion pass,
// mirroring 8cc's belt-and-suspenders double check in read_token_int) and
// consumed rather than returned. When returnAtEOL, a bare Newline token is
// returned instead of being skipped, used while collecting a #if line.
func (p *Preprocessor) readTokenInt(returnAtEOL bool) (*token.Token, error) {
	for {
		tok, err := p.readCppToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.EOF {
			return tok, nil
		}
		if tok.Kind == token.Newline {
			if returnAtEOL {
				return tok, nil
			}
			continue
		}
		if tok.BOL && tok.Is('#') {
			if err := p.readDirective(); err != nil {
				return nil, err
			}
			continue
		}
		p.unget(tok)
		r, err := p.readExpand()
		if err != nil {
			return nil, err
		}
		if r.Kind != token.EOF && r.BOL && r.Is('#') && r.Hideset == nil {
			if err := p.readDirective(); err != nil {
				return nil, err
			}
			continue
		}
		return r, nil
	}
}

// Next returns the next fully macro-expanded token, directives consumed.
func (p *Preprocessor) Next() (*token.Token, error) {
	return p.readTokenInt(false)
}

// Peek returns the next token without consuming it.
func (p *Preprocessor) Peek() (*token.Token, error) {
	tok, err := p.Next()
	if err != nil {
		return nil, err
	}
	p.unget(tok)
	return tok, nil
}

func describe(tok *token.Token) string {
	switch tok.Kind {
	case token.Identifier:
		return tok.Name
	case token.Number:
		return tok.Name
	case token.Keyword:
		return spell(tok)
	case token.EOF:
		return "<eof>"
	case token.Newline:
		return "<newline>"
	default:
		return tok.Kind.String()
	}
}

func (p *Preprocessor) readIdent() (*token.Token, error) {
	tok, err := p.readCppToken()
	if err != nil {
		return nil, err
	}
	if tok.Kind != token.Identifier {
		return nil, p.errf(tok, "identifier expected, got %s", describe(tok))
	}
	return tok, nil
}

func (p *Preprocessor) expect(id int) error {
	tok, err := p.readCppToken()
	if err != nil {
		return err
	}
	if !tok.Is(id) {
		return p.errf(tok, "'%c' expected, got %s", rune(id), describe(tok))
	}
	return nil
}

func (p *Preprocessor) expectNewline() error {
	tok, err := p.readCppToken()
	if err != nil {
		return err
	}
	if tok.Kind != token.Newline && tok.Kind != token.EOF {
		return p.errf(tok, "newline expected, got %s", describe(tok))
	}
	return nil
}

// clockParts breaks the preprocessor's clock down for __DATE__/__TIME__'s
// month-as-index, day, year, hour, minute, second fields.
func (p *Preprocessor) clockParts() (mon int, day, year, hour, min, sec int) {
	t := p.clock()
	return int(t.Month()) - 1, t.Day(), t.Year(), t.Hour(), t.Minute(), t.Second()
}

// currentFile reports the innermost active source file's name, for
// #include's quoted-search directory.
func (p *Preprocessor) currentFile() string {
	name, _, _ := p.stream.Position()
	return name
}

func (p *Preprocessor) currentLine() int {
	_, line, _ := p.stream.Position()
	return line
}

// openInclude resolves and pushes name onto the stream, searching the
// including file's directory first for quoted includes, then
// includePaths for both forms, per spec.md §4.3.
func (p *Preprocessor) openInclude(name string, angle bool) error {
	var dirs []string
	if !angle {
		if cur := p.currentFile(); cur != "" && cur != "-" {
			dirs = append(dirs, filepath.Dir(cur))
		} else {
			dirs = append(dirs, ".")
		}
	}
	dirs = append(dirs, p.includePaths...)
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err == nil {
			p.stream.Push(path, f)
			return nil
		}
	}
	return p.errf(p.here(), "cannot find header file: %s", name)
}
