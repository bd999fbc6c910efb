// Package lexer turns normalized characters into preprocessing tokens.
// Grounded on 8cc's lex.c: comments collapse to a single space marker,
// whitespace runs collapse to one space token, numeric literals are
// maximal munch without classification, string/char literals accept the
// standard prefixes and escapes, and punctuators are read by greedy
// lookahead via a handful of next()/peek() helpers.
package lexer

import (
	"fmt"

	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/stream"
	"github.com/gorse-io/goatc/internal/token"
)

const eof = stream.EOF

// Lexer produces pp-tokens one at a time from a *stream.Stream.
type Lexer struct {
	s      *stream.Stream
	ntok   int
	curPos token.Position
}

// New wraps s in a Lexer.
func New(s *stream.Stream) *Lexer {
	return &Lexer{s: s}
}

func (l *Lexer) readc() int    { return l.s.ReadChar() }
func (l *Lexer) unreadc(c int) { l.s.UnreadChar(c) }

func (l *Lexer) peek() int {
	c := l.readc()
	l.unreadc(c)
	return c
}

func (l *Lexer) next(expect int) bool {
	c := l.readc()
	if c == expect {
		return true
	}
	l.unreadc(c)
	return false
}

func (l *Lexer) mark() {
	name, line, col := l.s.Position()
	l.curPos = token.Position{Filename: name, Line: line, Column: col}
}

func (l *Lexer) makeTok(kind token.Kind) *token.Token {
	name, _, _ := l.s.Position()
	t := &token.Token{
		Kind:   kind,
		File:   name,
		Line:   l.curPos.Line,
		Column: l.curPos.Column,
		Count:  l.ntok,
	}
	l.ntok++
	return t
}

func isWhitespace(c int) bool {
	return c == ' ' || c == '\t' || c == '\f' || c == '\v'
}

func isDigit(c int) bool { return c >= '0' && c <= '9' }
func isAlpha(c int) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isHex(c int) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c int) int {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func (l *Lexer) skipLine() {
	for {
		c := l.readc()
		if c == eof {
			return
		}
		if c == '\n' {
			l.unreadc(c)
			return
		}
	}
}

func (l *Lexer) skipBlockComment() error {
	maybeEnd := false
	for {
		c := l.readc()
		if c == eof {
			return fmt.Errorf("premature end of block comment")
		}
		if c == '/' && maybeEnd {
			return nil
		}
		maybeEnd = c == '*'
	}
}

func (l *Lexer) doSkipSpace() (bool, error) {
	c := l.readc()
	if c == eof {
		return false, nil
	}
	if isWhitespace(c) {
		return true, nil
	}
	if c == '/' {
		if l.next('*') {
			return true, l.skipBlockComment()
		}
		if l.next('/') {
			l.skipLine()
			return true, nil
		}
	}
	l.unreadc(c)
	return false, nil
}

func (l *Lexer) skipSpace() (bool, error) {
	skipped, err := l.doSkipSpace()
	if err != nil || !skipped {
		return skipped, err
	}
	for {
		more, err := l.doSkipSpace()
		if err != nil {
			return true, err
		}
		if !more {
			return true, nil
		}
	}
}

// Next reads the next token from the stream, handling comment/whitespace
// collapse and the leading-space/begin-of-line flags the way 8cc's lex()
// wraps do_read_token().
func (l *Lexer) Next() (*token.Token, error) {
	_, _, col := l.s.Position()
	bol := col == 1

	tok, err := l.doReadToken()
	if err != nil {
		return nil, err
	}
	for tok.Kind == token.Space {
		tok, err = l.doReadToken()
		if err != nil {
			return nil, err
		}
		tok.Space = true
	}
	tok.BOL = bol
	return tok, nil
}

func (l *Lexer) errf(format string, args ...any) error {
	return diag.Errorf(l.curPos, diag.KindLexical, format, args...)
}

// doReadToken skips one run of whitespace/comments (returning a Space
// token if it skipped anything, mirroring 8cc's do_read_token), then reads
// one real token.
func (l *Lexer) doReadToken() (*token.Token, error) {
	skipped, err := l.skipSpace()
	if err != nil {
		return nil, l.errf(err.Error())
	}
	if skipped {
		return l.makeTok(token.Space), nil
	}
	l.mark()
	c := l.readc()
	switch {
	case c == eof:
		return l.makeTok(token.EOF), nil
	case c == '\n':
		return l.makeTok(token.Newline), nil
	case c == ' ' || c == '\t':
		return l.makeTok(token.Space), nil
	case c == '"':
		return l.readString(token.EncNone)
	case c == '\'':
		return l.readChar(token.EncNone)
	case isDigit(c):
		return l.readNumber(byte(c))
	case c == '.':
		if isDigit(l.peek()) {
			return l.readNumber('.')
		}
		if l.next('.') {
			if l.next('.') {
				return l.keyword(token.PuncEllipsis), nil
			}
			return l.ident(".."), nil
		}
		return l.keyword('.'), nil
	case c == 'L' || c == 'U':
		enc := token.EncWChar
		if c == 'U' {
			enc = token.EncChar32
		}
		if l.next('"') {
			return l.readString(enc)
		}
		if l.next('\'') {
			return l.readChar(enc)
		}
		return l.readIdent(byte(c))
	case c == 'u':
		if l.next('"') {
			return l.readString(token.EncChar16)
		}
		if l.next('\'') {
			return l.readChar(token.EncChar16)
		}
		if l.next('8') {
			if l.next('"') {
				return l.readString(token.EncUTF8)
			}
			l.unreadc('8')
		}
		return l.readIdent('u')
	case isAlpha(c) || c == '_' || c == '$' || c >= 0x80:
		return l.readIdent(byte(c))
	case c == ':':
		if l.next('>') {
			return l.keyword(']'), nil
		}
		return l.keyword(':'), nil
	case c == '#':
		if l.next('#') {
			return l.keyword(token.PuncHashHash), nil
		}
		return l.keyword('#'), nil
	case c == '+':
		if l.next('+') {
			return l.keyword(token.PuncInc), nil
		}
		if l.next('=') {
			return l.keyword(token.PuncAddEq), nil
		}
		return l.keyword('+'), nil
	case c == '*':
		return l.keyword(l.rep('=', token.PuncMulEq, '*')), nil
	case c == '=':
		return l.keyword(l.rep('=', token.PuncEq, '=')), nil
	case c == '!':
		return l.keyword(l.rep('=', token.PuncNe, '!')), nil
	case c == '&':
		if l.next('&') {
			return l.keyword(token.PuncLogAnd), nil
		}
		if l.next('=') {
			return l.keyword(token.PuncAndEq), nil
		}
		return l.keyword('&'), nil
	case c == '|':
		if l.next('|') {
			return l.keyword(token.PuncLogOr), nil
		}
		if l.next('=') {
			return l.keyword(token.PuncOrEq), nil
		}
		return l.keyword('|'), nil
	case c == '^':
		return l.keyword(l.rep('=', token.PuncXorEq, '^')), nil
	case c == '/':
		return l.keyword(l.rep('=', token.PuncDivEq, '/')), nil
	case c == '(', c == ')', c == ',', c == ';', c == '[', c == ']', c == '{',
		c == '}', c == '?', c == '~':
		return l.keyword(c), nil
	case c == '-':
		if l.next('-') {
			return l.keyword(token.PuncDec), nil
		}
		if l.next('>') {
			return l.keyword(token.PuncArrow), nil
		}
		if l.next('=') {
			return l.keyword(token.PuncSubEq), nil
		}
		return l.keyword('-'), nil
	case c == '<':
		if l.next('<') {
			return l.keyword(l.rep('=', token.PuncShlEq, token.PuncShl)), nil
		}
		if l.next('=') {
			return l.keyword(token.PuncLe), nil
		}
		if l.next(':') {
			return l.keyword('['), nil
		}
		if l.next('%') {
			return l.keyword('{'), nil
		}
		return l.keyword('<'), nil
	case c == '>':
		if l.next('=') {
			return l.keyword(token.PuncGe), nil
		}
		if l.next('>') {
			return l.keyword(l.rep('=', token.PuncShrEq, token.PuncShr)), nil
		}
		return l.keyword('>'), nil
	case c == '%':
		if tok := l.readHashDigraph(); tok != nil {
			return tok, nil
		}
		return l.keyword(l.rep('=', token.PuncModEq, '%')), nil
	default:
		t := l.makeTok(token.Invalid)
		t.CharVal = rune(c)
		return t, nil
	}
}

func (l *Lexer) rep(expect int, then, els int) int {
	if l.next(expect) {
		return then
	}
	return els
}

func (l *Lexer) keyword(id int) *token.Token {
	t := l.makeTok(token.Keyword)
	t.ID = id
	return t
}

func (l *Lexer) ident(name string) *token.Token {
	t := l.makeTok(token.Identifier)
	t.Name = name
	return t
}

func (l *Lexer) readHashDigraph() *token.Token {
	if l.next('>') {
		return l.keyword('}')
	}
	if l.next(':') {
		if l.next('%') {
			if l.next(':') {
				return l.keyword(token.PuncHashHash)
			}
			l.unreadc('%')
		}
		return l.keyword('#')
	}
	return nil
}

func (l *Lexer) readNumber(c byte) (*token.Token, error) {
	buf := []byte{c}
	last := c
	for {
		c := l.readc()
		flonum := (last == 'e' || last == 'E' || last == 'p' || last == 'P') && (c == '+' || c == '-')
		if !isDigit(c) && !isAlpha(c) && c != '.' && !flonum {
			l.unreadc(c)
			t := l.makeTok(token.Number)
			t.Name = string(buf)
			return t, nil
		}
		buf = append(buf, byte(c))
		last = byte(c)
	}
}

func (l *Lexer) readIdent(c byte) (*token.Token, error) {
	buf := []byte{c}
	for {
		c := l.readc()
		if isAlpha(c) || isDigit(c) || c >= 0x80 || c == '_' || c == '$' {
			buf = append(buf, byte(c))
			continue
		}
		if c == '\\' && (l.peek() == 'u' || l.peek() == 'U') {
			r, err := l.readEscaped()
			if err != nil {
				return nil, err
			}
			buf = appendUTF8(buf, r)
			continue
		}
		l.unreadc(c)
		t := l.makeTok(token.Identifier)
		t.Name = string(buf)
		return t, nil
	}
}

func appendUTF8(buf []byte, r int) []byte {
	var tmp [4]byte
	n := encodeUTF8(tmp[:], r)
	return append(buf, tmp[:n]...)
}

// encodeUTF8 writes the UTF-8 encoding of r into dst (at least 4 bytes)
// and returns the byte count.
func encodeUTF8(dst []byte, r int) int {
	switch {
	case r < 0x80:
		dst[0] = byte(r)
		return 1
	case r < 0x800:
		dst[0] = byte(0xC0 | (r >> 6))
		dst[1] = byte(0x80 | (r & 0x3F))
		return 2
	case r < 0x10000:
		dst[0] = byte(0xE0 | (r >> 12))
		dst[1] = byte(0x80 | ((r >> 6) & 0x3F))
		dst[2] = byte(0x80 | (r & 0x3F))
		return 3
	default:
		dst[0] = byte(0xF0 | (r >> 18))
		dst[1] = byte(0x80 | ((r >> 12) & 0x3F))
		dst[2] = byte(0x80 | ((r >> 6) & 0x3F))
		dst[3] = byte(0x80 | (r & 0x3F))
		return 4
	}
}

func isValidUCN(c int) bool {
	if c >= 0xD800 && c <= 0xDFFF {
		return false
	}
	return c >= 0xA0 || c == '$' || c == '@' || c == '`'
}

func (l *Lexer) readUniversal(n int) (int, error) {
	r := 0
	for i := 0; i < n; i++ {
		c := l.readc()
		if !isHex(c) {
			return 0, l.errf("invalid universal character: %c", c)
		}
		r = (r << 4) | hexVal(c)
	}
	if !isValidUCN(r) {
		return 0, l.errf("invalid universal character: \\u%0*x", n, r)
	}
	return r, nil
}

func (l *Lexer) readHex() (int, error) {
	c := l.readc()
	if !isHex(c) {
		return 0, l.errf("\\x is not followed by a hexadecimal character: %c", c)
	}
	r := 0
	for {
		if !isHex(c) {
			l.unreadc(c)
			return r, nil
		}
		r = (r << 4) | hexVal(c)
		c = l.readc()
	}
}

func (l *Lexer) nextOct() bool {
	c := l.peek()
	return c >= '0' && c <= '7'
}

func (l *Lexer) readOctal(c int) int {
	r := c - '0'
	if !l.nextOct() {
		return r
	}
	r = (r << 3) | (l.readc() - '0')
	if !l.nextOct() {
		return r
	}
	return (r << 3) | (l.readc() - '0')
}

// readEscaped reads the character(s) after a backslash, per spec.md §4.2's
// escape list (\a \b \f \n \r \t \v \e \" \' \? \\ \xHH \ooo \uXXXX \UXXXXXXXX).
func (l *Lexer) readEscaped() (int, error) {
	c := l.readc()
	switch c {
	case '\'', '"', '?', '\\':
		return c, nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'v':
		return '\v', nil
	case 'e':
		return 033, nil
	case 'x':
		return l.readHex()
	case 'u':
		return l.readUniversal(4)
	case 'U':
		return l.readUniversal(8)
	}
	if c >= '0' && c <= '7' {
		return l.readOctal(c), nil
	}
	return c, nil // unknown escape: warn is the parser/cpp's business to surface
}

func (l *Lexer) readChar(enc token.Encoding) (*token.Token, error) {
	c := l.readc()
	r := c
	if c == '\\' {
		var err error
		r, err = l.readEscaped()
		if err != nil {
			return nil, err
		}
	}
	if l.readc() != '\'' {
		return nil, l.errf("unterminated char")
	}
	t := l.makeTok(token.Char)
	t.CharVal = rune(r)
	t.Enc = enc
	return t, nil
}

func (l *Lexer) readString(enc token.Encoding) (*token.Token, error) {
	var buf []byte
	for {
		c := l.readc()
		if c == eof {
			return nil, l.errf("unterminated string")
		}
		if c == '"' {
			break
		}
		if c != '\\' {
			buf = append(buf, byte(c))
			continue
		}
		isUCS := l.peek() == 'u' || l.peek() == 'U'
		r, err := l.readEscaped()
		if err != nil {
			return nil, err
		}
		if isUCS {
			buf = appendUTF8(buf, r)
			continue
		}
		buf = append(buf, byte(r))
	}
	t := l.makeTok(token.String)
	t.StrVal = buf
	t.Enc = enc
	return t, nil
}

// ReadHeaderName reads a #include filename in the special escape-free mode
// spec.md §4.2 describes. angle selects <...> delimiters; otherwise "...".
func (l *Lexer) ReadHeaderName(angle bool) (string, error) {
	if _, err := l.skipSpace(); err != nil {
		return "", l.errf(err.Error())
	}
	close := byte('"')
	if angle {
		close = '>'
	}
	open := byte('"')
	if angle {
		open = '<'
	}
	if !l.next(int(open)) {
		return "", l.errf("expected %c to start header name", open)
	}
	var buf []byte
	for !l.next(int(close)) {
		c := l.readc()
		if c == eof || c == '\n' {
			return "", l.errf("premature end of header name")
		}
		buf = append(buf, byte(c))
	}
	if len(buf) == 0 {
		return "", l.errf("header name should not be empty")
	}
	return string(buf), nil
}
