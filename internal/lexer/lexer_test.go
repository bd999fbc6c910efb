package lexer

import (
	"strings"
	"testing"

	"github.com/gorse-io/goatc/internal/stream"
	"github.com/gorse-io/goatc/internal/token"
)

// lexAll drains l to EOF, dropping Space/Newline (the lexer's own
// insignificant-whitespace markers), mirroring how internal/cpp consumes it.
func lexAll(t *testing.T, src string) []*token.Token {
	t.Helper()
	l := New(stream.New("<test>", strings.NewReader(src)))
	var out []*token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.Kind == token.EOF {
			return out
		}
		if tok.Kind == token.Newline || tok.Kind == token.Space {
			continue
		}
		out = append(out, tok)
	}
}

// spellOne renders a token back to source text using the same punctuator
// table the lexer reads, independent of internal/cpp's respelling.
func spellOne(tok *token.Token) string {
	switch tok.Kind {
	case token.Identifier, token.Number:
		return tok.Name
	case token.Keyword:
		if tok.ID < 256 {
			return string(rune(tok.ID))
		}
		for s, id := range token.Puncts {
			if id == tok.ID {
				return s
			}
		}
		return "?"
	case token.String:
		return "\"" + string(tok.StrVal) + "\""
	case token.Char:
		return "'" + string(rune(tok.CharVal)) + "'"
	}
	return ""
}

// Round-trip property (spec.md §8): lexing, respelling every token with a
// separating space, and relexing yields the same token Kind/Name sequence
// modulo the whitespace/comment collapse the lexer already performs.
func TestLexRoundTrip(t *testing.T) {
	srcs := []string{
		"int main(void) { return 1+2*3; }",
		"#define SQR(x) ((x)*(x))\n",
		`char *s = "hello, world\n";`,
		"float f = 3.14e10;",
		"a->b.c[1] += 2;",
	}
	for _, src := range srcs {
		first := lexAll(t, src)
		var b strings.Builder
		for i, tok := range first {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(spellOne(tok))
		}
		second := lexAll(t, b.String())
		if len(first) != len(second) {
			t.Fatalf("%q: token count %d != %d after round-trip (%q)", src, len(first), len(second), b.String())
		}
		for i := range first {
			if first[i].Kind != second[i].Kind {
				t.Fatalf("%q: token %d kind %v != %v", src, i, first[i].Kind, second[i].Kind)
			}
			if spellOne(first[i]) != spellOne(second[i]) {
				t.Fatalf("%q: token %d spelling %q != %q", src, i, spellOne(first[i]), spellOne(second[i]))
			}
		}
	}
}

func TestLexNumberMaximalMunch(t *testing.T) {
	toks := lexAll(t, "3.14e+10f")
	if len(toks) != 1 || toks[0].Kind != token.Number || toks[0].Name != "3.14e+10f" {
		t.Fatalf("got %+v, want single number token 3.14e+10f", toks)
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := lexAll(t, `"a\nb\t\"c"`)
	if len(toks) != 1 || toks[0].Kind != token.String {
		t.Fatalf("got %+v, want single string token", toks)
	}
	if string(toks[0].StrVal) != "a\nb\t\"c" {
		t.Fatalf("got %q, want %q", toks[0].StrVal, "a\nb\t\"c")
	}
}

func TestLexWidePrefixes(t *testing.T) {
	cases := []struct {
		src string
		enc token.Encoding
	}{
		{`u"x"`, token.EncChar16},
		{`U"x"`, token.EncChar32},
		{`L"x"`, token.EncWChar},
		{`u8"x"`, token.EncUTF8},
		{`"x"`, token.EncNone},
	}
	for _, c := range cases {
		toks := lexAll(t, c.src)
		if len(toks) != 1 || toks[0].Enc != c.enc {
			t.Fatalf("%q: got %+v, want encoding %v", c.src, toks, c.enc)
		}
	}
}
