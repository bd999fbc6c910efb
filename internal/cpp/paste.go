package cpp

import (
	"fmt"
	"strings"

	"github.com/gorse-io/goatc/internal/token"
)

// spellings is the reverse of token.Puncts, built once, used to respell a
// punctuator token back to source text for ## pasting and stringizing.
var spellings = func() map[int]string {
	m := make(map[int]string, len(token.Puncts))
	for s, id := range token.Puncts {
		m[id] = s
	}
	return m
}()

// spell renders a Keyword-kind (punctuator) token's source spelling.
func spell(tok *token.Token) string {
	if tok.ID < 256 {
		return string(rune(tok.ID))
	}
	if s, ok := spellings[tok.ID]; ok {
		return s
	}
	return "?"
}

func quoteChar(c rune) string {
	switch c {
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	case '\n':
		return `'\n'`
	default:
		return fmt.Sprintf("'%c'", c)
	}
}

// quoteCString escapes backslashes and double quotes the way stringizing a
// string-literal argument to # must, per C11 6.10.3.2.
func quoteCString(s []byte) string {
	var b strings.Builder
	for _, c := range s {
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// paste appends tok's source spelling to s; only identifiers, numbers and
// punctuators may be pasted, per 8cc's paste().
func paste(b *strings.Builder, tok *token.Token) error {
	switch tok.Kind {
	case token.Identifier, token.Number:
		b.WriteString(tok.Name)
		return nil
	case token.Keyword:
		b.WriteString(spell(tok))
		return nil
	default:
		return fmt.Errorf("cannot paste token of kind %s", tok.Kind)
	}
}

// glueTokens pastes t0 and t1's spellings into one new token: a Number if
// the result starts with a digit, an Identifier otherwise. Grounded on
// 8cc's glue_tokens.
func glueTokens(t0, t1 *token.Token) (*token.Token, error) {
	var b strings.Builder
	if err := paste(&b, t0); err != nil {
		return nil, err
	}
	if err := paste(&b, t1); err != nil {
		return nil, err
	}
	s := b.String()
	r := t0.Copy()
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		r.Kind = token.Number
	} else {
		r.Kind = token.Identifier
	}
	r.Name = s
	r.ID = 0
	return r, nil
}

// gluePush replaces the last token pushed to *r with the result of gluing
// it to tok, per 8cc's glue_push.
func gluePush(r *[]*token.Token, tok *token.Token) error {
	n := len(*r)
	if n == 0 {
		return fmt.Errorf("## has no preceding token to paste")
	}
	last := (*r)[n-1]
	glued, err := glueTokens(last, tok)
	if err != nil {
		return err
	}
	(*r)[n-1] = glued
	return nil
}

// SpellToken renders tok's original source spelling, exported for
// internal/driver's `-E` reconstruction pass (spec.md §6's "print
// reconstructed source to stdout").
func SpellToken(tok *token.Token) (string, error) {
	return joinTokens([]*token.Token{tok}, false)
}

// joinTokens respells toks back to source text, used by both stringize
// (sep=true, a space is inserted wherever the original had one) and
// #include <...> header-name reassembly (sep=false). Grounded on 8cc's
// join_tokens.
func joinTokens(toks []*token.Token, sep bool) (string, error) {
	var b strings.Builder
	for _, tok := range toks {
		if sep && b.Len() > 0 && tok.Space {
			b.WriteByte(' ')
		}
		switch tok.Kind {
		case token.Identifier, token.Number:
			b.WriteString(tok.Name)
		case token.Keyword:
			b.WriteString(spell(tok))
		case token.Char:
			b.WriteString(quoteChar(tok.CharVal))
		case token.String:
			b.WriteByte('"')
			b.WriteString(quoteCString(tok.StrVal))
			b.WriteByte('"')
		default:
			return "", fmt.Errorf("cannot join token of kind %s", tok.Kind)
		}
	}
	return b.String(), nil
}

// stringize turns args into a single string token shaped like tmpl (the #
// token), per 8cc's stringize / C11 6.10.3.2.
func stringize(tmpl *token.Token, args []*token.Token) (*token.Token, error) {
	s, err := joinTokens(args, true)
	if err != nil {
		return nil, err
	}
	r := tmpl.Copy()
	r.Kind = token.String
	r.StrVal = []byte(s)
	r.Name = ""
	return r, nil
}
