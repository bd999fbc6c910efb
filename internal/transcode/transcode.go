// Package transcode widens a lexed string/char literal's UTF-8 body into
// the code-unit width its encoding prefix calls for: `u"..."` into
// 16-bit units (with surrogate pairs for astral codepoints), `U"..."`
// and `L"..."` into 32-bit units, `u8"..."`/unprefixed into UTF-8 bytes
// unchanged. The lexer (internal/lexer) already decodes every escape
// sequence to a codepoint and re-encodes it as UTF-8 regardless of
// prefix, per spec.md §4.2's "\u/\U inside strings encode the codepoint
// as UTF-8 into the literal body, while the encoding tag drives later
// transcoding" — this package is that later transcoding step, consumed
// by internal/parser when it builds a string-literal AST node.
package transcode

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/gorse-io/goatc/internal/token"
)

// Width returns the element size in bytes a literal's encoding stores
// its code units as, per spec.md §6's size macros (__SIZEOF_SHORT__,
// __SIZEOF_INT__) applied to char16_t/wchar_t/char32_t.
func Width(enc token.Encoding) int {
	switch enc {
	case token.EncChar16:
		return 2
	case token.EncChar32, token.EncWChar:
		return 4
	default:
		return 1
	}
}

// Encode widens utf8 (a NUL-free UTF-8 byte string already escape-decoded
// by the lexer) into enc's code-unit width, little-endian, without a
// trailing terminator — callers append the NUL themselves since its
// width must match Width(enc).
func Encode(utf8Bytes []byte, enc token.Encoding) []byte {
	switch enc {
	case token.EncChar16:
		return encodeUTF16(utf8Bytes)
	case token.EncChar32, token.EncWChar:
		return encodeUTF32(utf8Bytes)
	default:
		return utf8Bytes
	}
}

func encodeUTF16(src []byte) []byte {
	var out []byte
	for len(src) > 0 {
		r, n := utf8.DecodeRune(src)
		src = src[n:]
		for _, unit := range utf16.Encode([]rune{r}) {
			out = append(out, byte(unit), byte(unit>>8))
		}
	}
	return out
}

func encodeUTF32(src []byte) []byte {
	var out []byte
	for len(src) > 0 {
		r, n := utf8.DecodeRune(src)
		src = src[n:]
		v := uint32(r)
		out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return out
}

// RuneCount returns the number of code units Encode(utf8Bytes, enc) will
// produce (not counting the terminator), used to size a wide string
// literal's array type since astral codepoints under EncChar16 expand to
// a surrogate pair, two units for one source codepoint.
func RuneCount(utf8Bytes []byte, enc token.Encoding) int {
	if enc == token.EncChar32 || enc == token.EncWChar {
		return utf8.RuneCount(utf8Bytes)
	}
	if enc != token.EncChar16 {
		return len(utf8Bytes)
	}
	n := 0
	for len(utf8Bytes) > 0 {
		r, sz := utf8.DecodeRune(utf8Bytes)
		utf8Bytes = utf8Bytes[sz:]
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}
