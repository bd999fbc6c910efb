package transcode

import (
	"bytes"
	"testing"

	"github.com/gorse-io/goatc/internal/token"
)

func TestWidth(t *testing.T) {
	cases := []struct {
		enc  token.Encoding
		want int
	}{
		{token.EncNone, 1},
		{token.EncUTF8, 1},
		{token.EncChar16, 2},
		{token.EncChar32, 4},
		{token.EncWChar, 4},
	}
	for _, c := range cases {
		if got := Width(c.enc); got != c.want {
			t.Errorf("Width(%v) = %d, want %d", c.enc, got, c.want)
		}
	}
}

func TestEncodeNarrowUnchanged(t *testing.T) {
	src := []byte("hello")
	got := Encode(src, token.EncNone)
	if !bytes.Equal(got, src) {
		t.Fatalf("Encode narrow = %v, want %v", got, src)
	}
}

func TestEncodeUTF16BMP(t *testing.T) {
	// "AB" -> two 16-bit units, little-endian: 0x41 0x00 0x42 0x00
	got := Encode([]byte("AB"), token.EncChar16)
	want := []byte{0x41, 0x00, 0x42, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode utf16 = %v, want %v", got, want)
	}
}

func TestEncodeUTF16SurrogatePair(t *testing.T) {
	// U+1F600 (astral) must expand to a surrogate pair, 4 bytes total.
	src := []byte(string(rune(0x1F600)))
	got := Encode(src, token.EncChar16)
	if len(got) != 4 {
		t.Fatalf("Encode utf16 astral = %d bytes, want 4 (surrogate pair)", len(got))
	}
	hi := uint16(got[0]) | uint16(got[1])<<8
	lo := uint16(got[2]) | uint16(got[3])<<8
	if hi < 0xD800 || hi > 0xDBFF {
		t.Fatalf("high surrogate %#x out of range", hi)
	}
	if lo < 0xDC00 || lo > 0xDFFF {
		t.Fatalf("low surrogate %#x out of range", lo)
	}
}

func TestEncodeUTF32(t *testing.T) {
	got := Encode([]byte("A"), token.EncChar32)
	want := []byte{0x41, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode utf32 = %v, want %v", got, want)
	}
	gotW := Encode([]byte("A"), token.EncWChar)
	if !bytes.Equal(gotW, want) {
		t.Fatalf("Encode wchar = %v, want %v", gotW, want)
	}
}

func TestRuneCountNarrow(t *testing.T) {
	if n := RuneCount([]byte("hi"), token.EncNone); n != 2 {
		t.Fatalf("RuneCount = %d, want 2", n)
	}
}

func TestRuneCountUTF16CountsSurrogatePairAsTwo(t *testing.T) {
	src := []byte(string(rune(0x1F600)) + "x")
	if n := RuneCount(src, token.EncChar16); n != 3 {
		t.Fatalf("RuneCount = %d, want 3 (surrogate pair + one BMP unit)", n)
	}
}

func TestRuneCountUTF32CountsCodepointsNotBytes(t *testing.T) {
	src := []byte(string(rune(0x1F600)) + "x")
	if n := RuneCount(src, token.EncChar32); n != 2 {
		t.Fatalf("RuneCount = %d, want 2", n)
	}
}
