package types

import "testing"

// scenario 4 of spec.md §8: struct{ char a; int b; char c; } sizes to 12
// with b at offset 4 and c at offset 8, the classic char/int-alignment
// padding example.
func TestLayoutStructCharIntChar(t *testing.T) {
	fields := []RecordField{
		{Name: "a", Type: NewBase(Char, false)},
		{Name: "b", Type: NewBase(Int, false)},
		{Name: "c", Type: NewBase(Char, false)},
	}
	m, size, align := LayoutStruct(fields)
	if size != 12 {
		t.Fatalf("size = %d, want 12", size)
	}
	if align != 4 {
		t.Fatalf("align = %d, want 4", align)
	}
	b, _ := m.GetLocal("b")
	if b.Offset != 4 {
		t.Fatalf("offsetof(b) = %d, want 4", b.Offset)
	}
	c, _ := m.GetLocal("c")
	if c.Offset != 8 {
		t.Fatalf("offsetof(c) = %d, want 8", c.Offset)
	}
}

// Property test: for every aggregate, size is a multiple of align and
// covers every field's offset+size, per spec.md §8's padding property.
func TestLayoutStructSizeIsAlignMultiple(t *testing.T) {
	cases := [][]RecordField{
		{{Name: "a", Type: NewBase(Char, false)}, {Name: "b", Type: NewBase(LLong, false)}},
		{{Name: "x", Type: NewBase(Short, false)}, {Name: "y", Type: NewBase(Char, false)}, {Name: "z", Type: NewBase(Short, false)}},
		{{Name: "p", Type: NewPtr(NewBase(Void, false))}, {Name: "n", Type: NewBase(Int, false)}},
	}
	for i, fields := range cases {
		_, size, align := LayoutStruct(fields)
		if align == 0 || size%align != 0 {
			t.Fatalf("case %d: size=%d not a multiple of align=%d", i, size, align)
		}
	}
}

// Property test: union size is its largest member, rounded to alignment.
func TestLayoutUnionSizeIsMaxMember(t *testing.T) {
	fields := []RecordField{
		{Name: "i", Type: NewBase(Int, false)},
		{Name: "d", Type: NewBase(Double, false)},
		{Name: "c", Type: NewBase(Char, false)},
	}
	m, size, align := LayoutUnion(fields)
	if size != 8 || align != 8 {
		t.Fatalf("got size=%d align=%d, want size=8 align=8", size, align)
	}
	for _, name := range []string{"i", "d", "c"} {
		f, ok := m.GetLocal(name)
		if !ok {
			t.Fatalf("missing field %s", name)
		}
		if f.Offset != 0 {
			t.Fatalf("field %s offset = %d, want 0", name, f.Offset)
		}
	}
}

// Bit-field property: 0 <= bit-off < 8*sizeof(T) and bit-off+bit-size <=
// 8*sizeof(T), per spec.md §8.
func TestLayoutStructBitfields(t *testing.T) {
	u32 := NewBase(Int, true)
	fields := []RecordField{
		{Name: "a", Type: u32.WithBitSize(3)},
		{Name: "b", Type: u32.WithBitSize(5)},
		{Name: "c", Type: u32.WithBitSize(30)}, // spills into a new storage unit
	}
	m, _, _ := LayoutStruct(fields)
	bits := u32.Size * 8
	for _, name := range []string{"a", "b", "c"} {
		f, ok := m.GetLocal(name)
		if !ok {
			t.Fatalf("missing field %s", name)
		}
		if f.BitOff < 0 || f.BitOff >= bits {
			t.Fatalf("field %s: bit-off %d out of [0,%d)", name, f.BitOff, bits)
		}
		if f.BitOff+f.BitSize > bits {
			t.Fatalf("field %s: bit-off+bit-size %d exceeds %d", name, f.BitOff+f.BitSize, bits)
		}
	}
}

func TestComputePadding(t *testing.T) {
	cases := []struct{ off, align, want int }{
		{0, 4, 0},
		{1, 4, 3},
		{4, 4, 0},
		{5, 8, 3},
		{3, 0, 0},
	}
	for _, c := range cases {
		if got := computePadding(c.off, c.align); got != c.want {
			t.Fatalf("computePadding(%d,%d) = %d, want %d", c.off, c.align, got, c.want)
		}
	}
}
