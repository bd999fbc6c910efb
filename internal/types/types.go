// Package types implements spec.md §3's Type model: a tagged variant over
// the C base types plus array/pointer/struct-union/function/stub. Each
// Type is an individually allocated *Type; a forward struct declaration
// is back-patched in place through BecomeCopyOf, so pointers captured
// earlier stay valid. There is no type arena and no index type. Grounded
// on 8cc's parse.c type-construction and struct/union layout routines
// (update_struct_offset/update_union_offset), reworked around Go structs.
package types

import (
	"fmt"

	"github.com/gorse-io/goatc/internal/container"
	"modernc.org/mathutil"
)

// Kind tags a Type's variant, matching spec.md §3's {void, bool, char,
// short, int, long, long-long, float, double, long-double, array, enum,
// pointer, struct/union, function, stub} set.
type Kind int

const (
	Void Kind = iota
	Bool
	Char
	Short
	Int
	Long
	LLong
	Float
	Double
	LDouble
	Array
	Enum
	Ptr
	StructUnion
	Func
	Stub
)

func (k Kind) String() string {
	names := [...]string{"void", "_Bool", "char", "short", "int", "long", "long long",
		"float", "double", "long double", "array", "enum", "pointer", "struct/union",
		"function", "stub"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Field is a struct/union member: byte offset plus, for bit-fields, a bit
// offset and bit width. BitSize -1 marks "not a bit-field"; 0 marks a
// forced storage-unit boundary, per spec.md §3.
type Field struct {
	Name    string
	Type    *Type
	Offset  int // byte offset
	BitOff  int // bit offset within the storage unit at Offset
	BitSize int // -1 = not a bitfield, 0 = alignment-forcing, >0 = width
}

// Type is spec.md §3's Type tagged variant.
type Type struct {
	Kind     Kind
	Size     int
	Align    int
	Unsigned bool
	Static   bool

	// Array/Ptr: element/pointee type.
	Elem *Type
	// Array length; -1 = incomplete/flexible.
	Len int

	// StructUnion.
	Fields   *container.OrderedMap[*Field]
	IsStruct bool // true = struct, false = union

	// Func.
	Return     *Type
	Params     []*Type
	ParamNames []string
	Variadic   bool
	OldStyle   bool

	// pendingBitSize holds a `: width` suffix read by the parser before
	// struct layout runs; see WithBitSize.
	pendingBitSize *int
}

// NewBase returns a fresh primitive type of kind with standard SysV AMD64
// size/alignment, per 8cc's make_numtype table.
func NewBase(k Kind, unsigned bool) *Type {
	t := &Type{Kind: k, Unsigned: unsigned}
	switch k {
	case Void:
		t.Size, t.Align = 0, 0
	case Bool, Char:
		t.Size, t.Align = 1, 1
	case Short:
		t.Size, t.Align = 2, 2
	case Int, Float:
		t.Size, t.Align = 4, 4
	case Long, LLong, Double, LDouble:
		t.Size, t.Align = 8, 8
	case Enum:
		t.Size, t.Align = 4, 4
	}
	return t
}

// NewPtr returns a pointer-to-elem type: 8 bytes, 8-aligned.
func NewPtr(elem *Type) *Type {
	return &Type{Kind: Ptr, Elem: elem, Size: 8, Align: 8}
}

// NewArray returns an array-of-elem type with len elements (-1 = incomplete).
func NewArray(elem *Type, length int) *Type {
	t := &Type{Kind: Array, Elem: elem, Len: length, Align: elem.Align}
	if length >= 0 {
		t.Size = elem.Size * length
	}
	return t
}

// NewFunc returns a function type.
func NewFunc(ret *Type, params []*Type, names []string, variadic, oldStyle bool) *Type {
	return &Type{Kind: Func, Return: ret, Params: params, ParamNames: names,
		Variadic: variadic, OldStyle: oldStyle}
}

// NewStub returns a placeholder type for declarator back-patching: the
// declarator parser threads a *Type stub inward and the caller overwrites
// its fields in place once the real type is known (spec.md §4.4's
// "stub type passed inward and back-patched on return").
func NewStub() *Type { return &Type{Kind: Stub} }

// BecomeCopyOf overwrites t's fields with a copy of src's, used to
// back-patch a Stub once its real type is known, preserving any pointer
// identity callers already captured.
func (t *Type) BecomeCopyOf(src *Type) {
	save := *src
	*t = save
}

// IsInt reports whether t is an integer type (bool/char/short/int/long/llong/enum).
func (t *Type) IsInt() bool {
	switch t.Kind {
	case Bool, Char, Short, Int, Long, LLong, Enum:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating type.
func (t *Type) IsFloat() bool {
	return t.Kind == Float || t.Kind == Double || t.Kind == LDouble
}

// IsArith reports whether t participates in arithmetic conversions.
func (t *Type) IsArith() bool { return t.IsInt() || t.IsFloat() }

// String renders a debug-friendly type spelling, used by diagnostics.
func (t *Type) String() string {
	switch t.Kind {
	case Ptr:
		return fmt.Sprintf("%s*", t.Elem)
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case StructUnion:
		tag := "struct"
		if !t.IsStruct {
			tag = "union"
		}
		return tag
	case Func:
		return "function"
	default:
		s := t.Kind.String()
		if t.Unsigned && t.IsInt() {
			s = "unsigned " + s
		}
		return s
	}
}

// computePadding returns the bytes needed after offset to reach the next
// multiple of align, per 8cc's compute_padding.
func computePadding(offset, align int) int {
	if align == 0 || offset%align == 0 {
		return 0
	}
	return align - offset%align
}

// RecordField is one field awaiting layout, produced by the parser before
// offsets are known (name == "" marks an anonymous nested struct/union to
// squash, per spec.md §4.4).
type RecordField struct {
	Name string
	Type *Type
}

// LayoutStruct computes field offsets/bit-offsets for a struct, in
// declaration order, per 8cc's update_struct_offset: each field aligns to
// its own natural boundary, anonymous nested structs squash their fields
// into the enclosing map with offsets added, a zero-width bit-field forces
// a new storage unit, and the final size rounds up to the struct's
// alignment.
func LayoutStruct(fields []RecordField) (*container.OrderedMap[*Field], int, int) {
	result := container.NewOrderedMap[*Field]()
	off, bitoff, align := 0, 0, 1
	finishBitfield := func() {
		off += (bitoff + 7) / 8
		bitoff = 0
	}
	for _, f := range fields {
		ft := f.Type
		if f.Name != "" {
			align = mathutil.Max(align, ft.Align)
		}
		if f.Name == "" && ft.Kind == StructUnion {
			finishBitfield()
			off += computePadding(off, ft.Align)
			squashUnnamed(result, ft, off)
			off += ft.Size
			continue
		}
		bitSize := fieldBitSize(ft)
		if bitSize == 0 {
			finishBitfield()
			off += computePadding(off, ft.Align)
			bitoff = 0
			continue
		}
		nf := &Field{Name: f.Name, Type: ft, BitSize: bitSize}
		if bitSize > 0 {
			bit := ft.Size * 8
			room := bit - (off*8+bitoff)%bit
			if bitSize <= room {
				nf.Offset = off
				nf.BitOff = bitoff
			} else {
				finishBitfield()
				off += computePadding(off, ft.Align)
				nf.Offset = off
				nf.BitOff = 0
			}
			bitoff += bitSize
		} else {
			finishBitfield()
			off += computePadding(off, ft.Align)
			nf.Offset = off
			off += ft.Size
		}
		if f.Name != "" {
			result.Put(f.Name, nf)
		}
	}
	finishBitfield()
	size := off + computePadding(off, align)
	return result, size, align
}

// LayoutUnion computes field offsets (always 0) for a union, per 8cc's
// update_union_offset.
func LayoutUnion(fields []RecordField) (*container.OrderedMap[*Field], int, int) {
	result := container.NewOrderedMap[*Field]()
	maxSize, align := 0, 1
	for _, f := range fields {
		ft := f.Type
		maxSize = mathutil.Max(maxSize, ft.Size)
		align = mathutil.Max(align, ft.Align)
		if f.Name == "" && ft.Kind == StructUnion {
			squashUnnamed(result, ft, 0)
			continue
		}
		bitSize := fieldBitSize(ft)
		nf := &Field{Name: f.Name, Type: ft, Offset: 0, BitSize: bitSize}
		if f.Name != "" {
			result.Put(f.Name, nf)
		}
	}
	size := maxSize + computePadding(maxSize, align)
	return result, size, align
}

// fieldBitSize is a hook point: non-bit-field RecordFields always report -1
// here; the parser sets an explicit BitSize via WithBitSize before layout
// when a `: width` suffix was present.
func fieldBitSize(t *Type) int {
	if t.pendingBitSize != nil {
		return *t.pendingBitSize
	}
	return -1
}

// pendingBitSize is attached to a field's *Type by the parser when it read
// a `: width` suffix, consumed by LayoutStruct/LayoutUnion above.
// It intentionally lives on Type rather than RecordField because the
// parser copies the field's type before annotating it (8cc's
// read_rectype_fields_sub does fieldtype = copy_type(fieldtype) first).
func (t *Type) WithBitSize(n int) *Type {
	c := *t
	c.pendingBitSize = &n
	return &c
}

func squashUnnamed(dst *container.OrderedMap[*Field], unnamed *Type, offset int) {
	for _, name := range unnamed.Fields.Keys() {
		f, _ := unnamed.Fields.GetLocal(name)
		cp := *f
		cp.Offset += offset
		dst.Put(name, &cp)
	}
}
