package container

// Vector is a small growable-array wrapper matching 8cc's vector.c API
// (push/pop/get/set/len), for call sites that want those named operations
// rather than raw slice indexing. The parser's pending-goto list and the
// preprocessor's macro-argument lists are plain slices, not Vectors.
type Vector[T any] struct {
	body []T
}

// NewVector creates an empty vector.
func NewVector[T any]() *Vector[T] { return &Vector[T]{} }

// Push appends e.
func (v *Vector[T]) Push(e T) { v.body = append(v.body, e) }

// Pop removes and returns the last element. Panics if empty.
func (v *Vector[T]) Pop() T {
	n := len(v.body) - 1
	e := v.body[n]
	v.body = v.body[:n]
	return e
}

// Len returns the element count.
func (v *Vector[T]) Len() int { return len(v.body) }

// Get returns the element at i.
func (v *Vector[T]) Get(i int) T { return v.body[i] }

// Set overwrites the element at i.
func (v *Vector[T]) Set(i int, e T) { v.body[i] = e }

// Last returns the last element. Panics if empty.
func (v *Vector[T]) Last() T { return v.body[len(v.body)-1] }

// Empty reports whether the vector has no elements.
func (v *Vector[T]) Empty() bool { return len(v.body) == 0 }

// Slice returns the underlying elements; callers must not retain it across
// further Push calls that might reallocate.
func (v *Vector[T]) Slice() []T { return v.body }
