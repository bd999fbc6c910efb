package container

import "testing"

func TestHidesetAddIsIdempotent(t *testing.T) {
	var h *Hideset
	h = h.Add("FOO")
	h2 := h.Add("FOO")
	if h2 != h {
		t.Fatalf("Add of an already-present name should return the same set")
	}
	if !h.Has("FOO") {
		t.Fatal("Has(FOO) = false after Add")
	}
	if h.Has("BAR") {
		t.Fatal("Has(BAR) = true, want false")
	}
}

func TestHidesetAddSharesTail(t *testing.T) {
	var base *Hideset
	base = base.Add("A")
	left := base.Add("B")
	right := base.Add("C")
	if !left.Has("A") || !left.Has("B") || left.Has("C") {
		t.Fatalf("left set wrong: %v", left)
	}
	if !right.Has("A") || !right.Has("C") || right.Has("B") {
		t.Fatalf("right set wrong: %v", right)
	}
	if !base.Has("A") || base.Has("B") || base.Has("C") {
		t.Fatalf("base set mutated by branching Add calls: %v", base)
	}
}

func TestHidesetUnion(t *testing.T) {
	var a, b *Hideset
	a = a.Add("X").Add("Y")
	b = b.Add("Y").Add("Z")
	u := Union(a, b)
	for _, name := range []string{"X", "Y", "Z"} {
		if !u.Has(name) {
			t.Fatalf("Union missing %s", name)
		}
	}
}

func TestHidesetIntersect(t *testing.T) {
	var a, b *Hideset
	a = a.Add("X").Add("Y")
	b = b.Add("Y").Add("Z")
	in := Intersect(a, b)
	if !in.Has("Y") {
		t.Fatal("Intersect missing Y")
	}
	if in.Has("X") || in.Has("Z") {
		t.Fatalf("Intersect has a name not common to both sets: %v", in)
	}
}

func TestOrderedMapScopedLookup(t *testing.T) {
	global := NewOrderedMap[int]()
	global.Put("x", 1)
	local := NewChildMap(global)
	local.Put("y", 2)

	if v, ok := local.Get("x"); !ok || v != 1 {
		t.Fatalf("Get(x) from child = %v, %v, want 1, true", v, ok)
	}
	if v, ok := local.Get("y"); !ok || v != 2 {
		t.Fatalf("Get(y) = %v, %v, want 2, true", v, ok)
	}
	if _, ok := global.Get("y"); ok {
		t.Fatal("parent scope should not see child-only key y")
	}
	if _, ok := local.GetLocal("x"); ok {
		t.Fatal("GetLocal(x) should not walk to the parent scope")
	}
}

func TestOrderedMapShadowing(t *testing.T) {
	global := NewOrderedMap[int]()
	global.Put("x", 1)
	local := NewChildMap(global)
	local.Put("x", 99)

	if v, _ := local.Get("x"); v != 99 {
		t.Fatalf("inner scope's x = %d, want 99 (shadowing outer)", v)
	}
	if v, _ := global.Get("x"); v != 1 {
		t.Fatalf("outer scope's x changed to %d, want unchanged 1", v)
	}
}

func TestOrderedMapKeysPreserveInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Put("c", 3)
	m.Put("a", 1)
	m.Put("b", 2)
	got := m.Keys()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestOrderedMapRemove(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Remove("a")
	if _, ok := m.GetLocal("a"); ok {
		t.Fatal("a should be gone after Remove")
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	m.Remove("nonexistent") // must not panic
}

func TestVectorPushPop(t *testing.T) {
	v := NewVector[int]()
	if !v.Empty() {
		t.Fatal("new vector should be empty")
	}
	v.Push(1)
	v.Push(2)
	v.Push(3)
	if v.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", v.Len())
	}
	if v.Last() != 3 {
		t.Fatalf("Last() = %d, want 3", v.Last())
	}
	if got := v.Pop(); got != 3 {
		t.Fatalf("Pop() = %d, want 3", got)
	}
	if v.Len() != 2 {
		t.Fatalf("Len() after Pop = %d, want 2", v.Len())
	}
	v.Set(0, 10)
	if v.Get(0) != 10 {
		t.Fatalf("Get(0) after Set = %d, want 10", v.Get(0))
	}
}
