package table

import (
	"testing"

	"crowbc/object"
)

func key(chars string) *object.Object {
	return object.NewString(chars, nil)
}

func TestSetAndGet(t *testing.T) {
	tbl := New()
	a := key("a")

	if !tbl.Set(a, 1) {
		t.Error("first Set of a fresh key should report isNew=true")
	}
	v, ok := tbl.Get(a)
	if !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v, want 1, true", v, ok)
	}

	if tbl.Set(a, 2) {
		t.Error("overwriting an existing key should report isNew=false")
	}
	v, _ = tbl.Get(a)
	if v != 2 {
		t.Errorf("value after overwrite = %v, want 2", v)
	}
}

func TestGetMissing(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Get(key("missing")); ok {
		t.Error("Get on an empty table should miss")
	}
}

func TestDeleteLeavesTombstone(t *testing.T) {
	tbl := New()
	// "a" and "i" hash to the same slot of an 8-slot table, so b is stored
	// in the slot after a's and every probe for b starts at a's slot.
	a, b := key("a"), key("i")
	tbl.Set(a, 1)
	tbl.Set(b, 2)

	if !tbl.Delete(a) {
		t.Fatal("Delete(a) should report found")
	}
	if _, ok := tbl.Get(a); ok {
		t.Error("deleted key should no longer be found")
	}
	// b must still be reachable: the tombstone left by deleting a must not
	// break the probe chain leading to b.
	if v, ok := tbl.Get(b); !ok || v != 2 {
		t.Errorf("Get(b) after deleting a = %v, %v, want 2, true", v, ok)
	}
}

func TestCountTracksLiveEntriesOnly(t *testing.T) {
	tbl := New()
	a, b, c := key("a"), key("b"), key("c")
	tbl.Set(a, 1)
	tbl.Set(b, 2)
	tbl.Set(c, 3)
	tbl.Delete(b)

	if got := tbl.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestGrowPreservesAllLiveEntries(t *testing.T) {
	tbl := New()
	keys := make([]*object.Object, 0, 64)
	for i := 0; i < 64; i++ {
		k := key(string(rune('a' + i%26)) + string(rune(i)))
		keys = append(keys, k)
		tbl.Set(k, i)
	}

	for i, k := range keys {
		v, ok := tbl.Get(k)
		if !ok || v != i {
			t.Errorf("after growth, Get(keys[%d]) = %v, %v, want %d, true", i, v, ok, i)
		}
	}
	if tbl.Count() != len(keys) {
		t.Errorf("Count() = %d, want %d", tbl.Count(), len(keys))
	}
}

func TestFindString(t *testing.T) {
	tbl := New()
	a := key("hello")
	tbl.Set(a, true)

	found := tbl.FindString("hello", object.HashBytes("hello"))
	if found != a {
		t.Error("FindString should return the canonical object for matching bytes")
	}

	if tbl.FindString("goodbye", object.HashBytes("goodbye")) != nil {
		t.Error("FindString should return nil for bytes never interned")
	}
}

func TestFindStringSurvivesTombstones(t *testing.T) {
	tbl := New()
	// "a" and "i" share a home slot, so finding "i" probes past a's tombstone.
	a, b := key("a"), key("i")
	tbl.Set(a, true)
	tbl.Set(b, true)
	tbl.Delete(a)

	if tbl.FindString("i", object.HashBytes("i")) != b {
		t.Error("FindString must keep probing through tombstones left by deletion")
	}
}
