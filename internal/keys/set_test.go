package keys

import (
	"reflect"
	"testing"
)

func TestSetAddRemove(t *testing.T) {
	var s Set
	if !s.Add(Control) {
		t.Fatal("first Add(Control) should report insertion")
	}
	if s.Add(Control) {
		t.Fatal("duplicate Add(Control) should report no insertion")
	}
	s.Add("K")
	s.Add(Shift)

	if got, want := s.Names(), []Name{Control, "K", Shift}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if !s.Remove("K") {
		t.Fatal("Remove(K) should report removal")
	}
	if s.Remove("K") {
		t.Fatal("second Remove(K) should report nothing removed")
	}
	if got, want := s.Names(), []Name{Control, Shift}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() after remove = %v, want %v", got, want)
	}
	if s.Len() != 2 || !s.Has(Shift) || s.Has("K") {
		t.Fatalf("unexpected set state: len=%d names=%v", s.Len(), s.Names())
	}
}

func TestSetClear(t *testing.T) {
	var s Set
	s.Add("A")
	s.Add("B")
	s.Clear()
	if s.Len() != 0 || s.Has("A") {
		t.Fatalf("Clear() left %v", s.Names())
	}
	// Re-adding after clear must work on the reset map.
	if !s.Add("A") {
		t.Fatal("Add after Clear should insert")
	}
}

func TestSetNamesReturnsCopy(t *testing.T) {
	var s Set
	s.Add("A")
	names := s.Names()
	names[0] = "Z"
	if !s.Has("A") || s.Names()[0] != "A" {
		t.Fatal("Names() must not expose internal storage")
	}
}

func TestSetRemoveOnZeroValue(t *testing.T) {
	var s Set
	if s.Remove("A") {
		t.Fatal("Remove on zero Set should report false")
	}
}
