package formula

import (
	"reflect"
	"testing"
)

func TestVarSet_Order(t *testing.T) {
	vs := NewVarSet()
	vs.Set("A", "1")
	vs.SetBool("B", true)
	vs.Set("C", "3")

	if got, want := vs.Keys(), []string{"A", "B", "C"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	v, ok := vs.Get("B")
	if !ok || !v.IsBool() || !v.BoolValue() {
		t.Fatalf("Get(B) = %#v, %v", v, ok)
	}
	if v.String() != "true" {
		t.Errorf("Get(B).String() = %q, want %q", v.String(), "true")
	}
}

func TestVarSet_ReassignKeepsPosition(t *testing.T) {
	vs := NewVarSet()
	vs.Set("BUNDLE", "OFF")
	vs.Set("ARCH", "arm64")
	vs.Set("BUNDLE", "ON")

	if vs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", vs.Len())
	}
	entries := vs.Entries()
	if entries[0].Name != "BUNDLE" || entries[0].Value.String() != "ON" {
		t.Fatalf("Entries()[0] = %+v, want BUNDLE=ON", entries[0])
	}
}

func TestVarSet_Equal(t *testing.T) {
	a, b := NewVarSet(), NewVarSet()
	a.Set("X", "1")
	b.Set("X", "1")
	if !a.Equal(b) {
		t.Fatal("Equal() = false for identical sets")
	}
	b.SetBool("X", true)
	if a.Equal(b) {
		t.Fatal("Equal() = true for string vs bool value")
	}
}

func TestVarSet_ZeroValue(t *testing.T) {
	var vs VarSet
	vs.Set("K", "v")
	if v, ok := vs.Get("K"); !ok || v.String() != "v" {
		t.Fatalf("Get(K) = %v, %v", v, ok)
	}
	if _, ok := vs.Get("missing"); ok {
		t.Fatal("Get(missing) ok = true")
	}
}
