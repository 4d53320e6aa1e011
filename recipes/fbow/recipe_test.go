package fbow

import (
	"reflect"
	"testing"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/mod/module"
)

func TestRecipe_Requirements(t *testing.T) {
	deps := &formula.ModuleDeps{}
	New().Requirements(deps)

	want := []module.Version{{Path: "opencv", Version: "4.6.0"}}
	if got := deps.Deps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Requirements() = %v, want %v", got, want)
	}
}

func TestRecipe_Info(t *testing.T) {
	info := New().Info()
	want := formula.PackageInfo{
		CMakeFileName:   "fbow",
		CMakeTargetName: "fbow::fbow",
		Libs:            []string{"fbow"},
		LibDirs:         []string{"bin", "lib"},
		IncludeDirs:     []string{"include", "include/fbow"},
	}
	if !reflect.DeepEqual(info, want) {
		t.Fatalf("Info() = %+v, want %+v", info, want)
	}
}

func TestRecipe_DebugSymbolsDir(t *testing.T) {
	r := New()
	for _, tt := range []struct {
		o    formula.Options
		want string
	}{
		{formula.NewOptions(formula.Windows, false, false), "lib"},
		{formula.NewOptions(formula.Windows, true, false), "bin"},
		{formula.NewOptions(formula.Linux, true, true), "bin"},
		{formula.NewOptions(formula.Linux, false, true), "lib"},
	} {
		if got := r.DebugSymbolsDir(tt.o); got != tt.want {
			t.Errorf("DebugSymbolsDir(shared=%v) = %q, want %q", tt.o.Shared(), got, tt.want)
		}
	}
}

func TestRecipe_GenerateUsesSourceDir(t *testing.T) {
	p := formula.Platform{OS: formula.IOS, Arch: "armv8"}
	vs := New().Generate("/src", p, formula.DefaultOptions(formula.IOS), formula.Release)
	v, ok := vs.Get("CMAKE_TOOLCHAIN_FILE")
	if !ok || v.String() == "" {
		t.Fatalf("CMAKE_TOOLCHAIN_FILE = %v, %v", v, ok)
	}
}
