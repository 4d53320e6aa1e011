package fbow

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goplus/llarfbow/formula"
)

// flat renders a VarSet as ordered "NAME=value" lines.
func flat(vs *formula.VarSet) []string {
	var out []string
	for _, v := range vs.Entries() {
		out = append(out, v.Name+"="+v.Value.String())
	}
	return out
}

func value(t *testing.T, vs *formula.VarSet, name string) string {
	t.Helper()
	v, ok := vs.Get(name)
	if !ok {
		t.Fatalf("%s not set", name)
	}
	return v.String()
}

var baseline = []string{
	"BUILD_UTILS=OFF",
	"BUILD_SHARED_LIBS=false",
	"CMAKE_BUILD_TYPE=Release",
	"CMAKE_CONFIGURATION_TYPES=Release",
	"CMAKE_VERBOSE_MAKEFILE=true",
}

func TestResolve_LinuxGccStaticRelease(t *testing.T) {
	p := formula.Platform{OS: formula.Linux, Compiler: "gcc", Arch: "x86_64"}
	vs := Resolver{}.Resolve(p, formula.NewOptions(formula.Linux, false, true), formula.Release)

	linker := "-Wl,--enable-new-dtags,-rpath,$ORIGIN -fuse-ld=gold"
	want := append(append([]string{}, baseline...),
		"USE_SSE3=false",
		"USE_AVX=false",
		"CMAKE_CXX_FLAGS_RELEASE=-O3 -DNDEBUG",
		"CMAKE_CXX_FLAGS_DEBUG=-g -O0",
		"CMAKE_C_FLAGS_RELEASE=-O3 -DNDEBUG",
		"CMAKE_C_FLAGS_DEBUG=-g -O0",
		"CMAKE_POSITION_INDEPENDENT_CODE=ON",
		"CMAKE_CXX_FLAGS=-DLINUX -pipe",
		"CMAKE_C_FLAGS=-DLINUX -pipe",
		"CMAKE_EXE_LINKER_FLAGS="+linker,
		"CMAKE_MODULE_LINKER_FLAGS="+linker,
		"CMAKE_SHARED_LINKER_FLAGS="+linker,
	)
	if diff := cmp.Diff(want, flat(vs)); diff != "" {
		t.Fatalf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	if v, _ := vs.Get("BUILD_SHARED_LIBS"); !v.IsBool() || v.BoolValue() {
		t.Fatalf("BUILD_SHARED_LIBS = %v, want static", v)
	}
}

func TestResolve_LinuxClang(t *testing.T) {
	p := formula.Platform{OS: formula.Linux, Compiler: "clang", Arch: "x86_64"}
	vs := Resolver{}.Resolve(p, formula.NewOptions(formula.Linux, true, false), formula.Debug)

	if got := value(t, vs, "CMAKE_CXX_COMPILER"); got != "clang++" {
		t.Errorf("CMAKE_CXX_COMPILER = %q", got)
	}
	if got := value(t, vs, "CMAKE_C_COMPILER"); got != "clang" {
		t.Errorf("CMAKE_C_COMPILER = %q", got)
	}
	for _, name := range []string{"USE_SSE3", "USE_AVX"} {
		if _, ok := vs.Get(name); ok {
			t.Errorf("%s set for clang", name)
		}
	}
	if got := value(t, vs, "CMAKE_SHARED_LINKER_FLAGS"); !strings.Contains(got, "$ORIGIN") {
		t.Errorf("CMAKE_SHARED_LINKER_FLAGS = %q, want $ORIGIN rpath", got)
	}
}

func TestResolve_LinuxOtherCompiler(t *testing.T) {
	p := formula.Platform{OS: formula.Linux, Compiler: "intel-cc"}
	vs := Resolver{}.Resolve(p, formula.DefaultOptions(formula.Linux), formula.Release)
	for _, name := range []string{"USE_SSE3", "USE_AVX", "CMAKE_CXX_COMPILER", "CMAKE_C_COMPILER"} {
		if _, ok := vs.Get(name); ok {
			t.Errorf("%s set for compiler %q", name, p.Compiler)
		}
	}
	if got := value(t, vs, "CMAKE_POSITION_INDEPENDENT_CODE"); got != "ON" {
		t.Errorf("CMAKE_POSITION_INDEPENDENT_CODE = %q", got)
	}
}

// Debug flags (-g -O0) are only added for Linux compilers; a macOS Debug
// build relies on CMAKE_BUILD_TYPE alone, so their absence here is expected.
func TestResolve_MacosArmSharedDebug(t *testing.T) {
	p := formula.Platform{OS: formula.Macos, Arch: "armv8"}
	vs := Resolver{}.Resolve(p, formula.NewOptions(formula.Macos, true, true), formula.Debug)

	want := []string{
		"BUILD_UTILS=OFF",
		"BUILD_SHARED_LIBS=true",
		"CMAKE_BUILD_TYPE=Debug",
		"CMAKE_CONFIGURATION_TYPES=Debug",
		"CMAKE_VERBOSE_MAKEFILE=true",
		"CMAKE_CXX_FLAGS=-std=c++17",
		"CMAKE_MACOSX_BUNDLE=ON",
		"CMAKE_OSX_ARCHITECTURES=arm64",
		"CMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_REQUIRED=OFF",
		"CMAKE_EXE_LINKER_FLAGS=-Wl,-rpath,@rpath",
		"CMAKE_MODULE_LINKER_FLAGS=-Wl,-rpath,@rpath",
		"CMAKE_SHARED_LINKER_FLAGS=-Wl,-rpath,@rpath",
	}
	if diff := cmp.Diff(want, flat(vs)); diff != "" {
		t.Fatalf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_MacosStatic(t *testing.T) {
	p := formula.Platform{OS: formula.Macos, Arch: "x86_64"}
	vs := Resolver{}.Resolve(p, formula.DefaultOptions(formula.Macos), formula.Release)

	if got := value(t, vs, "CMAKE_MACOSX_BUNDLE"); got != "OFF" {
		t.Errorf("CMAKE_MACOSX_BUNDLE = %q, want OFF", got)
	}
	for _, name := range append([]string{"CMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_REQUIRED"}, linkerFlagVars...) {
		if _, ok := vs.Get(name); ok {
			t.Errorf("%s set for a static macOS build", name)
		}
	}
}

func TestResolve_RpathExclusive(t *testing.T) {
	for _, os := range formula.AllOS {
		for _, shared := range []bool{false, true} {
			p := formula.Platform{OS: os, Compiler: "gcc", Arch: "armv8"}
			vs := Resolver{}.Resolve(p, formula.NewOptions(os, shared, true), formula.Release)
			var origin, rpath bool
			for _, v := range vs.Entries() {
				s := v.Value.String()
				origin = origin || strings.Contains(s, "$ORIGIN")
				rpath = rpath || strings.Contains(s, "@rpath")
			}
			if origin && rpath {
				t.Errorf("%v shared=%v: both $ORIGIN and @rpath emitted", os, shared)
			}
			if origin != (os == formula.Linux) {
				t.Errorf("%v shared=%v: $ORIGIN emitted = %v", os, shared, origin)
			}
			if rpath != (os == formula.Macos && shared) {
				t.Errorf("%v shared=%v: @rpath emitted = %v", os, shared, rpath)
			}
		}
	}
}

func TestResolve_AppleArch(t *testing.T) {
	for _, os := range []formula.OS{formula.IOS, formula.Macos} {
		for arch, want := range map[string]string{
			"armv8":  "arm64",
			"x86_64": "x86_64",
			"armv7":  "x86_64",
			"":       "x86_64",
		} {
			p := formula.Platform{OS: os, Arch: arch}
			vs := Resolver{}.Resolve(p, formula.DefaultOptions(os), formula.Release)
			if got := value(t, vs, "CMAKE_OSX_ARCHITECTURES"); got != want {
				t.Errorf("%v arch=%q: CMAKE_OSX_ARCHITECTURES = %q, want %q", os, arch, got, want)
			}
		}
	}
}

func TestResolve_IOS(t *testing.T) {
	src := filepath.Join("work", "src")
	p := formula.Platform{OS: formula.IOS, Arch: "armv8", SDK: "iphoneos"}
	vs := Resolver{SourceDir: src}.Resolve(p, formula.DefaultOptions(formula.IOS), formula.Release)

	want := append(append([]string{}, baseline...),
		"CMAKE_CXX_FLAGS=-std=c++17",
		"CMAKE_TOOLCHAIN_FILE="+filepath.Join(src, "ios.toolchain.cmake"),
		"CMAKE_OSX_ARCHITECTURES=arm64",
		"CMAKE_OSX_SYSROOT=iphoneos",
	)
	if diff := cmp.Diff(want, flat(vs)); diff != "" {
		t.Fatalf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_AndroidIgnoresArch(t *testing.T) {
	for _, arch := range []string{"armv8", "x86_64", "armv7"} {
		p := formula.Platform{OS: formula.Android, Arch: arch}
		vs := Resolver{}.Resolve(p, formula.DefaultOptions(formula.Android), formula.Release)

		want := append(append([]string{}, baseline...),
			"ANDROID_NATIVE_API_LEVEL=24",
			"ANDROID_USE_LEGACY_TOOLCHAIN_FILE=false",
			"ANDROID_ABI=arm64-v8a",
			"ANDROID_USE_CLANG=true",
		)
		if diff := cmp.Diff(want, flat(vs)); diff != "" {
			t.Fatalf("arch=%s: Resolve() mismatch (-want +got):\n%s", arch, diff)
		}
	}
}

func TestResolve_WindowsBaselineOnly(t *testing.T) {
	p := formula.Platform{OS: formula.Windows, Compiler: "gcc", Arch: "x86_64"}
	vs := Resolver{}.Resolve(p, formula.DefaultOptions(formula.Windows), formula.Release)
	if diff := cmp.Diff(baseline, flat(vs)); diff != "" {
		t.Fatalf("Resolve() mismatch (-want +got):\n%s", diff)
	}

	unknown := formula.Platform{OS: formula.OS(99)}
	vs = Resolver{}.Resolve(unknown, formula.DefaultOptions(unknown.OS), formula.Release)
	if diff := cmp.Diff(baseline, flat(vs)); diff != "" {
		t.Fatalf("unknown OS: Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	for _, os := range formula.AllOS {
		p := formula.Platform{OS: os, Compiler: "clang", Arch: "armv8", SDK: "iphonesimulator"}
		o := formula.NewOptions(os, true, true)
		r := Resolver{SourceDir: "src"}
		if a, b := r.Resolve(p, o, formula.Debug), r.Resolve(p, o, formula.Debug); !a.Equal(b) {
			t.Errorf("%v: Resolve() differs between calls:\n%v\n%v", os, flat(a), flat(b))
		}
	}
}

func TestPlatformOf_CoversAllOS(t *testing.T) {
	for _, os := range formula.AllOS {
		if _, ok := platformOf(os).(generic); ok {
			t.Errorf("platformOf(%v) falls back to the generic platform", os)
		}
	}
}
