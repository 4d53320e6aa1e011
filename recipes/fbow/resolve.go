// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fbow

import (
	"path/filepath"

	"github.com/goplus/llarfbow/formula"
)

const (
	// AndroidAPILevel is the minimum Android platform the library targets.
	AndroidAPILevel = "24"
	// AndroidABI is the only ABI built for Android; the arch setting is
	// not consulted.
	AndroidABI = "arm64-v8a"

	// IOSToolchainFile is the exported cross toolchain, relative to the
	// source tree.
	IOSToolchainFile = "ios.toolchain.cmake"

	linuxLinkerFlags = "-Wl,--enable-new-dtags,-rpath,$ORIGIN -fuse-ld=gold"
	macosLinkerFlags = "-Wl,-rpath,@rpath"
)

var linkerFlagVars = []string{
	"CMAKE_EXE_LINKER_FLAGS",
	"CMAKE_MODULE_LINKER_FLAGS",
	"CMAKE_SHARED_LINKER_FLAGS",
}

// Resolver computes the CMake variables of an fbow build.
type Resolver struct {
	// SourceDir is the unpacked source tree; exported toolchain files live
	// there.
	SourceDir string
}

// Resolve returns the variables for building on p with options o and build
// type bt. It has no side effects and never fails.
func (r Resolver) Resolve(p formula.Platform, o formula.Options, bt formula.BuildType) *formula.VarSet {
	vs := formula.NewVarSet()
	vs.Set("BUILD_UTILS", "OFF")
	vs.SetBool("BUILD_SHARED_LIBS", o.Shared())
	vs.Set("CMAKE_BUILD_TYPE", string(bt))
	vs.Set("CMAKE_CONFIGURATION_TYPES", string(bt))
	vs.SetBool("CMAKE_VERBOSE_MAKEFILE", true)

	platformOf(p.OS).configure(vs, target{Platform: p, opts: o, sourceDir: r.SourceDir})
	return vs
}

type target struct {
	formula.Platform
	opts      formula.Options
	sourceDir string
}

// platform adds the variables specific to one operating system.
type platform interface {
	configure(vs *formula.VarSet, t target)
}

// platformOf maps every formula.OS to its platform. Values outside the
// enumeration get the baseline only.
func platformOf(os formula.OS) platform {
	switch os {
	case formula.Windows:
		return windows{}
	case formula.Linux:
		return linux{}
	case formula.Macos:
		return macos{}
	case formula.IOS:
		return ios{}
	case formula.Android:
		return android{}
	}
	return generic{}
}

type generic struct{}

func (generic) configure(*formula.VarSet, target) {}

type windows struct{}

func (windows) configure(*formula.VarSet, target) {}

type android struct{}

func (android) configure(vs *formula.VarSet, _ target) {
	vs.Set("ANDROID_NATIVE_API_LEVEL", AndroidAPILevel)
	vs.SetBool("ANDROID_USE_LEGACY_TOOLCHAIN_FILE", false)
	vs.Set("ANDROID_ABI", AndroidABI)
	vs.SetBool("ANDROID_USE_CLANG", true)
}

type linux struct{}

func (linux) configure(vs *formula.VarSet, t target) {
	switch t.Compiler {
	case "clang":
		vs.Set("CMAKE_CXX_COMPILER", "clang++")
		vs.Set("CMAKE_C_COMPILER", "clang")
	case "gcc":
		// gcc builds target Jetson-class boards without SSE3/AVX.
		vs.SetBool("USE_SSE3", false)
		vs.SetBool("USE_AVX", false)
	}
	vs.Set("CMAKE_CXX_FLAGS_RELEASE", "-O3 -DNDEBUG")
	vs.Set("CMAKE_CXX_FLAGS_DEBUG", "-g -O0")
	vs.Set("CMAKE_C_FLAGS_RELEASE", "-O3 -DNDEBUG")
	vs.Set("CMAKE_C_FLAGS_DEBUG", "-g -O0")
	vs.Set("CMAKE_POSITION_INDEPENDENT_CODE", "ON")
	vs.Set("CMAKE_CXX_FLAGS", "-DLINUX -pipe")
	vs.Set("CMAKE_C_FLAGS", "-DLINUX -pipe")
	for _, name := range linkerFlagVars {
		vs.Set(name, linuxLinkerFlags)
	}
}

type ios struct{}

func (ios) configure(vs *formula.VarSet, t target) {
	vs.Set("CMAKE_CXX_FLAGS", "-std=c++17")
	vs.Set("CMAKE_TOOLCHAIN_FILE", filepath.Join(t.sourceDir, IOSToolchainFile))
	vs.Set("CMAKE_OSX_ARCHITECTURES", appleArch(t.Arch))
	vs.Set("CMAKE_OSX_SYSROOT", t.SDK)
}

type macos struct{}

func (macos) configure(vs *formula.VarSet, t target) {
	vs.Set("CMAKE_CXX_FLAGS", "-std=c++17")
	vs.Set("CMAKE_MACOSX_BUNDLE", "OFF")
	vs.Set("CMAKE_OSX_ARCHITECTURES", appleArch(t.Arch))
	if !t.opts.Shared() {
		return
	}
	vs.Set("CMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_REQUIRED", "OFF")
	vs.Set("CMAKE_MACOSX_BUNDLE", "ON")
	for _, name := range linkerFlagVars {
		vs.Set(name, macosLinkerFlags)
	}
}

func appleArch(arch string) string {
	if arch == "armv8" {
		return "arm64"
	}
	return "x86_64"
}
