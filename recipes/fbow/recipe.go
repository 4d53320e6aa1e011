// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fbow is the recipe of the fbow bag-of-words library
// (https://github.com/Hexagon-HTC/fbow.git).
package fbow

import (
	"path"

	"github.com/goplus/llarfbow/formula"
)

const (
	Name        = "fbow"
	License     = "MIT"
	Description = "A C++ library for indexing and converting images into a bag-of-word representation."
	URL         = "https://github.com/Hexagon-HTC/fbow.git"
)

// OpenCV is the dependency every fbow build declares.
const (
	OpenCVPath    = "opencv"
	OpenCVVersion = "4.6.0"
)

// Recipe describes how fbow is configured, built and consumed.
type Recipe struct{}

// New returns the fbow recipe.
func New() *Recipe {
	return &Recipe{}
}

// Name returns the package name.
func (*Recipe) Name() string {
	return Name
}

// Exports lists the toolchain files shipped alongside the recipe and copied
// into the source tree before building.
func (*Recipe) Exports() []string {
	return []string{
		IOSToolchainFile,
		"android_toolchain.cmake",
		"xcodebuild_wrapper.in",
	}
}

// Requirements declares the dependencies of fbow.
func (*Recipe) Requirements(deps *formula.ModuleDeps) {
	deps.Require(OpenCVPath, OpenCVVersion)
}

// Generate resolves the CMake variables for a build rooted at sourceDir.
func (*Recipe) Generate(sourceDir string, p formula.Platform, o formula.Options, bt formula.BuildType) *formula.VarSet {
	return Resolver{SourceDir: sourceDir}.Resolve(p, o, bt)
}

// DebugSymbolsDir returns the install subdirectory receiving *.pdb files:
// next to the library for static builds, next to the DLL for shared ones.
func (*Recipe) DebugSymbolsDir(o formula.Options) string {
	if o.Shared() {
		return "bin"
	}
	return "lib"
}

// Info returns the metadata advertised to consumers. Shared builds install
// to bin and static builds to lib, so both are searched.
func (*Recipe) Info() formula.PackageInfo {
	info := formula.NewPackageInfo()
	info.CMakeFileName = Name
	info.CMakeTargetName = Name + "::" + Name
	info.Libs = []string{Name}
	info.LibDirs = []string{"bin", "lib"}
	info.IncludeDirs = append(info.IncludeDirs, path.Join("include", Name))
	return info
}
