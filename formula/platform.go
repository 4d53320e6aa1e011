package formula

import (
	"strconv"
	"strings"
)

// OS identifies the operating system a package is built for.
type OS int

const (
	Windows OS = iota + 1
	Linux
	Macos
	IOS
	Android
)

// AllOS lists every supported operating system.
var AllOS = []OS{Windows, Linux, Macos, IOS, Android}

var osNames = map[OS]string{
	Windows: "Windows",
	Linux:   "Linux",
	Macos:   "Macos",
	IOS:     "iOS",
	Android: "Android",
}

func (o OS) String() string {
	if name, ok := osNames[o]; ok {
		return name
	}
	return "OS(" + strconv.Itoa(int(o)) + ")"
}

// ParseOS parses an operating system name. Matching is case-insensitive and
// "darwin" is accepted as an alias of Macos.
func ParseOS(name string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows":
		return Windows, nil
	case "linux":
		return Linux, nil
	case "macos", "darwin":
		return Macos, nil
	case "ios":
		return IOS, nil
	case "android":
		return Android, nil
	}
	return 0, &ConfigurationError{Field: "os", Value: name, Reason: "unsupported operating system"}
}

// Platform describes the target a package is compiled for.
type Platform struct {
	OS       OS
	Compiler string // meaningful on Linux only, e.g. "gcc", "clang"
	Arch     string // e.g. "armv8", "x86_64"
	SDK      string // Apple sysroot, e.g. "iphoneos"
}

// CrossBuilding reports whether the target needs an injected cross toolchain.
func (p Platform) CrossBuilding() bool {
	return p.OS == IOS || p.OS == Android
}

// BuildType selects the compiler flag pairs of a build.
type BuildType string

const (
	Debug          BuildType = "Debug"
	Release        BuildType = "Release"
	RelWithDebInfo BuildType = "RelWithDebInfo"
	MinSizeRel     BuildType = "MinSizeRel"
)

// ParseBuildType parses a build type name, case-insensitively.
func ParseBuildType(name string) (BuildType, error) {
	for _, bt := range []BuildType{Debug, Release, RelWithDebInfo, MinSizeRel} {
		if strings.EqualFold(name, string(bt)) {
			return bt, nil
		}
	}
	return "", &ConfigurationError{Field: "build_type", Value: name, Reason: "unsupported build type"}
}

// Options holds the feature flags of a package build.
//
// Options can only be created through NewOptions, so fPIC is present exactly
// when the target is not Windows and the library is static.
type Options struct {
	shared  bool
	fpic    bool
	hasFPIC bool
}

// NewOptions returns normalized options for the given operating system.
// fPIC is dropped on Windows and for shared builds, where it has no meaning.
func NewOptions(os OS, shared, fPIC bool) Options {
	o := Options{shared: shared}
	if os != Windows && !shared {
		o.fpic = fPIC
		o.hasFPIC = true
	}
	return o
}

// DefaultOptions returns the default options: static, position independent.
func DefaultOptions(os OS) Options {
	return NewOptions(os, false, true)
}

// Shared reports whether the artifact is a dynamically linked library.
func (o Options) Shared() bool {
	return o.shared
}

// FPIC returns the fPIC value and whether the option exists at all.
func (o Options) FPIC() (value, present bool) {
	return o.fpic, o.hasFPIC
}
