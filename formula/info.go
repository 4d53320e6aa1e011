package formula

import "slices"

// PackageInfo is the metadata a package advertises to its consumers.
type PackageInfo struct {
	CMakeFileName   string   `json:"cmake_file_name"`
	CMakeTargetName string   `json:"cmake_target_name"`
	Libs            []string `json:"libs"`
	LibDirs         []string `json:"libdirs"`
	IncludeDirs     []string `json:"includedirs"`
}

// NewPackageInfo returns metadata with the default include directory.
func NewPackageInfo() PackageInfo {
	return PackageInfo{IncludeDirs: []string{"include"}}
}

// Clone returns a deep copy of p.
func (p PackageInfo) Clone() PackageInfo {
	p.Libs = slices.Clone(p.Libs)
	p.LibDirs = slices.Clone(p.LibDirs)
	p.IncludeDirs = slices.Clone(p.IncludeDirs)
	return p
}
