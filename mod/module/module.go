// Package module defines the module.Version type along with support code.
package module

import "path/filepath"

// A Version (for clients, a module.Version) represents a specific version
// of a module identified by its path.
type Version struct {
	Path    string // Module path, e.g. "opencv" or "owner/repo"
	Version string // Version string (e.g., "4.6.0")
}

// String returns the reference form "path/version".
func (v Version) String() string {
	return v.Path + "/" + v.Version
}

// EscapePath returns the escaped form of the given module path as a valid
// file system path. It fails if the module path is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
