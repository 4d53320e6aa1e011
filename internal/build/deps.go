package build

import (
	"github.com/goplus/llarfbow/mod/module"
)

// Locator finds the install root of a declared dependency.
type Locator interface {
	Locate(mod module.Version) (root string, ok bool)
}

// StaticLocator maps dependencies to install roots. A key is either a
// reference "path/version" or a bare module path matching any version.
type StaticLocator map[string]string

// Locate implements Locator.
func (l StaticLocator) Locate(mod module.Version) (string, bool) {
	if root, ok := l[mod.String()]; ok {
		return root, true
	}
	root, ok := l[mod.Path]
	return root, ok
}
