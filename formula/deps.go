package formula

import (
	"slices"

	"github.com/goplus/llarfbow/mod/module"
)

// ModuleDeps represents the dependencies of a module.
type ModuleDeps struct {
	deps []module.Version
}

// Deps returns the collected module dependencies.
func (p *ModuleDeps) Deps() []module.Version {
	return slices.Clone(p.deps)
}

// Require declares that the module being built depends on the specified
// module (by its path and version).
func (p *ModuleDeps) Require(path, ver string) {
	p.deps = append(p.deps, module.Version{Path: path, Version: ver})
}
