package buildsys

import "github.com/goplus/llarfbow/formula"

// BuildSystem captures shared capabilities of build helpers (CMake, etc).
// It keeps the common lifecycle and dependency/env setup; implementations add their own extras.
type BuildSystem interface {
	// Use injects an installed dependency rooted at dir into the environment.
	Use(dir string)

	// BuildDir returns where the tool writes intermediate artifacts.
	BuildDir() string

	// Env sets a variable for the build tool's processes only.
	Env(key, val string)

	// Vars hands over the resolved variables of the package.
	Vars(vars *formula.VarSet)

	// Lifecycle.
	Configure(args ...string) error
	Build(args ...string) error
	Install(args ...string) error

	// Where artifacts land.
	OutputDir() string
}
