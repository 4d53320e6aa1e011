package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/internal/conandata"
	"github.com/goplus/llarfbow/x/buildsys"
)

// mockFetcher writes a minimal source tree instead of downloading.
type mockFetcher struct {
	calls int
	err   error
}

func (m *mockFetcher) Fetch(ctx context.Context, src conandata.Source, destDir string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if err := os.RemoveAll(destDir); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "CMakeLists.txt"), []byte("project(fbow)\n"), 0o644)
}

// mockPatcher records applied patches and fails on the patch named failOn.
type mockPatcher struct {
	applied []string
	failOn  string
}

func (m *mockPatcher) Apply(ctx context.Context, sourceDir string, p conandata.Patch) error {
	if p.File == m.failOn {
		return errors.New("patch does not apply")
	}
	m.applied = append(m.applied, p.File)
	return nil
}

// mockBuildSystem records the lifecycle and fakes an install tree.
type mockBuildSystem struct {
	sourceDir, buildDir, installDir string
	buildType                       formula.BuildType

	used    []string
	env     map[string]string
	vars    *formula.VarSet
	pic     *bool
	steps   []string
	failOn  string
	withPDB bool
}

var _ buildsys.BuildSystem = (*mockBuildSystem)(nil)

func (m *mockBuildSystem) Use(dir string)              { m.used = append(m.used, dir) }
func (m *mockBuildSystem) BuildDir() string            { return m.buildDir }
func (m *mockBuildSystem) Vars(vars *formula.VarSet)   { m.vars = vars }
func (m *mockBuildSystem) PositionIndependent(on bool) { m.pic = &on }
func (m *mockBuildSystem) OutputDir() string           { return m.installDir }

func (m *mockBuildSystem) Env(key, val string) {
	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = val
}

func (m *mockBuildSystem) step(name string) error {
	m.steps = append(m.steps, name)
	if name == m.failOn {
		return errors.New(name + " failed: see log")
	}
	return nil
}

func (m *mockBuildSystem) Configure(args ...string) error {
	return m.step("configure")
}

func (m *mockBuildSystem) Build(args ...string) error {
	if err := m.step("build"); err != nil {
		return err
	}
	if !m.withPDB {
		return nil
	}
	dir := filepath.Join(m.buildDir, "bin", string(m.buildType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "fbow.pdb"), []byte("pdb"), 0o644)
}

func (m *mockBuildSystem) Install(args ...string) error {
	if err := m.step("install"); err != nil {
		return err
	}
	dir := filepath.Join(m.installDir, "include", "fbow")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "fbow.h"), []byte("#pragma once\n"), 0o644); err != nil {
		return err
	}
	lib := filepath.Join(m.installDir, "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(lib, "libfbow.a"), nil, 0o644)
}

// mockFactory hands out mockBuildSystems and remembers them.
type mockFactory struct {
	created []*mockBuildSystem
	failOn  string
	withPDB bool
}

func (f *mockFactory) New(sourceDir, buildDir, installDir string, bt formula.BuildType) buildsys.BuildSystem {
	m := &mockBuildSystem{
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		buildType:  bt,
		failOn:     f.failOn,
		withPDB:    f.withPDB,
	}
	f.created = append(f.created, m)
	return m
}
