// Package build runs the packaging pipeline of a recipe: retrieve the
// sources, apply patches, configure, compile, install and record metadata.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/qiniu/x/log"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/internal/conandata"
	"github.com/goplus/llarfbow/internal/env"
	"github.com/goplus/llarfbow/internal/patch"
	"github.com/goplus/llarfbow/internal/source"
	"github.com/goplus/llarfbow/mod/module"
	"github.com/goplus/llarfbow/x/buildsys"
	"github.com/goplus/llarfbow/x/cmake"
)

// Recipe is what the pipeline needs to know about a package.
type Recipe interface {
	Name() string
	Exports() []string
	Requirements(deps *formula.ModuleDeps)
	Generate(sourceDir string, p formula.Platform, o formula.Options, bt formula.BuildType) *formula.VarSet
	DebugSymbolsDir(o formula.Options) string
	Info() formula.PackageInfo
}

// Fetcher retrieves and unpacks the source archive of a version.
type Fetcher interface {
	Fetch(ctx context.Context, src conandata.Source, destDir string) error
}

// Patcher applies one patch to a source tree.
type Patcher interface {
	Apply(ctx context.Context, sourceDir string, p conandata.Patch) error
}

// NewBuildSystemFunc creates the build system driving one build.
type NewBuildSystemFunc func(sourceDir, buildDir, installDir string, bt formula.BuildType) buildsys.BuildSystem

// Options configures a Builder.
type Options struct {
	Recipe Recipe
	Data   *conandata.Data

	// RecipeDir holds the exported files and the patches directory.
	RecipeDir string
	// WorkspaceDir defaults to env.WorkspaceDir().
	WorkspaceDir string

	Fetcher        Fetcher            // defaults to source.NewFetcher()
	Patcher        Patcher            // defaults to patch.New(RecipeDir)
	NewBuildSystem NewBuildSystemFunc // defaults to CMake
	Locator        Locator            // optional

	// Generator selects the CMake generator of the default build system.
	Generator string

	// Env is set for the build tool processes only.
	Env map[string]string

	// Stdout and Stderr receive the build tool output; nil discards it.
	Stdout, Stderr io.Writer
}

// Request selects what to build.
type Request struct {
	Version   string
	Platform  formula.Platform
	Options   formula.Options
	BuildType formula.BuildType
	// Force rebuilds even when the cache holds a result.
	Force bool
}

// Result describes an installed package.
type Result struct {
	Version   string
	Matrix    string
	OutputDir string
	Info      formula.PackageInfo
	Deps      []module.Version
	// Vars is nil when the result came from the cache.
	Vars   *formula.VarSet
	Cached bool
}

// Builder runs the packaging pipeline.
type Builder struct {
	recipe         Recipe
	data           *conandata.Data
	recipeDir      string
	workspaceDir   string
	fetcher        Fetcher
	patcher        Patcher
	newBuildSystem NewBuildSystemFunc
	locator        Locator
	generator      string
	env            map[string]string
	stdout, stderr io.Writer
}

// NewBuilder creates a Builder from opts.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Recipe == nil {
		return nil, errors.New("build: no recipe")
	}
	if opts.Data == nil {
		return nil, errors.New("build: no package data")
	}
	b := &Builder{
		recipe:         opts.Recipe,
		data:           opts.Data,
		recipeDir:      opts.RecipeDir,
		workspaceDir:   opts.WorkspaceDir,
		fetcher:        opts.Fetcher,
		patcher:        opts.Patcher,
		newBuildSystem: opts.NewBuildSystem,
		locator:        opts.Locator,
		generator:      opts.Generator,
		env:            opts.Env,
		stdout:         opts.Stdout,
		stderr:         opts.Stderr,
	}
	if b.workspaceDir == "" {
		dir, err := env.WorkspaceDir()
		if err != nil {
			return nil, err
		}
		b.workspaceDir = dir
	}
	if b.fetcher == nil {
		b.fetcher = source.NewFetcher()
	}
	if b.patcher == nil {
		b.patcher = patch.New(b.recipeDir)
	}
	if b.newBuildSystem == nil {
		b.newBuildSystem = b.cmake
	}
	if b.stdout == nil {
		b.stdout = io.Discard
	}
	if b.stderr == nil {
		b.stderr = io.Discard
	}
	return b, nil
}

func (b *Builder) cmake(sourceDir, buildDir, installDir string, bt formula.BuildType) buildsys.BuildSystem {
	c := cmake.New(sourceDir, buildDir, installDir)
	c.BuildType(string(bt))
	if b.generator != "" {
		c.Generator(b.generator)
	}
	c.Output(b.stdout, b.stderr)
	return c
}

// Build packages one version for one configuration. A cached result is
// returned unless req.Force is set.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	src, err := b.validate(req)
	if err != nil {
		return nil, err
	}
	m := formula.MatrixOf(req.Platform, req.Options, req.BuildType)
	matrix := m.String()
	installDir, err := b.versionDir(req.Version, "-"+matrixDir(matrix))
	if err != nil {
		return nil, err
	}
	versionDir, err := b.versionDir(req.Version, "")
	if err != nil {
		return nil, err
	}
	// Every configuration of a version patches the same source tree.
	unlock, err := lockPath(versionDir + ".lock")
	if err != nil {
		return nil, err
	}
	defer unlock()

	deps := &formula.ModuleDeps{}
	b.recipe.Requirements(deps)

	cache, err := b.loadCache()
	if err != nil {
		log.Warnf("ignore build cache of %s: %v", b.recipe.Name(), err)
		cache = &buildCache{}
	}
	if !req.Force {
		if entry, ok := cache.get(req.Version, matrix); ok && exists(installDir) {
			log.Infof("%s@%s (%s) is up to date", b.recipe.Name(), req.Version, matrix)
			return &Result{
				Version:   req.Version,
				Matrix:    matrix,
				OutputDir: installDir,
				Info:      entry.Info,
				Deps:      deps.Deps(),
				Cached:    true,
			}, nil
		}
	}

	sourceDir := filepath.Join(versionDir, "src")
	buildDir := installDir + ".build"

	// 1. retrieve
	log.Infof("fetching %s@%s", b.recipe.Name(), req.Version)
	if err := b.fetcher.Fetch(ctx, src, sourceDir); err != nil {
		return nil, &RetrievalError{Version: req.Version, Err: err}
	}
	if err := b.copyExports(sourceDir, req.Platform.CrossBuilding()); err != nil {
		return nil, &RetrievalError{Version: req.Version, Err: err}
	}

	// 2. patch, in declaration order; the first failure stops the pipeline.
	for i, p := range b.data.PatchesOf(req.Version) {
		if err := b.patcher.Apply(ctx, sourceDir, p); err != nil {
			return nil, &PatchApplicationError{Patch: p.File, Index: i, Err: err}
		}
	}

	// 3. generate
	if err := os.RemoveAll(buildDir); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(installDir); err != nil {
		return nil, err
	}
	vars := b.recipe.Generate(sourceDir, req.Platform, req.Options, req.BuildType)
	bs := b.newBuildSystem(sourceDir, buildDir, installDir, req.BuildType)
	if fpic, ok := req.Options.FPIC(); ok {
		if pic, ok := bs.(interface{ PositionIndependent(bool) }); ok {
			pic.PositionIndependent(fpic)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(b.env)) {
		bs.Env(key, b.env[key])
	}
	for _, dep := range deps.Deps() {
		b.use(bs, dep)
	}
	bs.Vars(vars)

	// 4. build
	log.Infof("building %s@%s (%s)", b.recipe.Name(), req.Version, matrix)
	if err := bs.Configure(); err != nil {
		return nil, &BuildError{Step: "configure", Err: err}
	}
	if err := bs.Build(); err != nil {
		return nil, &BuildError{Step: "build", Err: err}
	}

	// 5. package
	if err := bs.Install(); err != nil {
		return nil, &BuildError{Step: "install", Err: err}
	}
	pdbDir := filepath.Join(bs.BuildDir(), "bin", string(req.BuildType))
	if err := copyGlob(pdbDir, "*.pdb", filepath.Join(installDir, b.recipe.DebugSymbolsDir(req.Options))); err != nil {
		return nil, &BuildError{Step: "install", Err: err}
	}

	// 6. metadata
	info := b.recipe.Info()
	if err := writePackageFile(installDir, info); err != nil {
		return nil, err
	}
	entry := &buildEntry{
		Info:      info,
		Vars:      flatten(vars),
		BuildTime: time.Now(),
	}
	if err := b.record(req.Version, matrix, entry); err != nil {
		log.Warnf("save build cache of %s: %v", b.recipe.Name(), err)
	}
	log.Infof("installed %s@%s to %s", b.recipe.Name(), req.Version, installDir)

	return &Result{
		Version:   req.Version,
		Matrix:    matrix,
		OutputDir: installDir,
		Info:      info,
		Deps:      deps.Deps(),
		Vars:      vars,
	}, nil
}

// validate rejects a request before anything is downloaded or spawned.
func (b *Builder) validate(req Request) (conandata.Source, error) {
	if _, err := formula.ParseOS(req.Platform.OS.String()); err != nil {
		return conandata.Source{}, err
	}
	if _, err := formula.ParseBuildType(string(req.BuildType)); err != nil {
		return conandata.Source{}, err
	}
	src, err := b.data.Source(req.Version)
	if err != nil {
		return conandata.Source{}, &formula.ConfigurationError{Field: "version", Value: req.Version, Reason: err.Error()}
	}
	return src, nil
}

func (b *Builder) use(bs buildsys.BuildSystem, dep module.Version) {
	if b.locator != nil {
		if root, ok := b.locator.Locate(dep); ok {
			log.Debugf("using %s from %s", dep, root)
			bs.Use(root)
			return
		}
	}
	log.Warnf("%s is not provided; relying on the system search path", dep)
}

// copyExports copies the recipe's exported files into the source tree.
// Cross builds depend on the exported toolchains, so a missing file is an
// error for them.
func (b *Builder) copyExports(sourceDir string, cross bool) error {
	if b.recipeDir == "" {
		return nil
	}
	for _, name := range b.recipe.Exports() {
		src := filepath.Join(b.recipeDir, name)
		if !exists(src) {
			if cross {
				return fmt.Errorf("export %s not found in %s", name, b.recipeDir)
			}
			log.Warnf("export %s not found in %s", name, b.recipeDir)
			continue
		}
		if err := copyFile(src, filepath.Join(sourceDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// copyGlob copies the files of srcDir matching pattern into destDir.
// A missing srcDir is not an error.
func copyGlob(srcDir, pattern, destDir string) error {
	matches, err := filepath.Glob(filepath.Join(srcDir, pattern))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := copyFile(m, filepath.Join(destDir, filepath.Base(m))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return !errors.Is(err, fs.ErrNotExist)
}

func flatten(vs *formula.VarSet) []string {
	out := make([]string, 0, vs.Len())
	for _, v := range vs.Entries() {
		out = append(out, v.Name+"="+v.Value.String())
	}
	return out
}
