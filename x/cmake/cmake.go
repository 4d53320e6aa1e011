// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/x/buildsys"
)

// VarsFile is the initial-cache script written into the build directory.
const VarsFile = "llar_vars.cmake"

// CMake drives CMake-based builds.
type CMake struct {
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	defines    map[string]string
	env        map[string]string
	vars       *formula.VarSet
	pic        *bool
	stdout     io.Writer
	stderr     io.Writer
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		defines:    make(map[string]string),
		env:        make(map[string]string),
	}
}

// BuildDir returns the binary directory.
func (c *CMake) BuildDir() string { return c.buildDir }

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Output redirects the tool's stdout and stderr. Nil writers fall back to
// the process streams at run time.
func (c *CMake) Output(stdout, stderr io.Writer) {
	c.stdout, c.stderr = stdout, stderr
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = value
}

// Vars sets the package variables. They are written in order to VarsFile
// and loaded with -C, so a variable may override a generic default.
func (c *CMake) Vars(vars *formula.VarSet) { c.vars = vars }

// PositionIndependent mirrors the fPIC option. It is emitted before the
// package variables.
func (c *CMake) PositionIndependent(on bool) { c.pic = &on }

// Env sets an environment variable for the cmake processes.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Use configures the build environment so that CMake and compilers find
// headers, libraries and pkg-config files from a non-system dependency
// installed at root.
func (c *CMake) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if _, err := os.Stat(pkgconfigDir); err == nil {
		c.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	c.prependPath("CMAKE_PREFIX_PATH", root)
	if _, err := os.Stat(includeDir); err == nil {
		c.prependPath("CMAKE_INCLUDE_PATH", includeDir)
	}
	if _, err := os.Stat(libDir); err == nil {
		c.prependPath("CMAKE_LIBRARY_PATH", libDir)
	}

	if runtime.GOOS == "windows" {
		if _, err := os.Stat(includeDir); err == nil {
			c.prependPath("INCLUDE", includeDir)
		}
		if _, err := os.Stat(libDir); err == nil {
			c.prependPath("LIB", libDir)
		}
	} else {
		if _, err := os.Stat(includeDir); err == nil {
			c.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if _, err := os.Stat(libDir); err == nil {
			c.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	if c.vars != nil || c.pic != nil {
		script := filepath.Join(c.buildDir, VarsFile)
		if err := os.WriteFile(script, c.varsScript(), 0o644); err != nil {
			return err
		}
	}
	return c.run("cmake", append(c.configureArgs(), args...))
}

func (c *CMake) configureArgs() []string {
	args := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	if c.vars != nil || c.pic != nil {
		args = append(args, "-C", filepath.Join(c.buildDir, VarsFile))
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	return append(args, c.definesArgs()...)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run("cmake", cmakeArgs)
}

// Install runs "cmake --install <build>" with optional extra arguments.
func (c *CMake) Install(args ...string) error {
	cmakeArgs := []string{"--install", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", c.installDir)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.run("cmake", cmakeArgs)
}

// OutputDir returns installDir if set, otherwise buildDir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

// ExecError reports a failed cmake invocation together with what the tool
// wrote to stderr.
type ExecError struct {
	Cmd    string
	Args   []string
	Stderr []byte
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Cmd, strings.Join(e.Args, " "), e.Err)
	if out := bytes.TrimSpace(e.Stderr); len(out) > 0 {
		msg += "\n" + string(out)
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

func (c *CMake) run(name string, args []string) error {
	stdout, stderr := c.stdout, c.stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	var captured bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, &captured)
	if len(c.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.env)
	}
	if err := cmd.Run(); err != nil {
		return &ExecError{Cmd: name, Args: args, Stderr: captured.Bytes(), Err: err}
	}
	return nil
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, "-D"+k+":STRING="+c.defines[k])
	}
	return args
}

// varsScript renders the initial-cache script: the generic fPIC block first,
// then the package variables in order.
func (c *CMake) varsScript() []byte {
	var b bytes.Buffer
	b.WriteString("# Generated by llar. Do not edit.\n")
	if c.pic != nil {
		fmt.Fprintf(&b, "set(CMAKE_POSITION_INDEPENDENT_CODE %s CACHE BOOL \"\" FORCE)\n", onOff(*c.pic))
	}
	if c.vars != nil {
		for _, v := range c.vars.Entries() {
			if v.Value.IsBool() {
				fmt.Fprintf(&b, "set(%s %s CACHE BOOL \"\" FORCE)\n", v.Name, onOff(v.Value.BoolValue()))
				continue
			}
			fmt.Fprintf(&b, "set(%s \"%s\" CACHE STRING \"\" FORCE)\n", v.Name, escape(v.Value.String()))
		}
	}
	return b.Bytes()
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`)

// escape quotes s for a CMake quoted argument.
func escape(s string) string {
	return escaper.Replace(s)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// lookup returns the value of key as the cmake processes will see it.
func (c *CMake) lookup(key string) string {
	if v, ok := c.env[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// prependPath prepends value to a PATH-style env var.
func (c *CMake) prependPath(key, value string) {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	if cur := c.lookup(key); cur != "" {
		value += sep + cur
	}
	c.env[key] = value
}

// appendFlag appends a space-separated flag to an env var.
func (c *CMake) appendFlag(key, flag string) {
	if cur := c.lookup(key); cur != "" {
		flag = cur + " " + flag
	}
	c.env[key] = flag
}
