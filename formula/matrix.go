// Package formula defines the data a package recipe works on: the target
// platform, normalized options, the resolved build variables and the
// metadata advertised to consumers.
package formula

import (
	"maps"
	"slices"
	"strings"
)

// Matrix describes the build configurations of a package: Require holds
// the platform keys, Options the feature flags.
type Matrix struct {
	Require map[string][]string
	Options map[string][]string
}

// Combinations returns every configuration of the matrix. Values of the
// alphabetically sorted keys are joined with "-", and the require part is
// joined to the options part with "|".
func (m *Matrix) Combinations() []string {
	req, opt := product(m.Require), product(m.Options)
	switch {
	case len(req) == 0:
		return opt
	case len(opt) == 0:
		return req
	}
	out := make([]string, 0, len(req)*len(opt))
	for _, r := range req {
		for _, o := range opt {
			out = append(out, r+"|"+o)
		}
	}
	return out
}

// CombinationCount returns len(m.Combinations()) without building them.
func (m *Matrix) CombinationCount() int {
	req, opt := count(m.Require), count(m.Options)
	switch {
	case req == 0:
		return opt
	case opt == 0:
		return req
	}
	return req * opt
}

// String names a matrix holding one value per key, as built by MatrixOf.
// Only the first value of each key is used.
func (m *Matrix) String() string {
	req, opt := first(m.Require), first(m.Options)
	if req == "" || opt == "" {
		return req + opt
	}
	return req + "|" + opt
}

func product(kvs map[string][]string) []string {
	keys := slices.Sorted(maps.Keys(kvs))
	if len(keys) == 0 {
		return nil
	}
	out := slices.Clone(kvs[keys[0]])
	for _, k := range keys[1:] {
		next := make([]string, 0, len(out)*len(kvs[k]))
		for _, prev := range out {
			for _, v := range kvs[k] {
				next = append(next, prev+"-"+v)
			}
		}
		out = next
	}
	return out
}

func count(kvs map[string][]string) int {
	if len(kvs) == 0 {
		return 0
	}
	n := 1
	for _, v := range kvs {
		n *= len(v)
	}
	return n
}

func first(kvs map[string][]string) string {
	parts := make([]string, 0, len(kvs))
	for _, k := range slices.Sorted(maps.Keys(kvs)) {
		if vs := kvs[k]; len(vs) > 0 {
			parts = append(parts, vs[0])
		}
	}
	return strings.Join(parts, "-")
}

// MatrixOf returns the single-combination matrix identifying a build.
func MatrixOf(p Platform, o Options, bt BuildType) Matrix {
	options := map[string][]string{
		"shared": {onOff("shared", o.Shared())},
	}
	if v, ok := o.FPIC(); ok {
		options["fPIC"] = []string{onOff("fPIC", v)}
	}
	return Matrix{Require: requireOf(p, bt), Options: options}
}

// VariantsOf returns the matrices covering every option set a build of p
// accepts: the static variants first, then the shared one. fPIC only
// varies for static builds off Windows.
func VariantsOf(p Platform, bt BuildType) []Matrix {
	static := Matrix{
		Require: requireOf(p, bt),
		Options: map[string][]string{"shared": {"sharedOFF"}},
	}
	if p.OS != Windows {
		static.Options["fPIC"] = []string{"fPICON", "fPICOFF"}
	}
	shared := Matrix{
		Require: requireOf(p, bt),
		Options: map[string][]string{"shared": {"sharedON"}},
	}
	return []Matrix{static, shared}
}

func requireOf(p Platform, bt BuildType) map[string][]string {
	require := map[string][]string{
		"os":         {strings.ToLower(p.OS.String())},
		"build_type": {strings.ToLower(string(bt))},
	}
	if p.Arch != "" {
		require["arch"] = []string{p.Arch}
	}
	if p.Compiler != "" {
		require["compiler"] = []string{p.Compiler}
	}
	return require
}

func onOff(name string, v bool) string {
	if v {
		return name + "ON"
	}
	return name + "OFF"
}
