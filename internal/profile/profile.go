// Package profile loads build profiles: the settings and options selecting
// one package configuration.
//
// A profile is a TOML file:
//
//	[settings]
//	os = "Linux"
//	arch = "x86_64"
//	compiler = "gcc"
//	build_type = "Release"
//
//	[options]
//	shared = false
//	fPIC = true
//
//	[buildenv]
//	CC = "gcc-12"
//
// Command line overrides use the form key=value and take precedence.
package profile

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/goplus/llarfbow/formula"
)

type fileProfile struct {
	Settings struct {
		OS        string `toml:"os"`
		Arch      string `toml:"arch"`
		Compiler  string `toml:"compiler"`
		SDK       string `toml:"sdk"`
		BuildType string `toml:"build_type"`
	} `toml:"settings"`
	Options struct {
		Shared bool `toml:"shared"`
		FPIC   bool `toml:"fPIC"`
	} `toml:"options"`
	BuildEnv map[string]string `toml:"buildenv"`
}

// Profile is a raw, not yet validated configuration.
type Profile struct {
	OS        string
	Arch      string
	Compiler  string
	SDK       string
	BuildType string
	Shared    bool
	FPIC      bool
	// BuildEnv is set for the build tool processes only.
	BuildEnv map[string]string
}

// Default returns the profile of the host with static, position
// independent Release builds.
func Default() Profile {
	p := Profile{
		OS:        runtime.GOOS,
		Arch:      hostArch(runtime.GOARCH),
		BuildType: string(formula.Release),
		FPIC:      true,
	}
	if p.OS == "linux" {
		p.Compiler = "gcc"
	}
	return p
}

func hostArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "armv8"
	case "386":
		return "x86"
	}
	return goarch
}

// Load reads the profile file at path on top of Default().
func Load(path string) (Profile, error) {
	var raw fileProfile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return merge(Default(), raw, meta)
}

// Parse is like Load for profile text.
func Parse(text string) (Profile, error) {
	var raw fileProfile
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	return merge(Default(), raw, meta)
}

func merge(p Profile, raw fileProfile, meta toml.MetaData) (Profile, error) {
	if keys := meta.Undecoded(); len(keys) > 0 {
		return Profile{}, &formula.ConfigurationError{Field: keys[0].String(), Reason: "unknown profile key"}
	}
	if meta.IsDefined("settings", "os") {
		p.OS = strings.TrimSpace(raw.Settings.OS)
	}
	if meta.IsDefined("settings", "arch") {
		p.Arch = strings.TrimSpace(raw.Settings.Arch)
	}
	if meta.IsDefined("settings", "compiler") {
		p.Compiler = strings.TrimSpace(raw.Settings.Compiler)
	}
	if meta.IsDefined("settings", "sdk") {
		p.SDK = strings.TrimSpace(raw.Settings.SDK)
	}
	if meta.IsDefined("settings", "build_type") {
		p.BuildType = strings.TrimSpace(raw.Settings.BuildType)
	}
	if meta.IsDefined("options", "shared") {
		p.Shared = raw.Options.Shared
	}
	if meta.IsDefined("options", "fPIC") {
		p.FPIC = raw.Options.FPIC
	}
	if len(raw.BuildEnv) > 0 {
		p.BuildEnv = raw.BuildEnv
	}
	return p, nil
}

// SetSetting applies a "key=value" settings override.
func (p *Profile) SetSetting(kv string) error {
	key, value, err := split("settings", kv)
	if err != nil {
		return err
	}
	switch key {
	case "os":
		p.OS = value
	case "arch":
		p.Arch = value
	case "compiler":
		p.Compiler = value
	case "sdk", "os.sdk":
		p.SDK = value
	case "build_type":
		p.BuildType = value
	default:
		return &formula.ConfigurationError{Field: key, Value: value, Reason: "unknown setting"}
	}
	return nil
}

// SetOption applies a "key=value" options override.
func (p *Profile) SetOption(kv string) error {
	key, value, err := split("options", kv)
	if err != nil {
		return err
	}
	b, err := parseBool(value)
	if err != nil {
		return &formula.ConfigurationError{Field: key, Value: value, Reason: "not a boolean"}
	}
	switch key {
	case "shared":
		p.Shared = b
	case "fPIC":
		p.FPIC = b
	default:
		return &formula.ConfigurationError{Field: key, Value: value, Reason: "unknown option"}
	}
	return nil
}

func split(kind, kv string) (key, value string, err error) {
	key, value, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", &formula.ConfigurationError{Field: kind, Value: kv, Reason: "want key=value"}
	}
	// "fbow:shared=True" scopes an option to a package.
	if _, k, ok := strings.Cut(key, ":"); ok {
		key = k
	}
	return key, strings.TrimSpace(value), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Resolve validates p and returns the typed configuration. Options are
// normalized for the target OS.
func (p Profile) Resolve() (formula.Platform, formula.Options, formula.BuildType, error) {
	os, err := formula.ParseOS(p.OS)
	if err != nil {
		return formula.Platform{}, formula.Options{}, "", err
	}
	bt, err := formula.ParseBuildType(p.BuildType)
	if err != nil {
		return formula.Platform{}, formula.Options{}, "", err
	}
	if os == formula.IOS && p.SDK == "" {
		return formula.Platform{}, formula.Options{}, "", &formula.ConfigurationError{Field: "sdk", Reason: "iOS builds need an SDK, e.g. iphoneos"}
	}
	plat := formula.Platform{OS: os, Arch: p.Arch, SDK: p.SDK}
	// The compiler setting only selects flags on Linux.
	if os == formula.Linux {
		plat.Compiler = p.Compiler
	}
	return plat, formula.NewOptions(os, p.Shared, p.FPIC), bt, nil
}
