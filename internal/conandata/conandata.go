// Package conandata parses the version-keyed package data of a recipe:
// where each version's sources come from and which patches apply to it.
package conandata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// URLs is one URL or an ordered list of mirrors.
type URLs []string

// UnmarshalYAML accepts both a scalar and a sequence.
func (u *URLs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*u = URLs{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*u = list
		return nil
	}
	return fmt.Errorf("line %d: url must be a string or a list of strings", node.Line)
}

// Source locates the source archive of one version.
type Source struct {
	URL       URLs   `yaml:"url"`
	SHA256    string `yaml:"sha256"`
	StripRoot *bool  `yaml:"strip_root,omitempty"`
}

// Strip reports whether the single root directory of the archive is
// removed on extraction. It defaults to true.
func (s Source) Strip() bool {
	return s.StripRoot == nil || *s.StripRoot
}

// Patch is one entry of a version's patch list.
type Patch struct {
	File        string `yaml:"patch_file"`
	Description string `yaml:"patch_description,omitempty"`
	Type        string `yaml:"patch_type,omitempty"`
	BasePath    string `yaml:"base_path,omitempty"`
}

// Data is the content of a conandata.yml file.
type Data struct {
	Sources map[string]Source  `yaml:"sources"`
	Patches map[string][]Patch `yaml:"patches,omitempty"`
}

// Parse reads and parses package data from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
func Parse(file string, data []byte) (*Data, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewReader(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var d Data
	if err := yaml.NewDecoder(reader).Decode(&d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return &d, nil
}

func (d *Data) validate() error {
	if len(d.Sources) == 0 {
		return fmt.Errorf("no sources")
	}
	for ver, src := range d.Sources {
		if len(src.URL) == 0 {
			return fmt.Errorf("sources[%s]: missing url", ver)
		}
	}
	for ver, patches := range d.Patches {
		if _, ok := d.Sources[ver]; !ok {
			return fmt.Errorf("patches[%s]: version has no sources", ver)
		}
		for i, p := range patches {
			if p.File == "" {
				return fmt.Errorf("patches[%s][%d]: missing patch_file", ver, i)
			}
		}
	}
	return nil
}

// Source returns the source of version.
func (d *Data) Source(version string) (Source, error) {
	src, ok := d.Sources[version]
	if !ok {
		return Source{}, fmt.Errorf("version %s not found (known: %s)", version, strings.Join(d.Versions(), ", "))
	}
	return src, nil
}

// PatchesOf returns the ordered patch list of version.
func (d *Data) PatchesOf(version string) []Patch {
	return slices.Clone(d.Patches[version])
}

// Versions returns the known versions in ascending order. Semantic versions
// are ordered by semver; otherwise CompareVersions applies.
func (d *Data) Versions() []string {
	versions := make([]string, 0, len(d.Sources))
	for v := range d.Sources {
		versions = append(versions, v)
	}
	if allSemver(versions) {
		slices.SortFunc(versions, func(a, b string) int {
			return semver.Compare(canonical(a), canonical(b))
		})
		return versions
	}
	SortVersions(versions)
	return versions
}

// Latest returns the highest known version.
func (d *Data) Latest() string {
	versions := d.Versions()
	if len(versions) == 0 {
		return ""
	}
	return versions[len(versions)-1]
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func allSemver(versions []string) bool {
	for _, v := range versions {
		if !semver.IsValid(canonical(v)) {
			return false
		}
	}
	return true
}
