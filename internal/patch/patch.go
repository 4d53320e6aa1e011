// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch applies recipe patches to an unpacked source tree.
package patch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/llarfbow/internal/conandata"
)

// Applier applies patches with "git apply", which is all-or-nothing per
// patch.
type Applier struct {
	git string
	dir string // directory patch files are relative to
}

// Option configures an Applier.
type Option func(*Applier)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) Option {
	return func(a *Applier) {
		a.git = path
	}
}

// New creates an Applier resolving patch files relative to patchDir.
func New(patchDir string, opts ...Option) *Applier {
	a := &Applier{git: "git", dir: patchDir}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply applies p to the tree at sourceDir. The patch is first checked, so
// a patch that does not apply cleanly leaves the tree untouched.
func (a *Applier) Apply(ctx context.Context, sourceDir string, p conandata.Patch) error {
	file := p.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(a.dir, filepath.FromSlash(file))
	}
	file, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if _, err := os.Stat(file); err != nil {
		return err
	}

	dir := sourceDir
	if p.BasePath != "" {
		dir = filepath.Join(sourceDir, filepath.FromSlash(p.BasePath))
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return err
	}

	if p.Description != "" {
		log.Infof("applying %s: %s", p.File, p.Description)
	} else {
		log.Infof("applying %s", p.File)
	}
	if err := a.run(ctx, dir, "apply", "--check", "--whitespace=nowarn", file); err != nil {
		return fmt.Errorf("check: %w", err)
	}
	return a.run(ctx, dir, "apply", "--whitespace=nowarn", file)
}

func (a *Applier) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, a.git, args...)
	cmd.Dir = dir
	// Keep git from treating an enclosing repository as the patch root.
	cmd.Env = append(os.Environ(), "GIT_CEILING_DIRECTORIES="+filepath.Dir(dir))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return err
	}
	return nil
}
