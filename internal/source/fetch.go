// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source retrieves and unpacks the source archive of a package.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qiniu/x/log"

	"github.com/goplus/llarfbow/internal/conandata"
)

// ErrChecksum reports a downloaded archive whose digest does not match.
var ErrChecksum = errors.New("checksum mismatch")

// Fetcher downloads source archives and unpacks them into a directory.
type Fetcher struct {
	httpClient *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for http and https URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads src, verifies its checksum and unpacks it into destDir.
// Mirrors are tried in order; the first one that yields a verified archive
// wins.
func (f *Fetcher) Fetch(ctx context.Context, src conandata.Source, destDir string) error {
	if len(src.URL) == 0 {
		return fmt.Errorf("no source url")
	}
	var errs []error
	for _, u := range src.URL {
		err := f.fetchOne(ctx, u, src, destDir)
		if err == nil {
			return nil
		}
		log.Warnf("fetch %s: %v", u, err)
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string, src conandata.Source, destDir string) error {
	tmp, err := os.CreateTemp("", "llar-source-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	log.Infof("downloading %s", rawURL)
	h := sha256.New()
	if err := f.download(ctx, rawURL, io.MultiWriter(tmp, h)); err != nil {
		return err
	}
	if want := strings.ToLower(src.SHA256); want != "" {
		if got := hex.EncodeToString(h.Sum(nil)); got != want {
			return fmt.Errorf("%w: got %s, want %s", ErrChecksum, got, want)
		}
	} else {
		log.Warnf("no sha256 for %s, skipping verification", rawURL)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := os.RemoveAll(destDir); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return Unpack(tmp, archiveName(rawURL), destDir, src.Strip())
}

func (f *Fetcher) download(ctx context.Context, rawURL string, w io.Writer) error {
	if filepath.IsAbs(rawURL) {
		return copyFrom(rawURL, w)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		_, err = io.Copy(w, resp.Body)
		return err
	case "file", "":
		path := rawURL
		if u.Scheme == "file" {
			path = filepath.FromSlash(u.Path)
		}
		return copyFrom(path, w)
	}
	return fmt.Errorf("unsupported url scheme: %s", u.Scheme)
}

func copyFrom(path string, w io.Writer) error {
	r, err := os.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

// archiveName returns the file name of an archive URL, without query.
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return u.Path
	}
	return rawURL
}
