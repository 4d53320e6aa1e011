package source

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Unpack extracts the archive r into destDir. name selects the format by its
// extension. When strip is set, the single top-level directory of the
// archive is removed from every path.
func Unpack(r io.ReaderAt, name, destDir string, strip bool) error {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".zip") {
		return unzip(r, destDir, strip)
	}
	stream := io.NewSectionReader(r, 0, 1<<62)
	var tr io.Reader
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(stream)
		if err != nil {
			return err
		}
		defer gz.Close()
		tr = gz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		x, err := xz.NewReader(stream)
		if err != nil {
			return err
		}
		tr = x
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		zr, err := zstd.NewReader(stream)
		if err != nil {
			return err
		}
		defer zr.Close()
		tr = zr
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		tr = bzip2.NewReader(stream)
	case strings.HasSuffix(lower, ".tar"):
		tr = stream
	default:
		return fmt.Errorf("unsupported archive format: %s", path.Base(name))
	}
	return untar(tr, destDir, strip)
}

func untar(r io.Reader, destDir string, strip bool) error {
	type entry struct {
		hdr  *tar.Header
		temp string
	}
	// Stripping needs the full name list first, so regular files are staged
	// into a temp dir beside destDir.
	stage, err := os.MkdirTemp(filepath.Dir(destDir), ".llar-unpack-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	var entries []entry
	var names []string
	tr := tar.NewReader(r)
	for i := 0; ; i++ {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		// Insecure names are confined to destDir by safeJoin.
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return err
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		e := entry{hdr: hdr}
		if hdr.Typeflag == tar.TypeReg {
			e.temp = filepath.Join(stage, fmt.Sprint(i))
			if err := writeFile(e.temp, tr, 0o600); err != nil {
				return err
			}
		}
		entries = append(entries, e)
		names = append(names, hdr.Name)
	}

	prefix, err := rootPrefix(names, strip)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rel, ok := stripPrefix(e.hdr.Name, prefix)
		if !ok {
			continue
		}
		target, err := safeJoin(destDir, rel)
		if err != nil {
			return err
		}
		mode := os.FileMode(e.hdr.Mode).Perm()
		switch e.hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Rename(e.temp, target); err != nil {
				return err
			}
			if err := os.Chmod(target, mode|0o600); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(e.hdr.Linkname) {
				return fmt.Errorf("absolute symlink %s -> %s", e.hdr.Name, e.hdr.Linkname)
			}
			if _, err := safeJoin(destDir, filepath.Join(filepath.Dir(rel), e.hdr.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(e.hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			// Hard links name an earlier entry of the archive.
			linkRel, ok := stripPrefix(e.hdr.Linkname, prefix)
			if !ok {
				return fmt.Errorf("hard link %s -> %s: target outside the archive root", e.hdr.Name, e.hdr.Linkname)
			}
			src, err := safeJoin(destDir, linkRel)
			if err != nil {
				return err
			}
			if err := copyLinked(src, target); err != nil {
				return fmt.Errorf("hard link %s -> %s: %w", e.hdr.Name, e.hdr.Linkname, err)
			}
		default:
			return fmt.Errorf("%s: unsupported tar entry type %q", e.hdr.Name, e.hdr.Typeflag)
		}
	}
	return nil
}

// copyLinked gives target the content and mode of the extracted file src.
func copyLinked(src, target string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return writeFile(target, in, fi.Mode().Perm())
}

func unzip(r io.ReaderAt, destDir string, strip bool) error {
	size, err := sizeOf(r)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return err
	}
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	prefix, err := rootPrefix(names, strip)
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		rel, ok := stripPrefix(f.Name, prefix)
		if !ok {
			continue
		}
		target, err := safeJoin(destDir, rel)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, f.Mode().Perm()|0o600)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// rootPrefix returns the top-level directory shared by all names, or "" when
// strip is off. Stripping an archive without a single root is an error.
func rootPrefix(names []string, strip bool) (string, error) {
	if !strip || len(names) == 0 {
		return "", nil
	}
	var root string
	for _, name := range names {
		name = strings.TrimPrefix(path.Clean("/"+name), "/")
		first, _, _ := strings.Cut(name, "/")
		if first == "" {
			continue
		}
		if root == "" {
			root = first
		} else if root != first {
			return "", fmt.Errorf("cannot strip root: archive has several top-level entries (%s, %s)", root, first)
		}
	}
	return root, nil
}

// stripPrefix removes the root prefix from name; ok is false for the root
// itself, which has nothing left to extract.
func stripPrefix(name, prefix string) (string, bool) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if prefix == "" {
		return name, name != ""
	}
	if name == prefix {
		return "", false
	}
	rest, found := strings.CutPrefix(name, prefix+"/")
	return rest, found && rest != ""
}

// safeJoin joins rel to dir and rejects results escaping dir.
func safeJoin(dir, rel string) (string, error) {
	local, err := filepath.Localize(rel)
	if err != nil {
		return "", fmt.Errorf("invalid archive path %q: %w", rel, err)
	}
	return filepath.Join(dir, local), nil
}

func writeFile(name string, r io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sizeOf(r io.ReaderAt) (int64, error) {
	switch v := r.(type) {
	case interface{ Stat() (os.FileInfo, error) }:
		fi, err := v.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	case interface{ Size() int64 }:
		return v.Size(), nil
	}
	return 0, fmt.Errorf("cannot determine archive size")
}
