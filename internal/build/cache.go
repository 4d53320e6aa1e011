package build

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>/                      # module-level dir (cacheDir)
//	    .cache.json                   # build cache: maps "version-matrix" to buildEntry
//	  <escaped>@<version>/src/        # patched source tree
//	  <escaped>@<version>-<matrix>/   # install dir
//	    include/
//	    lib/
//	    llar-package.json
//	  <escaped>@<version>-<matrix>.build/
const cacheFile = ".cache.json"

// PackageFile is the metadata file written into every install dir.
const PackageFile = "llar-package.json"

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	Info      formula.PackageInfo `json:"info"`
	Vars      []string            `json:"vars,omitempty"`
	BuildTime time.Time           `json:"build_time"`
}

// buildCache maps "version-matrix" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, matrix string) string {
	return version + "-" + matrix
}

func (c *buildCache) get(version, matrix string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, matrix)]
	return entry, ok
}

func (c *buildCache) set(version, matrix string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, matrix)] = entry
}

// matrixDir turns a matrix string into a path element. "|" is not a valid
// file name character on Windows.
func matrixDir(matrix string) string {
	return strings.ReplaceAll(matrix, "|", "+")
}

// cacheDir returns the module-level directory for cache storage: workspaceDir/<escapedPath>.
func (b *Builder) cacheDir() (string, error) {
	escaped, err := module.EscapePath(b.recipe.Name())
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped), nil
}

// versionDir returns workspaceDir/<escapedPath>@<version><suffix>.
func (b *Builder) versionDir(version, suffix string) (string, error) {
	escaped, err := module.EscapePath(b.recipe.Name())
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped+"@"+version+suffix), nil
}

// loadCache reads the cache file of the recipe. A missing file yields an
// empty cache.
func (b *Builder) loadCache() (*buildCache, error) {
	dir, err := b.cacheDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file of the recipe.
func (b *Builder) saveCache(cache *buildCache) error {
	dir, err := b.cacheDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	// Readers do not take the cache lock, so the file is replaced whole.
	f, err := os.CreateTemp(dir, cacheFile+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dir, cacheFile))
}

// record adds entry to the cache file. The file is shared by all versions,
// so it is reloaded under its own lock.
func (b *Builder) record(version, matrix string, entry *buildEntry) error {
	dir, err := b.cacheDir()
	if err != nil {
		return err
	}
	unlock, err := lockPath(filepath.Join(dir, cacheFile+".lock"))
	if err != nil {
		return err
	}
	defer unlock()

	cache, err := b.loadCache()
	if err != nil {
		cache = &buildCache{}
	}
	cache.set(version, matrix, entry)
	return b.saveCache(cache)
}

// writePackageFile stores info as llar-package.json in dir.
func writePackageFile(dir string, info formula.PackageInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, PackageFile), append(data, '\n'), 0o644)
}

// ReadPackageFile loads the metadata written by a previous build.
func ReadPackageFile(installDir string) (formula.PackageInfo, error) {
	var info formula.PackageInfo
	data, err := os.ReadFile(filepath.Join(installDir, PackageFile))
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}
