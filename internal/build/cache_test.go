package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goplus/llarfbow/formula"
	"github.com/goplus/llarfbow/recipes/fbow"
)

func newCacheBuilder(t *testing.T) *Builder {
	return &Builder{recipe: fbow.New(), workspaceDir: t.TempDir()}
}

func TestSaveAndLoadBuildCache(t *testing.T) {
	b := newCacheBuilder(t)
	now := time.Now().Truncate(time.Second)

	cache := &buildCache{}
	cache.set("0.0.2", "x86_64-release-gcc-linux|fPICON-sharedOFF", &buildEntry{
		Info:      fbow.New().Info(),
		Vars:      []string{"BUILD_UTILS=OFF"},
		BuildTime: now,
	})
	if err := b.saveCache(cache); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}

	loaded, err := b.loadCache()
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	entry, ok := loaded.get("0.0.2", "x86_64-release-gcc-linux|fPICON-sharedOFF")
	if !ok {
		t.Fatal("entry not found after reload")
	}
	if diff := cmp.Diff(fbow.New().Info(), entry.Info); diff != "" {
		t.Errorf("Info mismatch (-want +got):\n%s", diff)
	}
	if !entry.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", entry.BuildTime, now)
	}
	if _, ok := loaded.get("0.0.1", "x86_64-release-gcc-linux|fPICON-sharedOFF"); ok {
		t.Error("unexpected entry for another version")
	}
}

func TestRecordConcurrentLoad(t *testing.T) {
	b := newCacheBuilder(t)
	const n = 30

	done := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			entry := &buildEntry{Info: fbow.New().Info(), Vars: []string{"BUILD_UTILS=OFF"}}
			if err := b.record(fmt.Sprintf("0.0.%d", i), "release-windows|sharedOFF", entry); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	for writing := true; writing; {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			writing = false
		default:
			if _, err := b.loadCache(); err != nil {
				t.Fatalf("loadCache during record: %v", err)
			}
		}
	}

	cache, err := b.loadCache()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if _, ok := cache.get(fmt.Sprintf("0.0.%d", i), "release-windows|sharedOFF"); !ok {
			t.Errorf("entry 0.0.%d missing", i)
		}
	}
	dir, _ := b.cacheDir()
	tmps, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(tmps) != 0 {
		t.Errorf("temp files left behind: %v", tmps)
	}
}

func TestLoadBuildCache_NotExist(t *testing.T) {
	b := newCacheBuilder(t)
	cache, err := b.loadCache()
	if err != nil {
		t.Fatalf("loadCache: %v", err)
	}
	if len(cache.Cache) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(cache.Cache))
	}
}

func TestLoadBuildCache_InvalidJSON(t *testing.T) {
	b := newCacheBuilder(t)
	dir, err := b.cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("invalid json"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := b.loadCache(); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestVersionDir(t *testing.T) {
	b := newCacheBuilder(t)
	got, err := b.versionDir("0.0.2", "-"+matrixDir("armv8-debug-macos|sharedON"))
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(b.workspaceDir, "fbow@0.0.2-armv8-debug-macos+sharedON")
	if got != want {
		t.Errorf("versionDir = %q, want %q", got, want)
	}
}

func TestPackageFile(t *testing.T) {
	dir := t.TempDir()
	info := formula.PackageInfo{
		CMakeFileName:   "fbow",
		CMakeTargetName: "fbow::fbow",
		Libs:            []string{"fbow"},
		LibDirs:         []string{"bin", "lib"},
		IncludeDirs:     []string{"include", "include/fbow"},
	}
	if err := writePackageFile(dir, info); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, PackageFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"cmake_file_name"`, `"cmake_target_name"`, `"libdirs"`, `"includedirs"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("%s missing key %s", PackageFile, key)
		}
	}
	got, err := ReadPackageFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(info, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

