package build

import (
	"io/fs"
	"os"
	"path/filepath"
)

// lockPath takes an exclusive inter-process lock on the file at path,
// creating it if needed. It blocks until the lock is acquired.
func lockPath(path string) (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, &fs.PathError{Op: "lock", Path: path, Err: err}
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
