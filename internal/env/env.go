package env

import (
	"os"
	"path/filepath"
)

// WorkspaceEnv overrides the workspace directory.
const WorkspaceEnv = "LLAR_WORKSPACE"

// WorkDir returns the root of llar's per-user state.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".llar"), nil
}

// WorkspaceDir returns the directory holding sources, build trees, install
// trees and the build cache. It is $LLAR_WORKSPACE when set, otherwise
// <WorkDir>/workspace. The directory is created with 0700 permissions.
func WorkspaceDir() (string, error) {
	dir := os.Getenv(WorkspaceEnv)
	if dir == "" {
		workDir, err := WorkDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(workDir, "workspace")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
