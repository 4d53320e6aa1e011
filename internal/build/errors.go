package build

import "fmt"

// RetrievalError reports a source download, checksum or unpack failure.
type RetrievalError struct {
	Version string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve source %s: %v", e.Version, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// PatchApplicationError reports a patch that did not apply cleanly.
type PatchApplicationError struct {
	Patch string
	Index int
	Err   error
}

func (e *PatchApplicationError) Error() string {
	return fmt.Sprintf("apply patch #%d %s: %v", e.Index+1, e.Patch, e.Err)
}

func (e *PatchApplicationError) Unwrap() error { return e.Err }

// BuildError reports a failed build tool step ("configure", "build" or
// "install"). Err carries the tool's own diagnostics.
type BuildError struct {
	Step string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
