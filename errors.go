package spatialext

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the pipeline. Every one of them is fatal.
var (
	// ErrAcquisition wraps network and filesystem failures while fetching
	// or unpacking the source archive.
	ErrAcquisition = errors.New("source acquisition failed")

	// ErrDiscovery reports a sentinel file or directory missing from the
	// extracted tree.
	ErrDiscovery = errors.New("not found in source tree")

	// ErrToolchain is matched by every *StageError.
	ErrToolchain = errors.New("toolchain failed")

	// ErrLibraryNotFound is the aggregate staging failure.
	ErrLibraryNotFound = errors.New("unable to find shared library")
)

// StageError reports a toolchain subprocess that exited non-zero.
type StageError struct {
	Stage    string   // autogen, configure, cmake, make
	ExitCode int      // exit status of the subprocess
	Output   []string // combined output captured so far
	Err      error
}

func (e *StageError) Error() string {
	return BuildError(e.Stage, e.Output, e.Err).Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrToolchain) match any stage failure.
func (e *StageError) Is(target error) bool {
	return target == ErrToolchain
}

func discoveryError(what, where string) error {
	return fmt.Errorf("unable to find %s in %s: %w", what, where, ErrDiscovery)
}

func libraryNotFound(set LibraryArtifactSet, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w %v", ErrLibraryNotFound, set.Names())
	}
	return fmt.Errorf("%w %v: %w", ErrLibraryNotFound, set.Names(), cause)
}
