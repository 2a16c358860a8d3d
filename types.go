package spatialext

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultVersion is the libspatialindex release built when none is configured.
const DefaultVersion = "1.8.5"

// DefaultURLTemplate is the archive URL; %s is replaced by the release version.
const DefaultURLTemplate = "https://github.com/libspatialindex/libspatialindex/archive/%s.tar.gz"

// SourceRelease identifies a versioned libspatialindex source archive.
type SourceRelease struct {
	Version string
}

// ArchiveName returns the on-disk archive file name, e.g. "spatialindex-1.8.5.tar.gz".
func (r SourceRelease) ArchiveName() string {
	return r.DirName() + ".tar.gz"
}

// DirName returns the extraction directory name, e.g. "spatialindex-1.8.5".
func (r SourceRelease) DirName() string {
	return "spatialindex-" + r.Version
}

// URL renders the download URL from a template containing one %s verb.
func (r SourceRelease) URL(template string) string {
	if template == "" {
		template = DefaultURLTemplate
	}
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, r.Version)
}

// BuildResult contains the output and status of a toolchain run.
//
// After a build completes, this structure provides:
//   - Success status indicating if configure and make completed
//   - Output lines captured from the subprocesses (stdout/stderr)
//   - Libraries found in the strategy's output directory
//   - Skipped stages that were satisfied by a completion marker
type BuildResult struct {
	Success   bool     // True if the toolchain completed successfully
	Output    []string // Lines of output from the build processes
	LibDir    string   // Directory holding the produced shared libraries
	Libraries []string // Shared libraries found in LibDir
	Skipped   []string // Stages skipped because their marker existed
	Error     error    // Error if the build failed, nil otherwise
}

// BuildConfig contains configuration for a toolchain run.
//
// Source paths:
//   - BuildRoot: directory holding the toolchain driver (autogen.sh, CMakeLists.txt)
//   - SourceTree: extracted tree searched for completion markers
//
// Build configuration:
//   - BuildArgs: additional arguments appended to configure / cmake
//   - Env: environment overlay for every subprocess (platform flags live here)
//   - Jobs: number of parallel make jobs (0 = JobCount of the host)
type BuildConfig struct {
	BuildRoot  string
	SourceTree string

	BuildArgs []string
	Env       map[string]string

	Verbose bool
	Jobs    int

	Logger *zap.Logger
}

// CommonBuildSteps defines the configure → build → find sequence shared by
// the toolchain strategies.
//
//	return runToolchain(ctx, config, CommonBuildSteps{
//	    ConfigureFunc: s.configure,
//	    BuildFunc:     runMake,
//	    FindFunc:      s.findLibraries,
//	})
type CommonBuildSteps struct {
	// ConfigureFunc prepares the build (autogen + configure, or cmake)
	ConfigureFunc func(ctx context.Context, config *BuildConfig, result *BuildResult) error

	// BuildFunc compiles the library (make -j N)
	BuildFunc func(ctx context.Context, config *BuildConfig, result *BuildResult) error

	// FindFunc locates the produced shared libraries after the build
	FindFunc func(buildRoot string) (libDir string, libs []string, err error)
}
