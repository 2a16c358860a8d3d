package spatialext

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Autotools markers and paths.
const (
	autogenScript   = "autogen.sh"
	configureScript = "configure"
	configStatus    = "config.status"
	autotoolsLibDir = ".libs"
)

// AutotoolsStrategy handles the autogen.sh → configure → make workflow.
//
// Configuration is skipped when config.status exists anywhere in the source
// tree. The m4 macro directory is created before configure because some
// build environments ship autogen without it and configure then fails.
type AutotoolsStrategy struct{}

// Name returns the strategy name
func (s *AutotoolsStrategy) Name() string {
	return "Autotools"
}

// Sentinel returns the bootstrap script that marks the build root
func (s *AutotoolsStrategy) Sentinel() string {
	return autogenScript
}

// LibraryDir returns the libtool output directory
func (s *AutotoolsStrategy) LibraryDir(buildRoot string) string {
	return filepath.Join(buildRoot, autotoolsLibDir)
}

// RequiredTools returns the tools needed for autotools builds
func (s *AutotoolsStrategy) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{Name: "sh", Purpose: "POSIX shell for autogen.sh and configure"},
		{Name: "autoreconf", Purpose: "Autotools bootstrap"},
		{Name: "libtoolize", Alternatives: []string{"glibtoolize"}, Purpose: "Libtool"},
		{Name: "make", Alternatives: []string{"gmake"}, Purpose: "Build automation tool"},
		{Name: "c++", Alternatives: []string{"g++", "clang++"}, Purpose: "C++ compiler"},
	}
}

// CheckTools verifies that the autotools chain is available
func (s *AutotoolsStrategy) CheckTools() error {
	return CheckRequiredTools(s.RequiredTools())
}

// Build compiles libspatialindex using autotools
func (s *AutotoolsStrategy) Build(ctx context.Context, config *BuildConfig) (*BuildResult, error) {
	return runToolchain(ctx, config, CommonBuildSteps{
		ConfigureFunc: s.configure,
		BuildFunc:     runMake,
		FindFunc:      s.findLibraries,
	})
}

// configure runs autogen.sh and configure --disable-static
func (s *AutotoolsStrategy) configure(ctx context.Context, config *BuildConfig, result *BuildResult) error {
	log := loggerOrNop(config.Logger).With(zap.String("stage", "configure"))

	if dir, ok, err := FindBuildRoot(sourceTree(config), configStatus); err != nil {
		return err
	} else if ok {
		log.Info("spatialindex already configured", zap.String("dir", dir))
		result.Skipped = append(result.Skipped, "autogen", "configure")
		return nil
	}

	log.Info("configuring spatialindex", zap.String("dir", config.BuildRoot))

	if err := runStage(ctx, config, result, "autogen", "./"+autogenScript); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(config.BuildRoot, "m4"), 0o755); err != nil {
		return err
	}

	args := append([]string{"--disable-static"}, config.BuildArgs...)
	return runStage(ctx, config, result, "configure", "./"+configureScript, args...)
}

func (s *AutotoolsStrategy) findLibraries(buildRoot string) (string, []string, error) {
	libDir := s.LibraryDir(buildRoot)
	libs, err := findSharedLibraries(libDir)
	return libDir, libs, err
}
