package spatialext

import (
	"context"
	"path/filepath"

	"github.com/magefile/mage/sh"
	"go.uber.org/zap"
)

// CMake markers and paths.
const (
	cmakeLists  = "CMakeLists.txt"
	cmakeCache  = "CMakeCache.txt"
	cmakeLibDir = "bin"
)

// sourceRootMarkers sit only at the top of an extracted libspatialindex tree.
var sourceRootMarkers = []string{autogenScript, "configure.ac"}

// CMakeStrategy handles the cmake → make workflow.
//
// Descriptor, when set, is copied over the build root's CMakeLists.txt before
// generation; some releases need a packaging-specific build description that
// is not part of the upstream tarball, so the root is then found through the
// source's bootstrap files instead. Without a descriptor the root is the
// outermost directory holding a CMakeLists.txt. Generation, including the
// descriptor copy, is skipped when CMakeCache.txt already exists in the
// build root.
type CMakeStrategy struct {
	Descriptor string
}

// Name returns the strategy name
func (s *CMakeStrategy) Name() string {
	return "CMake"
}

// Sentinel returns the build description that marks the build root
func (s *CMakeStrategy) Sentinel() string {
	return cmakeLists
}

// LocateRoot finds the directory cmake is run in
func (s *CMakeStrategy) LocateRoot(tree string) (string, bool, error) {
	if s.Descriptor == "" {
		return FindOutermostRoot(tree, cmakeLists)
	}
	for _, marker := range sourceRootMarkers {
		root, ok, err := FindBuildRoot(tree, marker)
		if err != nil || ok {
			return root, ok, err
		}
	}
	return FindOutermostRoot(tree, cmakeLists)
}

// LibraryDir returns the cmake runtime output directory
func (s *CMakeStrategy) LibraryDir(buildRoot string) string {
	return filepath.Join(buildRoot, cmakeLibDir)
}

// RequiredTools returns the tools needed for cmake builds
func (s *CMakeStrategy) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{Name: "cmake", Purpose: "CMake build system"},
		{Name: "make", Alternatives: []string{"gmake"}, Purpose: "Build automation tool"},
		{Name: "c++", Alternatives: []string{"g++", "clang++"}, Purpose: "C++ compiler"},
	}
}

// CheckTools verifies that cmake and make are available
func (s *CMakeStrategy) CheckTools() error {
	return CheckRequiredTools(s.RequiredTools())
}

// Build compiles libspatialindex using cmake and make
func (s *CMakeStrategy) Build(ctx context.Context, config *BuildConfig) (*BuildResult, error) {
	return runToolchain(ctx, config, CommonBuildSteps{
		ConfigureFunc: s.runCmake,
		BuildFunc:     runMake,
		FindFunc:      s.findLibraries,
	})
}

// runCmake copies the descriptor and generates Makefiles with cmake .
func (s *CMakeStrategy) runCmake(ctx context.Context, config *BuildConfig, result *BuildResult) error {
	log := loggerOrNop(config.Logger).With(zap.String("stage", "cmake"))

	if pathExists(filepath.Join(config.BuildRoot, cmakeCache)) {
		log.Info("spatialindex already configured", zap.String("dir", config.BuildRoot))
		result.Skipped = append(result.Skipped, "cmake")
		return nil
	}

	if s.Descriptor != "" {
		dst := filepath.Join(config.BuildRoot, cmakeLists)
		log.Info("copying build description", zap.String("from", s.Descriptor), zap.String("to", dst))
		if err := sh.Copy(dst, s.Descriptor); err != nil {
			return err
		}
	}

	log.Info("configuring spatialindex", zap.String("dir", config.BuildRoot))

	args := append([]string{"."}, config.BuildArgs...)
	return runStage(ctx, config, result, "cmake", "cmake", args...)
}

func (s *CMakeStrategy) findLibraries(buildRoot string) (string, []string, error) {
	libDir := s.LibraryDir(buildRoot)
	libs, err := findSharedLibraries(libDir)
	return libDir, libs, err
}
