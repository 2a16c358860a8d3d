package spatialext

import "context"

// ToolchainStrategy builds libspatialindex with one native build system.
//
// # Strategy Lifecycle
//
//  1. Sentinel() - StrategyFactory searches the extracted tree for this file
//     to pick the strategy and locate the build root
//  2. Build() - configure (skipped when its completion marker exists),
//     parallel make, then locate the produced shared libraries
//  3. LibraryDir() - where the shared libraries end up under the build root
//
// Strategies are stateless apart from their static configuration and may be
// reused across runs.
type ToolchainStrategy interface {
	// Name returns the human-readable name of this strategy.
	// Examples: "Autotools", "CMake"
	Name() string

	// Sentinel is the file whose containing directory is the build root.
	Sentinel() string

	// Build runs the toolchain in config.BuildRoot.
	//
	// Returns:
	//   - BuildResult with Success=true, LibDir and Libraries on success
	//   - BuildResult with Success=false and Error on failure; toolchain
	//     failures are *StageError
	Build(ctx context.Context, config *BuildConfig) (*BuildResult, error)

	// LibraryDir returns the fixed output directory for buildRoot.
	LibraryDir(buildRoot string) string
}

// RootLocator is implemented by strategies whose build root is not simply
// the directory of the first sentinel found by FindBuildRoot.
type RootLocator interface {
	LocateRoot(tree string) (root string, ok bool, err error)
}

// locateRoot finds strategy's build root in the extracted tree.
func locateRoot(strategy ToolchainStrategy, tree string) (string, bool, error) {
	if locator, ok := strategy.(RootLocator); ok {
		return locator.LocateRoot(tree)
	}
	return FindBuildRoot(tree, strategy.Sentinel())
}
