package spatialext

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// buildMarker is written into the build root after make succeeds.
const buildMarker = ".spatialext-build.done"

// runToolchain executes the configure → build → find sequence.
//
// If any step fails, processing stops, the error is recorded on the result
// and returned; later steps are not executed. On success the result carries
// the library directory and the shared libraries found there.
func runToolchain(ctx context.Context, config *BuildConfig, steps CommonBuildSteps) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	// Step 1: Configure
	if err := steps.ConfigureFunc(ctx, config, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 2: Build
	if err := steps.BuildFunc(ctx, config, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 3: Find the produced libraries
	libDir, libs, err := steps.FindFunc(config.BuildRoot)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.LibDir = libDir
	result.Libraries = libs
	result.Success = true
	return result, nil
}

// runMake runs a parallel make in the build root unless a previous run left
// the build marker behind. The marker is written only after make exits 0.
func runMake(ctx context.Context, config *BuildConfig, result *BuildResult) error {
	log := loggerOrNop(config.Logger).With(zap.String("stage", "make"))
	marker := filepath.Join(config.BuildRoot, buildMarker)

	if pathExists(marker) {
		log.Info("spatialindex already built", zap.String("dir", config.BuildRoot))
		result.Skipped = append(result.Skipped, "make")
		return nil
	}

	jobs := jobsFor(config)
	log.Info("making spatialindex", zap.Int("jobs", jobs))

	if err := runStage(ctx, config, result, "make", makeProgram(config), "-j", strconv.Itoa(jobs)); err != nil {
		return err
	}

	return os.WriteFile(marker, []byte(strconv.Itoa(jobs)+"\n"), 0o644)
}

// sourceTree returns the tree searched for completion markers.
func sourceTree(config *BuildConfig) string {
	if config.SourceTree != "" {
		return config.SourceTree
	}
	return config.BuildRoot
}
