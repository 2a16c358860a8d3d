//go:build mage

// Build targets for packaging the R-tree extension.
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"go.uber.org/zap"

	spatialext "github.com/contriboss/spatialindex-ext-go"
)

// Native makes sure libspatialindex is built and staged into the package.
func Native(ctx context.Context) error {
	cfg, err := spatialext.LoadConfig(nil)
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	result, err := spatialext.NewGate(cfg, logger).Ensure(ctx)
	if err != nil {
		return err
	}

	if result.Prebuilt {
		fmt.Printf("using prebuilt libraries for %s\n", result.PlatformTag)
		return nil
	}
	fmt.Printf("staged %d libraries in %s\n", len(result.Staged), result.StagingDir)
	return nil
}

// Wheel builds the platform wheel once the native library is staged.
func Wheel(ctx context.Context) error {
	mg.CtxDeps(ctx, Native)

	cfg, err := spatialext.LoadConfig(nil)
	if err != nil {
		return err
	}
	tag := cfg.TargetPlatform(runtime.GOOS).PlatformTag(runtime.GOARCH)
	return sh.RunV("python", "setup.py", "bdist_wheel", "--plat-name", tag)
}

// Test runs the Go test suite.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Clean removes the downloaded archive, the extracted tree and the staging
// directory so the next Native run starts from scratch.
func Clean() error {
	cfg, err := spatialext.LoadConfig(nil)
	if err != nil {
		return err
	}

	release := spatialext.SourceRelease{Version: cfg.Version}
	for _, path := range []string{
		filepath.Join(cfg.WorkDir, release.ArchiveName()),
		filepath.Join(cfg.WorkDir, release.DirName()),
		filepath.Join(cfg.PackageDir, spatialext.StagingDirName),
	} {
		if err := sh.Rm(path); err != nil {
			return err
		}
	}
	return nil
}
