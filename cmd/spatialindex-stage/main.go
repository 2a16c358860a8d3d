// Command spatialindex-stage makes sure the libspatialindex shared libraries
// are staged into the package tree. It is meant to run as the pre-step of a
// packaging build and exits non-zero with the failure reason otherwise.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	spatialext "github.com/contriboss/spatialindex-ext-go"
)

func main() {
	flags := pflag.NewFlagSet("spatialindex-stage", pflag.ExitOnError)
	flags.String("version", spatialext.DefaultVersion, "libspatialindex release to build")
	flags.String("url-template", spatialext.DefaultURLTemplate, "source archive URL, %s is replaced by the version")
	flags.String("work-dir", ".", "directory holding the archive and the extracted tree")
	flags.String("package-dir", "rtree", "package directory receiving .libs")
	flags.String("toolchain", "", "force a toolchain: autotools or cmake")
	flags.String("sentinel", "", "file marking the build root (default depends on the toolchain)")
	flags.String("cmake-descriptor", "", "CMakeLists.txt copied into the build root (implies --toolchain=cmake)")
	flags.StringSlice("configure-arg", nil, "extra argument for configure/cmake (repeatable)")
	flags.Int("jobs", 0, "parallel make jobs, capped at 8 (0 = number of CPUs)")
	flags.String("platform", "", "override the host platform: linux, macos or windows")
	flags.String("library", "", "prebuilt core library; skips the build")
	flags.String("c-library", "", "prebuilt C API library; skips the build")
	flags.Bool("check-tools", true, "verify build tools are on PATH before building")
	flags.Bool("verbose", false, "log toolchain output")
	flags.Bool("trace", false, "print OpenTelemetry spans for each stage to stderr")
	logMode := flags.String("log-mode", "production", "log encoding: production or development")

	_ = flags.Parse(os.Args[1:])

	cfg, err := spatialext.LoadConfig(flags)
	if err != nil {
		color.Danger.Printf("invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(*logMode, cfg.Verbose)
	if err != nil {
		color.Danger.Printf("unable to create logger: %v\n", err)
		os.Exit(2)
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := func(context.Context) error { return nil }
	if cfg.Trace {
		shutdown = initTracer(logger)
	}

	result, err := spatialext.NewGate(cfg, logger).Ensure(ctx)

	if serr := shutdown(context.Background()); serr != nil {
		logger.Warn("trace shutdown failed", zap.Error(serr))
	}

	if err != nil {
		color.Danger.Printf("%v\n", err)
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}

	report(result)
}

func newLogger(mode string, verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "production", "prod":
		cfg = zap.NewProductionConfig()
	case "development", "dev":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func report(result *spatialext.Result) {
	switch {
	case result.Prebuilt:
		for _, data := range result.DataFiles {
			color.Success.Printf("Declared prebuilt libraries for %s: %s\n", data.Dir, strings.Join(data.Files, ", "))
		}
	case result.Built:
		color.Success.Printf("Built %s with %s and staged %d files in %s\n",
			result.PlatformTag, result.Strategy, len(result.Staged), result.StagingDir)
	default:
		color.Info.Printf("Shared libraries already staged in %s\n", result.StagingDir)
	}
}
