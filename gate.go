package spatialext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// wheelDataDir is where prebuilt libraries are installed relative to the
// interpreter prefix.
const wheelDataDir = "Lib/site-packages/rtree"

// DataFile declares files the packager installs outside the package tree.
type DataFile struct {
	Dir   string
	Files []string
}

// Result describes what Ensure left behind for the packaging step.
type Result struct {
	// Built is true when this call ran the pipeline.
	Built bool

	// Prebuilt is true when configured out-of-band libraries were used.
	Prebuilt bool

	Platform    Platform
	PlatformTag string
	StagingDir  string
	Staged      []string

	// Strategy names the toolchain used when Built is true.
	Strategy string
	Build    *BuildResult

	// DataFiles lists prebuilt libraries to install as data files.
	DataFiles []DataFile

	// PackageData maps a package to the globs that must be bundled with it.
	PackageData map[string][]string
}

// Gate decides whether the native library still has to be built and, if so,
// runs Fetch → Extract → Build → Locate → Stage in order.
//
// The gate is satisfied exactly when the staging directory exists. A
// satisfied gate does no work at all, which keeps repeated packaging runs
// from one checkout cheap.
type Gate struct {
	Config     Config
	Platform   Platform
	Source     ArchiveSource
	Unpacker   ArchiveUnpacker
	Strategies *StrategyFactory
	Stager     ArtifactStager
	Logger     *zap.Logger
}

// NewGate wires the default collaborators for cfg.
func NewGate(cfg Config, logger *zap.Logger) *Gate {
	logger = loggerOrNop(logger)
	return &Gate{
		Config:   cfg,
		Platform: cfg.TargetPlatform(runtime.GOOS),
		Source: &Fetcher{
			Dir:         cfg.WorkDir,
			URLTemplate: cfg.URLTemplate,
			Client:      http.DefaultClient,
			Logger:      logger,
		},
		Unpacker:   &Extractor{Logger: logger},
		Strategies: NewStrategyFactory(cfg.CMakeDescriptor),
		Stager:     &Stager{Logger: logger},
		Logger:     logger,
	}
}

// StagingDir returns <package>/.libs.
func (g *Gate) StagingDir() string {
	return filepath.Join(g.Config.PackageDir, StagingDirName)
}

// Ensure makes sure the native library is staged. It returns normally on
// success and a fatal error otherwise; there is no partial success.
func (g *Gate) Ensure(ctx context.Context) (*Result, error) {
	log := loggerOrNop(g.Logger)
	set := g.Platform.Artifacts()
	packageName := filepath.Base(g.Config.PackageDir)

	result := &Result{
		Platform:    g.Platform,
		PlatformTag: g.Platform.PlatformTag(runtime.GOARCH),
		StagingDir:  g.StagingDir(),
		PackageData: map[string][]string{packageName: {StagingDirName + "/*"}},
	}

	if g.Config.Prebuilt() {
		return result, g.usePrebuilt(result)
	}

	if pathExists(result.StagingDir) {
		log.Info("shared library already staged", zap.String("dir", result.StagingDir))
		result.Staged = stagedFiles(result.StagingDir)
		return result, nil
	}

	if err := g.build(ctx, set, result); err != nil {
		return result, err
	}

	if !pathExists(result.StagingDir) {
		return result, libraryNotFound(set, nil)
	}
	return result, nil
}

func (g *Gate) build(ctx context.Context, set LibraryArtifactSet, result *Result) (err error) {
	ctx, span := startStage(ctx, "ensure",
		attribute.String("version", g.Config.Version),
		attribute.String("platform", g.Platform.String()))
	defer func() { endStage(span, err) }()

	release := SourceRelease{Version: g.Config.Version}
	result.Built = true

	archive, err := g.Source.EnsureArchive(ctx, release)
	if err != nil {
		return err
	}

	tree, err := g.Unpacker.EnsureExtracted(ctx, archive, filepath.Join(g.Config.WorkDir, release.DirName()))
	if err != nil {
		return err
	}

	strategy, root, err := g.selectStrategy(tree)
	if err != nil {
		return err
	}
	result.Strategy = strategy.Name()

	if checker, ok := strategy.(ToolChecker); ok && g.Config.CheckTools {
		if err := checker.CheckTools(); err != nil {
			return fmt.Errorf("%s build tools missing: %w", strategy.Name(), err)
		}
	}

	buildCtx, buildSpan := startStage(ctx, "build", attribute.String("strategy", strategy.Name()))
	build, err := strategy.Build(buildCtx, &BuildConfig{
		BuildRoot:  root,
		SourceTree: tree,
		BuildArgs:  g.Config.ConfigureArgs,
		Env:        lo.Assign(g.Platform.ToolchainEnv(), g.Config.Env),
		Verbose:    g.Config.Verbose,
		Jobs:       g.Config.Jobs,
		Logger:     g.Logger,
	})
	endStage(buildSpan, err)
	result.Build = build
	if err != nil {
		return err
	}

	_, stageSpan := startStage(ctx, "stage", attribute.String("dir", result.StagingDir))
	result.Staged, err = g.Stager.Stage(set, build.LibDir, result.StagingDir)
	endStage(stageSpan, err)
	return err
}

// selectStrategy picks the forced toolchain, or the first registered one
// whose sentinel is present, and locates its build root. A configured cmake
// descriptor implies the cmake toolchain.
func (g *Gate) selectStrategy(tree string) (ToolchainStrategy, string, error) {
	name := g.Config.Toolchain
	if name == "" && g.Config.CMakeDescriptor != "" {
		name = "cmake"
	}

	if name == "" && g.Config.Sentinel == "" {
		return g.Strategies.StrategyFor(tree)
	}

	if name == "" {
		strategies := g.Strategies.ListStrategies()
		if len(strategies) == 0 {
			return nil, "", fmt.Errorf("no toolchain strategies registered")
		}
		name = strategies[0].Name()
	}

	strategy, err := g.Strategies.StrategyNamed(name)
	if err != nil {
		return nil, "", err
	}

	sentinel := strategy.Sentinel()
	var (
		root string
		ok   bool
	)
	if g.Config.Sentinel != "" {
		sentinel = g.Config.Sentinel
		root, ok, err = FindBuildRoot(tree, sentinel)
	} else {
		root, ok, err = locateRoot(strategy, tree)
	}
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", discoveryError(sentinel, tree)
	}
	return strategy, root, nil
}

// usePrebuilt declares out-of-band libraries as data files instead of
// building. Both files must exist.
func (g *Gate) usePrebuilt(result *Result) error {
	files := []string{g.Config.Library, g.Config.CLibrary}
	for _, file := range files {
		if !pathExists(file) {
			return discoveryError("prebuilt library "+file, filepath.Dir(file))
		}
	}

	loggerOrNop(g.Logger).Info("using prebuilt shared libraries", zap.Strings("files", files))
	result.Prebuilt = true
	result.DataFiles = []DataFile{{Dir: wheelDataDir, Files: files}}
	return nil
}

func stagedFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	visible := lo.Filter(entries, func(entry os.DirEntry, _ int) bool {
		return !entry.IsDir() && !strings.HasPrefix(entry.Name(), ".")
	})
	return lo.Map(visible, func(entry os.DirEntry, _ int) string {
		return filepath.Join(dir, entry.Name())
	})
}
