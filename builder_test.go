package spatialext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTree creates files (relative paths) under root, creating parents.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, file := range files {
		path := filepath.Join(root, file)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStrategyFactoryOrder(t *testing.T) {
	factory := NewStrategyFactory("")
	strategies := factory.ListStrategies()

	if len(strategies) != 2 {
		t.Fatalf("expected 2 strategies, got %d", len(strategies))
	}

	expected := []string{"Autotools", "CMake"}
	for i, name := range expected {
		if strategies[i].Name() != name {
			t.Errorf("strategy %d: expected %s, got %s", i, name, strategies[i].Name())
		}
	}
}

func TestStrategyForSelectsBySentinel(t *testing.T) {
	tests := []struct {
		name         string
		files        []string
		expected     string
		expectedRoot string
	}{
		{
			name:         "autotools",
			files:        []string{"spatialindex-1.8.5/autogen.sh", "spatialindex-1.8.5/README"},
			expected:     "Autotools",
			expectedRoot: "spatialindex-1.8.5",
		},
		{
			name:         "cmake",
			files:        []string{"src/CMakeLists.txt"},
			expected:     "CMake",
			expectedRoot: "src",
		},
		{
			name:         "both prefers autotools",
			files:        []string{"autogen.sh", "CMakeLists.txt"},
			expected:     "Autotools",
			expectedRoot: ".",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := t.TempDir()
			writeTree(t, tree, tt.files...)

			strategy, root, err := NewStrategyFactory("").StrategyFor(tree)
			if err != nil {
				t.Fatalf("StrategyFor failed: %v", err)
			}
			if strategy.Name() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, strategy.Name())
			}
			if want := filepath.Join(tree, tt.expectedRoot); root != want {
				t.Errorf("expected root %s, got %s", want, root)
			}
		})
	}
}

func TestStrategyForNoSentinel(t *testing.T) {
	tree := t.TempDir()
	writeTree(t, tree, "README", "src/main.cc")

	_, _, err := NewStrategyFactory("").StrategyFor(tree)
	if !errors.Is(err, ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery, got %v", err)
	}
	if !strings.Contains(err.Error(), "autogen.sh or CMakeLists.txt") {
		t.Errorf("error should list the sentinels, got %v", err)
	}
}

func TestStrategyNamed(t *testing.T) {
	factory := NewStrategyFactory("")

	for _, name := range []string{"cmake", "CMake", "AUTOTOOLS"} {
		if _, err := factory.StrategyNamed(name); err != nil {
			t.Errorf("StrategyNamed(%q) failed: %v", name, err)
		}
	}

	_, err := factory.StrategyNamed("meson")
	if err == nil {
		t.Fatal("expected error for unknown toolchain")
	}
	if !strings.Contains(err.Error(), "autotools, cmake") {
		t.Errorf("error should list known toolchains, got %v", err)
	}
}

func TestCustomStrategyRegistration(t *testing.T) {
	factory := &StrategyFactory{}
	custom := &fakeStrategy{name: "Custom", sentinel: "build.ninja"}
	factory.Register(custom)

	tree := t.TempDir()
	writeTree(t, tree, "build.ninja")

	strategy, _, err := factory.StrategyFor(tree)
	if err != nil {
		t.Fatalf("StrategyFor failed: %v", err)
	}
	if strategy != custom {
		t.Errorf("expected custom strategy, got %s", strategy.Name())
	}
}

func TestLibraryDirs(t *testing.T) {
	root := filepath.Join("tmp", "spatialindex-1.8.5")

	if got := (&AutotoolsStrategy{}).LibraryDir(root); got != filepath.Join(root, ".libs") {
		t.Errorf("autotools library dir: got %s", got)
	}
	if got := (&CMakeStrategy{}).LibraryDir(root); got != filepath.Join(root, "bin") {
		t.Errorf("cmake library dir: got %s", got)
	}
}

func TestBuildError(t *testing.T) {
	err := BuildError("make", []string{"", "  error: boom  ", ""}, errors.New("exit status 2"))

	expected := "make failed: exit status 2\n\nBuild output:\nerror: boom"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	bare := BuildError("cmake", nil, errors.New("exit status 1"))
	if bare.Error() != "cmake failed: exit status 1" {
		t.Errorf("unexpected bare error: %q", bare.Error())
	}
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		filename string
		expected bool
	}{
		{"libspatialindex.so", true},
		{"libspatialindex.so.4.0.1", true},
		{"libspatialindex_c.dylib", true},
		{"spatialindex.dll", true},
		{"libspatialindex.la", false},
		{"libspatialindex.so.bak", false},
	}

	for _, tt := range tests {
		if got := MatchesPattern(tt.filename, sharedLibraryPatterns...); got != tt.expected {
			t.Errorf("MatchesPattern(%q) = %v, want %v", tt.filename, got, tt.expected)
		}
	}

	if MatchesPattern("autogen.sh", "[invalid") {
		t.Error("invalid pattern should never match")
	}
}

// fakeStrategy records its build calls and runs an optional body.
type fakeStrategy struct {
	name     string
	sentinel string
	calls    int
	build    func(config *BuildConfig) (*BuildResult, error)
}

func (s *fakeStrategy) Name() string     { return s.name }
func (s *fakeStrategy) Sentinel() string { return s.sentinel }

func (s *fakeStrategy) LibraryDir(buildRoot string) string {
	return filepath.Join(buildRoot, ".libs")
}

func (s *fakeStrategy) Build(_ context.Context, config *BuildConfig) (*BuildResult, error) {
	s.calls++
	if s.build == nil {
		return &BuildResult{Success: true, LibDir: s.LibraryDir(config.BuildRoot)}, nil
	}
	return s.build(config)
}
