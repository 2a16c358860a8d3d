package spatialext

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindBuildRoot(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		sentinel string
		expected string
		found    bool
	}{
		{
			name:     "top level",
			files:    []string{"autogen.sh"},
			sentinel: "autogen.sh",
			expected: ".",
			found:    true,
		},
		{
			name:     "nested wins over top level",
			files:    []string{"autogen.sh", "libspatialindex-1.8.5/autogen.sh"},
			sentinel: "autogen.sh",
			expected: "libspatialindex-1.8.5",
			found:    true,
		},
		{
			name:     "deepest first",
			files:    []string{"a/CMakeLists.txt", "a/b/CMakeLists.txt"},
			sentinel: "CMakeLists.txt",
			expected: "a/b",
			found:    true,
		},
		{
			name:     "lexical order between siblings",
			files:    []string{"beta/autogen.sh", "alpha/autogen.sh"},
			sentinel: "autogen.sh",
			expected: "alpha",
			found:    true,
		},
		{
			name:     "directory named like sentinel is ignored",
			files:    []string{"autogen.sh/readme"},
			sentinel: "autogen.sh",
			found:    false,
		},
		{
			name:     "missing",
			files:    []string{"README", "src/main.cc"},
			sentinel: "autogen.sh",
			found:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := t.TempDir()
			writeTree(t, tree, tt.files...)

			dir, ok, err := FindBuildRoot(tree, tt.sentinel)
			if err != nil {
				t.Fatalf("FindBuildRoot failed: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v (%s)", tt.found, ok, dir)
			}
			if ok && dir != filepath.Join(tree, filepath.FromSlash(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, dir)
			}
		})
	}
}

func TestFindBuildRootUnreadableStart(t *testing.T) {
	_, ok, err := FindBuildRoot(filepath.Join(t.TempDir(), "missing"), "autogen.sh")
	if err == nil || ok {
		t.Fatalf("expected an error for a missing start directory, got ok=%v err=%v", ok, err)
	}
}

func TestFindOutermostRoot(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected string
		found    bool
	}{
		{
			name:     "top level wins over nested",
			files:    []string{"libspatialindex-1.8.5/CMakeLists.txt", "libspatialindex-1.8.5/src/CMakeLists.txt"},
			expected: "libspatialindex-1.8.5",
			found:    true,
		},
		{
			name:     "shallowest across siblings",
			files:    []string{"alpha/deep/CMakeLists.txt", "beta/CMakeLists.txt"},
			expected: "beta",
			found:    true,
		},
		{
			name:     "lexical order at equal depth",
			files:    []string{"beta/CMakeLists.txt", "alpha/CMakeLists.txt"},
			expected: "alpha",
			found:    true,
		},
		{
			name:  "missing",
			files: []string{"autogen.sh", "src/main.cc"},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := t.TempDir()
			writeTree(t, tree, tt.files...)

			dir, ok, err := FindOutermostRoot(tree, "CMakeLists.txt")
			if err != nil {
				t.Fatalf("FindOutermostRoot failed: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v (%s)", tt.found, ok, dir)
			}
			if ok && dir != filepath.Join(tree, filepath.FromSlash(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, dir)
			}
		})
	}
}

func TestCMakeLocateRoot(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		descriptor string
		expected   string
		found      bool
	}{
		{
			name:     "outermost build description",
			files:    []string{"pkg/autogen.sh", "pkg/CMakeLists.txt", "pkg/src/CMakeLists.txt"},
			expected: "pkg",
			found:    true,
		},
		{
			name:       "descriptor roots at the bootstrap script",
			files:      []string{"pkg/autogen.sh", "pkg/src/CMakeLists.txt"},
			descriptor: "spatialindex.cmake",
			expected:   "pkg",
			found:      true,
		},
		{
			name:       "descriptor roots at configure.ac",
			files:      []string{"pkg/configure.ac", "pkg/README"},
			descriptor: "spatialindex.cmake",
			expected:   "pkg",
			found:      true,
		},
		{
			name:       "descriptor falls back to the outermost build description",
			files:      []string{"pkg/CMakeLists.txt", "pkg/src/CMakeLists.txt"},
			descriptor: "spatialindex.cmake",
			expected:   "pkg",
			found:      true,
		},
		{
			name:  "no build description",
			files: []string{"pkg/autogen.sh"},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := t.TempDir()
			writeTree(t, tree, tt.files...)

			dir, ok, err := (&CMakeStrategy{Descriptor: tt.descriptor}).LocateRoot(tree)
			if err != nil {
				t.Fatalf("LocateRoot failed: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v (%s)", tt.found, ok, dir)
			}
			if ok && dir != filepath.Join(tree, filepath.FromSlash(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, dir)
			}
		})
	}
}

func TestFindSharedLibraries(t *testing.T) {
	libDir := filepath.Join(t.TempDir(), ".libs")
	writeTree(t, libDir,
		"libspatialindex.so",
		"libspatialindex.so.4.0.1",
		"libspatialindex_c.so",
		"libspatialindex.la",
		"libspatialindex.lai",
		"objects/rtree.o",
	)

	libs, err := findSharedLibraries(libDir)
	if err != nil {
		t.Fatalf("findSharedLibraries failed: %v", err)
	}

	expected := []string{"libspatialindex.so", "libspatialindex.so.4.0.1", "libspatialindex_c.so"}
	if diff := cmp.Diff(expected, libs); diff != "" {
		t.Errorf("libraries mismatch (-want +got):\n%s", diff)
	}
}

func TestFindSharedLibrariesMissingDir(t *testing.T) {
	_, err := findSharedLibraries(filepath.Join(t.TempDir(), ".libs"))
	if !errors.Is(err, ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery, got %v", err)
	}
}
