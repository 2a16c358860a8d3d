package spatialext

import (
	"os"
	"path/filepath"
)

// FindBuildRoot searches the tree under start for a file called sentinel and
// returns the directory containing the first match.
//
// The walk is post-order: every subdirectory (in lexical order) is searched
// before the directory's own files are considered, so a sentinel nested in a
// sub-build wins over a placeholder at the top of the tree. Unreadable
// subdirectories are skipped. When nothing matches, ok is false and err is
// nil; err is only set when start itself cannot be read.
func FindBuildRoot(start, sentinel string) (dir string, ok bool, err error) {
	entries, err := os.ReadDir(start)
	if err != nil {
		return "", false, err
	}
	dir, ok = findInEntries(start, entries, sentinel)
	return dir, ok, nil
}

func findInEntries(dir string, entries []os.DirEntry, sentinel string) (string, bool) {
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		childEntries, err := os.ReadDir(child)
		if err != nil {
			continue
		}
		if found, ok := findInEntries(child, childEntries, sentinel); ok {
			return found, true
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() && entry.Name() == sentinel {
			return dir, true
		}
	}
	return "", false
}

// FindOutermostRoot returns the shallowest directory under start holding a
// file called sentinel. Directories of equal depth are visited in lexical
// order. A cmake project's root is its outermost CMakeLists.txt; nested ones
// belong to add_subdirectory parts.
func FindOutermostRoot(start, sentinel string) (dir string, ok bool, err error) {
	entries, err := os.ReadDir(start)
	if err != nil {
		return "", false, err
	}

	type level struct {
		dir     string
		entries []os.DirEntry
	}
	queue := []level{{start, entries}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, entry := range current.entries {
			if !entry.IsDir() && entry.Name() == sentinel {
				return current.dir, true, nil
			}
		}
		for _, entry := range current.entries {
			if !entry.IsDir() {
				continue
			}
			child := filepath.Join(current.dir, entry.Name())
			childEntries, err := os.ReadDir(child)
			if err != nil {
				continue
			}
			queue = append(queue, level{child, childEntries})
		}
	}
	return "", false, nil
}

// sharedLibraryPatterns match the libraries autotools and cmake leave behind,
// including versioned sonames such as libspatialindex.so.4.0.1.
var sharedLibraryPatterns = []string{
	`\.so$`,            // Linux/Unix shared libraries
	`\.so(\.[0-9]+)+$`, // versioned sonames
	`\.dylib$`,         // macOS dynamic libraries
	`\.dll$`,           // Windows dynamic libraries
}

// findSharedLibraries returns the names of the shared libraries in libDir.
// A missing libDir is a discovery error.
func findSharedLibraries(libDir string) ([]string, error) {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return nil, discoveryError("library directory "+filepath.Base(libDir), filepath.Dir(libDir))
	}

	var libs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if MatchesPattern(entry.Name(), sharedLibraryPatterns...) {
			libs = append(libs, entry.Name())
		}
	}
	return libs, nil
}
