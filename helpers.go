package spatialext

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// MatchesPattern checks if a filename matches any of the given regex patterns.
//
// Strategies use it to decide whether a file in the source tree is their
// build descriptor. Invalid patterns are silently skipped.
//
//	if MatchesPattern(name, `^autogen\.sh$`, `^configure\.ac$`) {
//	    // autotools tree
//	}
func MatchesPattern(filename string, patterns ...string) bool {
	for _, pattern := range patterns {
		if matched, _ := regexp.MatchString(pattern, filename); matched {
			return true
		}
	}
	return false
}

// BuildError creates a standardized stage error with output context.
//
// The message always starts with "<stage> failed" so callers can report
// which step of the toolchain broke:
//
//	configure failed: exit status 1
//
//	Build output:
//	checking for gcc... no
//	configure: error: no acceptable C compiler found in $PATH
func BuildError(stage string, output []string, err error) error {
	outputStr := strings.TrimSpace(strings.Join(output, "\n"))

	var prefix string
	if err != nil {
		prefix = fmt.Sprintf("%s failed: %v", stage, err)
	} else {
		prefix = fmt.Sprintf("%s failed", stage)
	}

	if outputStr != "" {
		return fmt.Errorf("%s\n\nBuild output:\n%s", prefix, outputStr)
	}

	return fmt.Errorf("%s", prefix)
}

// pathExists reports whether path exists. Errors other than not-exist count
// as present so that a permission problem is never mistaken for "needs work".
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

func splitLines(output []byte) []string {
	text := strings.TrimRight(string(output), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
