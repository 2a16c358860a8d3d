package spatialext

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/samber/lo"
)

var execLookPath = exec.LookPath

// ToolChecker is implemented by strategies that can verify their external
// tools before the gate starts a build.
//
//	if checker, ok := strategy.(ToolChecker); ok {
//	    if err := checker.CheckTools(); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools this strategy needs.
	RequiredTools() []ToolRequirement

	// CheckTools returns nil if all required tools are found, or an error
	// describing which tools are missing. Optional tools never fail.
	CheckTools() error
}

// ToolRequirement describes a build tool dependency.
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name: "make",
//	    Alternatives: []string{"gmake"},
//	    Purpose: "Build automation tool",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cmake", "autoreconf").
	Name string

	// Alternatives can satisfy this requirement when Name is missing.
	Alternatives []string

	// Optional tools are checked but never cause an error.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	if _, err := execLookPath(tool); err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// available reports whether the tool or any of its alternatives is on PATH.
func (r ToolRequirement) available() bool {
	return lo.ContainsBy(append([]string{r.Name}, r.Alternatives...), func(tool string) bool {
		return CheckToolAvailable(tool) == nil
	})
}

func (r ToolRequirement) describe() string {
	if r.Purpose == "" {
		return r.Name
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.Purpose)
}

// CheckRequiredTools verifies all required tools are available and reports
// every missing one in a single error:
//
//	missing required tools: autoreconf (Autotools bootstrap), libtoolize (Libtool)
func CheckRequiredTools(requirements []ToolRequirement) error {
	missing := lo.FilterMap(requirements, func(req ToolRequirement, _ int) (string, bool) {
		if req.Optional || req.available() {
			return "", false
		}
		return req.describe(), true
	})

	switch len(missing) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s not found in PATH", missing[0])
	default:
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
}
