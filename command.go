package spatialext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/magefile/mage/sh"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Seams for tests.
var (
	execCommandContext = exec.CommandContext
	cpuCount           = runtime.NumCPU
)

// maxJobs caps make parallelism so shared build hosts are not saturated.
const maxJobs = 8

// errorOutputLines is how much trailing build output a StageError keeps.
const errorOutputLines = 40

// JobCount returns the make job count for a host with cpus logical CPUs:
// min(8, cpus), or 1 when the count is unknown (cpus <= 0).
func JobCount(cpus int) int {
	if cpus <= 0 {
		return 1
	}
	return min(maxJobs, cpus)
}

// jobsFor resolves the configured job count, falling back to the host.
func jobsFor(config *BuildConfig) int {
	if config.Jobs > 0 {
		return JobCount(config.Jobs)
	}
	return JobCount(cpuCount())
}

// runStage runs one toolchain subprocess with the build root as its working
// directory. A non-zero exit becomes a *StageError naming the stage.
func runStage(ctx context.Context, config *BuildConfig, result *BuildResult, stage, name string, args ...string) error {
	log := loggerOrNop(config.Logger).With(zap.String("stage", stage))

	cmd := execCommandContext(ctx, name, args...)
	cmd.Dir = config.BuildRoot
	cmd.Env = withOverlay(cmd.Env, config.Env)

	log.Info("running toolchain step",
		zap.String("command", strings.Join(append([]string{name}, args...), " ")),
		zap.String("dir", config.BuildRoot))

	output, err := cmd.CombinedOutput()
	lines := splitLines(output)
	result.Output = append(result.Output, lines...)
	for _, line := range lines {
		log.Debug(line)
	}

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s %s", name, strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", config.BuildRoot))
	}

	if err != nil {
		return &StageError{
			Stage:    stage,
			ExitCode: sh.ExitStatus(err),
			Output:   lastLines(result.Output, errorOutputLines),
			Err:      err,
		}
	}
	return nil
}

// withOverlay appends the overlay to base (os.Environ() when base is nil) in
// key order, so later entries win for duplicate keys.
func withOverlay(base []string, overlay map[string]string) []string {
	if base == nil {
		base = os.Environ()
	}
	extra := lo.MapToSlice(overlay, func(key, value string) string {
		return key + "=" + value
	})
	sort.Strings(extra)
	return append(base, extra...)
}

func lastLines(lines []string, n int) []string {
	if len(lines) <= n {
		return append([]string(nil), lines...)
	}
	return append([]string(nil), lines[len(lines)-n:]...)
}

// makeProgram returns the make binary, honouring MAKE from the overlay or
// the process environment.
func makeProgram(config *BuildConfig) string {
	if program := config.Env["MAKE"]; program != "" {
		return program
	}
	if program := os.Getenv("MAKE"); program != "" {
		return program
	}
	return "make"
}
