package tournament

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"arena-runner/util"
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const portCheckTimeout = 500 * time.Millisecond

var ErrEnvironment = errors.New("environment check failed")

// CommandRunner runs a short-lived tool and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Preflight checks the tools the match host and players need and looks for
// a match host left over from an earlier run.
type Preflight struct {
	Java     string
	Hostname string
	Port     int
	// Strict turns every problem into an error instead of a warning.
	Strict bool
	Run    CommandRunner
}

type PreflightReport struct {
	MPIRun bool
	// JavaVersion is the detected major version, or the default one when
	// detection failed.
	JavaVersion string
	StaleHost   bool
	Problems    []string
}

func (p Preflight) Check(ctx context.Context) (*PreflightReport, error) {
	run := p.Run
	if run == nil {
		run = execCommand
	}

	report := &PreflightReport{JavaVersion: frame.DefaultJavaVersion}

	if _, err := run(ctx, "mpirun", "--version"); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("mpirun is not usable: %v", err))
	} else {
		report.MPIRun = true
		applog.Info("mpirun is installed on the system")
	}

	java := p.Java
	if java == "" {
		java = "java"
	}
	out, err := run(ctx, java, "-version")
	if err == nil {
		var version string
		version, err = ParseJavaVersion(string(out))
		if err == nil {
			report.JavaVersion = version
			applog.Debug("Detected Java version", zap.String("major", version))
		}
	}
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("could not detect Java version: %v", err))
	} else if !frame.SupportedJavaVersion(report.JavaVersion) {
		report.Problems = append(report.Problems,
			fmt.Sprintf("no framework build for Java %s, using Java %s build",
				report.JavaVersion, frame.DefaultJavaVersion))
	}

	if util.PortInUse(p.Hostname, p.Port, portCheckTimeout) {
		report.StaleHost = true
		report.Problems = append(report.Problems,
			fmt.Sprintf("port %d is already in use, an old match host may still be running", p.Port))
	} else {
		applog.Info("No old match host found", zap.Int("port", p.Port))
	}

	for _, problem := range report.Problems {
		if p.Strict {
			applog.Error("Pre-flight check failed", zap.String("problem", problem))
		} else {
			applog.Warn("Pre-flight check failed", zap.String("problem", problem))
		}
	}

	if p.Strict && len(report.Problems) > 0 {
		return report, fmt.Errorf("%w: %s", ErrEnvironment, strings.Join(report.Problems, "; "))
	}
	return report, nil
}

// ParseJavaVersion extracts the major version from `java -version` output,
// e.g. `openjdk version "17.0.2" 2022-01-18` gives "17" and the legacy
// `"1.8.0_292"` numbering gives "8".
func ParseJavaVersion(output string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", fmt.Errorf("unexpected java -version output %q", line)
	}

	version := strings.Trim(fields[2], `"`)
	major, rest, _ := strings.Cut(version, ".")
	if major == "1" {
		major, _, _ = strings.Cut(rest, ".")
	}
	if i := strings.IndexAny(major, "_-+"); i >= 0 {
		major = major[:i]
	}
	if _, err := strconv.Atoi(major); err != nil {
		return "", fmt.Errorf("unexpected java version %q", fields[2])
	}
	return major, nil
}
