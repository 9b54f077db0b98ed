package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cagent-dev/claude-agent-sdk-go/internal/errors"
)

const (
	// MinimumVersion is the minimum required Claude CLI version.
	MinimumVersion = "2.0.0"

	// VersionCheckTimeout is the timeout for the CLI version check command.
	VersionCheckTimeout = 2 * time.Second

	skipVersionCheckEnvVar = "CLAUDE_AGENT_SDK_SKIP_VERSION_CHECK"
)

var semverPrefix = regexp.MustCompile(`^([0-9]+\.[0-9]+\.[0-9]+)`)

// Config holds configuration for CLI discovery.
type Config struct {
	// CliPath is an explicit CLI path that skips PATH search.
	// If empty, discovery will search PATH and common locations.
	CliPath string

	// SkipVersionCheck skips version validation during discovery.
	// Can also be controlled via CLAUDE_AGENT_SDK_SKIP_VERSION_CHECK env var.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates and validates the Claude CLI binary.
type Discoverer interface {
	// Discover locates the Claude CLI binary and validates its version.
	// Returns the absolute path to the CLI binary or an error.
	Discover(ctx context.Context) (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new CLI discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &discoverer{cfg: cfg, log: log}
}

// Discover locates the Claude CLI binary and validates its version.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	d.log.Debug("discovering claude CLI binary")

	cliPath, err := d.locate()
	if err != nil {
		d.log.Error("failed to find claude CLI", "error", err)

		return "", err
	}

	d.log.Debug("found claude CLI binary", "cli_path", cliPath)
	d.checkVersion(ctx, cliPath)

	return cliPath, nil
}

// locate finds the CLI binary: an explicit path if configured, otherwise the
// first of candidatePaths (PATH lookup, then a short list of known
// locations) that exists.
func (d *discoverer) locate() (string, error) {
	if d.cfg.CliPath != "" {
		d.log.Debug("using explicit CLI path", "cli_path", d.cfg.CliPath)

		if _, err := os.Stat(d.cfg.CliPath); err != nil {
			return "", &errors.CLINotFoundError{SearchedPaths: []string{d.cfg.CliPath}}
		}

		return d.cfg.CliPath, nil
	}

	var searched []string

	if path, err := exec.LookPath("claude"); err == nil {
		d.log.Debug("found claude in PATH", "path", path)

		return path, nil
	}

	searched = append(searched, "$PATH")

	for _, path := range d.candidatePaths() {
		searched = append(searched, path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("found CLI at known location", "path", path)

			return path, nil
		}
	}

	d.log.Warn("claude CLI not found in any searched location", "searched_paths", searched)

	return "", &errors.CLINotFoundError{SearchedPaths: searched}
}

// candidatePaths lists well-known install locations checked after PATH.
func (d *discoverer) candidatePaths() []string {
	paths := []string{
		"/usr/local/bin/claude",
		"/usr/bin/claude",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".local/bin/claude"))
	}

	return paths
}

// checkVersion warns to stderr if the CLI reports a version below
// MinimumVersion. It never returns an error: a failed or skipped check just
// means discovery proceeds without the safety net.
func (d *discoverer) checkVersion(ctx context.Context, cliPath string) {
	if d.cfg.SkipVersionCheck || os.Getenv(skipVersionCheckEnvVar) != "" {
		d.log.Debug("skipping CLI version check")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, cliPath, "-v").Output()
	if err != nil {
		d.log.Debug("CLI version check failed", "error", err)

		return
	}

	version := parseSemver(string(output))
	if version == "" {
		d.log.Debug("could not parse CLI version", "output", strings.TrimSpace(string(output)))

		return
	}

	if compareVersions(version, MinimumVersion) >= 0 {
		d.log.Debug("CLI version check passed", "version", version, "minimum", MinimumVersion)

		return
	}

	d.log.Warn("claude CLI version is unsupported by the agent SDK",
		"version", version, "minimum_required", MinimumVersion)

	fmt.Fprintf(os.Stderr,
		"Warning: Claude Code version %s is unsupported in the Agent SDK. "+
			"Minimum required version is %s. Some features may not work correctly.\n",
		version, MinimumVersion,
	)
}

// parseSemver extracts a leading "X.Y.Z" from raw CLI version output,
// returning "" if the output doesn't start with one.
func parseSemver(raw string) string {
	match := semverPrefix.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return ""
	}

	return match[1]
}

// compareVersions compares two dotted "X.Y.Z" version strings component by
// component. Returns -1 if a < b, 0 if equal, 1 if a > b. Missing or
// non-numeric components are treated as 0.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		if cmp := compareComponent(aParts, bParts, i); cmp != 0 {
			return cmp
		}
	}

	return 0
}

func compareComponent(aParts, bParts []string, i int) int {
	var aNum, bNum int

	if i < len(aParts) {
		aNum, _ = strconv.Atoi(aParts[i])
	}

	if i < len(bParts) {
		bNum, _ = strconv.Atoi(bParts[i])
	}

	switch {
	case aNum < bNum:
		return -1
	case aNum > bNum:
		return 1
	default:
		return 0
	}
}
