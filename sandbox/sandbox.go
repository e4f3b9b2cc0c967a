// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/valoq/glycin/registry"
)

// LaunchOptions carries the per-launch parameters Launch needs beyond
// the registry entry and the socket it's connecting.
type LaunchOptions struct {
	// Policy selects the sandbox backend. AUTO (the zero value)
	// resolves via ResolvePolicy using freshly detected Capabilities.
	Policy Policy

	// InputPath is the absolute path to the input file on the host,
	// used to compute the directory bound in when the entry's
	// ExposeBaseDir is set. Empty for a non-file (memory/stream)
	// source, in which case ExposeBaseDir has no effect.
	InputPath string

	// ExtraEnv are additional environment variables layered over the
	// profile's own, used by tests and cmd/glycin-inspect.
	ExtraEnv map[string]string

	// Logger receives structured diagnostics about backend resolution
	// and argv construction. Defaults to slog.Default().
	Logger *slog.Logger

	// Capabilities overrides the host probe performed by
	// DetectCapabilities, for tests that want to force a backend
	// without the real binaries installed.
	Capabilities *Capabilities
}

// Launch builds the exec.Cmd that runs entry's binary inside the
// resolved sandbox backend, with childSocket inherited as the loader's
// well-known IPC file descriptor. The caller starts the returned
// command and is responsible for closing its own end of the socket
// pair and for reaping the process.
func Launch(ctx context.Context, entry registry.Entry, childSocket *os.File, opts LaunchOptions) (*exec.Cmd, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	caps := opts.Capabilities
	if caps == nil {
		caps = DetectCapabilities()
	}
	policy := ResolvePolicy(opts.Policy, caps)
	logger.Info("resolved sandbox policy", "requested", opts.Policy.String(), "resolved", policy.String())

	var inputDir string
	if entry.ExposeBaseDir && opts.InputPath != "" {
		abs, err := filepath.Abs(opts.InputPath)
		if err != nil {
			return nil, fmt.Errorf("sandbox: resolve input path: %w", err)
		}
		inputDir = filepath.Dir(abs)
	}

	switch policy {
	case BWRAP:
		return launchBwrap(ctx, entry, childSocket, inputDir, opts, caps, logger)
	case FlatpakSpawn:
		return launchFlatpakSpawn(ctx, entry, childSocket, inputDir, opts, caps)
	case NotSandboxed:
		logger.Warn("running loader without sandbox isolation", "exec_path", entry.ExecPath)
		return launchNotSandboxed(ctx, entry, childSocket, opts)
	default:
		return nil, fmt.Errorf("sandbox: unresolved policy %v", policy)
	}
}

func launchBwrap(ctx context.Context, entry registry.Entry, childSocket *os.File, inputDir string, opts LaunchOptions, caps *Capabilities, logger *slog.Logger) (*exec.Cmd, error) {
	if !caps.CanRunSandbox() {
		return nil, fmt.Errorf("sandbox: BWRAP backend unavailable: %s", caps.SkipReason())
	}

	profile, err := DefaultProfile()
	if err != nil {
		return nil, err
	}
	vars := Variables{"TERM": os.Getenv("TERM")}
	profile = vars.ExpandProfile(profile)
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	seccompFile, err := seccompFilterFile()
	if err != nil {
		return nil, err
	}

	builder := NewBwrapBuilder()
	bwrapArgs, err := builder.Build(&BwrapOptions{
		Profile:          profile,
		InputDir:         inputDir,
		ExposeFontconfig: entry.FontconfigVisible,
		ExtraEnv:         opts.ExtraEnv,
		Command:          []string{entry.ExecPath},
		SeccompFD:        4, // fd 3 is childSocket, fd 4 is seccompFile; see ExtraFiles below.
	})
	if err != nil {
		seccompFile.Close()
		return nil, fmt.Errorf("sandbox: build bwrap argv: %w", err)
	}

	bwrapPath := caps.BwrapPath
	fullArgv := append([]string{bwrapPath}, bwrapArgs...)

	cmd := exec.CommandContext(ctx, fullArgv[0], fullArgv[1:]...)
	cmd.ExtraFiles = []*os.File{childSocket, seccompFile}
	setMinimalEnv(cmd)
	setProcessGroup(cmd)

	logger.Debug("bwrap argv assembled", "argv", fullArgv)
	return cmd, nil
}

func launchFlatpakSpawn(ctx context.Context, entry registry.Entry, childSocket *os.File, inputDir string, opts LaunchOptions, caps *Capabilities) (*exec.Cmd, error) {
	if !caps.FlatpakSpawnAvailable {
		return nil, fmt.Errorf("sandbox: FLATPAK_SPAWN backend unavailable: flatpak-spawn not found")
	}

	profile, err := DefaultProfile()
	if err != nil {
		return nil, err
	}

	var fontPaths []string
	if entry.FontconfigVisible {
		for _, path := range []string{"/etc/fonts", "/usr/share/fonts", "/usr/share/fontconfig"} {
			if _, statErr := os.Stat(path); statErr == nil {
				fontPaths = append(fontPaths, path)
			}
		}
	}

	spawner := &FlatpakSpawner{}
	argv, err := spawner.Build(&FlatpakSpawnOptions{
		InputDir:              inputDir,
		ExposeFontconfigPaths: fontPaths,
		AddressSpaceBytes:     profile.Resources.AddressSpaceBytes,
		Command:               []string{entry.ExecPath},
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox: build flatpak-spawn argv: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.ExtraFiles = []*os.File{childSocket}
	setMinimalEnv(cmd)
	setProcessGroup(cmd)

	return cmd, nil
}

// launchNotSandboxed runs the loader directly with no namespace
// isolation at all, so it still enforces the RLIMIT_AS ceiling itself
// via the same prlimit prefix the FLATPAK_SPAWN backend uses — bwrap
// applies --rlimit-as for the BWRAP backend, and nothing else stands
// between this process and the loader's execve here.
func launchNotSandboxed(ctx context.Context, entry registry.Entry, childSocket *os.File, opts LaunchOptions) (*exec.Cmd, error) {
	profile, err := DefaultProfile()
	if err != nil {
		return nil, err
	}

	argv := append(prlimitPrefix(profile.Resources.AddressSpaceBytes), entry.ExecPath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.ExtraFiles = []*os.File{childSocket}
	setMinimalEnv(cmd)
	setProcessGroup(cmd)
	return cmd, nil
}

// setMinimalEnv gives the child exactly PATH and TERM rather than
// letting exec.Cmd default to inheriting this process's full
// environment, which would otherwise be readable by the sandboxed
// loader via /proc/self/environ even before any namespace isolation
// takes effect.
func setMinimalEnv(cmd *exec.Cmd) {
	cmd.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"TERM=" + os.Getenv("TERM"),
	}
}

// setProcessGroup puts the child in its own process group so a
// deadline or cancellation can kill the whole sandbox tree (bwrap and
// everything it spawned) via a single negative-pid kill, rather than
// leaving grandchildren behind.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// ExitError represents a non-zero exit from a sandboxed loader or
// editor process.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// IsExitError reports whether err is an ExitError and returns its code.
func IsExitError(err error) (int, bool) {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code, true
	}
	return 0, false
}

// KillGroup sends SIGKILL to cmd's entire process group, used on
// deadline expiry or client cancellation once Launch has started the
// command with setProcessGroup.
func KillGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
