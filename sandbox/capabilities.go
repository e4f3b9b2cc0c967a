// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"os/exec"
	"strings"
)

// Capabilities describes what sandbox backends are available on this
// host, used by ResolvePolicy to pick AUTO's actual backend and, via
// SkipReason, to report why the BWRAP backend is unavailable.
type Capabilities struct {
	// BwrapAvailable is true if bubblewrap is installed.
	BwrapAvailable bool

	// BwrapPath is the path to bwrap if available.
	BwrapPath string

	// BwrapVersion is the bwrap version string.
	BwrapVersion string

	// UserNamespacesEnabled is true if unprivileged user namespaces work.
	UserNamespacesEnabled bool

	// InFlatpak is true if this process itself is running inside a
	// Flatpak sandbox (detected via /.flatpak-info).
	InFlatpak bool

	// FlatpakAppID is this process's own Flatpak application ID, read
	// from /.flatpak-info when InFlatpak is true.
	FlatpakAppID string

	// FlatpakSpawnAvailable is true if flatpak-spawn is on PATH, which
	// is how an app inside Flatpak reaches the portal's host command
	// runner.
	FlatpakSpawnAvailable bool
}

// DetectCapabilities probes this host for the BWRAP and FLATPAK_SPAWN
// sandbox backends.
func DetectCapabilities() *Capabilities {
	caps := &Capabilities{}

	if path, err := BwrapPath(); err == nil {
		caps.BwrapAvailable = true
		caps.BwrapPath = path

		if out, err := exec.Command(path, "--version").Output(); err == nil {
			caps.BwrapVersion = strings.TrimSpace(string(out))
		}
	}

	caps.UserNamespacesEnabled = checkUserNamespaces()

	if appID, ok := readFlatpakAppID(); ok {
		caps.InFlatpak = true
		caps.FlatpakAppID = appID
	}

	if _, err := exec.LookPath("flatpak-spawn"); err == nil {
		caps.FlatpakSpawnAvailable = true
	}

	return caps
}

// readFlatpakAppID reads the "name=" key of the [Application] section
// of /.flatpak-info, the marker file Flatpak bind-mounts into every
// sandboxed app.
func readFlatpakAppID() (string, bool) {
	data, err := os.ReadFile("/.flatpak-info")
	if err != nil {
		return "", false
	}
	inApplication := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inApplication = line == "[Application]"
			continue
		}
		if inApplication && strings.HasPrefix(line, "name=") {
			return strings.TrimPrefix(line, "name="), true
		}
	}
	return "", false
}

// CanRunSandbox returns true if basic bwrap-backed sandbox execution
// is possible.
func (c *Capabilities) CanRunSandbox() bool {
	return c.BwrapAvailable && c.UserNamespacesEnabled
}

// checkUserNamespaces tests if unprivileged user namespaces work.
func checkUserNamespaces() bool {
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err == nil && strings.TrimSpace(string(data)) == "0" {
		return false
	}
	// File not existing usually means userns is allowed by default.

	bwrapPath, err := BwrapPath()
	if err != nil {
		return false
	}

	cmd := exec.Command(bwrapPath,
		"--unshare-user",
		"--ro-bind", "/", "/",
		"--",
		"true",
	)
	return cmd.Run() == nil
}

// SkipReason returns a human-readable reason why the BWRAP backend
// isn't available, or the empty string if it is.
func (c *Capabilities) SkipReason() string {
	if !c.BwrapAvailable {
		return "bubblewrap not installed"
	}
	if !c.UserNamespacesEnabled {
		return "unprivileged user namespaces not enabled (set kernel.unprivileged_userns_clone=1)"
	}
	return ""
}
