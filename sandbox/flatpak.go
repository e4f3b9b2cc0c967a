// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
)

// FlatpakSpawner builds flatpak-spawn argv for the portal host-command
// backend: used when the parent process is itself confined inside a
// Flatpak sandbox and needs the portal to run the loader on its
// behalf, one namespace level up. No seccomp filter is installed by
// this backend — the portal's own policy is trusted, per the exposure
// rules it was built under.
type FlatpakSpawner struct{}

// FlatpakSpawnOptions holds the per-launch parameters for the
// FLATPAK_SPAWN backend, mirroring BwrapOptions where the two
// backends share a concept.
type FlatpakSpawnOptions struct {
	// InputDir, when non-empty, is exposed read-only via
	// --sandbox-expose-path-ro.
	InputDir string

	// ExposeFontconfigPaths lists the host fontconfig directories to
	// expose read-only, pre-filtered to those that exist (capabilities
	// detection happens once, in the caller).
	ExposeFontconfigPaths []string

	// AddressSpaceBytes, when non-zero, is applied via a prlimit
	// prefix ahead of the loader's own exec, since flatpak-spawn has
	// no rlimit flag of its own.
	AddressSpaceBytes uint64

	// Command is the loader/editor binary and its argv.
	Command []string
}

// Build constructs the flatpak-spawn argv: the portal's host command
// runner, sandboxed, network-denied, with one --sandbox-expose-path-ro
// per requested exposure.
func (s *FlatpakSpawner) Build(opts *FlatpakSpawnOptions) ([]string, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	args := []string{"--sandbox", "--no-network"}

	if opts.InputDir != "" {
		args = append(args, "--sandbox-expose-path-ro", opts.InputDir)
	}
	for _, path := range opts.ExposeFontconfigPaths {
		args = append(args, "--sandbox-expose-path-ro", path)
	}

	args = append(args, prlimitPrefix(opts.AddressSpaceBytes)...)
	args = append(args, opts.Command...)

	return append([]string{"flatpak-spawn"}, args...), nil
}
