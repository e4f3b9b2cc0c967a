// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BwrapOptions holds the per-launch parameters layered onto the
// bundled Profile to build one bwrap invocation.
type BwrapOptions struct {
	// Profile is the resolved and expanded profile to use.
	Profile *Profile

	// InputDir, when non-empty, is bind-mounted read-only at its
	// original path — the registry Entry's ExposeBaseDir flag applied
	// to the input file's containing directory.
	InputDir string

	// ExposeFontconfig, when true, binds the host's fontconfig
	// configuration and cache read-only — the registry Entry's
	// FontconfigVisible flag.
	ExposeFontconfig bool

	// ExtraBinds are additional bind mounts in "source:dest[:mode]"
	// form, used by tests and the CLI inspection tool.
	ExtraBinds []string

	// ExtraEnv are additional environment variables, merged over the
	// profile's own and sorted for deterministic --setenv ordering.
	ExtraEnv map[string]string

	// Command is the loader/editor binary and its argv to run inside
	// the sandbox.
	Command []string

	// SeccompFD, when non-negative, is the file descriptor number (as
	// seen by the exec'd bwrap process, after ExtraFiles inheritance)
	// of a pipe holding a serialized classic-BPF seccomp program built
	// by buildSeccompFilter. Passed to bwrap's --seccomp flag.
	SeccompFD int
}

// BwrapBuilder builds bubblewrap command-line arguments.
type BwrapBuilder struct {
	args []string
	env  map[string]string
}

// NewBwrapBuilder creates a new builder.
func NewBwrapBuilder() *BwrapBuilder {
	return &BwrapBuilder{
		args: []string{},
		env:  make(map[string]string),
	}
}

// Build constructs the bwrap arguments from options.
func (b *BwrapBuilder) Build(opts *BwrapOptions) ([]string, error) {
	if opts.Profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	b.args = []string{}
	b.env = make(map[string]string)

	b.addNamespaces(opts.Profile.Namespaces)
	b.addSecurity(opts.Profile.Security)

	if err := b.addProfileMounts(opts.Profile); err != nil {
		return nil, err
	}

	if opts.InputDir != "" {
		b.args = append(b.args, "--ro-bind", opts.InputDir, opts.InputDir)
	}
	if opts.ExposeFontconfig {
		b.addFontconfigMounts()
	}

	if err := b.addExtraBinds(opts.ExtraBinds); err != nil {
		return nil, err
	}

	for _, dir := range opts.Profile.CreateDirs {
		b.args = append(b.args, "--dir", dir)
	}

	// The sandboxed loader gets exactly the environment the profile
	// and launch options grant it — nothing inherited from the
	// parent's own environment.
	b.args = append(b.args, "--clearenv")

	for key, value := range opts.Profile.Environment {
		b.env[key] = value
	}
	for key, value := range opts.ExtraEnv {
		b.env[key] = value
	}

	envKeys := make([]string, 0, len(b.env))
	for key := range b.env {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)
	for _, key := range envKeys {
		b.args = append(b.args, "--setenv", key, b.env[key])
	}

	if opts.Profile.Resources.HasLimit() {
		b.args = append(b.args, "--rlimit-as", fmt.Sprintf("%d", opts.Profile.Resources.AddressSpaceBytes))
	}
	if opts.SeccompFD >= 0 {
		b.args = append(b.args, "--seccomp", fmt.Sprintf("%d", opts.SeccompFD))
	}

	b.args = append(b.args, "--")
	b.args = append(b.args, opts.Command...)

	return b.args, nil
}

// addNamespaces adds namespace unsharing options.
func (b *BwrapBuilder) addNamespaces(ns NamespaceConfig) {
	if ns.PID {
		b.args = append(b.args, "--unshare-pid")
	}
	if ns.Net {
		b.args = append(b.args, "--unshare-net")
	}
	if ns.IPC {
		b.args = append(b.args, "--unshare-ipc")
	}
	if ns.UTS {
		b.args = append(b.args, "--unshare-uts")
	}
	if ns.Cgroup {
		b.args = append(b.args, "--unshare-cgroup")
	}
	if ns.User {
		b.args = append(b.args, "--unshare-user")
	}
}

// addSecurity adds security options.
func (b *BwrapBuilder) addSecurity(sec SecurityConfig) {
	if sec.NewSession {
		b.args = append(b.args, "--new-session")
	}
	if sec.DieWithParent {
		b.args = append(b.args, "--die-with-parent")
	}
	// --cap-drop ALL and PR_SET_NO_NEW_PRIVS are always in effect for
	// an unprivileged bwrap invocation; NoNewPrivs is a documentation
	// field, not a separate flag.
}

// addProfileMounts adds the mounts from the profile configuration.
func (b *BwrapBuilder) addProfileMounts(profile *Profile) error {
	for _, mount := range profile.Filesystem {
		source := mount.Source

		switch mount.Type {
		case MountTypeTmpfs:
			b.args = append(b.args, "--tmpfs", mount.Dest)

		case MountTypeProc:
			b.args = append(b.args, "--proc", mount.Dest)

		case MountTypeDev:
			b.args = append(b.args, "--dev", mount.Dest)

		default:
			if mount.Optional {
				if _, err := os.Stat(source); os.IsNotExist(err) {
					continue
				}
			}

			if mount.Glob {
				matches, err := filepath.Glob(source)
				if err != nil {
					return fmt.Errorf("invalid glob pattern %q: %w", source, err)
				}
				for _, match := range matches {
					dest := filepath.Join(mount.Dest, filepath.Base(match))
					if mount.Mode == MountModeRO {
						b.args = append(b.args, "--ro-bind", match, dest)
					} else {
						b.args = append(b.args, "--bind", match, dest)
					}
				}
				continue
			}

			if mount.Mode == MountModeRO {
				b.args = append(b.args, "--ro-bind", source, mount.Dest)
			} else {
				b.args = append(b.args, "--bind", source, mount.Dest)
			}
		}
	}

	return nil
}

// addFontconfigMounts binds the host's fontconfig configuration and
// cache read-only, skipping any path that doesn't exist on this host.
func (b *BwrapBuilder) addFontconfigMounts() {
	paths := []string{
		"/etc/fonts",
		"/usr/share/fonts",
		"/usr/share/fontconfig",
		os.ExpandEnv("$HOME/.cache/fontconfig"),
		os.ExpandEnv("$HOME/.fonts"),
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			b.args = append(b.args, "--ro-bind", path, path)
		}
	}
}

// addExtraBinds adds CLI-specified bind mounts.
func (b *BwrapBuilder) addExtraBinds(binds []string) error {
	for _, bind := range binds {
		source, dest, mode, err := parseBindSpec(bind)
		if err != nil {
			return err
		}

		if mode == MountModeRO {
			b.args = append(b.args, "--ro-bind", source, dest)
		} else {
			b.args = append(b.args, "--bind", source, dest)
		}
	}
	return nil
}

// parseBindSpec parses a bind specification in format "source:dest[:mode]".
func parseBindSpec(spec string) (source, dest, mode string, err error) {
	parts := splitBindSpec(spec)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("invalid bind spec %q: must be source:dest[:mode]", spec)
	}

	source = parts[0]
	dest = parts[1]
	mode = MountModeRO // Default to the safer option.

	if len(parts) >= 3 {
		modeStr := parts[2]
		if modeStr != MountModeRO && modeStr != MountModeRW {
			return "", "", "", fmt.Errorf("invalid bind mode %q: must be ro or rw", modeStr)
		}
		mode = modeStr
	}

	return source, dest, mode, nil
}

// splitBindSpec splits a bind spec in format "source:dest[:mode]".
// For simplicity, paths are assumed not to contain colons.
func splitBindSpec(spec string) []string {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2, 3:
		return parts
	default:
		return []string{spec}
	}
}

// BwrapPath returns the path to the bwrap executable.
func BwrapPath() (string, error) {
	paths := []string{
		"/usr/bin/bwrap",
		"/usr/local/bin/bwrap",
		"/bin/bwrap",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("bwrap not found in standard locations")
}
