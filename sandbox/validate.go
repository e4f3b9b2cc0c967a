// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/valoq/glycin/registry"
)

// ValidationResult holds the result of a single validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not a failure.
}

// Validator performs pre-flight checks before a sandbox is launched.
type Validator struct {
	results []ValidationResult
	errors  int
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{results: make([]ValidationResult, 0)}
}

// Results returns every validation result recorded so far.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors reports whether any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// ValidateAll runs every check applicable to launching entry under the
// bundled profile.
func (v *Validator) ValidateAll(entry registry.Entry, profile *Profile) {
	v.ValidateBwrap()
	v.ValidateUserNamespaces()
	v.ValidateLoaderBinary(entry)
	v.ValidateProfile(profile)
	v.ValidateProfileSources(profile)
}

// ValidateBwrap checks that bubblewrap is available and executable.
func (v *Validator) ValidateBwrap() {
	path, err := BwrapPath()
	if err != nil {
		v.fail("bwrap", "bubblewrap not found in standard locations")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		v.fail("bwrap", fmt.Sprintf("cannot stat %s: %v", path, err))
		return
	}
	if info.Mode()&0111 == 0 {
		v.fail("bwrap", fmt.Sprintf("%s is not executable", path))
		return
	}

	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		v.warn("bwrap", fmt.Sprintf("found at %s but --version failed", path))
		return
	}
	v.pass("bwrap", fmt.Sprintf("available: %s (%s)", path, strings.TrimSpace(string(output))))
}

// ValidateUserNamespaces checks that unprivileged user namespaces are
// enabled, required by the BWRAP backend's --unshare-user.
func (v *Validator) ValidateUserNamespaces() {
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err != nil {
		if os.IsNotExist(err) {
			v.pass("userns", "user namespaces supported (no clone restriction)")
			return
		}
		v.warn("userns", fmt.Sprintf("cannot check user namespace support: %v", err))
		return
	}

	if strings.TrimSpace(string(data)) == "0" {
		v.fail("userns", "unprivileged user namespaces are disabled (set kernel.unprivileged_userns_clone=1)")
		return
	}
	v.pass("userns", "user namespaces enabled")
}

// ValidateLoaderBinary checks that the registry entry's exec path
// exists and is executable, catching a stale or misconfigured
// registry file before a sandbox is spawned for it.
func (v *Validator) ValidateLoaderBinary(entry registry.Entry) {
	info, err := os.Stat(entry.ExecPath)
	if err != nil {
		v.fail("loader_binary", fmt.Sprintf("%s: %v", entry.ExecPath, err))
		return
	}
	if info.Mode()&0111 == 0 {
		v.fail("loader_binary", fmt.Sprintf("%s is not executable", entry.ExecPath))
		return
	}
	v.pass("loader_binary", fmt.Sprintf("found: %s", entry.ExecPath))
}

// ValidateProfile checks that the profile is structurally valid.
func (v *Validator) ValidateProfile(profile *Profile) {
	if profile == nil {
		v.fail("profile", "profile is nil")
		return
	}
	if err := profile.Validate(); err != nil {
		v.fail("profile", err.Error())
		return
	}
	v.pass("profile", fmt.Sprintf("loaded: %s", profile.Name))
}

// ValidateProfileSources checks that every non-optional bind mount
// source exists on this host.
func (v *Validator) ValidateProfileSources(profile *Profile) {
	if profile == nil {
		return
	}

	for _, mount := range profile.Filesystem {
		if mount.Type == MountTypeTmpfs || mount.Type == MountTypeProc || mount.Type == MountTypeDev {
			continue
		}

		if _, err := os.Stat(mount.Source); err != nil {
			if os.IsNotExist(err) {
				if mount.Optional {
					v.warn("mount", fmt.Sprintf("optional source not found: %s -> %s", mount.Source, mount.Dest))
				} else {
					v.fail("mount", fmt.Sprintf("source not found: %s -> %s", mount.Source, mount.Dest))
				}
			} else {
				v.fail("mount", fmt.Sprintf("cannot access source %s: %v", mount.Source, err))
			}
		}
	}
}

// PrintResults writes every recorded result to w, followed by a
// one-line summary.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		switch {
		case !r.Passed:
			prefix = "✗"
		case r.Warning:
			prefix = "⚠"
		default:
			prefix = "✓"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to run sandbox")
	}
}
