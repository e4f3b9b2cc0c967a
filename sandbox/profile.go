// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes the filesystem exposure, namespace, and resource
// skeleton a sandboxed loader or editor runs under. Unlike a
// general-purpose sandboxing tool, glycin has exactly one bundled
// profile (DefaultProfile) rather than a named, inheritable set: every
// launch-time variation (exposing the input directory, exposing
// fontconfig) is expressed as a per-Entry flag layered on top at
// BwrapBuilder.Build time, not as a different profile.
type Profile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Filesystem  []Mount           `yaml:"filesystem,omitempty"`
	Namespaces  NamespaceConfig   `yaml:"namespaces,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Resources   ResourceConfig    `yaml:"resources,omitempty"`
	Security    SecurityConfig    `yaml:"security,omitempty"`
	CreateDirs  []string          `yaml:"create_dirs,omitempty"`
}

// Mount defines one filesystem mount inside the sandbox.
type Mount struct {
	Source   string `yaml:"source,omitempty"`
	Dest     string `yaml:"dest"`
	Mode     string `yaml:"mode,omitempty"`
	Type     string `yaml:"type,omitempty"`
	Options  string `yaml:"options,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
	Glob     bool   `yaml:"glob,omitempty"`
}

// MountType constants for the Type field.
const (
	MountTypeBind  = ""      // Default: bind mount.
	MountTypeTmpfs = "tmpfs" // tmpfs mount.
	MountTypeProc  = "proc"  // /proc.
	MountTypeDev   = "dev"   // /dev (minimal).
)

// MountMode constants for the Mode field.
const (
	MountModeRO = "ro"
	MountModeRW = "rw"
)

// NamespaceConfig defines which namespaces bwrap unshares. glycin
// always wants every one of these, but the field-per-namespace shape
// is kept so Validate and the bwrap argv builder can reason about
// each independently, and so a future diagnostic profile can
// selectively relax one without touching call sites.
type NamespaceConfig struct {
	PID    bool `yaml:"pid"`
	Net    bool `yaml:"net"`
	IPC    bool `yaml:"ipc"`
	UTS    bool `yaml:"uts"`
	Cgroup bool `yaml:"cgroup"`
	User   bool `yaml:"user"`
}

// ResourceConfig is the memory address-space rlimit applied to the
// sandboxed child after it enters its namespaces and before execve.
// There is no CPU or task-count limiting here: unlike a long-lived
// agent process, a loader's lifetime is bounded by the request itself
// and the parent's deadline, so only the memory ceiling matters.
type ResourceConfig struct {
	// AddressSpaceBytes caps RLIMIT_AS. Zero means no limit is applied
	// (used only by test profiles).
	AddressSpaceBytes uint64 `yaml:"address_space_bytes,omitempty"`
}

// HasLimit reports whether a memory ceiling is configured.
func (r ResourceConfig) HasLimit() bool {
	return r.AddressSpaceBytes > 0
}

// SecurityConfig defines the bwrap process-level security flags.
type SecurityConfig struct {
	NewSession    bool `yaml:"new_session"`
	DieWithParent bool `yaml:"die_with_parent"`
	NoNewPrivs    bool `yaml:"no_new_privs"`
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	clone := &Profile{
		Name:        p.Name,
		Description: p.Description,
		Namespaces:  p.Namespaces,
		Resources:   p.Resources,
		Security:    p.Security,
	}
	if p.Filesystem != nil {
		clone.Filesystem = make([]Mount, len(p.Filesystem))
		copy(clone.Filesystem, p.Filesystem)
	}
	if p.CreateDirs != nil {
		clone.CreateDirs = make([]string, len(p.CreateDirs))
		copy(clone.CreateDirs, p.CreateDirs)
	}
	if p.Environment != nil {
		clone.Environment = make(map[string]string, len(p.Environment))
		for k, v := range p.Environment {
			clone.Environment[k] = v
		}
	}
	return clone
}

// Variables holds the substitution values used to expand ${VAR}
// references in a profile loaded from YAML.
type Variables map[string]string

var variableRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expand replaces ${VAR} references in s, preferring v's own entries
// and falling back to the process environment, leaving an unresolved
// reference untouched.
func (v Variables) Expand(s string) string {
	return variableRef.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := v[name]; ok {
			return val
		}
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// ExpandProfile returns a copy of p with every filesystem source/dest,
// environment value, and create-dir path expanded.
func (v Variables) ExpandProfile(p *Profile) *Profile {
	result := p.Clone()
	for i := range result.Filesystem {
		result.Filesystem[i].Source = v.Expand(result.Filesystem[i].Source)
		result.Filesystem[i].Dest = v.Expand(result.Filesystem[i].Dest)
	}
	for key, val := range result.Environment {
		result.Environment[key] = v.Expand(val)
	}
	for i := range result.CreateDirs {
		result.CreateDirs[i] = v.Expand(result.CreateDirs[i])
	}
	return result
}

// Validate checks that a profile's mounts and resource fields are
// internally consistent.
func (p *Profile) Validate() error {
	var errs []string
	for i, m := range p.Filesystem {
		if m.Dest == "" {
			errs = append(errs, fmt.Sprintf("filesystem[%d]: dest is required", i))
		}
		if m.Type == MountTypeBind && m.Source == "" {
			errs = append(errs, fmt.Sprintf("filesystem[%d]: source is required for bind mounts", i))
		}
		if m.Mode != "" && m.Mode != MountModeRO && m.Mode != MountModeRW {
			errs = append(errs, fmt.Sprintf("filesystem[%d]: invalid mode %q (must be ro or rw)", i, m.Mode))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("profile %q validation failed:\n  %s", p.Name, strings.Join(errs, "\n  "))
	}
	return nil
}

// defaultProfileYAML is the single bundled sandbox profile: every
// namespace isolated, no network, a read-only bind of the minimal host
// tree needed to run a loader, and a private tmpfs at /tmp. The
// per-launch exposures (input directory, fontconfig) are layered on
// by BwrapBuilder from the registry Entry's flags, not encoded here.
const defaultProfileYAML = `
name: glycin-default
description: Default sandbox for image loader and editor processes.
namespaces:
  pid: true
  net: true
  ipc: true
  uts: true
  cgroup: true
  user: true
security:
  new_session: true
  die_with_parent: true
  no_new_privs: true
resources:
  address_space_bytes: 536870912
filesystem:
  - dest: /usr
    source: /usr
    mode: ro
  - dest: /lib
    source: /lib
    mode: ro
    optional: true
  - dest: /lib64
    source: /lib64
    mode: ro
    optional: true
  - dest: /etc/ld.so.cache
    source: /etc/ld.so.cache
    mode: ro
    optional: true
  - dest: /etc/ssl
    source: /etc/ssl
    mode: ro
    optional: true
  - dest: /tmp
    type: tmpfs
  - dest: /proc
    type: proc
  - dest: /dev
    type: dev
`

// DefaultProfile parses and returns the bundled sandbox profile.
func DefaultProfile() (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal([]byte(defaultProfileYAML), &p); err != nil {
		return nil, fmt.Errorf("sandbox: parse default profile: %w", err)
	}
	return &p, nil
}
