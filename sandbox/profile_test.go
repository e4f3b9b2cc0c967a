// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import "testing"

func TestDefaultProfile(t *testing.T) {
	profile, err := DefaultProfile()
	if err != nil {
		t.Fatalf("DefaultProfile failed: %v", err)
	}

	if profile.Name != "glycin-default" {
		t.Errorf("unexpected name %q", profile.Name)
	}
	if !profile.Namespaces.User {
		t.Error("expected user namespace")
	}
	if !profile.Namespaces.Net {
		t.Error("expected net namespace unshared (no network)")
	}
	if !profile.Security.NewSession {
		t.Error("expected new_session")
	}
	if !profile.Resources.HasLimit() {
		t.Error("expected a configured memory limit")
	}
	if err := profile.Validate(); err != nil {
		t.Errorf("default profile failed validation: %v", err)
	}
}

func TestVariablesExpand(t *testing.T) {
	vars := Variables{"FOO": "bar"}
	if got := vars.Expand("${FOO}/baz"); got != "bar/baz" {
		t.Errorf("Expand = %q, want bar/baz", got)
	}
	if got := vars.Expand("${UNKNOWN_VAR}"); got != "${UNKNOWN_VAR}" {
		t.Errorf("Expand of unresolved var = %q, want unchanged", got)
	}
}

func TestExpandProfile(t *testing.T) {
	profile := &Profile{
		Name: "test",
		Filesystem: []Mount{
			{Source: "${ROOT}/lib", Dest: "${ROOT}/lib", Mode: MountModeRO},
		},
		Environment: map[string]string{"HOME": "${ROOT}"},
	}
	vars := Variables{"ROOT": "/opt/glycin"}
	expanded := vars.ExpandProfile(profile)

	if expanded.Filesystem[0].Source != "/opt/glycin/lib" {
		t.Errorf("source = %q", expanded.Filesystem[0].Source)
	}
	if expanded.Environment["HOME"] != "/opt/glycin" {
		t.Errorf("HOME = %q", expanded.Environment["HOME"])
	}
	// Original is untouched.
	if profile.Filesystem[0].Source != "${ROOT}/lib" {
		t.Error("ExpandProfile must not mutate its input")
	}
}

func TestProfileValidate(t *testing.T) {
	bad := &Profile{
		Name: "bad",
		Filesystem: []Mount{
			{Dest: "", Source: "/usr"},
		},
	}
	if err := bad.Validate(); err == nil {
		t.Error("expected validation error for missing dest")
	}

	badMode := &Profile{
		Name: "bad-mode",
		Filesystem: []Mount{
			{Source: "/usr", Dest: "/usr", Mode: "bogus"},
		},
	}
	if err := badMode.Validate(); err == nil {
		t.Error("expected validation error for bad mode")
	}
}

func TestProfileClone(t *testing.T) {
	original := &Profile{
		Name:       "test",
		Filesystem: []Mount{{Source: "/a", Dest: "/a"}},
		Environment: map[string]string{"K": "V"},
		CreateDirs: []string{"/tmp/x"},
	}
	clone := original.Clone()
	clone.Filesystem[0].Dest = "/changed"
	clone.Environment["K"] = "changed"
	clone.CreateDirs[0] = "/tmp/changed"

	if original.Filesystem[0].Dest != "/a" {
		t.Error("Clone must deep copy Filesystem")
	}
	if original.Environment["K"] != "V" {
		t.Error("Clone must deep copy Environment")
	}
	if original.CreateDirs[0] != "/tmp/x" {
		t.Error("Clone must deep copy CreateDirs")
	}
}
