// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"strings"
	"testing"
)

func TestBwrapBuilder(t *testing.T) {
	profile := &Profile{
		Name: "test",
		Filesystem: []Mount{
			{Source: "/usr", Dest: "/usr", Mode: "ro"},
			{Dest: "/tmp", Type: "tmpfs"},
		},
		Namespaces: NamespaceConfig{
			PID: true,
			Net: true,
			IPC: true,
		},
		Security: SecurityConfig{
			NewSession:    true,
			DieWithParent: true,
		},
		Environment: map[string]string{
			"PATH": "/usr/bin",
		},
		Resources: ResourceConfig{AddressSpaceBytes: 1 << 20},
	}

	builder := NewBwrapBuilder()
	args, err := builder.Build(&BwrapOptions{
		Profile:   profile,
		Command:   []string{"/usr/libexec/glycin-loaders/glycin-image-rs"},
		SeccompFD: 4,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	argStr := strings.Join(args, " ")

	if !strings.Contains(argStr, "--unshare-pid") {
		t.Error("missing --unshare-pid")
	}
	if !strings.Contains(argStr, "--unshare-net") {
		t.Error("missing --unshare-net")
	}
	if !strings.Contains(argStr, "--unshare-ipc") {
		t.Error("missing --unshare-ipc")
	}
	if !strings.Contains(argStr, "--new-session") {
		t.Error("missing --new-session")
	}
	if !strings.Contains(argStr, "--die-with-parent") {
		t.Error("missing --die-with-parent")
	}
	if !strings.Contains(argStr, "--ro-bind /usr /usr") {
		t.Error("missing /usr ro-bind")
	}
	if !strings.Contains(argStr, "--tmpfs /tmp") {
		t.Error("missing tmpfs /tmp")
	}
	if !strings.Contains(argStr, "--clearenv") {
		t.Error("missing --clearenv")
	}
	if !strings.Contains(argStr, "--setenv PATH /usr/bin") {
		t.Error("missing PATH env")
	}
	if !strings.Contains(argStr, "--rlimit-as 1048576") {
		t.Error("missing --rlimit-as")
	}
	if !strings.Contains(argStr, "--seccomp 4") {
		t.Error("missing --seccomp")
	}
	if !strings.Contains(argStr, "-- /usr/libexec/glycin-loaders/glycin-image-rs") {
		t.Error("missing command")
	}
}

func TestBwrapBuilderInputDirAndFontconfig(t *testing.T) {
	profile := &Profile{Name: "test", Namespaces: NamespaceConfig{PID: true}}

	builder := NewBwrapBuilder()
	args, err := builder.Build(&BwrapOptions{
		Profile:          profile,
		InputDir:         "/home/user/Pictures",
		ExposeFontconfig: true,
		Command:          []string{"/bin/loader"},
		SeccompFD:        -1,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	argStr := strings.Join(args, " ")
	if !strings.Contains(argStr, "--ro-bind /home/user/Pictures /home/user/Pictures") {
		t.Error("missing input directory bind")
	}
	if strings.Contains(argStr, "--seccomp") {
		t.Error("unexpected --seccomp with negative SeccompFD")
	}
}

func TestBwrapBuilderExtraBinds(t *testing.T) {
	profile := &Profile{
		Name:       "test",
		Namespaces: NamespaceConfig{PID: true},
	}

	builder := NewBwrapBuilder()
	args, err := builder.Build(&BwrapOptions{
		Profile: profile,
		ExtraBinds: []string{
			"/src/feature:/data/feature:ro",
			"/src/libs:/libs:rw",
		},
		Command: []string{"/bin/loader"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	argStr := strings.Join(args, " ")

	if !strings.Contains(argStr, "--ro-bind /src/feature /data/feature") {
		t.Error("missing feature bind")
	}
	if !strings.Contains(argStr, "--bind /src/libs /libs") {
		t.Error("missing libs bind")
	}
}

func TestBwrapBuilderValidation(t *testing.T) {
	builder := NewBwrapBuilder()

	if _, err := builder.Build(&BwrapOptions{Command: []string{"/bin/loader"}}); err == nil {
		t.Error("expected error for missing profile")
	}

	if _, err := builder.Build(&BwrapOptions{Profile: &Profile{Name: "test"}}); err == nil {
		t.Error("expected error for missing command")
	}
}

func TestParseBindSpec(t *testing.T) {
	tests := []struct {
		spec       string
		wantSource string
		wantDest   string
		wantMode   string
		wantErr    bool
	}{
		{"/src:/dest", "/src", "/dest", "ro", false},
		{"/src:/dest:ro", "/src", "/dest", "ro", false},
		{"/src:/dest:rw", "/src", "/dest", "rw", false},
		{"invalid", "", "", "", true},
		{"/src:/dest:invalid", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			source, dest, mode, err := parseBindSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
			if dest != tt.wantDest {
				t.Errorf("dest = %q, want %q", dest, tt.wantDest)
			}
			if mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", mode, tt.wantMode)
			}
		})
	}
}

func TestSplitBindSpec(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"/src:/dest", []string{"/src", "/dest"}},
		{"/src:/dest:ro", []string{"/src", "/dest", "ro"}},
		{"/src:/dest:rw", []string{"/src", "/dest", "rw"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := splitBindSpec(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("len = %d, want %d; got %v", len(result), len(tt.expected), result)
				return
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("part[%d] = %q, want %q", i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestBwrapPath(t *testing.T) {
	if _, err := BwrapPath(); err != nil {
		t.Skip("bwrap not installed on this host")
	}
}
