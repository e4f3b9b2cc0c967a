// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/valoq/glycin/ipc"
	"github.com/valoq/glycin/registry"
)

// testCapabilities caches capability detection across tests.
var testCapabilities *Capabilities

func getTestCapabilities(t *testing.T) *Capabilities {
	if testCapabilities == nil {
		testCapabilities = DetectCapabilities()
		t.Logf("Sandbox capabilities: bwrap=%v userns=%v flatpak_spawn=%v",
			testCapabilities.BwrapAvailable,
			testCapabilities.UserNamespacesEnabled,
			testCapabilities.FlatpakSpawnAvailable)
	}
	return testCapabilities
}

func skipIfNoSandbox(t *testing.T) {
	caps := getTestCapabilities(t)
	if reason := caps.SkipReason(); reason != "" {
		t.Skipf("Skipping sandbox test: %s", reason)
	}
}

// testEntry builds a minimal loader registry.Entry pointing execPath,
// exercised by tests that need to launch a real command rather than
// the glycin loader binary.
func testEntry(execPath string) registry.Entry {
	return registry.Entry{
		MIME:     "image/png",
		Role:     registry.RoleLoader,
		ExecPath: execPath,
	}
}

func TestLaunchNotSandboxed(t *testing.T) {
	parent, child, err := ipc.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	defer parent.Close()
	defer child.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd, err := Launch(ctx, testEntry("/bin/echo"), child, LaunchOptions{
		Policy: NotSandboxed,
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	child.Close()

	if err := cmd.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestLaunchBwrapArgv(t *testing.T) {
	skipIfNoSandbox(t)

	parent, child, err := ipc.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	defer parent.Close()
	defer child.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd, err := Launch(ctx, testEntry("/bin/true"), child, LaunchOptions{
		Policy:       BWRAP,
		Capabilities: getTestCapabilities(t),
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	argStr := strings.Join(cmd.Args, " ")
	if !strings.Contains(argStr, "bwrap") {
		t.Errorf("expected bwrap in argv, got: %s", argStr)
	}
	if !strings.Contains(argStr, "--unshare-pid") {
		t.Errorf("expected --unshare-pid in argv")
	}
	if !strings.Contains(argStr, "/bin/true") {
		t.Errorf("expected /bin/true in argv")
	}
}

func TestLaunchBwrapRunSimple(t *testing.T) {
	skipIfNoSandbox(t)

	parent, child, err := ipc.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	defer parent.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd, err := Launch(ctx, testEntry("/bin/true"), child, LaunchOptions{
		Policy:       BWRAP,
		Capabilities: getTestCapabilities(t),
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	child.Close()

	if err := cmd.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestLaunchBwrapExitCode(t *testing.T) {
	skipIfNoSandbox(t)

	parent, child, err := ipc.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	defer parent.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd, err := Launch(ctx, testEntry("/bin/sh"), child, LaunchOptions{
		Policy:       BWRAP,
		Capabilities: getTestCapabilities(t),
		ExtraEnv:     map[string]string{},
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	child.Close()
	cmd.Args = append(cmd.Args, "-c", "exit 42")

	if err := cmd.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err = cmd.Wait()
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 42 {
		t.Errorf("expected exit code 42, got %d", exitErr.ExitCode())
	}
}

func TestKillGroupOnNilProcess(t *testing.T) {
	cmd := &exec.Cmd{}
	if err := KillGroup(cmd); err != nil {
		t.Errorf("KillGroup on unstarted command should be a no-op, got: %v", err)
	}
}

func TestIsExitError(t *testing.T) {
	err := &ExitError{Code: 7}
	code, ok := IsExitError(err)
	if !ok {
		t.Fatal("expected IsExitError to recognize *ExitError")
	}
	if code != 7 {
		t.Errorf("expected code 7, got %d", code)
	}

	_, ok = IsExitError(os.ErrClosed)
	if ok {
		t.Error("expected IsExitError to reject an unrelated error")
	}
}

func TestCapabilitiesDetection(t *testing.T) {
	caps := DetectCapabilities()

	t.Logf("BwrapAvailable: %v", caps.BwrapAvailable)
	t.Logf("BwrapPath: %s", caps.BwrapPath)
	t.Logf("BwrapVersion: %s", caps.BwrapVersion)
	t.Logf("UserNamespacesEnabled: %v", caps.UserNamespacesEnabled)
	t.Logf("InFlatpak: %v", caps.InFlatpak)
	t.Logf("FlatpakSpawnAvailable: %v", caps.FlatpakSpawnAvailable)
	t.Logf("CanRunSandbox: %v", caps.CanRunSandbox())
	t.Logf("SkipReason: %q", caps.SkipReason())
}
