// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox launches glycin loader and editor binaries inside an
// isolated execution environment, resolved per host via [ResolvePolicy]
// to one of three backends: BWRAP (bubblewrap Linux namespaces),
// FlatpakSpawn (the host portal's sandboxed command runner, for when
// this process is itself confined inside a Flatpak sandbox), or
// NotSandboxed (unconfined; AUTO selects it only inside a development
// Flatpak build).
//
// The central entry point is [Launch], which assembles and returns an
// *exec.Cmd for the resolved backend without starting it, so the
// caller retains control of the process's lifetime alongside the IPC
// socket passed to the child. [Profile] is the single bundled security
// configuration ([DefaultProfile]): filesystem mounts, namespace
// isolation flags, environment variables, and an address space limit.
// [Variables].ExpandProfile performs "${VAR}" substitution over a
// profile's string fields before use.
//
// The BWRAP backend additionally installs a classic-BPF seccomp filter
// ([buildSeccompFilter]) restricting the sandboxed process to the
// narrow syscall surface an image codec needs, delivered to bwrap via
// a pipe file descriptor. The FlatpakSpawn backend trusts the portal's
// own sandboxing policy instead and applies its address space limit by
// prefixing the command with prlimit, since flatpak-spawn has no
// native rlimit flag.
//
// [BwrapBuilder] translates a Profile plus per-launch parameters
// (input directory exposure, fontconfig visibility, the seccomp filter
// descriptor) into bwrap command-line arguments. [Validator] performs
// pre-flight checks (bwrap availability, user namespace support,
// loader binary existence, mount source validity). [Capabilities]
// probes the host for available backends. [EscapeTestRunner] verifies
// sandbox containment by running a battery of escape attempts
// (network, filesystem, process, privilege, terminal) and confirming
// they all fail, used by cmd/glycin-inspect to self-check a profile
// from inside a launched sandbox.
//
// The sandbox intentionally does not manage the process running
// inside it beyond process-group lifecycle ([KillGroup]). It creates
// the namespace and mounts, then exec's the loader or editor binary;
// the loadersession and creatorsession packages own the IPC protocol
// spoken with it once running.
package sandbox
