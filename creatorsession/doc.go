// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package creatorsession drives the per-output IPC conversation with
// a sandboxed editor process: the handshake that starts it, the frame
// submissions that feed it pixel data, and the final encode call that
// collects its output.
//
// [Open] launches the editor via [sandbox.Launch] and performs the
// init_editor handshake, returning a [Session] once the editor has
// reported its [ipc.EditorCapabilities]. Unlike a loadersession
// Session, a creatorsession Session's call sequence is strictly
// linear: zero or more [Session.AddFrame] calls followed by exactly
// one [Session.Encode], mirrored by the state machine
// StateSpawned -> StateAccumulating -> StateEncoded
// (or StateTerminated on any failure or explicit [Session.Close]);
// StateInitialized is defined but never entered.
// There is no seek-back or loop analog to a loader's frame cursor: an
// encoder consumes frames in the order they're added and produces one
// sealed output buffer.
//
// [Session.AddFrame] reports, via [ipc.Response.Applied], whether a
// frame's optional metadata had effect, and [Session.Capabilities]
// reports the editor's advertised [ipc.EditorCapabilities] for the
// optional encode inputs (ICC profile, quality, compression), since not
// every encoder honors every option; the façade surfaces this as a
// boolean rather than silently pretending the option always applies.
package creatorsession
