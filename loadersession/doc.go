// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package loadersession drives the per-image IPC conversation with a
// sandboxed loader process: the handshake that starts it, the frame
// requests that pull decoded pixels out of it, and the teardown that
// shuts it down.
//
// [Open] creates a sealed input [memfile.MemFile], launches the
// loader via [sandbox.Launch], and performs the init_loader handshake,
// returning a [Session] once the loader has reported its [ipc.ImageInfo].
// A Session moves through a small state machine: StateSpawned while
// the handshake is outstanding, then, once it succeeds,
// StateAwaitingFrame between frame requests and StateServing for the
// duration of one, until [Session.Close] or a protocol failure moves
// it to the terminal StateTerminated. StateInitialized is defined but
// never entered.
//
// [Session.NextFrame] and [Session.SpecificFrame] drive
// [ipc.MethodNextFrame] and [ipc.MethodSpecificFrame]. A loader's
// no_more_frames reply surfaces as [ErrNoMoreFrames] rather than an
// error wrapping a protocol failure, since exhausting a non-looping
// animation is an expected outcome, not a defect. When the loader
// returns a frame in a format outside the caller's accepted
// [memformat.Selection], the session converts it in-parent via
// [memformat.ReachableFrom] and [memformat.ConvertTo] rather than
// handing the caller a format it never asked for.
//
// [validateSupportedMethods] enforces the compat version contract: a
// loader entry scanned from a "N+/conf.d" directory must report every
// method that version requires in its init_loader reply, so a
// partially upgraded loader binary fails the session immediately
// instead of misbehaving on the first call the parent assumes it
// supports.
package loadersession
