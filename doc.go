// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package glycin decodes and encodes images via sandboxed, per-format
// loader and editor processes, so a crafted or malicious image file
// can corrupt or crash at most one short-lived child process instead
// of the calling program.
//
// [NewLoader] builds a decode request against a [registry.Registry];
// [Loader.Load] (synchronous) and [Loader.LoadAsync] (deferred,
// returning a [future.Future]) both resolve the request's MIME type,
// launch the matching loader inside a [sandbox], and return an
// [Image] once its init_loader handshake succeeds. [Image.NextFrame]
// and [Image.SpecificFrame] pull decoded [Frame]s from it;
// ErrNoMoreFrames ends a non-looping animation's frame sequence
// without being a failure. [NewCreator] builds a symmetric encode
// request: [Creator.AddFrame] submits pixel buffers and
// [Creator.Create] finalizes them into an [EncodedImage].
//
// Every blocking call has a synchronous and an Async form sharing one
// implementation; the Async form returns a [future.Future] already
// running in the background, via [future.Go], itself built on
// [golang.org/x/sync/errgroup.Group] so its error and result travel
// together. A [FrameRequest] configures one Loader's decode
// negotiation (accepted memory formats, orientation handling, loop
// policy, scaling hint) and is consumed exactly once by Load or
// LoadAsync; using an already-consumed FrameRequest panics.
//
// Every failure this package reports normalizes to one of three kinds
// at this boundary, per the wire protocol's own error taxonomy:
// [UnknownFormatError] (no registered loader or editor for the
// requested MIME type), [ErrNoMoreFrames] (the loop policy exhausted
// the frame sequence, not itself a defect), and [FailedError] (every
// other condition — a sealed-buffer mismatch, a truncated IPC
// message, an rlimit violation, or the sandboxed process's own
// reported error — with the underlying cause attached for logging via
// [FailedError.Unwrap]).
package glycin
