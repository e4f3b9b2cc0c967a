// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the CBOR-encoded message types and the framed
// Unix-socket transport for the parent process's conversation with a
// sandboxed loader or editor. Both the parent (in loadersession /
// creatorsession) and the sandboxed binary (which glycin itself never
// implements, but which any conforming loader must) speak this
// protocol, so the wire types are defined once here rather than
// mirrored on each side.
//
// Every message is a length-prefixed CBOR value written to one end of
// a pre-created Unix domain socket pair; the socket pair's other end
// is inherited by the sandboxed child as a fixed file descriptor.
// Frames that carry a memfd (the encoded input on init_loader, frame
// pixel data on add_frame and frame replies, the encoded output on
// encode replies) send it as SCM_RIGHTS ancillary data alongside the
// CBOR frame describing it; an ICC profile travels inline in the CBOR
// value.
//
// A session allows exactly one request in flight at a time: the
// transport returns an error if Send is called again before the
// previous call's Receive has completed.
package ipc
