// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides glycin's standard CBOR encoding configuration.
//
// Every method on the loader/creator wire protocol (init_loader,
// next_frame, encode, ...) is CBOR: it crosses a local socket pair
// between two processes of the same compat version, never a browser or
// a human-edited config file, so there is no JSON boundary to keep in
// sync. The registry's keyfile format is the one externally-facing,
// human-authored surface, and it is a foreign keyfile grammar rather
// than CBOR or JSON — see the registry package.
//
// This package provides the shared CBOR encoding and decoding modes so
// that request and reply framing encodes identically everywhere. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. Same
// logical message always produces identical bytes, which keeps request
// framing and log capture reproducible.
//
// For buffer-oriented operations (single self-contained messages):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the ipc transport does not use
// these; it frames each message with Marshal/Unmarshal behind a
// length prefix):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
