// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memfile implements the sealed, transferable shared-memory
// buffer that carries decoded pixel data (and encoder input) between
// a sandboxed loader or editor process and its parent.
//
// The writer side creates an anonymous memfd, writes the frame's
// pixel bytes into it, and applies the full seal set
// (SEAL_SHRINK|SEAL_GROW|SEAL_WRITE|SEAL_SEAL) before handing the file
// descriptor to the other process over the ipc transport's ancillary
// data channel. The receiver verifies all four seals are present
// before mapping the region read-only — an unsealed or
// partially-sealed descriptor is a protocol violation, not a buffer
// to trust.
//
// This package reuses the mmap/mlock discipline the host project
// applies to secret material, adapted for a buffer that is meant to
// be shared and read, not kept private: the useful guarantee here is
// immutability-after-seal, not swap protection.
package memfile
