// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// glycin-inspect decodes, converts, and validates sandboxed image
// loaders and editors from the command line.
//
// Usage:
//
//	glycin-inspect info --mime=<type/subtype> <file>
//	glycin-inspect dump-frames --mime=<type/subtype> <file>
//	glycin-inspect convert --mime=<type/subtype> --to=<type/subtype> <in> <out>
//	glycin-inspect list-formats
//	glycin-inspect validate --mime=<type/subtype> [--role=loader|editor]
//	glycin-inspect escape-test
package main
