// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for glycin's
// command-line tools. It centralizes the raw I/O pattern that exists
// before or after the structured logger is set up: fatal error
// reporting to stderr followed by a non-zero exit.
package process
