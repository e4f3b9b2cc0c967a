// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry scans the XDG data directories for glycin loader
// and editor configuration fragments and resolves a MIME type to the
// executable that handles it.
//
// Configuration lives under
//
//	${XDG_DATA_HOME:-~/.local/share}/glycin/<compat>+/conf.d/*.conf
//	${XDG_DATA_DIRS:-/usr/local/share:/usr/share}/glycin/<compat>+/conf.d/*.conf
//
// in that precedence order — the user data directory wins over system
// directories, and within a directory files are read in lexicographic
// order. Each file is a keyed-section document with sections named
// `loader:<mime>` or `editor:<mime>`. The first entry seen for a given
// (role, mime) pair across the whole search path wins; later entries
// for the same pair are ignored, not merged.
//
// [Registry] scans lazily on first use and caches the result until
// [Registry.Refresh] is called explicitly. A malformed file is skipped
// with a recorded diagnostic; it never aborts the scan.
package registry
