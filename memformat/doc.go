// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memformat describes the pixel layouts glycin frames may be
// mapped in, and the client-facing subset selection used to negotiate
// which of them a caller is willing to accept.
//
// A [Format] tags one of 23 known layouts: channel order, bit depth,
// float-vs-integer sample representation, and alpha premultiplication.
// [Format.HasAlpha] and [Format.IsPremultiplied] are derived
// predicates over that tag, not independently stored bits, so the two
// can never disagree with the tag itself.
//
// A [Selection] is a bitset of acceptable formats a client passes to a
// loader session; [SelectionAll] means "no preference". When a
// loader's native format is outside the caller's selection, the
// session consults [ReachableFrom] to find a documented, deterministic
// conversion target rather than guessing one per call, then
// [ConvertTo] to perform the actual per-pixel transform.
package memformat
