// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memformat

import "math/bits"

// Selection is a bitset of formats a client is willing to accept.
// Format f is a member of Selection s iff s&(1<<(f-1)) != 0.
type Selection uint32

// SelectionAll accepts any known format. It is computed as the union
// of every valid format bit, rather than a distinguished sentinel
// value, so Contains behaves consistently whether or not the caller
// special-cases it.
var SelectionAll = func() Selection {
	var s Selection
	for _, f := range All() {
		s = s.With(f)
	}
	return s
}()

// NewSelection builds a Selection containing exactly the given formats.
func NewSelection(formats ...Format) Selection {
	var s Selection
	for _, f := range formats {
		s = s.With(f)
	}
	return s
}

// With returns a Selection with f added.
func (s Selection) With(f Format) Selection {
	if !f.Valid() {
		return s
	}
	return s | (1 << (uint(f) - 1))
}

// Without returns a Selection with f removed.
func (s Selection) Without(f Format) Selection {
	return s &^ (1 << (uint(f) - 1))
}

// Contains reports whether f is acceptable under this selection.
func (s Selection) Contains(f Format) bool {
	if !f.Valid() {
		return false
	}
	return s&(1<<(uint(f)-1)) != 0
}

// Empty reports whether no format is acceptable. A frame request built
// with an Empty selection can never be satisfied and always fails with
// Failed at the session boundary.
func (s Selection) Empty() bool {
	return s == 0
}

// Len returns the number of formats in the selection.
func (s Selection) Len() int {
	return bits.OnesCount32(uint32(s))
}

// Formats returns the member formats in ascending declaration order.
func (s Selection) Formats() []Format {
	var out []Format
	for _, f := range All() {
		if s.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}
