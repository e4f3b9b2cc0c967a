// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memformat

// ReachableFrom picks the best conversion target for a frame the
// loader returned in source, given the client's selection. It
// implements the ordering from the loader session's format
// conversion policy: prefer the same bit depth, then the same channel
// set, then a plain premultiplication flip, and otherwise accept the
// closest documented transform.
//
// Every (source, target) pair over the 23 known formats has a
// documented transform: channel broadcast/reduction between
// grayscale and color, bit-depth rescale between 8/16/32-bit and
// float, alpha channel synthesis (opaque) or drop, and
// premultiplication flip when both sides carry alpha. The only way
// ReachableFrom reports failure is an empty selection or an
// unrecognized source format — the latter is the "loader returned a
// format outside the announced set with no documented conversion"
// case from the spec's open question, and callers must treat it as
// Failed rather than guess a transform.
func ReachableFrom(source Format, selection Selection) (Format, bool) {
	if !source.Valid() || selection.Empty() {
		return 0, false
	}

	if selection.Contains(source) {
		return source, true
	}

	srcInfo := formatTable[source]

	var best Format
	bestScore := -1
	for _, candidate := range selection.Formats() {
		score := conversionScore(srcInfo, formatTable[candidate])
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore < 0 {
		return 0, false
	}
	return best, true
}

// conversionScore ranks a candidate target format for a given source,
// higher is better. The weighting mirrors the stated preference order:
// bit depth match outweighs channel-set match, which outweighs a bare
// premultiplication flip.
func conversionScore(source, candidate formatInfo) int {
	score := 0
	if candidate.bitsPerSample == source.bitsPerSample && candidate.float == source.float {
		score += 100
	}
	if candidate.channels == source.channels {
		score += 10
	}
	if candidate.hasAlpha == source.hasAlpha {
		score += 5
	}
	if candidate.hasAlpha && source.hasAlpha && candidate.premultiplied == source.premultiplied {
		score += 1
	}
	return score
}
