// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loadersession

import "errors"

// ErrNoMoreFrames is returned by NextFrame and SpecificFrame once the
// session's loop policy has exhausted the frame sequence. It is not
// wrapped around a protocol failure: the loader's no_more_frames reply
// carries OK, so exhausting a non-looping animation is an expected
// outcome rather than a defect.
var ErrNoMoreFrames = errors.New("loadersession: no more frames")
