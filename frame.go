// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glycin

import (
	"github.com/valoq/glycin/ipc"
	"github.com/valoq/glycin/loadersession"
	"github.com/valoq/glycin/memformat"
)

// Frame is one decoded image frame. Its pixel buffer is backed by a
// read-only memory mapping; Close releases it. A Frame not explicitly
// closed leaks the mapping until the process exits.
type Frame struct {
	frame *loadersession.Frame
}

// Width, Height, and Stride describe the frame's pixel buffer layout.
func (f *Frame) Width() uint32  { return f.frame.Width }
func (f *Frame) Height() uint32 { return f.frame.Height }
func (f *Frame) Stride() uint32 { return f.frame.Stride }

// Format reports the memory format of Bytes.
func (f *Frame) Format() memformat.Format { return f.frame.Format }

// DelayMicros is the time to hold this frame before advancing to the
// next one, for animated formats. Zero for a still image.
func (f *Frame) DelayMicros() uint64 { return f.frame.DelayMicros }

// CICP reports the frame's colour characteristics, if the loader
// provided them.
func (f *Frame) CICP() *ipc.CICP { return f.frame.CICP }

// Bytes returns the frame's pixel buffer. The slice is only valid
// until Close.
func (f *Frame) Bytes() []byte { return f.frame.Bytes() }

// Close releases the frame's underlying memory mapping. Safe to call
// more than once.
func (f *Frame) Close() error { return f.frame.Close() }
