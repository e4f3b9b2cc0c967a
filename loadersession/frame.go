// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loadersession

import (
	"github.com/valoq/glycin/ipc"
	"github.com/valoq/glycin/memfile"
	"github.com/valoq/glycin/memformat"
)

// Frame is one decoded frame's pixel buffer together with its
// geometry and color metadata. Close releases the frame's backing
// memory and must be called for every Frame, whether or not Bytes was
// read; calls after the first are no-ops.
type Frame struct {
	Width, Height, Stride uint32
	Format                memformat.Format
	DelayMicros           uint64
	CICP                  *ipc.CICP

	data   []byte
	mapped *memfile.MappedFile
}

// Bytes returns the frame's pixel buffer. The returned slice aliases
// the frame's backing memory and is only valid until Close.
func (f *Frame) Bytes() []byte {
	return f.data
}

// Close releases the frame's backing memory: the mapped loader buffer
// if the frame's format needed no conversion, or nothing if the
// buffer was already an in-process copy. Idempotent.
func (f *Frame) Close() error {
	if f.mapped == nil {
		return nil
	}
	m := f.mapped
	f.mapped = nil
	f.data = nil
	return m.Close()
}
