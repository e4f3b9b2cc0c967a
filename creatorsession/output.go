// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package creatorsession

import "github.com/valoq/glycin/memfile"

// Output is the sealed, encoded byte payload an Encode call produced.
// Close releases its backing memory and must be called; calls after
// the first are no-ops.
type Output struct {
	mapped *memfile.MappedFile
	size   uint64
}

// Bytes returns the encoded payload. The returned slice aliases the
// output's backing memory and is only valid until Close.
func (o *Output) Bytes() []byte {
	return o.mapped.Bytes()
}

// Size returns the encoded payload's length in bytes, as reported by
// the editor's encode reply.
func (o *Output) Size() uint64 {
	return o.size
}

// Close releases the output's backing memory. Idempotent.
func (o *Output) Close() error {
	return o.mapped.Close()
}
