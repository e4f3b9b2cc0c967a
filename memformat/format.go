// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memformat

import "fmt"

// Format tags one of the pixel layouts a loader or creator session may
// produce or accept. The zero value is not a valid format; always use
// one of the named constants.
type Format uint8

// The 23 known memory formats. Ordering is significant only in that it
// fixes each format's bit position in a [Selection]; do not renumber
// once a format has shipped, or persisted selections would silently
// change meaning.
const (
	G8 Format = iota + 1
	G8A8
	G8A8Premultiplied
	R8G8B8
	R8G8B8A8
	R8G8B8A8Premultiplied
	B8G8R8
	B8G8R8A8
	B8G8R8A8Premultiplied
	G16
	G16A16
	G16A16Premultiplied
	R16G16B16
	R16G16B16A16
	R16G16B16A16Premultiplied
	R16G16B16Float
	R16G16B16A16Float
	R16G16B16A16FloatPremultiplied
	G16Float
	G16A16Float
	R32G32B32Float
	R32G32B32A32Float
	R32G32B32A32FloatPremultiplied

	formatCount = iota
)

type formatInfo struct {
	name          string
	channels      int
	bitsPerSample int
	float         bool
	hasAlpha      bool
	premultiplied bool
}

var formatTable = map[Format]formatInfo{
	G8:                             {"G8", 1, 8, false, false, false},
	G8A8:                           {"G8A8", 2, 8, false, true, false},
	G8A8Premultiplied:              {"G8A8Premultiplied", 2, 8, false, true, true},
	R8G8B8:                         {"R8G8B8", 3, 8, false, false, false},
	R8G8B8A8:                       {"R8G8B8A8", 4, 8, false, true, false},
	R8G8B8A8Premultiplied:          {"R8G8B8A8Premultiplied", 4, 8, false, true, true},
	B8G8R8:                         {"B8G8R8", 3, 8, false, false, false},
	B8G8R8A8:                       {"B8G8R8A8", 4, 8, false, true, false},
	B8G8R8A8Premultiplied:          {"B8G8R8A8Premultiplied", 4, 8, false, true, true},
	G16:                            {"G16", 1, 16, false, false, false},
	G16A16:                         {"G16A16", 2, 16, false, true, false},
	G16A16Premultiplied:            {"G16A16Premultiplied", 2, 16, false, true, true},
	R16G16B16:                      {"R16G16B16", 3, 16, false, false, false},
	R16G16B16A16:                   {"R16G16B16A16", 4, 16, false, true, false},
	R16G16B16A16Premultiplied:      {"R16G16B16A16Premultiplied", 4, 16, false, true, true},
	R16G16B16Float:                 {"R16G16B16Float", 3, 16, true, false, false},
	R16G16B16A16Float:              {"R16G16B16A16Float", 4, 16, true, true, false},
	R16G16B16A16FloatPremultiplied: {"R16G16B16A16FloatPremultiplied", 4, 16, true, true, true},
	G16Float:                       {"G16Float", 1, 16, true, false, false},
	G16A16Float:                    {"G16A16Float", 2, 16, true, true, false},
	R32G32B32Float:                 {"R32G32B32Float", 3, 32, true, false, false},
	R32G32B32A32Float:              {"R32G32B32A32Float", 4, 32, true, true, false},
	R32G32B32A32FloatPremultiplied: {"R32G32B32A32FloatPremultiplied", 4, 32, true, true, true},
}

// String returns the format's canonical name, e.g. "R8G8B8A8Premultiplied".
func (f Format) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Valid reports whether f is one of the 23 known formats.
func (f Format) Valid() bool {
	_, ok := formatTable[f]
	return ok
}

// HasAlpha reports whether the format carries an alpha channel. This is
// a derived predicate over the format tag, never an independently
// stored bit.
func (f Format) HasAlpha() bool {
	return formatTable[f].hasAlpha
}

// IsPremultiplied reports whether alpha is premultiplied into the
// color channels. Invariant: IsPremultiplied implies HasAlpha — no
// format in the table violates this, and the package's init panics if
// one ever would.
func (f Format) IsPremultiplied() bool {
	return formatTable[f].premultiplied
}

// Channels returns the number of samples per pixel (1 for grayscale, 2
// for grayscale+alpha, 3 for RGB/BGR, 4 for RGBA/BGRA).
func (f Format) Channels() int {
	return formatTable[f].channels
}

// BitsPerSample returns the bit width of a single channel sample (8,
// 16, or 32).
func (f Format) BitsPerSample() int {
	return formatTable[f].bitsPerSample
}

// Float reports whether samples are IEEE floating point rather than
// unsigned integer.
func (f Format) Float() bool {
	return formatTable[f].float
}

// BytesPerPixel returns the minimum stride contribution of one pixel:
// channels * (bitsPerSample / 8). A frame's actual row stride must be
// at least width * BytesPerPixel(), per the stride invariant.
func (f Format) BytesPerPixel() int {
	info := formatTable[f]
	return info.channels * (info.bitsPerSample / 8)
}

// All returns every known format in ascending declaration order.
func All() []Format {
	formats := make([]Format, 0, formatCount)
	for f := Format(1); f < formatCount+1; f++ {
		if _, ok := formatTable[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}

func init() {
	for f, info := range formatTable {
		if info.premultiplied && !info.hasAlpha {
			panic(fmt.Sprintf("memformat: %s is marked premultiplied without alpha", f))
		}
	}
}
