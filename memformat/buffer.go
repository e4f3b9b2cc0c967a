// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memformat

import (
	"encoding/binary"
	"fmt"
	"math"
)

// pixel is the format-independent intermediate representation used by
// Convert: four channels in straight (non-premultiplied) [0, 1] range.
// Grayscale sources replicate their single sample across r, g, b.
type pixel struct {
	r, g, b, a float64
}

// ConvertTo transforms one frame's pixel buffer from srcFormat to dst,
// implementing the documented transform ReachableFrom promises exists
// for every (source, target) pair: channel broadcast/reduction between
// grayscale and color, bit-depth rescale, alpha synthesis or drop, and
// premultiplication flip. Used once ReachableFrom has picked dst from
// the caller's selection.
//
// src must hold exactly height rows of srcStride bytes, each row's
// first width*srcFormat.BytesPerPixel() bytes carrying pixel data (the
// remainder, if any, is stride padding and is ignored). The returned
// buffer is tightly packed: its stride is width*dst.BytesPerPixel(),
// except when srcFormat equals dst, where src is copied as it is and
// the returned stride is srcStride.
func ConvertTo(src []byte, srcFormat Format, width, height, srcStride int, dst Format) ([]byte, int, error) {
	if !srcFormat.Valid() {
		return nil, 0, fmt.Errorf("memformat: unknown source format %s", srcFormat)
	}
	if !dst.Valid() {
		return nil, 0, fmt.Errorf("memformat: unknown target format %s", dst)
	}
	if width <= 0 || height <= 0 {
		return nil, 0, fmt.Errorf("memformat: invalid dimensions %dx%d", width, height)
	}
	srcBpp := srcFormat.BytesPerPixel()
	if srcStride < width*srcBpp {
		return nil, 0, fmt.Errorf("memformat: source stride %d too small for width %d (%s)", srcStride, width, srcFormat)
	}
	if len(src) < srcStride*height {
		return nil, 0, fmt.Errorf("memformat: source buffer of %d bytes too small for %d rows of stride %d", len(src), height, srcStride)
	}

	if srcFormat == dst {
		out := make([]byte, srcStride*height)
		copy(out, src[:srcStride*height])
		return out, srcStride, nil
	}

	dstBpp := dst.BytesPerPixel()
	dstStride := width * dstBpp
	out := make([]byte, dstStride*height)

	for y := 0; y < height; y++ {
		srcRow := src[y*srcStride : y*srcStride+width*srcBpp]
		dstRow := out[y*dstStride : y*dstStride+dstStride]
		for x := 0; x < width; x++ {
			p := decodePixel(srcRow[x*srcBpp:x*srcBpp+srcBpp], srcFormat)
			encodePixel(dstRow[x*dstBpp:x*dstBpp+dstBpp], p, dst)
		}
	}

	return out, dstStride, nil
}

// decodePixel reads one pixel at its native bit depth and channel
// layout, normalizes it to straight alpha, and returns it in [0, 1]
// floating point.
func decodePixel(b []byte, f Format) pixel {
	info := formatTable[f]

	samples := make([]float64, info.channels)
	sampleBytes := info.bitsPerSample / 8
	for i := 0; i < info.channels; i++ {
		chunk := b[i*sampleBytes : (i+1)*sampleBytes]
		samples[i] = decodeSample(chunk, info)
	}

	var p pixel
	switch {
	case info.channels == 1:
		p = pixel{samples[0], samples[0], samples[0], 1}
	case info.channels == 2:
		p = pixel{samples[0], samples[0], samples[0], samples[1]}
	case info.channels == 3 && isBGR(f):
		p = pixel{samples[2], samples[1], samples[0], 1}
	case info.channels == 3:
		p = pixel{samples[0], samples[1], samples[2], 1}
	case info.channels == 4 && isBGR(f):
		p = pixel{samples[2], samples[1], samples[0], samples[3]}
	default: // 4 channels, RGB order
		p = pixel{samples[0], samples[1], samples[2], samples[3]}
	}

	if info.premultiplied && p.a > 0 {
		p.r /= p.a
		p.g /= p.a
		p.b /= p.a
	}
	p.r = clamp01(p.r)
	p.g = clamp01(p.g)
	p.b = clamp01(p.b)
	p.a = clamp01(p.a)
	return p
}

// encodePixel writes p, straight-alpha in [0, 1], into b at f's native
// bit depth, channel layout, and premultiplication state.
func encodePixel(b []byte, p pixel, f Format) {
	info := formatTable[f]

	if info.premultiplied {
		p.r *= p.a
		p.g *= p.a
		p.b *= p.a
	}

	gray := (p.r + p.g + p.b) / 3

	var samples []float64
	switch {
	case info.channels == 1:
		samples = []float64{gray}
	case info.channels == 2:
		samples = []float64{gray, p.a}
	case info.channels == 3 && isBGR(f):
		samples = []float64{p.b, p.g, p.r}
	case info.channels == 3:
		samples = []float64{p.r, p.g, p.b}
	case info.channels == 4 && isBGR(f):
		samples = []float64{p.b, p.g, p.r, p.a}
	default:
		samples = []float64{p.r, p.g, p.b, p.a}
	}

	sampleBytes := info.bitsPerSample / 8
	for i, s := range samples {
		encodeSample(b[i*sampleBytes:(i+1)*sampleBytes], s, info)
	}
}

func isBGR(f Format) bool {
	switch f {
	case B8G8R8, B8G8R8A8, B8G8R8A8Premultiplied:
		return true
	default:
		return false
	}
}

func decodeSample(b []byte, info formatInfo) float64 {
	switch {
	case info.float && info.bitsPerSample == 32:
		bits := binary.LittleEndian.Uint32(b)
		return clamp01(float64(math.Float32frombits(bits)))
	case info.float && info.bitsPerSample == 16:
		// Stored as a normalized 16-bit unsigned sample; glycin's
		// "Float" formats at 16 bits are linear-light encoded values
		// rather than IEEE half floats, matching the loaders that
		// emit them.
		return float64(binary.LittleEndian.Uint16(b)) / 65535
	case info.bitsPerSample == 16:
		return float64(binary.LittleEndian.Uint16(b)) / 65535
	default:
		return float64(b[0]) / 255
	}
}

func encodeSample(b []byte, v float64, info formatInfo) {
	v = clamp01(v)
	switch {
	case info.float && info.bitsPerSample == 32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case info.bitsPerSample == 16:
		binary.LittleEndian.PutUint16(b, uint16(math.Round(v*65535)))
	default:
		b[0] = byte(math.Round(v * 255))
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
