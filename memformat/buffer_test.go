// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memformat

import "testing"

func TestConvertToSameFormatIsCopy(t *testing.T) {
	src := []byte{10, 20, 30, 255, 40, 50, 60, 255}
	out, stride, err := ConvertTo(src, R8G8B8A8, 2, 1, 8, R8G8B8A8)
	if err != nil {
		t.Fatalf("ConvertTo failed: %v", err)
	}
	if stride != 8 {
		t.Errorf("stride = %d, want 8", stride)
	}
	for i, b := range src {
		if out[i] != b {
			t.Errorf("byte %d: got %d, want %d", i, out[i], b)
		}
	}
}

func TestConvertToRGBAFromBGRA(t *testing.T) {
	// One opaque pixel: B=10 G=20 R=30 A=255.
	src := []byte{10, 20, 30, 255}
	out, stride, err := ConvertTo(src, B8G8R8A8, 1, 1, 4, R8G8B8A8)
	if err != nil {
		t.Fatalf("ConvertTo failed: %v", err)
	}
	if stride != 4 {
		t.Fatalf("stride = %d, want 4", stride)
	}
	want := []byte{30, 20, 10, 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("byte %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestConvertToDropsAlphaForOpaqueTarget(t *testing.T) {
	src := []byte{200, 100, 50, 128}
	out, stride, err := ConvertTo(src, R8G8B8A8, 1, 1, 4, R8G8B8)
	if err != nil {
		t.Fatalf("ConvertTo failed: %v", err)
	}
	if stride != 3 {
		t.Fatalf("stride = %d, want 3", stride)
	}
	want := []byte{200, 100, 50}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("byte %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestConvertToSynthesizesOpaqueAlpha(t *testing.T) {
	src := []byte{10, 20, 30}
	out, stride, err := ConvertTo(src, R8G8B8, 1, 1, 3, R8G8B8A8)
	if err != nil {
		t.Fatalf("ConvertTo failed: %v", err)
	}
	if stride != 4 {
		t.Fatalf("stride = %d, want 4", stride)
	}
	if out[3] != 255 {
		t.Errorf("synthesized alpha = %d, want 255", out[3])
	}
}

func TestConvertToPremultipliesAndUnpremultiplies(t *testing.T) {
	// Half-alpha straight pixel R=200 G=0 B=0 A=128.
	src := []byte{200, 0, 0, 128}
	out, _, err := ConvertTo(src, R8G8B8A8, 1, 1, 4, R8G8B8A8Premultiplied)
	if err != nil {
		t.Fatalf("ConvertTo failed: %v", err)
	}
	// Premultiplied red should be roughly 200 * 128/255 ~= 100.
	if out[0] < 95 || out[0] > 105 {
		t.Errorf("premultiplied red = %d, want ~100", out[0])
	}

	back, _, err := ConvertTo(out, R8G8B8A8Premultiplied, 1, 1, 4, R8G8B8A8)
	if err != nil {
		t.Fatalf("ConvertTo back failed: %v", err)
	}
	if back[0] < 195 || back[0] > 205 {
		t.Errorf("round-tripped red = %d, want ~200", back[0])
	}
}

func TestConvertToGrayscaleBroadcast(t *testing.T) {
	src := []byte{128}
	out, stride, err := ConvertTo(src, G8, 1, 1, 1, R8G8B8)
	if err != nil {
		t.Fatalf("ConvertTo failed: %v", err)
	}
	if stride != 3 {
		t.Fatalf("stride = %d, want 3", stride)
	}
	for i, b := range out {
		if b != 128 {
			t.Errorf("channel %d = %d, want 128", i, b)
		}
	}
}

func TestConvertToRejectsShortStride(t *testing.T) {
	src := []byte{1, 2, 3}
	if _, _, err := ConvertTo(src, R8G8B8A8, 2, 1, 4, R8G8B8); err == nil {
		t.Fatal("expected error for stride too small for width")
	}
}

func TestConvertToRejectsUnknownFormat(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	if _, _, err := ConvertTo(src, Format(200), 1, 1, 4, R8G8B8A8); err == nil {
		t.Fatal("expected error for unknown source format")
	}
	if _, _, err := ConvertTo(src, R8G8B8A8, 1, 1, 4, Format(200)); err == nil {
		t.Fatal("expected error for unknown target format")
	}
}
