// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glycin

import (
	"testing"

	"github.com/valoq/glycin/registry"
)

func TestNewLoaderRejectsMalformedMIME(t *testing.T) {
	reg := registry.New(nil)
	if _, err := NewLoader(reg, "not-a-mime-type", []byte{0}); err == nil {
		t.Error("NewLoader with malformed MIME: err = nil, want error")
	}
}

func TestNewFrameRequestDefaults(t *testing.T) {
	r := NewFrameRequest()
	if !r.ApplyTransformations {
		t.Error("ApplyTransformations = false, want true")
	}
	if !r.LoopAnimation {
		t.Error("LoopAnimation = false, want true")
	}
	if r.AcceptedFormats.Empty() {
		t.Error("AcceptedFormats is empty, want SelectionAll")
	}
}

func TestFrameRequestConsumeTwicePanics(t *testing.T) {
	r := NewFrameRequest()
	r.consume()

	defer func() {
		if recover() == nil {
			t.Error("second consume() did not panic")
		}
	}()
	r.consume()
}

func TestLoaderRequestReturnsSameInstance(t *testing.T) {
	reg := registry.New(nil)
	loader, err := NewLoader(reg, "image/png", []byte{1})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if loader.Request() != loader.request {
		t.Error("Request() did not return the loader's own FrameRequest")
	}
}
