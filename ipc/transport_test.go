// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newTransportPair(t *testing.T) (*Transport, *Transport) {
	t.Helper()
	a, b, err := SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	t.Cleanup(func() { a.Close(); b.Close() })

	ta, err := NewTransportFromFile(a)
	if err != nil {
		t.Fatalf("NewTransportFromFile(a): %v", err)
	}
	tb, err := NewTransportFromFile(b)
	if err != nil {
		t.Fatalf("NewTransportFromFile(b): %v", err)
	}
	t.Cleanup(func() { ta.Close(); tb.Close() })
	return ta, tb
}

func TestRequestResponseRoundtrip(t *testing.T) {
	parent, child := newTransportPair(t)
	ctx := context.Background()

	req := Request{
		Method:    MethodInitLoader,
		RequestID: 1,
		MIME:      "image/png",
		DecodeOptions: &DecodeOptions{
			AcceptedFormats:       0xFF,
			ApplyTransformations: true,
			LoopAnimation:         false,
		},
	}

	done := make(chan error, 1)
	go func() {
		got, _, err := child.ReceiveRequest(ctx)
		if err != nil {
			done <- err
			return
		}
		if got.Method != MethodInitLoader || got.RequestID != 1 || got.MIME != "image/png" {
			done <- errUnexpected(got)
			return
		}
		done <- child.SendResponse(ctx, Response{
			RequestID: 1,
			OK:        true,
			ImageInfo: &ImageInfo{MIME: "image/png", Width: 64, Height: 48, Orientation: 1, FrameCount: 1},
		}, nil)
	}()

	if err := parent.Send(ctx, req, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, _, err := parent.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("child side: %v", err)
	}
	if !resp.OK || resp.ImageInfo == nil || resp.ImageInfo.Width != 64 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func errUnexpected(req Request) error {
	return &unexpectedRequestError{req}
}

type unexpectedRequestError struct{ req Request }

func (e *unexpectedRequestError) Error() string {
	return "unexpected request received"
}

func TestAncillaryFileDescriptorTravelsWithFrame(t *testing.T) {
	parent, child := newTransportPair(t)
	ctx := context.Background()

	fd, err := unix.MemfdCreate("test-frame", unix.MFD_CLOEXEC)
	if err != nil {
		t.Fatalf("MemfdCreate: %v", err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, 16); err != nil {
		t.Fatalf("Ftruncate: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, fds, err := child.ReceiveRequest(ctx)
		if err != nil {
			done <- err
			return
		}
		if len(fds) != 1 {
			done <- &unexpectedRequestError{}
			return
		}
		unix.Close(fds[0])
		done <- nil
	}()

	req := Request{Method: MethodAddFrame, RequestID: 2, Frame: &FrameDescriptor{Width: 4, Height: 4, Stride: 16, Format: 0}}
	if err := parent.Send(ctx, req, []int{fd}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("child side: %v", err)
	}
}

func TestSendWhileRequestInFlightFails(t *testing.T) {
	parent, _ := newTransportPair(t)
	ctx := context.Background()

	if err := parent.Send(ctx, Request{Method: MethodTearDown, RequestID: 1}, nil); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := parent.Send(ctx, Request{Method: MethodTearDown, RequestID: 2}, nil); err == nil {
		t.Fatal("expected second Send to fail while a request is in flight")
	}
}

func TestDeadlineExceeded(t *testing.T) {
	parent, _ := newTransportPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := parent.Receive(ctx)
	if err == nil {
		t.Fatal("expected Receive with no peer reply to time out")
	}
}

func TestNewTransportFromFileRejectsNonSocket(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "not-a-socket")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer file.Close()

	if _, err := NewTransportFromFile(file); err == nil {
		t.Fatal("expected NewTransportFromFile to reject a regular file")
	}
}
