// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package creatorsession

import (
	"context"
	"log/slog"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/valoq/glycin/ipc"
	"github.com/valoq/glycin/memfile"
	"github.com/valoq/glycin/memformat"
	"github.com/valoq/glycin/registry"
)

func newTestSession(t *testing.T, state State) (*Session, *ipc.Transport) {
	t.Helper()
	parentFile, childFile, err := ipc.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	t.Cleanup(func() { parentFile.Close(); childFile.Close() })

	parent, err := ipc.NewTransportFromFile(parentFile)
	if err != nil {
		t.Fatalf("NewTransportFromFile(parent): %v", err)
	}
	editor, err := ipc.NewTransportFromFile(childFile)
	if err != nil {
		t.Fatalf("NewTransportFromFile(child): %v", err)
	}
	t.Cleanup(func() { parent.Close(); editor.Close() })

	sess := &Session{
		transport: parent,
		logger:    slog.Default(),
		state:     state,
	}
	return sess, editor
}

func TestSessionAddFrameAndEncode(t *testing.T) {
	sess, editor := newTestSession(t, StateAccumulating)

	pixels := []byte{10, 20, 30, 255}
	outputBytes := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	done := make(chan error, 1)
	go func() {
		ctx := context.Background()

		addReq, fds, err := editor.ReceiveRequest(ctx)
		for _, fd := range fds {
			unix.Close(fd)
		}
		if err != nil {
			done <- err
			return
		}
		if addReq.Method != ipc.MethodAddFrame {
			done <- errUnexpectedMethod(addReq.Method)
			return
		}
		if err := editor.SendResponse(ctx, ipc.Response{RequestID: addReq.RequestID, OK: true, Applied: true}, nil); err != nil {
			done <- err
			return
		}

		encReq, _, err := editor.ReceiveRequest(ctx)
		if err != nil {
			done <- err
			return
		}
		if encReq.Method != ipc.MethodEncode {
			done <- errUnexpectedMethod(encReq.Method)
			return
		}

		out, fd := pixelMemfileFD(t, outputBytes)
		defer out.Close()
		done <- editor.SendResponse(ctx, ipc.Response{
			RequestID:   encReq.RequestID,
			OK:          true,
			EncodedSize: uint64(len(outputBytes)),
		}, []int{fd})
	}()

	applied, err := sess.AddFrame(context.Background(), pixels, 1, 1, 4, memformat.R8G8B8A8, 0)
	if err != nil {
		t.Fatalf("AddFrame: %v", err)
	}
	if !applied {
		t.Error("AddFrame applied = false, want true")
	}

	output, err := sess.Encode(context.Background())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	defer output.Close()

	if err := <-done; err != nil {
		t.Fatalf("editor side: %v", err)
	}

	if output.Size() != uint64(len(outputBytes)) {
		t.Errorf("Size() = %d, want %d", output.Size(), len(outputBytes))
	}
	for i, b := range outputBytes {
		if output.Bytes()[i] != b {
			t.Errorf("byte %d: got %d, want %d", i, output.Bytes()[i], b)
		}
	}
	if sess.State() != StateEncoded {
		t.Errorf("session state = %s, want encoded", sess.State())
	}
}

func TestSessionAddFrameOutsideAccumulatingFails(t *testing.T) {
	sess, _ := newTestSession(t, StateEncoded)
	_, err := sess.AddFrame(context.Background(), []byte{1, 2, 3, 4}, 1, 1, 4, memformat.R8G8B8A8, 0)
	if err == nil {
		t.Fatal("expected AddFrame to fail outside StateAccumulating")
	}
}

func TestSessionAddFrameFailureTerminates(t *testing.T) {
	sess, editor := newTestSession(t, StateAccumulating)

	done := make(chan error, 1)
	go func() {
		ctx := context.Background()
		req, fds, err := editor.ReceiveRequest(ctx)
		for _, fd := range fds {
			unix.Close(fd)
		}
		if err != nil {
			done <- err
			return
		}
		done <- editor.SendResponse(ctx, ipc.Response{RequestID: req.RequestID, OK: false, Error: "unsupported frame size"}, nil)
	}()

	_, err := sess.AddFrame(context.Background(), []byte{1, 2, 3, 4}, 1, 1, 4, memformat.R8G8B8A8, 0)
	if err == nil {
		t.Fatal("expected AddFrame to fail")
	}
	<-done
	if sess.State() != StateTerminated {
		t.Errorf("session state = %s, want terminated", sess.State())
	}
}

func TestValidateCompatVersion(t *testing.T) {
	if err := validateCompatVersion(1); err != nil {
		t.Errorf("validateCompatVersion(1) = %v, want nil", err)
	}
	if err := validateCompatVersion(99); err == nil {
		t.Error("expected error for unknown compat version")
	}
}

func TestSessionInitEditorHandshake(t *testing.T) {
	parentFile, childFile, err := ipc.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	defer parentFile.Close()
	defer childFile.Close()

	parent, err := ipc.NewTransportFromFile(parentFile)
	if err != nil {
		t.Fatalf("NewTransportFromFile(parent): %v", err)
	}
	defer parent.Close()
	editor, err := ipc.NewTransportFromFile(childFile)
	if err != nil {
		t.Fatalf("NewTransportFromFile(child): %v", err)
	}
	defer editor.Close()

	sess := &Session{transport: parent, logger: slog.Default(), state: StateSpawned}

	done := make(chan error, 1)
	go func() {
		ctx := context.Background()
		req, _, err := editor.ReceiveRequest(ctx)
		if err != nil {
			done <- err
			return
		}
		if req.Method != ipc.MethodInitEditor || req.MIME != "image/jpeg" {
			done <- errUnexpectedMethod(req.Method)
			return
		}
		done <- editor.SendResponse(ctx, ipc.Response{
			RequestID:          req.RequestID,
			OK:                 true,
			EditorCapabilities: &ipc.EditorCapabilities{HonorsQuality: true},
		}, nil)
	}()

	entry := registry.Entry{MIME: "image/jpeg", Role: registry.RoleEditor, CompatVersion: 1}
	if err := sess.initEditor(context.Background(), entry, Options{Quality: 90}); err != nil {
		t.Fatalf("initEditor: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("editor side: %v", err)
	}

	if sess.State() != StateAccumulating {
		t.Errorf("session state = %s, want accumulating", sess.State())
	}
	if !sess.Capabilities().HonorsQuality {
		t.Error("Capabilities().HonorsQuality = false, want true")
	}
}

func pixelMemfileFD(t *testing.T, data []byte) (*memfile.MemFile, int) {
	t.Helper()
	mf, err := memfile.Create("test-output", len(data))
	if err != nil {
		t.Fatalf("memfile.Create: %v", err)
	}
	if err := mf.Write(data, 0); err != nil {
		t.Fatalf("memfile.Write: %v", err)
	}
	if err := mf.Seal(); err != nil {
		t.Fatalf("memfile.Seal: %v", err)
	}
	fd, err := mf.FD()
	if err != nil {
		t.Fatalf("memfile.FD: %v", err)
	}
	return mf, fd
}

type unexpectedMethodError struct{ method ipc.Method }

func (e *unexpectedMethodError) Error() string {
	return "unexpected method received: " + string(e.method)
}

func errUnexpectedMethod(m ipc.Method) error {
	return &unexpectedMethodError{m}
}
