// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package creatorsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/valoq/glycin/ipc"
	"github.com/valoq/glycin/memfile"
	"github.com/valoq/glycin/memformat"
	"github.com/valoq/glycin/registry"
	"github.com/valoq/glycin/sandbox"
)

// tearDownTimeout bounds how long Close waits for the editor's own
// tear_down handling before the process is killed outright.
const tearDownTimeout = 2 * time.Second

// Options configures a creator session's encode-time negotiation and
// sandbox launch.
type Options struct {
	Quality     uint8
	Compression uint8
	ICCProfile  []byte

	// Launch carries the sandbox backend selection and related
	// parameters.
	Launch sandbox.LaunchOptions
}

// Session is one editor process's IPC conversation, from init_editor
// through however many AddFrame calls the caller makes to the final
// Encode. A Session is safe for concurrent use: AddFrame and Encode
// serialize against each other internally, one request at a time, and
// Close may be called while a request is in flight, which ends that
// request.
type Session struct {
	reqMu     sync.Mutex
	mu        sync.Mutex
	state     State
	transport *ipc.Transport
	cmd       *exec.Cmd
	logger    *slog.Logger
	requestID uint64

	capabilities ipc.EditorCapabilities
}

// Open launches entry's editor binary and performs the init_editor
// handshake. On any failure after the process has started, Open tears
// it down before returning the error.
func Open(ctx context.Context, entry registry.Entry, opts Options) (*Session, error) {
	if entry.Role != registry.RoleEditor {
		return nil, fmt.Errorf("creatorsession: entry for %s is not an editor", entry.MIME)
	}

	parent, child, err := ipc.SocketPair()
	if err != nil {
		return nil, err
	}

	cmd, err := sandbox.Launch(ctx, entry, child, opts.Launch)
	if err != nil {
		child.Close()
		parent.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		child.Close()
		parent.Close()
		return nil, fmt.Errorf("creatorsession: start editor: %w", err)
	}
	child.Close()

	transport, err := ipc.NewTransportFromFile(parent)
	if err != nil {
		sandbox.KillGroup(cmd)
		cmd.Wait()
		return nil, err
	}

	logger := opts.Launch.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sess := &Session{
		transport: transport,
		cmd:       cmd,
		logger:    logger,
		state:     StateSpawned,
	}

	if err := sess.initEditor(ctx, entry, opts); err != nil {
		sess.mu.Lock()
		sess.terminateLocked("init_editor failed")
		sess.mu.Unlock()
		return nil, err
	}

	return sess, nil
}

func (s *Session) initEditor(ctx context.Context, entry registry.Entry, opts Options) error {
	s.mu.Lock()
	req := ipc.Request{
		Method:    ipc.MethodInitEditor,
		RequestID: s.nextRequestIDLocked(),
		MIME:      string(entry.MIME),
		EncodeOptions: &ipc.EncodeOptions{
			Quality:     opts.Quality,
			Compression: opts.Compression,
			ICCProfile:  opts.ICCProfile,
		},
	}
	s.mu.Unlock()

	if err := s.transport.Send(ctx, req, nil); err != nil {
		return fmt.Errorf("creatorsession: send init_editor: %w", err)
	}
	resp, fds, err := s.transport.Receive(ctx)
	closeFDs(fds)
	if err != nil {
		return fmt.Errorf("creatorsession: receive init_editor reply: %w", err)
	}
	if !resp.OK || resp.EditorCapabilities == nil {
		return fmt.Errorf("creatorsession: init_editor failed: %s", resp.Error)
	}

	if err := validateCompatVersion(entry.CompatVersion); err != nil {
		return err
	}

	s.mu.Lock()
	s.capabilities = *resp.EditorCapabilities
	s.state = StateAccumulating
	s.mu.Unlock()
	return nil
}

// Capabilities reports which optional encode-time inputs this editor
// actually honors.
func (s *Session) Capabilities() ipc.EditorCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddFrame appends one frame's pixel buffer to the encoder's pending
// output. It may be called more than once per session for formats
// that support multiple frames (e.g. an animated output). Applied is
// the editor's add_frame reply flag, reporting whether the frame's
// optional metadata (its delay) had effect.
func (s *Session) AddFrame(ctx context.Context, pixels []byte, width, height, stride uint32, format memformat.Format, delayMicros uint64) (applied bool, err error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	s.mu.Lock()
	if s.state != StateAccumulating {
		s.mu.Unlock()
		return false, fmt.Errorf("creatorsession: AddFrame called in state %s, want accumulating", s.state)
	}
	req := ipc.Request{
		Method:    ipc.MethodAddFrame,
		RequestID: s.nextRequestIDLocked(),
		Frame: &ipc.FrameDescriptor{
			Width: width, Height: height, Stride: stride,
			Format:      uint8(format),
			DelayMicros: delayMicros,
		},
	}
	s.mu.Unlock()

	input, err := memfile.Create("glycin-editor-frame", len(pixels))
	if err != nil {
		return false, err
	}
	defer input.Close()
	if err := input.Write(pixels, 0); err != nil {
		return false, fmt.Errorf("creatorsession: write frame buffer: %w", err)
	}
	if err := input.Seal(); err != nil {
		return false, fmt.Errorf("creatorsession: seal frame buffer: %w", err)
	}
	fd, err := input.FD()
	if err != nil {
		return false, err
	}

	if err := s.transport.Send(ctx, req, []int{fd}); err != nil {
		s.terminate("send add_frame")
		return false, fmt.Errorf("creatorsession: send add_frame: %w", err)
	}
	resp, fds, err := s.transport.Receive(ctx)
	closeFDs(fds)
	if err != nil {
		s.terminate("receive add_frame reply")
		return false, fmt.Errorf("creatorsession: receive add_frame reply: %w", err)
	}
	if !resp.OK {
		s.terminate("add_frame failed")
		return false, fmt.Errorf("creatorsession: add_frame failed: %s", resp.Error)
	}
	return resp.Applied, nil
}

// Encode finalizes the session and returns the sealed encoded output.
// The returned Output must be closed; calls after the first are
// no-ops. Encode leaves the session in StateEncoded on success; no
// further calls are accepted.
func (s *Session) Encode(ctx context.Context) (*Output, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	s.mu.Lock()
	if s.state != StateAccumulating {
		s.mu.Unlock()
		return nil, fmt.Errorf("creatorsession: Encode called in state %s, want accumulating", s.state)
	}
	req := ipc.Request{Method: ipc.MethodEncode, RequestID: s.nextRequestIDLocked()}
	s.mu.Unlock()

	if err := s.transport.Send(ctx, req, nil); err != nil {
		s.terminate("send encode")
		return nil, fmt.Errorf("creatorsession: send encode: %w", err)
	}
	resp, fds, err := s.transport.Receive(ctx)
	if err != nil {
		s.terminate("receive encode reply")
		return nil, fmt.Errorf("creatorsession: receive encode reply: %w", err)
	}
	if !resp.OK {
		closeFDs(fds)
		s.terminate("encode failed")
		return nil, fmt.Errorf("creatorsession: encode failed: %s", resp.Error)
	}
	if len(fds) != 1 {
		closeFDs(fds)
		s.terminate("encode reply carried unexpected descriptor count")
		return nil, fmt.Errorf("creatorsession: encode reply carried %d descriptors, want 1", len(fds))
	}

	mapped, err := memfile.Receive(fds[0])
	if err != nil {
		s.terminate("map encoded output")
		return nil, fmt.Errorf("creatorsession: map encoded output: %w", err)
	}

	s.mu.Lock()
	s.state = StateEncoded
	s.mu.Unlock()
	return &Output{mapped: mapped, size: resp.EncodedSize}, nil
}

// Close releases the session: best-effort tear_down, process-group
// kill, transport close, and reaping the editor process. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	req := ipc.Request{Method: ipc.MethodTearDown, RequestID: s.nextRequestIDLocked()}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), tearDownTimeout)
	defer cancel()
	if err := s.transport.Send(ctx, req, nil); err == nil {
		s.transport.Receive(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminateLocked("close")
}

func (s *Session) terminate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked(reason)
}

func (s *Session) terminateLocked(reason string) error {
	if s.state == StateTerminated {
		return nil
	}
	s.state = StateTerminated

	s.transport.Close()
	if s.cmd == nil {
		return nil
	}
	sandbox.KillGroup(s.cmd)

	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.logger.Debug("editor process wait failed", "reason", reason, "error", err)
	}
	return nil
}

func (s *Session) nextRequestIDLocked() uint64 {
	s.requestID++
	return s.requestID
}

func closeFDs(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
