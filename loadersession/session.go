// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loadersession

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

// tearDownTimeout bounds how long Close waits for the loader's own
// tear_down handling before the process is killed outright.
const tearDownTimeout = 2 * time.Second

// Source is the encoded image bytes a Session decodes, plus an
// optional host path used only to compute ExposeBaseDir's bind mount
// when the entry requests one.
type Source struct {
	// Data is the full encoded image payload, copied into a sealed
	// memfile before the loader is launched.
	Data []byte

	// Path is the absolute path the bytes were read from, if any.
	// Leave empty for an in-memory or streamed source; ExposeBaseDir
	// has no effect in that case.
	Path string
}

// Options configures a loader session's decode-time negotiation and
// sandbox launch.
type Options struct {
	// AcceptedFormats is the set of memory formats the caller is
	// willing to receive. A frame returned in any other format is
	// converted in-parent via memformat.ConvertTo before NextFrame or
	// SpecificFrame returns it.
	AcceptedFormats memformat.Selection

	// ApplyTransformations instructs the loader to bake EXIF
	// orientation into returned buffers. Defaults to true's usual
	// meaning; callers should set this explicitly rather than rely on
	// the zero value.
	ApplyTransformations bool

	// LoopAnimation selects the frame loop policy: true cycles back to
	// frame 0 after the last frame, false ends the sequence with
	// ErrNoMoreFrames after FrameCount calls to NextFrame.
	LoopAnimation bool

	// MaxWidth and MaxHeight are optional scaling hints passed to the
	// loader; zero means unconstrained. The parent does not enforce
	// these itself.
	MaxWidth, MaxHeight uint32

	// Launch carries the sandbox backend selection and related
	// parameters. Launch.InputPath is overwritten from Source.Path.
	Launch sandbox.LaunchOptions
}

// Session is one loader process's IPC conversation, from init_loader
// through however many frame requests the caller makes to teardown.
// A Session is safe for concurrent use: NextFrame and SpecificFrame
// serialize against each other internally, one frame request at a
// time, and Close may be called while a request is in flight, which
// ends that request.
type Session struct {
	reqMu     sync.Mutex
	mu        sync.Mutex
	state     State
	transport *ipc.Transport
	cmd       *exec.Cmd
	logger    *slog.Logger
	requestID uint64

	accepted             memformat.Selection
	applyTransformations bool
	loopAnimation        bool
	maxWidth, maxHeight  uint32

	info ipc.ImageInfo
}

// Open launches entry's loader binary, performs the init_loader
// handshake, and returns a Session ready to serve frames. On any
// failure after the process has been started, Open tears it down
// before returning the error.
func Open(ctx context.Context, entry registry.Entry, source Source, opts Options) (*Session, error) {
	if entry.Role != registry.RoleLoader {
		return nil, fmt.Errorf("loadersession: entry for %s is not a loader", entry.MIME)
	}
	if len(source.Data) == 0 {
		return nil, fmt.Errorf("loadersession: empty input")
	}

	input, err := memfile.Create("glycin-loader-input", len(source.Data))
	if err != nil {
		return nil, err
	}
	defer input.Close()
	if err := input.Write(source.Data, 0); err != nil {
		return nil, fmt.Errorf("loadersession: write input: %w", err)
	}
	if err := input.Seal(); err != nil {
		return nil, fmt.Errorf("loadersession: seal input: %w", err)
	}

	parent, child, err := ipc.SocketPair()
	if err != nil {
		return nil, err
	}

	launchOpts := opts.Launch
	launchOpts.InputPath = source.Path

	cmd, err := sandbox.Launch(ctx, entry, child, launchOpts)
	if err != nil {
		child.Close()
		parent.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		child.Close()
		parent.Close()
		return nil, fmt.Errorf("loadersession: start loader: %w", err)
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
		transport:            transport,
		cmd:                  cmd,
		logger:               logger,
		state:                StateSpawned,
		accepted:             opts.AcceptedFormats,
		applyTransformations: opts.ApplyTransformations,
		loopAnimation:        opts.LoopAnimation,
		maxWidth:             opts.MaxWidth,
		maxHeight:            opts.MaxHeight,
	}

	if err := sess.initLoader(ctx, entry, input); err != nil {
		sess.mu.Lock()
		sess.terminateLocked("init_loader failed")
		sess.mu.Unlock()
		return nil, err
	}

	return sess, nil
}

func (s *Session) initLoader(ctx context.Context, entry registry.Entry, input *memfile.MemFile) error {
	fd, err := input.FD()
	if err != nil {
		return err
	}

	s.mu.Lock()
	req := ipc.Request{
		Method:    ipc.MethodInitLoader,
		RequestID: s.nextRequestIDLocked(),
		MIME:      string(entry.MIME),
		DecodeOptions: &ipc.DecodeOptions{
			AcceptedFormats:      uint32(s.accepted),
			ApplyTransformations: s.applyTransformations,
			LoopAnimation:        s.loopAnimation,
			MaxWidth:             s.maxWidth,
			MaxHeight:            s.maxHeight,
		},
	}
	s.mu.Unlock()

	if err := s.transport.Send(ctx, req, []int{fd}); err != nil {
		return fmt.Errorf("loadersession: send init_loader: %w", err)
	}
	resp, fds, err := s.transport.Receive(ctx)
	closeFDs(fds)
	if err != nil {
		return fmt.Errorf("loadersession: receive init_loader reply: %w", err)
	}
	if !resp.OK || resp.ImageInfo == nil {
		return fmt.Errorf("loadersession: init_loader failed: %s", resp.Error)
	}
	if err := validateSupportedMethods(entry.CompatVersion, resp.ImageInfo.SupportedMethods); err != nil {
		return err
	}
	if err := validateOrientation(resp.ImageInfo.Orientation); err != nil {
		return err
	}

	s.mu.Lock()
	s.info = *resp.ImageInfo
	s.state = StateAwaitingFrame
	s.mu.Unlock()
	return nil
}

// ImageInfo returns the loader's init_loader report.
func (s *Session) ImageInfo() ipc.ImageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextFrame advances the loader's sequential frame cursor by one and
// returns the next frame, honoring the session's loop policy. It
// returns ErrNoMoreFrames once a non-looping animation is exhausted.
func (s *Session) NextFrame(ctx context.Context) (*Frame, error) {
	return s.requestFrame(ctx, ipc.Request{Method: ipc.MethodNextFrame})
}

// SpecificFrame requests the frame at index without disturbing the
// sequential cursor NextFrame advances.
func (s *Session) SpecificFrame(ctx context.Context, index uint32) (*Frame, error) {
	return s.requestFrame(ctx, ipc.Request{Method: ipc.MethodSpecificFrame, FrameIndex: index})
}

func (s *Session) requestFrame(ctx context.Context, req ipc.Request) (*Frame, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return nil, fmt.Errorf("loadersession: session is terminated")
	}
	req.RequestID = s.nextRequestIDLocked()
	s.state = StateServing
	s.mu.Unlock()

	if err := s.transport.Send(ctx, req, nil); err != nil {
		s.terminate(fmt.Sprintf("send %s", req.Method))
		return nil, fmt.Errorf("loadersession: send %s: %w", req.Method, err)
	}

	resp, fds, err := s.transport.Receive(ctx)
	if err != nil {
		s.terminate(fmt.Sprintf("receive %s reply", req.Method))
		return nil, fmt.Errorf("loadersession: receive %s reply: %w", req.Method, err)
	}

	if resp.NoMoreFrames {
		closeFDs(fds)
		s.mu.Lock()
		s.state = StateAwaitingFrame
		s.mu.Unlock()
		return nil, ErrNoMoreFrames
	}
	if !resp.OK || resp.Frame == nil {
		closeFDs(fds)
		s.terminate(fmt.Sprintf("%s failed", req.Method))
		return nil, fmt.Errorf("loadersession: %s failed: %s", req.Method, resp.Error)
	}
	if len(fds) != 1 {
		closeFDs(fds)
		s.terminate(fmt.Sprintf("%s carried %d descriptors", req.Method, len(fds)))
		return nil, fmt.Errorf("loadersession: %s reply carried %d descriptors, want 1", req.Method, len(fds))
	}

	mapped, err := memfile.Receive(fds[0])
	if err != nil {
		s.terminate("map frame buffer")
		return nil, fmt.Errorf("loadersession: map frame buffer: %w", err)
	}

	frame, err := s.buildFrame(resp.Frame, mapped)
	if err != nil {
		mapped.Close()
		s.terminate("build frame")
		return nil, err
	}

	s.mu.Lock()
	s.state = StateAwaitingFrame
	s.mu.Unlock()
	return frame, nil
}

// buildFrame converts desc's pixel buffer into a format the session's
// caller accepted, if the loader's native format isn't already one of
// them, per the documented conversion policy in memformat.ReachableFrom.
func (s *Session) buildFrame(desc *ipc.FrameDescriptor, mapped *memfile.MappedFile) (*Frame, error) {
	format := memformat.Format(desc.Format)
	if !format.Valid() {
		s.logger.Warn("loader returned unrecognized memory format", "format", desc.Format)
		return nil, fmt.Errorf("loadersession: loader returned unrecognized format %d", desc.Format)
	}

	minStride := int(desc.Width) * format.BytesPerPixel()
	if int(desc.Stride) < minStride {
		return nil, fmt.Errorf("loadersession: frame stride %d too small for width %d (%s)", desc.Stride, desc.Width, format)
	}
	if need := int(desc.Stride) * int(desc.Height); need > mapped.Len() {
		return nil, fmt.Errorf("loadersession: frame of %d rows at stride %d needs %d bytes, sealed buffer has %d", desc.Height, desc.Stride, need, mapped.Len())
	}

	if s.accepted.Contains(format) {
		return &Frame{
			Width: desc.Width, Height: desc.Height, Stride: desc.Stride,
			Format: format, DelayMicros: desc.DelayMicros, CICP: desc.CICP,
			data: mapped.Bytes(), mapped: mapped,
		}, nil
	}

	target, ok := memformat.ReachableFrom(format, s.accepted)
	if !ok {
		return nil, fmt.Errorf("loadersession: no accepted format reachable from loader format %s", format)
	}

	converted, stride, err := memformat.ConvertTo(mapped.Bytes(), format, int(desc.Width), int(desc.Height), int(desc.Stride), target)
	mapped.Close()
	if err != nil {
		return nil, fmt.Errorf("loadersession: convert frame to %s: %w", target, err)
	}

	return &Frame{
		Width: desc.Width, Height: desc.Height, Stride: uint32(stride),
		Format: target, DelayMicros: desc.DelayMicros, CICP: desc.CICP,
		data: converted,
	}, nil
}

// TearDown asks the loader to shut down cleanly, then closes the
// session regardless of whether a reply arrives in time. Equivalent
// to Close; kept as a separate name so callers reading the session's
// state machine can spell out the transition they expect.
func (s *Session) TearDown(ctx context.Context) error {
	return s.Close()
}

// Close releases the session: best-effort tear_down, process-group
// kill, transport close, and reaping the loader process. Idempotent.
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
		s.logger.Debug("loader process wait failed", "reason", reason, "error", err)
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
