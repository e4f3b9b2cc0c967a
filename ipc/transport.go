// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/valoq/glycin/lib/codec"
)

// maxFrameSize bounds a single CBOR frame, guarding against a
// misbehaving or hostile loader sending an unbounded length prefix.
const maxFrameSize = 64 << 20

// maxAncillaryFDs bounds the number of file descriptors accepted in a
// single frame's ancillary data; the protocol never needs more than
// one (the input, pixel or output buffer), and the rest is headroom.
const maxAncillaryFDs = 4

// Transport is a framed, fd-carrying message channel over a connected
// Unix domain socket. Each frame is a 4-byte big-endian length prefix
// followed by that many bytes of CBOR, with zero or more file
// descriptors riding alongside as SCM_RIGHTS ancillary data on the
// frame containing the length prefix.
//
// A Transport enforces one request in flight at a time: Send returns
// an error if a prior Send has not yet been matched by Receive.
type Transport struct {
	conn *net.UnixConn

	mu      sync.Mutex
	pending bool
}

// NewTransport wraps an already-connected Unix socket. The caller
// retains ownership of conn and must Close the Transport (which
// closes conn) when done.
func NewTransport(conn *net.UnixConn) *Transport {
	return &Transport{conn: conn}
}

// SocketPair creates a connected pair of Unix domain sockets suitable
// for handing one end to a sandboxed child via fd inheritance. The
// parent keeps the first returned file; the second is the pair's
// other end, passed to the child as its well-known inherited fd (via
// exec.Cmd.ExtraFiles, which the sandbox package arranges).
func SocketPair() (parent *os.File, child *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("ipc: socketpair: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "glycin-ipc-parent"),
		os.NewFile(uintptr(fds[1]), "glycin-ipc-child"),
		nil
}

// NewTransportFromFile wraps a socket file descriptor (e.g. the
// parent's half of a SocketPair) as a Transport.
func NewTransportFromFile(file *os.File) (*Transport, error) {
	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("ipc: FileConn: %w", err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("ipc: file descriptor is not a Unix socket")
	}
	return NewTransport(unixConn), nil
}

// Send writes req as a frame, attaching fds as ancillary data. It
// returns an error without writing anything if a previous Send has
// not yet been matched by a Receive call.
func (t *Transport) Send(ctx context.Context, req Request, fds []int) error {
	t.mu.Lock()
	if t.pending {
		t.mu.Unlock()
		return fmt.Errorf("ipc: send while a request is already in flight")
	}
	t.pending = true
	t.mu.Unlock()

	if err := t.writeFrame(ctx, req, fds); err != nil {
		t.mu.Lock()
		t.pending = false
		t.mu.Unlock()
		return err
	}
	return nil
}

// Receive reads the Response matching the most recent Send. It clears
// the in-flight flag regardless of outcome, since a failed or
// malformed reply still ends that request's lifecycle.
func (t *Transport) Receive(ctx context.Context) (Response, []int, error) {
	defer func() {
		t.mu.Lock()
		t.pending = false
		t.mu.Unlock()
	}()

	var resp Response
	fds, err := t.readFrame(ctx, &resp)
	if err != nil {
		return Response{}, nil, err
	}
	return resp, fds, nil
}

// SendResponse and ReceiveRequest mirror Send/Receive for the other
// direction of the socket — used by test doubles that stand in for a
// sandboxed loader/editor process.

func (t *Transport) SendResponse(ctx context.Context, resp Response, fds []int) error {
	return t.writeFrame(ctx, resp, fds)
}

func (t *Transport) ReceiveRequest(ctx context.Context) (Request, []int, error) {
	var req Request
	fds, err := t.readFrame(ctx, &req)
	if err != nil {
		return Request{}, nil, err
	}
	return req, fds, nil
}

// Close closes the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func (t *Transport) writeFrame(ctx context.Context, message any, fds []int) error {
	if len(fds) > maxAncillaryFDs {
		return fmt.Errorf("ipc: %d ancillary fds exceeds the maximum of %d", len(fds), maxAncillaryFDs)
	}

	payload, err := codec.Marshal(message)
	if err != nil {
		return fmt.Errorf("ipc: marshal frame: %w", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("ipc: frame of %d bytes exceeds the maximum of %d", len(payload), maxFrameSize)
	}

	header := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)))
	copy(header[4:], payload)

	if err := t.applyDeadline(ctx); err != nil {
		return err
	}

	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	n, oobn, err := t.conn.WriteMsgUnix(header, oob, nil)
	if err != nil {
		return fmt.Errorf("ipc: write frame: %w", err)
	}
	if n != len(header) {
		return fmt.Errorf("ipc: short frame write: wrote %d of %d bytes", n, len(header))
	}
	if len(oob) > 0 && oobn != len(oob) {
		return fmt.Errorf("ipc: short ancillary write: wrote %d of %d bytes", oobn, len(oob))
	}
	return nil
}

func (t *Transport) readFrame(ctx context.Context, out any) ([]int, error) {
	if err := t.applyDeadline(ctx); err != nil {
		return nil, err
	}

	// Ancillary data is delivered on whichever recvmsg call reads the
	// start of the sender's frame, so the length prefix must itself be
	// read with ReadMsgUnix rather than a plain Read — a later plain
	// Read on the same stream socket would silently drop any SCM_RIGHTS
	// the peer attached to the frame header.
	var lengthBuf [4]byte
	fds, err := t.readFullMsg(lengthBuf[:])
	if err != nil {
		return nil, fmt.Errorf("ipc: read frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxFrameSize {
		closeAll(fds)
		return nil, fmt.Errorf("ipc: peer announced frame of %d bytes, exceeding the maximum of %d", length, maxFrameSize)
	}

	payload := make([]byte, length)
	if length > 0 {
		moreFDs, err := t.readFullMsg(payload)
		if err != nil {
			closeAll(fds)
			closeAll(moreFDs)
			return nil, fmt.Errorf("ipc: read frame body: %w", err)
		}
		fds = append(fds, moreFDs...)
	}

	if err := codec.Unmarshal(payload, out); err != nil {
		closeAll(fds)
		return nil, fmt.Errorf("ipc: unmarshal frame: %w", err)
	}
	return fds, nil
}

// readFullMsg reads exactly len(buf) bytes via ReadMsgUnix, collecting
// any ancillary file descriptors the peer attached, and loops past
// short reads the way a stream socket may produce under SCM_RIGHTS
// traffic.
func (t *Transport) readFullMsg(buf []byte) ([]int, error) {
	oobBuf := make([]byte, unix.CmsgSpace(maxAncillaryFDs*4))
	var fds []int
	total := 0
	for total < len(buf) {
		n, oobn, _, _, err := t.conn.ReadMsgUnix(buf[total:], oobBuf)
		if n > 0 {
			total += n
		}
		if oobn > 0 {
			messages, parseErr := unix.ParseSocketControlMessage(oobBuf[:oobn])
			if parseErr == nil {
				for _, msg := range messages {
					parsed, rightsErr := unix.ParseUnixRights(&msg)
					if rightsErr == nil {
						fds = append(fds, parsed...)
					}
				}
			}
		}
		if err != nil {
			if err == io.EOF && total == len(buf) {
				return fds, nil
			}
			return fds, err
		}
	}
	return fds, nil
}

// noDeadline is the zero time.Time, which SetDeadline treats as "no
// deadline" — used to clear a previously set deadline when ctx carries
// none of its own.
var noDeadline time.Time

func (t *Transport) applyDeadline(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		return t.conn.SetDeadline(deadline)
	}
	return t.conn.SetDeadline(noDeadline)
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
