// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfile

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// MappedFile is a received, verified, read-only view of a peer's
// sealed memfile. Its Bytes slice is backed directly by the mmap
// region; it becomes invalid after Close.
type MappedFile struct {
	mu     sync.Mutex
	fd     int
	data   []byte
	closed bool
}

// Receive takes ownership of fd (as received over the ipc transport's
// ancillary data channel), verifies it carries the full required seal
// set, and maps it read-only. It returns an error — and closes fd —
// if the descriptor is not a memfd, is not fully sealed, or cannot be
// mapped.
func Receive(fd int) (*MappedFile, error) {
	seals, err := unix.FcntlInt(uintptr(fd), unix.F_GET_SEALS, 0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memfile: F_GET_SEALS: %w", err)
	}
	if seals&requiredSeals != requiredSeals {
		unix.Close(fd)
		return nil, fmt.Errorf("memfile: descriptor missing required seals: have %#x, want %#x", seals, requiredSeals)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memfile: fstat: %w", err)
	}
	size := int(stat.Size)
	if size <= 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("memfile: sealed descriptor has non-positive size %d", size)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memfile: mmap: %w", err)
	}

	return &MappedFile{fd: fd, data: data}, nil
}

// Bytes returns the mapped region. Panics if called after Close.
func (m *MappedFile) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		panic("memfile: read from closed MappedFile")
	}
	return m.data
}

// Len returns the size of the mapped region in bytes.
func (m *MappedFile) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Close unmaps the region and closes the underlying descriptor.
// Idempotent.
func (m *MappedFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var firstError error
	if len(m.data) > 0 {
		if err := unix.Munmap(m.data); err != nil {
			firstError = fmt.Errorf("memfile: munmap: %w", err)
		}
	}
	if err := unix.Close(m.fd); err != nil && firstError == nil {
		firstError = fmt.Errorf("memfile: close: %w", err)
	}
	m.data = nil
	return firstError
}
