// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfile

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// requiredSeals is the full seal set a sealed memfile must carry
// before a receiver will trust it: no shrinking, no growing, no new
// writes, and the seal set itself frozen so no later relaxation is
// possible.
const requiredSeals = unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE | unix.F_SEAL_SEAL

// MemFile is a writable memfd-backed buffer, owned by the process
// that creates it. Call Write one or more times, then Seal before
// handing FD() to the peer process. A MemFile must not be written to
// after Seal; Write returns an error rather than silently failing.
type MemFile struct {
	mu     sync.Mutex
	fd     int
	size   int
	sealed bool
	closed bool
}

// Create allocates a new anonymous, sealing-capable memfd of the
// given name (used only for /proc/self/fd/N diagnostics, not for
// lookup) and preallocates size bytes.
func Create(name string, size int) (*MemFile, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memfile: size must be positive, got %d", size)
	}

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfile: memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("memfile: ftruncate to %d: %w", size, err)
	}

	return &MemFile{fd: fd, size: size}, nil
}

// Write copies data into the buffer at offset. It is the caller's
// responsibility to write every byte of the buffer before sealing;
// Seal does not verify the buffer has been fully populated.
func (m *MemFile) Write(data []byte, offset int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("memfile: write to closed memfile")
	}
	if m.sealed {
		return fmt.Errorf("memfile: write to sealed memfile")
	}
	if offset < 0 || offset+len(data) > m.size {
		return fmt.Errorf("memfile: write of %d bytes at offset %d exceeds size %d", len(data), offset, m.size)
	}

	n, err := unix.Pwrite(m.fd, data, int64(offset))
	if err != nil {
		return fmt.Errorf("memfile: pwrite: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("memfile: short write: wrote %d of %d bytes", n, len(data))
	}
	return nil
}

// Seal applies the full seal set, making the buffer's size and
// contents immutable. Once F_SEAL_SEAL is set the kernel rejects any
// further F_ADD_SEALS with EPERM; this method reports a second call
// itself, before reaching the kernel, so callers get a clear error for
// the logic mistake.
func (m *MemFile) Seal() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("memfile: seal of closed memfile")
	}
	if m.sealed {
		return fmt.Errorf("memfile: already sealed")
	}

	if _, err := unix.FcntlInt(uintptr(m.fd), unix.F_ADD_SEALS, requiredSeals); err != nil {
		return fmt.Errorf("memfile: F_ADD_SEALS: %w", err)
	}
	m.sealed = true
	return nil
}

// Sealed reports whether Seal has completed successfully.
func (m *MemFile) Sealed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sealed
}

// Size returns the buffer's fixed size in bytes.
func (m *MemFile) Size() int {
	return m.size
}

// FD returns the raw file descriptor for handing to the ipc transport
// as ancillary data. The descriptor remains owned by MemFile; the
// caller must not close it directly. Must be called only after Seal —
// handing an unsealed descriptor to a peer defeats the protocol's
// immutability guarantee.
func (m *MemFile) FD() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sealed {
		return -1, fmt.Errorf("memfile: FD requested before Seal")
	}
	return m.fd, nil
}

// Close releases the underlying descriptor. Idempotent.
func (m *MemFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return unix.Close(m.fd)
}
