// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Classic BPF opcodes, from linux/filter.h / linux/bpf_common.h. These
// aren't exposed by golang.org/x/sys/unix (which only carries the
// seccomp-specific constants below), so the small set actually needed
// to express "compare syscall nr, jump to the allow return" is
// reproduced here directly against the raw struct sock_filter shape
// unix.SockFilter already models.
const (
	bpfLD  = 0x00
	bpfW   = 0x00
	bpfABS = 0x20
	bpfJMP = 0x05
	bpfJEQ = 0x10
	bpfK   = 0x00
	bpfRET = 0x06
)

// seccompDataNROffset is offsetof(struct seccomp_data, nr) on every
// Linux architecture: the syscall number is the first 4-byte field.
const seccompDataNROffset = 0

// allowedSyscalls is the set a decoder/encoder needs: memory
// management, read/write on the fds the parent already handed it,
// mmap/memfd_create/fcntl for the sealed shared-memory protocol,
// close/exit_group for clean shutdown, futex and clock/time queries
// used by the Go and C runtimes, and restart_syscall for signal
// interruption.
func allowedSyscalls() []uintptr {
	return []uintptr{
		unix.SYS_READ,
		unix.SYS_WRITE,
		unix.SYS_CLOSE,
		unix.SYS_MMAP,
		unix.SYS_MUNMAP,
		unix.SYS_MPROTECT,
		unix.SYS_MADVISE,
		unix.SYS_BRK,
		unix.SYS_MEMFD_CREATE,
		unix.SYS_FCNTL,
		unix.SYS_FSTAT,
		unix.SYS_LSEEK,
		unix.SYS_IOCTL,
		unix.SYS_EXIT,
		unix.SYS_EXIT_GROUP,
		unix.SYS_FUTEX,
		unix.SYS_CLOCK_GETTIME,
		unix.SYS_GETTIMEOFDAY,
		unix.SYS_NANOSLEEP,
		unix.SYS_CLOCK_NANOSLEEP,
		unix.SYS_RESTART_SYSCALL,
		unix.SYS_RT_SIGACTION,
		unix.SYS_RT_SIGPROCMASK,
		unix.SYS_RT_SIGRETURN,
		unix.SYS_SIGALTSTACK,
		unix.SYS_GETPID,
		unix.SYS_GETTID,
		unix.SYS_TGKILL,
		unix.SYS_SCHED_YIELD,
		unix.SYS_SCHED_GETAFFINITY,
		unix.SYS_RSEQ,
		unix.SYS_SET_ROBUST_LIST,
		unix.SYS_OPENAT,
		unix.SYS_PREAD64,
		unix.SYS_EPOLL_CREATE1,
		unix.SYS_EPOLL_CTL,
		unix.SYS_EPOLL_PWAIT,
		unix.SYS_PIPE2,
		unix.SYS_EVENTFD2,
	}
}

// defaultAction is the seccomp return value applied to any syscall not
// on the allow list, selected by GLYCIN_SECCOMP_DEFAULT_ACTION ∈
// {ERRNO (default), LOG, KILL_PROCESS}. LOG and KILL_PROCESS are
// diagnostic only and must not be relied upon in production.
func defaultAction() uint32 {
	switch os.Getenv("GLYCIN_SECCOMP_DEFAULT_ACTION") {
	case "KILL_PROCESS":
		return unix.SECCOMP_RET_KILL_PROCESS
	case "LOG":
		return unix.SECCOMP_RET_LOG
	default:
		return unix.SECCOMP_RET_ERRNO | (uint32(unix.EACCES) & 0xffff)
	}
}

// buildSeccompFilter assembles a classic-BPF program that allows
// exactly allowedSyscalls() and returns defaultAction() otherwise, in
// the struct sock_filter wire format bwrap's --seccomp flag reads
// verbatim from the fd it's given.
func buildSeccompFilter() []unix.SockFilter {
	allowed := allowedSyscalls()
	program := make([]unix.SockFilter, 0, len(allowed)+2)

	// Load the syscall number into the BPF accumulator.
	program = append(program, unix.SockFilter{
		Code: bpfLD | bpfW | bpfABS,
		K:    seccompDataNROffset,
	})

	// One comparison per allowed syscall: on match, jump forward past
	// the remaining comparisons straight to the ALLOW return.
	for i, nr := range allowed {
		jt := uint8(len(allowed) - i)
		program = append(program, unix.SockFilter{
			Code: bpfJMP | bpfJEQ | bpfK,
			K:    uint32(nr),
			Jt:   jt,
			Jf:   0,
		})
	}

	// Fallthrough (no match): the default action.
	program = append(program, unix.SockFilter{
		Code: bpfRET | bpfK,
		K:    defaultAction(),
	})
	// Match: allow.
	program = append(program, unix.SockFilter{
		Code: bpfRET | bpfK,
		K:    unix.SECCOMP_RET_ALLOW,
	})

	return program
}

// serializeSeccompFilter encodes a BPF program as the flat byte stream
// bwrap expects on its --seccomp fd: each struct sock_filter is
// {code uint16, jt uint8, jf uint8, k uint32} in host (little-endian
// on every Linux architecture glycin targets) byte order, with no
// sock_fprog length header — bwrap derives the instruction count from
// the fd's total byte length.
func serializeSeccompFilter(program []unix.SockFilter) []byte {
	buf := make([]byte, 0, len(program)*8)
	for _, instr := range program {
		var entry [8]byte
		binary.LittleEndian.PutUint16(entry[0:2], instr.Code)
		entry[2] = instr.Jt
		entry[3] = instr.Jf
		binary.LittleEndian.PutUint32(entry[4:8], instr.K)
		buf = append(buf, entry[:]...)
	}
	return buf
}

// seccompFilterFile creates a pipe, writes the serialized seccomp
// program into it, and returns the read end for handing to the
// sandboxed child via exec.Cmd.ExtraFiles. The write end is closed
// immediately after writing: bwrap reads the program to EOF before
// installing it, so a small program fits in the pipe buffer without
// needing a separate writer goroutine.
func seccompFilterFile() (*os.File, error) {
	read, write, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("sandbox: seccomp pipe: %w", err)
	}
	program := serializeSeccompFilter(buildSeccompFilter())
	if _, err := write.Write(program); err != nil {
		read.Close()
		write.Close()
		return nil, fmt.Errorf("sandbox: write seccomp program: %w", err)
	}
	write.Close()
	return read, nil
}
