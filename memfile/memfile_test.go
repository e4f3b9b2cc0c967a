// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfile

import (
	"bytes"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCreateWriteSealReceiveRoundtrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 4096)

	mf, err := Create("frame", len(payload))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer mf.Close()

	if err := mf.Write(payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := mf.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !mf.Sealed() {
		t.Fatal("expected Sealed() to be true after Seal")
	}

	fd, err := mf.FD()
	if err != nil {
		t.Fatalf("FD: %v", err)
	}

	dup, err := unix.Dup(fd)
	if err != nil {
		t.Fatalf("dup: %v", err)
	}

	mapped, err := Receive(dup)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	defer mapped.Close()

	if mapped.Len() != len(payload) {
		t.Fatalf("expected mapped length %d, got %d", len(payload), mapped.Len())
	}
	if !bytes.Equal(mapped.Bytes(), payload) {
		t.Fatal("mapped contents do not match written payload")
	}
}

func TestWriteAfterSealFails(t *testing.T) {
	mf, err := Create("frame", 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer mf.Close()

	if err := mf.Write(make([]byte, 16), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := mf.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if err := mf.Write(make([]byte, 16), 0); err == nil {
		t.Fatal("expected Write after Seal to fail")
	}
}

func TestFDBeforeSealFails(t *testing.T) {
	mf, err := Create("frame", 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer mf.Close()

	if _, err := mf.FD(); err == nil {
		t.Fatal("expected FD before Seal to fail")
	}
}

func TestSealTwiceFails(t *testing.T) {
	mf, err := Create("frame", 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer mf.Close()

	if err := mf.Seal(); err != nil {
		t.Fatalf("first Seal: %v", err)
	}
	if err := mf.Seal(); err == nil {
		t.Fatal("expected second Seal to fail")
	}
}

func TestReceiveRejectsUnsealedDescriptor(t *testing.T) {
	fd, err := unix.MemfdCreate("unsealed", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		t.Fatalf("MemfdCreate: %v", err)
	}
	if err := unix.Ftruncate(fd, 16); err != nil {
		t.Fatalf("Ftruncate: %v", err)
	}

	if _, err := Receive(fd); err == nil {
		t.Fatal("expected Receive to reject an unsealed descriptor")
	}
}

func TestReceiveRejectsPartiallySealedDescriptor(t *testing.T) {
	fd, err := unix.MemfdCreate("partial", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		t.Fatalf("MemfdCreate: %v", err)
	}
	if err := unix.Ftruncate(fd, 16); err != nil {
		t.Fatalf("Ftruncate: %v", err)
	}
	// Seal only against writes, not the full required set.
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_WRITE); err != nil {
		t.Fatalf("F_ADD_SEALS: %v", err)
	}

	if _, err := Receive(fd); err == nil {
		t.Fatal("expected Receive to reject a partially sealed descriptor")
	}
}

func TestWriteOutOfBoundsFails(t *testing.T) {
	mf, err := Create("frame", 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer mf.Close()

	if err := mf.Write(make([]byte, 17), 0); err == nil {
		t.Fatal("expected out-of-bounds write to fail")
	}
	if err := mf.Write(make([]byte, 4), 15); err == nil {
		t.Fatal("expected write past end to fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	mf, err := Create("frame", 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mf.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := mf.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
