// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glycin

import (
	"errors"
	"fmt"

	"github.com/valoq/glycin/loadersession"
	"github.com/valoq/glycin/registry"
)

// UnknownFormatError reports that no registered loader or editor
// entry handles the requested MIME type. IsUnknownFormatError
// extracts the offending MIME type from a wrapped error chain.
type UnknownFormatError struct {
	MIME registry.MIME
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("glycin: no entry registered for %q", e.MIME)
}

// IsUnknownFormatError reports whether err is or wraps an
// UnknownFormatError, returning the offending MIME type.
func IsUnknownFormatError(err error) (registry.MIME, bool) {
	var e *UnknownFormatError
	if errors.As(err, &e) {
		return e.MIME, true
	}
	return "", false
}

// ErrNoMoreFrames is returned by Image.NextFrame and
// Image.SpecificFrame when a non-looping animation's frame sequence
// has been exhausted. It is not itself a failure.
var ErrNoMoreFrames = errors.New("glycin: no more frames")

// FailedError wraps every failure this package does not otherwise
// distinguish: a sealed-buffer mismatch, a truncated or malformed IPC
// message, an rlimit or namespace violation inside the sandbox, or the
// loader/editor process's own reported error. Cause carries the
// underlying detail for logging; callers should branch on IsFailed
// rather than inspect Cause's concrete type, since the set of causes
// is not part of this package's compatibility surface.
type FailedError struct {
	Cause error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("glycin: operation failed: %v", e.Cause)
}

func (e *FailedError) Unwrap() error {
	return e.Cause
}

// IsFailed reports whether err is or wraps a FailedError.
func IsFailed(err error) bool {
	var e *FailedError
	return errors.As(err, &e)
}

// normalizeFrameErr maps a loadersession error onto the façade's error
// taxonomy.
func normalizeFrameErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, loadersession.ErrNoMoreFrames) {
		return ErrNoMoreFrames
	}
	return &FailedError{Cause: err}
}
