// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glycin

import (
	"context"

	"github.com/valoq/glycin/future"
	"github.com/valoq/glycin/loadersession"
)

// ImageInfo is the metadata a loader reports once its init_loader
// handshake completes.
type ImageInfo struct {
	MIME         string
	Width        uint32
	Height       uint32
	Orientation  uint8
	Metadata     map[string]string
	MetadataKeys []string
	FrameCount   uint32
}

// Image is a decoded-image handle backed by a live loader process.
// Close it when done to release the process and its resources; an
// Image not explicitly closed leaks the child process.
type Image struct {
	session *loadersession.Session
}

// Info returns the metadata the loader reported at init time.
func (img *Image) Info() ImageInfo {
	info := img.session.ImageInfo()
	return ImageInfo{
		MIME:         info.MIME,
		Width:        info.Width,
		Height:       info.Height,
		Orientation:  info.Orientation,
		Metadata:     info.Metadata,
		MetadataKeys: info.MetadataKeys,
		FrameCount:   info.FrameCount,
	}
}

// NextFrame advances the sequential frame cursor by one and returns
// the next frame, honoring the loader's loop policy. It returns
// ErrNoMoreFrames once a non-looping animation is exhausted; that is
// the normal end of iteration, not a failure.
func (img *Image) NextFrame(ctx context.Context) (*Frame, error) {
	f, err := img.session.NextFrame(ctx)
	if err != nil {
		return nil, normalizeFrameErr(err)
	}
	return &Frame{frame: f}, nil
}

// NextFrameAsync starts NextFrame in the background and returns
// immediately.
func (img *Image) NextFrameAsync(ctx context.Context) *future.Future[*Frame] {
	return future.Go(ctx, img.NextFrame)
}

// SpecificFrame requests the frame at index without disturbing the
// sequential cursor NextFrame advances.
func (img *Image) SpecificFrame(ctx context.Context, index uint32) (*Frame, error) {
	f, err := img.session.SpecificFrame(ctx, index)
	if err != nil {
		return nil, normalizeFrameErr(err)
	}
	return &Frame{frame: f}, nil
}

// SpecificFrameAsync starts SpecificFrame in the background and
// returns immediately.
func (img *Image) SpecificFrameAsync(ctx context.Context, index uint32) *future.Future[*Frame] {
	return future.Go(ctx, func(ctx context.Context) (*Frame, error) {
		return img.SpecificFrame(ctx, index)
	})
}

// Close releases the loader process and its resources. Safe to call
// more than once.
func (img *Image) Close() error {
	if err := img.session.Close(); err != nil {
		return &FailedError{Cause: err}
	}
	return nil
}
