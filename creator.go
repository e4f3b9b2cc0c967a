// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glycin

import (
	"context"
	"fmt"
	"sync"

	"github.com/valoq/glycin/creatorsession"
	"github.com/valoq/glycin/future"
	"github.com/valoq/glycin/ipc"
	"github.com/valoq/glycin/memformat"
	"github.com/valoq/glycin/registry"
	"github.com/valoq/glycin/sandbox"
)

// EncodedImage is a finished encode's sealed output buffer. Close
// releases its memory mapping.
type EncodedImage struct {
	output *creatorsession.Output
}

// Bytes returns the encoded image's bytes. The slice is only valid
// until Close.
func (e *EncodedImage) Bytes() []byte { return e.output.Bytes() }

// Size returns the encoded image's length, as reported by the editor.
func (e *EncodedImage) Size() uint64 { return e.output.Size() }

// Close releases the encoded output's memory mapping. Safe to call
// more than once.
func (e *EncodedImage) Close() error { return e.output.Close() }

// Creator builds an encode request against a Registry and, once
// AddFrame or Create is first called, the editor process backing it.
// Close releases that process; a Creator not explicitly closed leaks
// it.
type Creator struct {
	registry    *registry.Registry
	mime        registry.MIME
	quality     uint8
	compression uint8
	iccProfile  []byte
	launch      sandbox.LaunchOptions

	mu      sync.Mutex
	session *creatorsession.Session
}

// NewCreator builds a Creator that will encode to mime against reg.
// mime must be of the form "type/subtype".
func NewCreator(reg *registry.Registry, mime string) (*Creator, error) {
	m, err := registry.ParseMIME(mime)
	if err != nil {
		return nil, err
	}
	return &Creator{registry: reg, mime: m}, nil
}

// WithQuality sets the encode quality, for formats whose editor
// honors Creator.EditorCapabilities().HonorsQuality.
func (c *Creator) WithQuality(q uint8) *Creator {
	c.quality = q
	return c
}

// WithCompression sets the encode compression level, for formats
// whose editor honors Creator.EditorCapabilities().HonorsCompression.
func (c *Creator) WithCompression(level uint8) *Creator {
	c.compression = level
	return c
}

// WithICCProfile attaches a colour profile to the encoded output, for
// formats whose editor honors Creator.EditorCapabilities().HonorsICCProfile.
func (c *Creator) WithICCProfile(profile []byte) *Creator {
	c.iccProfile = profile
	return c
}

// WithSandboxPolicy overrides the sandbox backend the editor is
// launched under. Leave unset to use sandbox.AUTO.
func (c *Creator) WithSandboxPolicy(p sandbox.Policy) *Creator {
	c.launch.Policy = p
	return c
}

// EditorCapabilities reports which optional encode-time inputs the
// editor honors: ICC profile, quality, compression, and per-frame
// metadata. Calling it launches the editor process if AddFrame or
// Create has not already done so.
func (c *Creator) EditorCapabilities(ctx context.Context) (ipc.EditorCapabilities, error) {
	sess, err := c.ensureOpen(ctx)
	if err != nil {
		return ipc.EditorCapabilities{}, err
	}
	return sess.Capabilities(), nil
}

func (c *Creator) ensureOpen(ctx context.Context) (*creatorsession.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}

	entry, ok := c.registry.Lookup(registry.RoleEditor, c.mime)
	if !ok {
		return nil, &UnknownFormatError{MIME: c.mime}
	}

	opts := creatorsession.Options{
		Quality:     c.quality,
		Compression: c.compression,
		ICCProfile:  c.iccProfile,
		Launch:      c.launch,
	}
	sess, err := creatorsession.Open(ctx, entry, opts)
	if err != nil {
		return nil, &FailedError{Cause: fmt.Errorf("glycin: open editor for %s: %w", c.mime, err)}
	}
	c.session = sess
	return sess, nil
}

// AddFrame submits one frame's pixel buffer to the encoder. It may be
// called more than once per Creator for formats that support multiple
// output frames, such as an animation. Applied is the editor's reply
// flag reporting whether the frame's delay had effect.
func (c *Creator) AddFrame(ctx context.Context, pixels []byte, width, height, stride uint32, format memformat.Format, delayMicros uint64) (applied bool, err error) {
	sess, err := c.ensureOpen(ctx)
	if err != nil {
		return false, err
	}
	applied, err = sess.AddFrame(ctx, pixels, width, height, stride, format, delayMicros)
	if err != nil {
		return false, &FailedError{Cause: err}
	}
	return applied, nil
}

// AddFrameAsync starts AddFrame in the background and returns
// immediately.
func (c *Creator) AddFrameAsync(ctx context.Context, pixels []byte, width, height, stride uint32, format memformat.Format, delayMicros uint64) *future.Future[bool] {
	return future.Go(ctx, func(ctx context.Context) (bool, error) {
		return c.AddFrame(ctx, pixels, width, height, stride, format, delayMicros)
	})
}

// Create finalizes every frame submitted via AddFrame and returns the
// sealed encoded output.
func (c *Creator) Create(ctx context.Context) (*EncodedImage, error) {
	sess, err := c.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}
	out, err := sess.Encode(ctx)
	if err != nil {
		return nil, &FailedError{Cause: err}
	}
	return &EncodedImage{output: out}, nil
}

// CreateAsync starts Create in the background and returns
// immediately.
func (c *Creator) CreateAsync(ctx context.Context) *future.Future[*EncodedImage] {
	return future.Go(ctx, c.Create)
}

// Close releases the editor process, if one has been launched. Safe
// to call more than once, and safe to call without ever having called
// AddFrame or Create.
func (c *Creator) Close() error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	if err := sess.Close(); err != nil {
		return &FailedError{Cause: err}
	}
	return nil
}
