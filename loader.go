// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glycin

import (
	"context"
	"fmt"

	"github.com/valoq/glycin/future"
	"github.com/valoq/glycin/loadersession"
	"github.com/valoq/glycin/memformat"
	"github.com/valoq/glycin/registry"
	"github.com/valoq/glycin/sandbox"
)

// FrameRequest configures one Loader's decode-time negotiation:
// accepted memory formats, whether EXIF orientation is baked into
// returned buffers, the animation loop policy, and an optional
// scaling hint. A FrameRequest is consumed exactly once by Load or
// LoadAsync; reusing an already-consumed FrameRequest panics.
type FrameRequest struct {
	// AcceptedFormats is the set of memory formats the caller is
	// willing to receive; a frame returned in any other format is
	// converted in-parent. The zero value accepts nothing: Load still
	// succeeds, but every frame request on the resulting Image fails;
	// use memformat.SelectionAll to accept any format the loader can
	// reach.
	AcceptedFormats memformat.Selection

	// ApplyTransformations instructs the loader to bake EXIF
	// orientation into returned buffers.
	ApplyTransformations bool

	// LoopAnimation selects the frame loop policy for animated
	// formats: true cycles back to frame 0 after the last frame,
	// false ends the sequence with ErrNoMoreFrames.
	LoopAnimation bool

	// MaxWidth and MaxHeight are optional scaling hints passed to the
	// loader; zero means unconstrained.
	MaxWidth, MaxHeight uint32

	consumed bool
}

// NewFrameRequest returns a FrameRequest that accepts every format the
// loader can reach, applies transformations, and loops animations —
// glycin's usual defaults.
func NewFrameRequest() *FrameRequest {
	return &FrameRequest{
		AcceptedFormats:      memformat.SelectionAll,
		ApplyTransformations: true,
		LoopAnimation:        true,
	}
}

func (r *FrameRequest) consume() {
	if r.consumed {
		panic("glycin: FrameRequest used more than once")
	}
	r.consumed = true
}

// Loader builds a decode request against a Registry. Construct one
// with NewLoader, adjust its Request, then resolve it exactly once
// with Load or LoadAsync.
type Loader struct {
	registry *registry.Registry
	mime     registry.MIME
	source   loadersession.Source
	request  *FrameRequest
	launch   sandbox.LaunchOptions
}

// NewLoader builds a Loader for data, to be decoded as mime against
// reg. mime must be of the form "type/subtype"; NewLoader returns an
// error if it is not.
func NewLoader(reg *registry.Registry, mime string, data []byte) (*Loader, error) {
	m, err := registry.ParseMIME(mime)
	if err != nil {
		return nil, err
	}
	return &Loader{
		registry: reg,
		mime:     m,
		source:   loadersession.Source{Data: data},
		request:  NewFrameRequest(),
	}, nil
}

// WithPath records the host path data was read from, so an entry that
// requests ExposeBaseDir can bind mount its containing directory.
// Leave unset for in-memory sources.
func (l *Loader) WithPath(path string) *Loader {
	l.source.Path = path
	return l
}

// WithSandboxPolicy overrides the sandbox backend the loader is
// launched under. Leave unset to use sandbox.AUTO.
func (l *Loader) WithSandboxPolicy(p sandbox.Policy) *Loader {
	l.launch.Policy = p
	return l
}

// Request returns the FrameRequest Load or LoadAsync will consume,
// for the caller to adjust before resolving the Loader.
func (l *Loader) Request() *FrameRequest {
	return l.request
}

// Load resolves the loader synchronously: looks up mime in the
// registry, launches the matching loader inside a sandbox, and
// performs the init_loader handshake.
func (l *Loader) Load(ctx context.Context) (*Image, error) {
	return l.load(ctx)
}

// LoadAsync starts Load in the background and returns immediately.
func (l *Loader) LoadAsync(ctx context.Context) *future.Future[*Image] {
	return future.Go(ctx, l.load)
}

func (l *Loader) load(ctx context.Context) (*Image, error) {
	l.request.consume()

	entry, ok := l.registry.Lookup(registry.RoleLoader, l.mime)
	if !ok {
		return nil, &UnknownFormatError{MIME: l.mime}
	}

	opts := loadersession.Options{
		AcceptedFormats:      l.request.AcceptedFormats,
		ApplyTransformations: l.request.ApplyTransformations,
		LoopAnimation:        l.request.LoopAnimation,
		MaxWidth:             l.request.MaxWidth,
		MaxHeight:            l.request.MaxHeight,
		Launch:               l.launch,
	}

	sess, err := loadersession.Open(ctx, entry, l.source, opts)
	if err != nil {
		return nil, &FailedError{Cause: fmt.Errorf("glycin: open loader for %s: %w", l.mime, err)}
	}
	return &Image{session: sess}, nil
}
