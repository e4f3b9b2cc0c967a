// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package future

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Future is a deferred operation already running in the background.
type Future[T any] struct {
	group  *errgroup.Group
	result T
}

// Go starts fn in a new goroutine under an errgroup.Group and returns
// a Future for its eventual result. fn receives ctx itself, so
// cancelling ctx reaches fn, and the context fn receives is not
// cancelled when fn returns or when Wait returns.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	g := &errgroup.Group{}
	f := &Future[T]{group: g}
	g.Go(func() error {
		result, err := fn(ctx)
		f.result = result
		return err
	})
	return f
}

// Wait blocks until the deferred operation completes and returns its
// result, or the error it failed with. Wait may be called more than
// once; later calls observe the same result.
func (f *Future[T]) Wait() (T, error) {
	err := f.group.Wait()
	return f.result, err
}
