// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoReturnsResult(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	result, err := f.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}
}

func TestGoReturnsError(t *testing.T) {
	wantErr := errors.New("decode failed")
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if _, err := f.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("Wait error = %v, want %v", err, wantErr)
	}
}

func TestCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	f := Go(ctx, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	cancel()

	if _, err := f.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
}

func TestWaitIsRepeatable(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		time.Sleep(time.Millisecond)
		return 7, nil
	})
	first, err := f.Wait()
	if err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	second, err := f.Wait()
	if err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if first != second {
		t.Errorf("first = %d, second = %d, want equal", first, second)
	}
}
