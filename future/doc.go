// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package future provides a minimal deferred-result type for glycin's
// synchronous/asynchronous method pairs (Load/LoadAsync,
// NextFrame/NextFrameAsync, AddFrame/AddFrameAsync, Create/
// CreateAsync). Each pair shares one implementation: the synchronous
// method calls it directly, and the asynchronous one runs it under
// [Go] and returns the resulting [Future].
package future
