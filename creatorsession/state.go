// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package creatorsession

import "fmt"

// State is a creator session's position in its lifecycle.
type State int

const (
	// StateSpawned holds from process launch until init_editor's reply
	// arrives.
	StateSpawned State = iota

	// StateInitialized is not entered by a Session: a successful
	// init_editor moves it directly from StateSpawned to
	// StateAccumulating.
	StateInitialized

	// StateAccumulating holds while the caller adds frames. An encoder
	// with zero frames added is still valid to Encode; the format's
	// own rules (e.g. a single-frame-only codec) are the editor
	// process's concern, not this package's.
	StateAccumulating

	// StateEncoded is final on success: Encode has returned the sealed
	// output buffer. No further AddFrame or Encode calls are accepted.
	StateEncoded

	// StateTerminated is final: the editor process has been torn down
	// (cleanly or killed) and the session accepts no further calls.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateInitialized:
		return "initialized"
	case StateAccumulating:
		return "accumulating"
	case StateEncoded:
		return "encoded"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
