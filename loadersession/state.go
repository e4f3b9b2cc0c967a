// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loadersession

import "fmt"

// State is a loader session's position in its lifecycle.
type State int

const (
	// StateSpawned holds from process launch until init_loader's reply
	// arrives.
	StateSpawned State = iota

	// StateInitialized is not entered by a Session: a successful
	// init_loader moves it directly from StateSpawned to
	// StateAwaitingFrame.
	StateInitialized

	// StateAwaitingFrame is the resting state between frame requests.
	StateAwaitingFrame

	// StateServing holds for the duration of one in-flight NextFrame
	// or SpecificFrame call.
	StateServing

	// StateTerminated is final: the loader process has been torn down
	// (cleanly or killed) and the session accepts no further calls.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateInitialized:
		return "initialized"
	case StateAwaitingFrame:
		return "awaiting_frame"
	case StateServing:
		return "serving"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
