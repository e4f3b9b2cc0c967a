// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loadersession

import (
	"fmt"

	"github.com/valoq/glycin/ipc"
)

// loaderMethodSets is the frozen method set a loader entry scanned
// from a given compat version's "N+/conf.d" directory must accept in
// full. A loader's init_loader reply that omits any method its own
// declared compat version requires fails the session rather than
// proceeding with a partially capable child.
var loaderMethodSets = map[int][]ipc.Method{
	0: {ipc.MethodInitLoader, ipc.MethodNextFrame, ipc.MethodTearDown},
	1: {ipc.MethodInitLoader, ipc.MethodNextFrame, ipc.MethodSpecificFrame, ipc.MethodTearDown},
	2: {ipc.MethodInitLoader, ipc.MethodNextFrame, ipc.MethodSpecificFrame, ipc.MethodTearDown},
}

// validateSupportedMethods reports an error if supported is missing
// any method loaderMethodSets requires for compatVersion, or if
// compatVersion names no known generation at all.
func validateSupportedMethods(compatVersion int, supported []ipc.Method) error {
	required, ok := loaderMethodSets[compatVersion]
	if !ok {
		return fmt.Errorf("loadersession: unknown loader compat version %d", compatVersion)
	}

	have := make(map[ipc.Method]bool, len(supported))
	for _, m := range supported {
		have[m] = true
	}
	for _, m := range required {
		if !have[m] {
			return fmt.Errorf("loadersession: loader at compat version %d did not report method %q", compatVersion, m)
		}
	}
	return nil
}

// validateOrientation reports an error unless orientation is one of
// the eight EXIF orientation tags, per the init_loader reply's own
// invariant.
func validateOrientation(orientation uint8) error {
	if orientation < 1 || orientation > 8 {
		return fmt.Errorf("loadersession: loader reported orientation %d, want 1..8", orientation)
	}
	return nil
}
