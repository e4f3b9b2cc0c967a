// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package creatorsession

import (
	"fmt"

	"github.com/valoq/glycin/ipc"
)

// editorMethodSets is the frozen method set an editor entry scanned
// from a given compat version's "N+/conf.d" directory must accept.
// Every known generation uses the same three methods today; the map
// exists so a future generation that adds or drops one has a single
// place to declare it, matching loadersession's loaderMethodSets shape.
var editorMethodSets = map[int][]ipc.Method{
	0: {ipc.MethodInitEditor, ipc.MethodAddFrame, ipc.MethodEncode},
	1: {ipc.MethodInitEditor, ipc.MethodAddFrame, ipc.MethodEncode},
	2: {ipc.MethodInitEditor, ipc.MethodAddFrame, ipc.MethodEncode},
}

// validateCompatVersion reports an error if compatVersion names no
// known generation. Unlike a loader's init_loader reply, an editor's
// init_editor reply carries no SupportedMethods list to check against
// (ipc.EditorCapabilities only reports which optional inputs it
// honors), so this is the full extent of the editor compat gate.
func validateCompatVersion(compatVersion int) error {
	if _, ok := editorMethodSets[compatVersion]; !ok {
		return fmt.Errorf("creatorsession: unknown editor compat version %d", compatVersion)
	}
	return nil
}
