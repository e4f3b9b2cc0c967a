// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import "fmt"

// prlimitPrefix returns the argv prefix that applies an RLIMIT_AS
// ceiling to the process that execs the following command, for
// backends (FLATPAK_SPAWN, NotSandboxed) that run the loader through a
// normal exec rather than bwrap's own --rlimit-as handling.
func prlimitPrefix(bytes uint64) []string {
	if bytes == 0 {
		return nil
	}
	return []string{"prlimit", fmt.Sprintf("--as=%d", bytes), "--"}
}
