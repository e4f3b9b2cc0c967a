// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"strings"
)

// MIME is a non-empty ASCII string of the form "type/subtype". It is
// the authoritative key for loader and editor selection.
type MIME string

// ParseMIME validates that s has the "type/subtype" shape and returns
// it as a MIME. It does not attempt to validate against IANA's
// registered type list — glycin trusts the MIME sniffing oracle (the
// host OS) to have already done that work.
func ParseMIME(s string) (MIME, error) {
	if s == "" {
		return "", fmt.Errorf("registry: empty MIME type")
	}
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", fmt.Errorf("registry: malformed MIME type %q, want type/subtype", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7E || s[i] < 0x20 {
			return "", fmt.Errorf("registry: MIME type %q is not ASCII", s)
		}
	}
	return MIME(s), nil
}

// Role distinguishes a loader (decode) entry from an editor (encode)
// entry. The two roles are scanned from the same files but occupy
// independent (role, mime) namespaces.
type Role string

const (
	RoleLoader Role = "loader"
	RoleEditor Role = "editor"
)

// Entry is an immutable loader or editor configuration record,
// constructed once at scan time and cached process-wide.
type Entry struct {
	// MIME is the type this entry handles.
	MIME MIME

	// Role is RoleLoader or RoleEditor.
	Role Role

	// ExecPath is the absolute path to the loader/editor binary.
	ExecPath string

	// CompatVersion is the integer suffix of the conf.d search
	// directory this entry was found in (e.g. 0 for "0+/conf.d").
	CompatVersion int

	// ExposeBaseDir, when true, causes the sandbox launcher to bind
	// mount the input file's containing directory read-only at its
	// original path.
	ExposeBaseDir bool

	// FontconfigVisible, when true, causes the sandbox launcher to
	// expose the host's fontconfig configuration and cache.
	FontconfigVisible bool

	// sourcePath is the config file this entry was parsed from, kept
	// for diagnostics only.
	sourcePath string
}

// SourcePath returns the configuration file the entry was parsed from.
// Useful for diagnostics; not part of the entry's identity.
func (e Entry) SourcePath() string {
	return e.sourcePath
}

func (r Role) sectionPrefix() string {
	return string(r) + ":"
}
