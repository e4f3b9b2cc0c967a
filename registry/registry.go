// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// product is the search-path product name glycin scans for:
// share/glycin/<compat>+/conf.d/.
const product = "glycin"

// compatVersions are the recognized compat-version directory suffixes,
// in the order a loader advertising the highest version should be
// preferred when multiple compat trees exist side by side. Mismatched
// compat directories (any name other than these) are ignored.
var compatVersions = []int{2, 1, 0}

// Snapshot is a point-in-time, order-independent view of the scanned
// registry, used to test the idempotence law: two successive scans
// with no filesystem change produce Equal snapshots.
type Snapshot struct {
	Loaders map[MIME]Entry
	Editors map[MIME]Entry
}

// Equal reports whether two snapshots contain the same (role, mime) ->
// entry mappings, ignoring map iteration order and the diagnostic-only
// sourcePath field.
func (s Snapshot) Equal(other Snapshot) bool {
	return entryMapsEqual(s.Loaders, other.Loaders) && entryMapsEqual(s.Editors, other.Editors)
}

func entryMapsEqual(a, b map[MIME]Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for mime, entryA := range a {
		entryB, ok := b[mime]
		if !ok {
			return false
		}
		if entryA.MIME != entryB.MIME || entryA.Role != entryB.Role ||
			entryA.ExecPath != entryB.ExecPath || entryA.CompatVersion != entryB.CompatVersion ||
			entryA.ExposeBaseDir != entryB.ExposeBaseDir || entryA.FontconfigVisible != entryB.FontconfigVisible {
			return false
		}
	}
	return true
}

// Registry is a process-wide, thread-safe MIME -> Entry mapping. The
// zero value is not usable; construct one with [New]. A single
// Registry may be shared across goroutines: reads (Lookup, MIMETypes,
// Snapshot) take a read lock, Refresh takes a write lock and blocks
// readers only for the duration of the filesystem scan.
type Registry struct {
	mu          sync.RWMutex
	scanned     bool
	loaders     map[MIME]Entry
	editors     map[MIME]Entry
	diagnostics []string
	logger      *slog.Logger
}

// New creates an empty, unscanned Registry. The first call to Lookup,
// MIMETypes, or Snapshot triggers the scan.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Lookup returns the entry for (role, mime), scanning on first use.
// Absent means the caller should map this to UNKNOWN_IMAGE_FORMAT.
func (r *Registry) Lookup(role Role, mime MIME) (Entry, bool) {
	r.ensureScanned()
	r.mu.RLock()
	defer r.mu.RUnlock()
	table := r.table(role)
	entry, ok := table[mime]
	return entry, ok
}

// MIMETypes returns every MIME type with a registered entry for role,
// sorted in ascending order. May be called asynchronously by a caller
// that only needs the set once scanning settles; the first caller
// (sync or deferred) performs the scan and subsequent callers observe
// the cached result.
func (r *Registry) MIMETypes(role Role) []MIME {
	r.ensureScanned()
	r.mu.RLock()
	defer r.mu.RUnlock()
	table := r.table(role)
	out := make([]MIME, 0, len(table))
	for mime := range table {
		out = append(out, mime)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns a copy of the current cache, scanning on first use.
func (r *Registry) Snapshot() Snapshot {
	r.ensureScanned()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Loaders: cloneEntries(r.loaders),
		Editors: cloneEntries(r.editors),
	}
}

func cloneEntries(m map[MIME]Entry) map[MIME]Entry {
	out := make(map[MIME]Entry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Diagnostics returns the recorded skipped-file diagnostics from the
// most recent scan. Never causes a scan by itself.
func (r *Registry) Diagnostics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Refresh invalidates the cache and performs a fresh scan
// synchronously. Concurrent readers observe the old cache until
// Refresh completes, then the new one.
func (r *Registry) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanLocked()
}

func (r *Registry) table(role Role) map[MIME]Entry {
	if role == RoleEditor {
		return r.editors
	}
	return r.loaders
}

// ensureScanned performs the lazy first-use scan. Uses a read check
// then a write-locked double-check so concurrent first callers don't
// each perform a redundant scan.
func (r *Registry) ensureScanned() {
	r.mu.RLock()
	done := r.scanned
	r.mu.RUnlock()
	if done {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanned {
		return
	}
	if err := r.scanLocked(); err != nil {
		r.logger.Warn("registry scan encountered errors", "error", err)
	}
}

// scanLocked performs the search-path walk. Caller must hold r.mu for
// writing.
func (r *Registry) scanLocked() error {
	loaders := make(map[MIME]Entry)
	editors := make(map[MIME]Entry)
	var diagnostics []string

	for _, dir := range searchPath() {
		for _, compat := range compatVersions {
			confDir := filepath.Join(dir, product, fmt.Sprintf("%d+", compat), "conf.d")
			entries, err := os.ReadDir(confDir)
			if err != nil {
				continue // Directory absent is normal, not an error.
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				if !e.IsDir() {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)

			for _, name := range names {
				path := filepath.Join(confDir, name)
				fileEntries, err := parseConfFile(path, compat)
				if err != nil {
					msg := fmt.Sprintf("%s: %v", path, err)
					diagnostics = append(diagnostics, msg)
					r.logger.Warn("skipping malformed loader config", "path", path, "error", err)
					continue
				}
				for _, entry := range fileEntries {
					table := loaders
					if entry.Role == RoleEditor {
						table = editors
					}
					if _, exists := table[entry.MIME]; exists {
						continue // Earlier in the search path wins.
					}
					table[entry.MIME] = entry
				}
			}
		}
	}

	r.loaders = loaders
	r.editors = editors
	r.diagnostics = diagnostics
	r.scanned = true
	if len(diagnostics) > 0 {
		return fmt.Errorf("%d config file(s) skipped", len(diagnostics))
	}
	return nil
}

// parseConfFile parses one *.conf file into zero or more entries.
func parseConfFile(path string, compat int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sections, err := parseKeyfile(f)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, section := range sections {
		role, mimeStr, ok := splitSectionName(section.name)
		if !ok {
			return nil, fmt.Errorf("unrecognized section %q", section.name)
		}
		mime, err := ParseMIME(mimeStr)
		if err != nil {
			return nil, err
		}
		execPath, ok := section.keys["Exec"]
		if !ok || execPath == "" {
			return nil, fmt.Errorf("section %q missing required Exec key", section.name)
		}
		if !filepath.IsAbs(execPath) {
			return nil, fmt.Errorf("section %q: Exec path %q is not absolute", section.name, execPath)
		}

		exposeBaseDir, err := optionalBool(section.keys, "ExposeBaseDir")
		if err != nil {
			return nil, err
		}
		fontconfigVisible, err := optionalBool(section.keys, "FontconfigVisible")
		if err != nil {
			return nil, err
		}

		out = append(out, Entry{
			MIME:              mime,
			Role:              role,
			ExecPath:          execPath,
			CompatVersion:     compat,
			ExposeBaseDir:     exposeBaseDir,
			FontconfigVisible: fontconfigVisible,
			sourcePath:        path,
		})
	}
	return out, nil
}

func optionalBool(keys map[string]string, name string) (bool, error) {
	value, ok := keys[name]
	if !ok {
		return false, nil
	}
	b, err := parseBool(value)
	if err != nil {
		return false, fmt.Errorf("key %s: %w", name, err)
	}
	return b, nil
}

func splitSectionName(name string) (Role, string, bool) {
	if mime, ok := strings.CutPrefix(name, RoleLoader.sectionPrefix()); ok {
		return RoleLoader, mime, true
	}
	if mime, ok := strings.CutPrefix(name, RoleEditor.sectionPrefix()); ok {
		return RoleEditor, mime, true
	}
	return "", "", false
}

// searchPath returns the ordered list of XDG data directories to scan,
// user directory first. GLYCIN_DATA_DIR, when set, overrides the
// entire search path with a single directory (used by tests and local
// installations) instead of the real XDG variables.
func searchPath() []string {
	if override := os.Getenv("GLYCIN_DATA_DIR"); override != "" {
		return []string{override}
	}

	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, dataHome)
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, dir := range strings.Split(dataDirs, ":") {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}

	return dirs
}
