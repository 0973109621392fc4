// Package rootfs implements the Root Dissector (spec.md §4.5): it walks a
// mounted container rootfs, subtracts a previously computed kept-set from
// the full tree (alias-aware), and exposes the resulting deletion set for
// dry-run, apply, or archive modes.
//
// Grounded on original_source/src/rootfs.rs, using filepath.Walk the way
// cmd/minitrd/minitrd.go and internal/build/build.go walk a tree.
package rootfs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/tinythings/mezzotint/internal/pathalias"
)

// View is the full inventory of a scanned rootfs: every non-directory entry
// found, excluding skipped subtrees.
type View struct {
	root string

	// KeepProcSysDev, when true, includes /proc, /sys and /dev in the scan;
	// when false (the NewView default) those subtrees are skipped.
	KeepProcSysDev bool
	// KeepTmp, when true, includes /tmp in the scan; when false (the NewView
	// default) it is skipped.
	KeepTmp bool
	// KeepTree lists absolute paths excluded from the scan entirely (their
	// contents never enter the deletion candidate set).
	KeepTree []string

	files  []string
	broken []string // side set: symlinks already broken on disk at scan time
}

// NewView walks root and records every non-directory entry (regular files
// and symlinks), skipping /proc, /sys, /dev and /tmp. Directories
// themselves are not recorded; apply mode removes the ones it empties
// afterwards, contents-first (see Apply).
func NewView(root string) (*View, error) {
	v := &View{root: root}
	if err := v.scan(); err != nil {
		return nil, xerrors.Errorf("rootfs: scan %s: %w", root, err)
	}
	return v, nil
}

func (v *View) skip(p string) bool {
	rel := strings.TrimPrefix(p, strings.TrimSuffix(v.root, "/"))
	if rel == "" {
		rel = "/"
	}
	if !v.KeepTmp && rel == "/tmp" {
		return true
	}
	if !v.KeepProcSysDev && (rel == "/proc" || rel == "/sys" || rel == "/dev") {
		return true
	}
	for _, kt := range v.KeepTree {
		if rel == kt || strings.HasPrefix(rel, kt+"/") {
			return true
		}
	}
	return false
}

func (v *View) scan() error {
	v.files = nil
	v.broken = nil
	var entries []struct {
		path  string
		isDir bool
	}
	err := filepath.Walk(v.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort, matches original_source logging a warning and continuing
		}
		if path != v.root && v.skip(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, struct {
			path  string
			isDir bool
		}{path, info.IsDir()})
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.isDir {
			continue
		}
		rel := strings.TrimPrefix(e.path, strings.TrimSuffix(v.root, "/"))
		if rel == "" {
			continue
		}
		v.files = append(v.files, rel)

		if fi, err := os.Lstat(e.path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			if _, err := os.Stat(e.path); err != nil {
				v.broken = append(v.broken, rel)
			}
		}
	}
	return nil
}

// Files returns every non-directory path recorded by the scan, relative to
// the scanned root (leading slash kept, e.g. "/usr/bin/ls").
func (v *View) Files() []string {
	out := make([]string, len(v.files))
	copy(out, v.files)
	return out
}

// isLdLinux reports whether p's basename is the dynamic loader, which is
// preserved even when nothing in the kept set references it directly
// (original_source/src/rootfs.rs: "Don't throw away ld-linux").
func isLdLinux(p string) bool {
	return strings.HasPrefix(filepath.Base(p), "ld-linux-")
}

// Dissect subtracts kept (a resolved, alias-expanded closure of paths to
// preserve) from the full view, unions in the broken-symlink side set
// recorded at scan time (spec.md §4.5: "Union the broken-symlink side set
// into the delete set so orphaned links are cleaned up"), and returns what
// should be deleted, sorted for deterministic reporting.
func (v *View) Dissect(kept []string) []string {
	remove := make(map[string]bool, len(v.files))
	for _, f := range v.files {
		if isLdLinux(f) {
			continue
		}
		remove[f] = true
	}

	for _, k := range kept {
		for _, alias := range pathalias.Expand(k, false) {
			delete(remove, alias)
		}
	}

	for _, b := range v.broken {
		remove[b] = true
	}

	out := make([]string, 0, len(remove))
	for p := range remove {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// BrokenSymlinks scans root for symlinks whose target no longer resolves,
// restricted to the given candidate paths (normally the post-deletion
// survivors). Used by apply mode's final sweep to catch links that only
// became dangling because this run's own unlinks removed their target
// (spec.md §4.5's apply-mode sweep, distinct from the pre-existing broken
// links Dissect already folds in via the scan-time side set).
func BrokenSymlinks(root string, candidates []string) []string {
	var broken []string
	for _, rel := range candidates {
		full := filepath.Join(root, rel)
		fi, err := os.Lstat(full)
		if err != nil || fi.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if _, err := os.Stat(full); err != nil {
			broken = append(broken, rel)
		}
	}
	sort.Strings(broken)
	return broken
}
