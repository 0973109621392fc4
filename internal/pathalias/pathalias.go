// Package pathalias expands a path to the set of locations it might be
// known under, and resolves symlink chains to a fixpoint.
//
// Package databases and directory layouts disagree about whether binaries
// and libraries live under /bin, /lib, ... or under their /usr-prefixed
// counterparts (merged-/usr systems symlink one to the other; older systems
// keep them distinct directories with the package database recording
// whichever one the package was built against). Every component that looks
// a path up against a package database or the on-disk root must try both
// forms.
package pathalias

import (
	"os"
	"path/filepath"
	"strings"
)

// aliasDirs maps a non-/usr-prefixed directory to its /usr-prefixed
// counterpart.
var aliasDirs = map[string]string{
	"/bin":    "/usr/bin",
	"/sbin":   "/usr/sbin",
	"/lib":    "/usr/lib",
	"/lib32":  "/usr/lib32",
	"/libx32": "/usr/libx32",
	"/lib64":  "/usr/lib64",
}

var reverseAliasDirs = reverseOf(aliasDirs)

func reverseOf(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Expand returns p together with every alias implied by the /bin<->/usr/bin
// style directory mapping. The match is a prefix test on the path's parent
// directory, not an exact match, so nested and multiarch paths (e.g.
// /usr/lib/x86_64-linux-gnu/libc.so.6) are aliased the same as their
// top-level counterparts (original_source/src/rootfs.rs: fdir.starts_with).
//
// With reverse=false (the forward direction, used when asking the package
// database for a path's owner and when subtracting the kept set from the
// rootfs view), a path starting with a non-/usr directory also yields its
// /usr-prefixed form, unconditionally.
//
// With reverse=true (the direction used when subtracting a dropped
// package's recorded contents from the candidate set), a path starting
// with a /usr-prefixed directory also yields its non-/usr form, but only
// variants that currently exist on disk are included — the Rust prototype
// calls this out explicitly, since blindly deleting a path that was never
// real would be a correctness bug, not an optimization.
func Expand(p string, reverse bool) []string {
	dir, name := filepath.Split(p)
	dir = filepath.Clean(dir)

	table := aliasDirs
	if reverse {
		table = reverseAliasDirs
	}

	for from, to := range table {
		var rest string
		switch {
		case dir == from:
			rest = ""
		case strings.HasPrefix(dir, from+"/"):
			rest = strings.TrimPrefix(dir, from)
		default:
			continue
		}
		variant := filepath.Join(to, rest, name)
		if reverse {
			out := []string{p}
			if exists(variant) {
				out = append(out, variant)
			}
			return out
		}
		return []string{p, variant}
	}
	return []string{p}
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// ResolveSymlinkClosure returns paths plus, for every path in it that is a
// symlink, the resolved target — repeated to a fixpoint. Relative targets
// are resolved against the link's own parent directory. A visited set
// guards against cyclic link graphs, which must terminate rather than
// recurse forever (spec.md §8).
func ResolveSymlinkClosure(paths []string) []string {
	visited := make(map[string]bool, len(paths))
	var out []string
	queue := append([]string(nil), paths...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if visited[p] {
			continue
		}
		visited[p] = true
		out = append(out, p)

		target, err := os.Readlink(p)
		if err != nil {
			continue // not a symlink, or unreadable: skip, log at debug upstream
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(p), target)
		}
		target = filepath.Clean(target)
		if !visited[target] {
			queue = append(queue, target)
		}
	}
	return out
}
