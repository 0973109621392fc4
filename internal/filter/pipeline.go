package filter

import (
	"os"

	"github.com/tinythings/mezzotint/internal/pathalias"
)

// Set is a CandidateSet (spec.md §3): set semantics over paths.
type Set map[string]bool

// NewSet builds a Set from a slice, deduplicating.
func NewSet(paths []string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = true
	}
	return s
}

// Slice returns the set's members, order unspecified.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// PackageContents returns a package's file list. Apply's stage 6 calls it
// for each dropped package and expands every returned path through the
// Path Aliaser (reverse=true) before removing it.
type PackageContents func(pkg string) ([]string, error)

// Options configures one run of the Filter Pipeline (spec.md §4.4).
type Options struct {
	Text     TextFilter
	Resource ResourceFilter
	Keep     []string
	Prune    []string
	// RemoveDirs drops directory entries from the set once all other
	// filtering is done (spec.md §4.4 stage 5).
	RemoveDirs bool
	// DroppedPackages lists package names whose contents must be removed
	// even if another scan pulled them in (spec.md §4.4 stage 6).
	DroppedPackages []string
	Contents        PackageContents
}

// Apply runs the ordered filter pipeline over in, per spec.md §4.4:
// text filter -> resource filter -> explicit keep/prune -> symlink
// expansion -> directory filter -> dropped-package subtraction.
func Apply(in Set, opts Options) Set {
	out := make(Set, len(in))
	for p := range in {
		if opts.Text.Remove(p) || opts.Resource.Remove(p) {
			continue
		}
		out[p] = true
	}

	applyKeep(out, opts.Keep)
	applyPrune(out, opts.Prune) // prune is terminal; re-applied at every later stage

	expanded := pathalias.ResolveSymlinkClosure(out.Slice())
	out = NewSet(expanded)
	applyPrune(out, opts.Prune)

	if opts.RemoveDirs {
		for p := range out {
			if fi, err := os.Lstat(p); err == nil && fi.IsDir() {
				delete(out, p)
			}
		}
	}

	if opts.Contents != nil {
		for _, pkg := range opts.DroppedPackages {
			files, err := opts.Contents(pkg)
			if err != nil {
				continue
			}
			for _, f := range files {
				for _, alias := range pathalias.Expand(f, true) {
					delete(out, alias)
				}
			}
		}
		// keep always wins over package removal, but prune is terminal even
		// over a reclaimed keep (spec.md §3 invariant).
		applyKeep(out, opts.Keep)
		applyPrune(out, opts.Prune)
	}

	return out
}

func applyKeep(s Set, keep []string) {
	for _, k := range keep {
		s[k] = true
	}
}

func applyPrune(s Set, prune []string) {
	for _, p := range prune {
		delete(s, p)
	}
}
