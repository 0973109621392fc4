// Package scanresult holds the result of a single scanner invocation: a
// CandidateSet of paths plus a lazily-computed total on-disk size (spec.md
// §3). Grounded on original_source/src/scanner/general.rs's ScannerResult,
// which pairs a path list with a size field that is only summed on first
// access, via the filesize crate's size_on_disk (disk-block size, not the
// logical st_size a stat(2) call's length field reports).
package scanresult

import "syscall"

// ScanResult is what both the Binary Dependency Scanner and the Package
// Scanner return from scan(target, mode): the paths discovered, and their
// total size on disk, computed only when asked for.
type ScanResult struct {
	paths []string

	sized bool
	size  int64
}

// New wraps paths in a ScanResult. Size is not computed until Size is
// called.
func New(paths []string) *ScanResult {
	return &ScanResult{paths: paths}
}

// Paths returns the scanned paths.
func (r *ScanResult) Paths() []string {
	return r.paths
}

// Size lazily sums each path's disk-block size (st_blocks * 512, the unit
// stat(2) always reports blocks in regardless of the filesystem's actual
// block size), not the logical byte length os.FileInfo.Size would report.
// Unreadable paths contribute zero rather than aborting the sum, matching
// general.rs's "if let Ok(s) = ... { self.size += s }".
func (r *ScanResult) Size() int64 {
	if r.sized {
		return r.size
	}
	r.sized = true
	for _, p := range r.paths {
		var st syscall.Stat_t
		if err := syscall.Lstat(p, &st); err != nil {
			continue
		}
		r.size += int64(st.Blocks) * 512
	}
	return r.size
}
