package filter

import "strings"

// ResourceFilter applies the archive/image/junk predicates of spec.md §4.4
// stage 2. Grounded on original_source/src/filters/resources.rs.
type ResourceFilter struct {
	RemoveArchives bool
	RemoveImages   bool
	// PotentialJunk enables the broader heuristic, only meaningful when
	// AutodepsMode == Clean (spec.md §3).
	PotentialJunk bool
}

// Remove reports whether p should be dropped by this filter.
func (f ResourceFilter) Remove(p string) bool {
	return (f.RemoveArchives && hasAnySuffix(p, ArchiveExtensions)) ||
		(f.RemoveImages && hasAnySuffix(p, ImageExtensions)) ||
		(f.PotentialJunk && IsPotentialJunk(p))
}

func hasAnySuffix(p string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// IsPotentialJunk reports whether p looks like documentation/archive/
// source-header/portable-doc cruft, or a README-like all-uppercase
// basename -- the Clean autodeps heuristic (spec.md §3, §4.4 stage 2).
func IsPotentialJunk(p string) bool {
	for _, exts := range [][]string{DocExtensions, ArchiveExtensions, HeaderExtensions} {
		if hasAnySuffix(p, exts) {
			return true
		}
	}

	base := lastSegment(p)
	for _, stub := range DocStubFiles {
		if base == stub {
			return true
		}
	}
	return base != "" && base == strings.ToUpper(base)
}

func lastSegment(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}
