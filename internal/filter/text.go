package filter

import (
	"path/filepath"
	"strings"
)

// TextFilter applies the doc/man/l10n/i18n predicates of spec.md §4.4
// stage 1. Grounded on original_source/src/filters/texts.rs.
type TextFilter struct {
	RemoveManpages bool
	RemoveDocs     bool
	RemoveL10n     bool
	RemoveI18n     bool
	RemoveLog      bool
}

// Remove reports whether p should be dropped by this filter.
func (f TextFilter) Remove(p string) bool {
	return (f.RemoveManpages && f.isManpage(p)) ||
		(f.RemoveDocs && f.isDoc(p)) ||
		(f.RemoveL10n && strings.HasPrefix(p, L10nDir)) ||
		(f.RemoveI18n && strings.HasPrefix(p, I18nDir)) ||
		(f.RemoveLog && f.isLog(p))
}

func (f TextFilter) isLog(p string) bool {
	if strings.HasPrefix(p, LogDir) {
		return true
	}
	for _, ext := range LogExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func (f TextFilter) isManpage(p string) bool {
	if !strings.HasPrefix(p, ManpagesDir) {
		return false
	}
	parent := filepath.Base(filepath.Dir(p))
	return strings.HasPrefix(parent, "man")
}

func (f TextFilter) isDoc(p string) bool {
	base := filepath.Base(p)
	for _, stub := range DocStubFiles {
		if base == stub {
			return true
		}
	}

	lower := strings.ToLower(p)
	if strings.Contains(lower, "/doc/") {
		return true
	}
	for _, stub := range DocStubFiles {
		if strings.Contains(lower, strings.ToLower(stub)) {
			return true
		}
	}

	if strings.HasPrefix(p, DocDir) {
		return true
	}

	for _, ext := range DocExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}
