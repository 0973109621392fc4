// Package filter implements the classifying predicates of spec.md §4.4: an
// ordered, subtractive-by-default pipeline that removes documentation,
// manpages, localisation/internationalisation data, archives, images, and
// (optionally) directories and junk from a candidate set.
package filter

// Well-known directory prefixes. Spec.md leaves these as prose ("the
// documentation directory prefix", "the system manpages directory", ...);
// original_source/src/filters/texts.rs pins them to these exact paths.
const (
	ManpagesDir = "/usr/share/man"
	DocDir      = "/usr/share/doc"
	L10nDir     = "/usr/share/locale"
	I18nDir     = "/usr/share/i18n"
	// LogDir is the runtime log directory the "log" filter (spec.md §3's
	// filter set, §6's --logs flag) targets -- distinct from a package's
	// /usr/share/doc *.log changelog, which the documentation predicate
	// already covers.
	LogDir = "/var/log"
)

// DocStubFiles are basenames treated as documentation regardless of
// extension. Grounded on original_source/src/filters/defs.rs.
var DocStubFiles = []string{
	"AUTHORS", "COPYING", "LICENSE", "DEBUG", "DISTRIB", "DOC", "HISTORY",
	"README", "TERMS", "TODO",
}

// DocExtensions are file extensions treated as documentation (spec.md §4.4
// stage 1 lists .log here too, alongside the dedicated "log" filter below --
// a package's bundled *.log changelog and a runtime log under LogDir are
// different things, gated by different flags).
var DocExtensions = []string{
	".txt", ".doc", ".rtf", ".md", ".rtx", ".tex", ".xml", ".htm", ".html",
	".log", ".eps", ".pdf", ".ps",
}

// LogExtensions are file extensions the "log" filter removes, in addition
// to anything under LogDir.
var LogExtensions = []string{".log"}

// HeaderExtensions are source-header extensions, used only by the junk
// heuristic (AutodepsMode.Clean).
var HeaderExtensions = []string{".h", ".hpp"}

// ArchiveExtensions are archive/compression extensions.
var ArchiveExtensions = []string{".gz", ".bz2", ".xz", ".zip", ".tar"}

// ImageExtensions are graphic-file extensions.
var ImageExtensions = []string{
	".ani", ".bmp", ".dib", ".pcx", ".jpg", ".jpeg", ".jpx", ".jxr", ".png",
	".gif", ".xpm", ".xbm", ".tif", ".tiff", ".iff", ".lbm", ".pbm", ".pgm",
	".pict", ".svg", ".ico", ".ai",
}
