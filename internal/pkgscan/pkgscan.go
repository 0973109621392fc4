// Package pkgscan bridges the candidate set to the system package manager:
// finding which package owns a path, listing a package's contents, and
// tracing the package-dependency graph.
//
// The concrete backend is selected at construction from a small tagged
// enumeration (Debian, RedHat) based on OS-release detection, per spec.md
// §9's design note that prefers a tagged sum over deep interface
// inheritance.
package pkgscan

import (
	"bufio"
	"os"
	"strings"

	"github.com/tinythings/mezzotint/internal/pathalias"
	"github.com/tinythings/mezzotint/internal/scanresult"
)

// Family identifies a package-manager backend.
type Family int

const (
	Debian Family = iota
	RedHat
)

// Mode mirrors spec.md §3's AutodepsMode.
type Mode int

const (
	Undef Mode = iota
	Free
	Clean
	// Tight is reserved; today it behaves identically to Clean. spec.md §9
	// asks implementers to document this rather than silently alias it.
	Tight
)

func (m Mode) tracesDeps() bool {
	return m == Free || m == Clean || m == Tight
}

// errMissingTool is returned by Owner/Contents/Depends when the package
// manager binary itself is absent.
type errMissingTool struct {
	tool string
}

func (e *errMissingTool) Error() string { return "package manager tool not found: " + e.tool }

// Backend is the capability set a package-manager family must implement
// (spec.md §9): owner lookup, content listing, dependency tracing, and a
// reverse file-to-package index.
type Backend interface {
	// Owner returns the package name owning path, or "" if none is found.
	Owner(path string) (string, error)
	// Contents returns the regular files and symlinks (not directories)
	// belonging to pkg.
	Contents(pkg string) ([]string, error)
	// Depends returns the immediate runtime dependency package names of pkg.
	Depends(pkg string) ([]string, error)
	// FileIndex returns a reverse map from installed file path to owning
	// package name, built from the package manager's local metadata.
	FileIndex() (map[string]string, error)
}

// Scanner finds the owning package of targets, collects package contents,
// and optionally traces the runtime-dependency graph.
type Scanner struct {
	backend Backend
	mode    Mode

	// excludedPackages short-circuits dependency traversal at named
	// packages (spec.md §4.3).
	excludedPackages map[string]bool

	contentsCache map[string][]string // per-run cache, spec.md §4.3
	toolMissing   bool                // degrade to no-op once, spec.md §4.3/§7
}

// New constructs a Scanner for the given family and autodeps mode.
func New(family Family, mode Mode) *Scanner {
	var backend Backend
	switch family {
	case RedHat:
		backend = newRPMBackend()
	default:
		backend = newDebianBackend()
	}
	return &Scanner{
		backend:          backend,
		mode:             mode,
		excludedPackages: make(map[string]bool),
		contentsCache:    make(map[string][]string),
	}
}

// DetectFamily inspects /etc/os-release (under root, if chrooted already
// this is simply "/") to decide which package-manager family is in use.
func DetectFamily(root string) Family {
	for _, fn := range []string{root + "/etc/os-release", root + "/usr/lib/os-release"} {
		f, err := os.Open(fn)
		if err != nil {
			continue
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "ID_LIKE=") && !strings.HasPrefix(line, "ID=") {
				continue
			}
			v := strings.Trim(strings.SplitN(line, "=", 2)[1], `"`)
			v = strings.ToLower(v)
			for _, id := range strings.Fields(v) {
				switch id {
				case "rhel", "fedora", "centos", "suse", "opensuse":
					return RedHat
				case "debian", "ubuntu":
					return Debian
				}
			}
		}
	}
	return Debian
}

// Exclude adds package names that dependency tracing must not cross.
func (s *Scanner) Exclude(pkgs []string) {
	for _, p := range pkgs {
		s.excludedPackages[p] = true
	}
}

// Owner returns the package owning path, trying every alias of path in
// turn (spec.md §4.3.1).
func (s *Scanner) Owner(path string) (string, error) {
	if s.toolMissing {
		return "", nil
	}
	for _, candidate := range pathalias.Expand(path, false) {
		pkg, err := s.backend.Owner(candidate)
		if err != nil {
			if isMissingTool(err) {
				s.toolMissing = true
				return "", nil
			}
			continue
		}
		if pkg != "" {
			return pkg, nil
		}
	}
	return "", nil
}

func isMissingTool(err error) bool {
	_, ok := err.(*errMissingTool)
	return ok
}

// Contents returns pkg's file list, using the per-run cache.
func (s *Scanner) Contents(pkg string) ([]string, error) {
	if cached, ok := s.contentsCache[pkg]; ok {
		return cached, nil
	}
	files, err := s.backend.Contents(pkg)
	if err != nil {
		return nil, err
	}
	s.contentsCache[pkg] = files
	return files, nil
}

// Scan finds the owning package of target and, depending on s.mode, unions
// in the contents of every package transitively required by it. The
// returned ScanResult's on-disk size (spec.md §3) is computed lazily.
func (s *Scanner) Scan(target string) (*scanresult.ScanResult, error) {
	pkg, err := s.Owner(target)
	if err != nil {
		return nil, err
	}
	if pkg == "" {
		return scanresult.New(nil), nil
	}

	files, err := s.Contents(pkg)
	if err != nil {
		return nil, err
	}
	out := append([]string(nil), files...)

	if s.mode.tracesDeps() {
		for _, dep := range s.traceDeps(pkg) {
			depFiles, err := s.Contents(dep)
			if err != nil {
				continue // per-path errors never abort the pipeline
			}
			out = append(out, depFiles...)
		}
	}
	return scanresult.New(out), nil
}

// traceDeps returns the breadth-first, deduplicated transitive closure of
// pkg's runtime dependencies, short-circuiting at excludedPackages.
func (s *Scanner) traceDeps(pkg string) []string {
	seen := map[string]bool{pkg: true}
	var result []string
	queue := []string{pkg}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		deps, err := s.backend.Depends(cur)
		if err != nil {
			continue
		}
		for _, d := range deps {
			if seen[d] || s.excludedPackages[d] {
				continue
			}
			seen[d] = true
			result = append(result, d)
			queue = append(queue, d)
		}
	}
	return result
}

// FileIndex builds the reverse file-to-package map used by the reporter
// (spec.md §4.3.4).
func (s *Scanner) FileIndex() (map[string]string, error) {
	return s.backend.FileIndex()
}
