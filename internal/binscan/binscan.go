// Package binscan computes the transitive closure of shared libraries an
// ELF executable requires, by delegating to an external ELF reader (ldd,
// falling back to readelf).
package binscan

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/xerrors"

	"github.com/tinythings/mezzotint/internal/scanresult"
)

// errMissingTool is returned when neither ldd nor readelf is installed.
type errMissingTool struct {
	tried []string
}

func (e *errMissingTool) Error() string {
	return "no ELF reader found (tried: " + strings.Join(e.tried, ", ") + ")"
}

// readers lists the well-known tools to probe, in priority order: a
// dynamic-loader resolver first, a static ELF printer second. Grounded on
// original_source/src/scanner/general.rs::ScannerCommons::new.
var readers = []string{"ldd", "readelf"}

// lddLineRe matches a line of ldd(1) output of the form
// "NAME => /ABSOLUTE/PATH (ADDRESS)" or "/ABSOLUTE/PATH (ADDRESS)".
var lddLineRe = regexp.MustCompile(`(/[^\s]+)\s*\(0x[0-9a-fA-F]+\)`)

// readelfNeededRe matches a readelf -d line recording a DT_NEEDED entry,
// e.g. " 0x0000000000000001 (NEEDED)             Shared library: [libc.so.6]".
var readelfNeededRe = regexp.MustCompile(`\(NEEDED\)[^\[]*\[([^\]]+)\]`)

// Scanner scans ELF targets for their transitive shared-library closure.
type Scanner struct {
	// Env is passed to the probed subprocess; nil means inherit os.Environ().
	Env []string
	// Logf, if set, receives an error-level message whenever scanOne fails
	// for a specific queued target (spec.md §4.2: "log at error, return the
	// libraries discovered so far").
	Logf func(format string, args ...interface{})

	reader   string // resolved absolute path to ldd or readelf, lazily set
	resolved bool
}

func (s *Scanner) logf(format string, args ...interface{}) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// NewScanner returns a Scanner that probes for an installed ELF reader on
// first use.
func NewScanner() *Scanner {
	return &Scanner{}
}

func (s *Scanner) resolveReader() (string, error) {
	if s.resolved {
		if s.reader == "" {
			return "", &errMissingTool{tried: readers}
		}
		return s.reader, nil
	}
	s.resolved = true
	for _, name := range readers {
		if path, err := exec.LookPath(name); err == nil {
			s.reader = path
			return path, nil
		}
	}
	return "", &errMissingTool{tried: readers}
}

// Scan returns the transitive closure of absolute paths to shared libraries
// required by the ELF file at target, recursing into each discovered
// library. A visited set prevents re-scanning and guarantees termination on
// link cycles (e.g. libraries that mutually NEEDED each other via symlink
// aliasing). The result's on-disk size (spec.md §3) is computed lazily.
func (s *Scanner) Scan(target string) (*scanresult.ScanResult, error) {
	reader, err := s.resolveReader()
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	var closure []string
	queue := []string{target}
	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		if visited[fn] {
			continue
		}
		visited[fn] = true

		deps, err := s.scanOne(reader, fn)
		if err != nil {
			// Per spec.md §4.2: a failure is isolated to this one target,
			// the way original_source/src/scanner/binlib.rs::collect_dl
			// recurses per-dependency instead of aborting sibling branches.
			s.logf("binscan: %s: %v", fn, err)
			continue
		}
		for _, d := range deps {
			closure = append(closure, d)
			if !visited[d] {
				queue = append(queue, d)
			}
		}
	}
	return scanresult.New(dedupe(closure)), nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (s *Scanner) scanOne(reader, fn string) ([]string, error) {
	switch filepath.Base(reader) {
	case "ldd":
		return s.runLdd(reader, fn)
	case "readelf":
		names, err := s.runReadelf(reader, fn)
		if err != nil {
			return nil, err
		}
		return ResolveNames(names), nil
	default:
		return nil, xerrors.Errorf("unsupported ELF reader %q", reader)
	}
}

func (s *Scanner) runLdd(ldd, fn string) ([]string, error) {
	cmd := exec.Command(ldd, fn)
	if s.Env != nil {
		cmd.Env = s.Env
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, xerrors.Errorf("ldd %s: %w", fn, err)
	}
	var deps []string
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		m := lddLineRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		deps = append(deps, m[1])
	}
	return deps, nil
}

func (s *Scanner) runReadelf(readelf, fn string) ([]string, error) {
	cmd := exec.Command(readelf, "-d", fn)
	if s.Env != nil {
		cmd.Env = s.Env
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, xerrors.Errorf("readelf -d %s: %w", fn, err)
	}
	var names []string
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		m := readelfNeededRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names, nil
}

// ResolveNames resolves bare library names (as reported by readelf -d,
// which -- unlike ldd -- does not print absolute paths) against the
// dynamic linker's search configuration: /etc/ld.so.conf,
// /etc/ld.so.conf.d/*.conf, and the standard multilib directories, in that
// order. A name that cannot be resolved is dropped without being logged
// (spec.md §9, first Open Question).
func ResolveNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	dirs := ldConfigDirs()
	var out []string
	for _, name := range names {
		for _, dir := range dirs {
			candidate := filepath.Join(dir, name)
			if _, err := os.Lstat(candidate); err == nil {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

var defaultMultilibDirs = []string{
	"/lib", "/lib64", "/usr/lib", "/usr/lib64",
	"/lib/x86_64-linux-gnu", "/usr/lib/x86_64-linux-gnu",
}

func ldConfigDirs() []string {
	dirs := readLdSoConf("/etc/ld.so.conf")
	matches, _ := filepath.Glob("/etc/ld.so.conf.d/*.conf")
	for _, m := range matches {
		dirs = append(dirs, readLdSoConf(m)...)
	}
	return append(dirs, defaultMultilibDirs...)
}

func readLdSoConf(fn string) []string {
	f, err := os.Open(fn)
	if err != nil {
		return nil
	}
	defer f.Close()
	var dirs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "include ") {
			continue
		}
		dirs = append(dirs, line)
	}
	return dirs
}
