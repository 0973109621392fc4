package pkgscan

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// debianBackend queries dpkg and apt, grounded on
// original_source/src/scanner/debpkg.rs (Owner/Contents),
// original_source/src/scanner/tracedeb.rs (Depends), and
// original_source/src/scanner/debftrace.rs (FileIndex).
type debianBackend struct {
	dpkg string
	apt  string
}

func newDebianBackend() *debianBackend {
	dpkg, _ := exec.LookPath("dpkg")
	apt, _ := exec.LookPath("apt")
	return &debianBackend{dpkg: dpkg, apt: apt}
}

func (b *debianBackend) Owner(path string) (string, error) {
	if b.dpkg == "" {
		return "", &errMissingTool{tool: "dpkg"}
	}
	out, err := exec.Command(b.dpkg, "-S", path).Output()
	if err != nil {
		return "", nil // not owned by any package, or dpkg has no match
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	pkg, _, ok := strings.Cut(line, ":")
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(pkg), nil
}

func (b *debianBackend) Contents(pkg string) ([]string, error) {
	if b.dpkg == "" {
		return nil, &errMissingTool{tool: "dpkg"}
	}
	out, err := exec.Command(b.dpkg, "-L", pkg).Output()
	if err != nil {
		return nil, nil // unknown package: valid empty result, spec.md §4.3.2
	}
	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "/." {
			continue
		}
		fi, err := os.Lstat(line)
		if err == nil && fi.IsDir() {
			continue // directory entries are dropped, symlinks kept
		}
		files = append(files, line)
	}
	return files, nil
}

// Depends parses `apt depends <pkg>` output. Lines beginning (case-
// insensitively) with "Depends:" yield one dependency name at a fixed
// token position, matching original_source/src/scanner/tracedeb.rs.
func (b *debianBackend) Depends(pkg string) ([]string, error) {
	if b.apt == "" {
		return nil, &errMissingTool{tool: "apt"}
	}
	out, err := exec.Command(b.apt, "depends", pkg).Output()
	if err != nil {
		return nil, nil
	}
	var deps []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "depends:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		deps = append(deps, fields[1])
	}
	return deps, nil
}

func (b *debianBackend) FileIndex() (map[string]string, error) {
	index := make(map[string]string)
	entries, err := filepath.Glob("/var/lib/dpkg/info/*.list")
	if err != nil {
		return index, nil
	}
	for _, fn := range entries {
		pkg := strings.TrimSuffix(filepath.Base(fn), ".list")
		pkg, _, _ = strings.Cut(pkg, ":") // strip :arch multiarch qualifier
		data, err := os.ReadFile(fn)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if fi, err := os.Lstat(line); err == nil && fi.Mode().IsRegular() {
				index[line] = pkg
			}
		}
	}
	return index, nil
}
