// Package scenarios exercises the mezzotint engine's scenario suite
// (spec.md §8) end to end against synthetic root filesystems, without a
// real chroot or system package manager -- each scenario wires the filter
// pipeline and the dissector directly, the way the orchestrator composes
// them.
package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tinythings/mezzotint/internal/binscan"
	"github.com/tinythings/mezzotint/internal/filter"
	"github.com/tinythings/mezzotint/internal/profile"
	"github.com/tinythings/mezzotint/internal/rootfs"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Scenario 1: Minimal ELF. Uses the real system ldd/readelf against a real
// binary, since synthesizing an ELF file is not worth the weight here;
// skips if neither tool is installed in the test environment.
func TestMinimalELFKeepsTargetAndItsSharedLibraries(t *testing.T) {
	target := "/bin/true"
	if _, err := os.Stat(target); err != nil {
		target = "/usr/bin/true"
		if _, err := os.Stat(target); err != nil {
			t.Skip("no /bin/true or /usr/bin/true in this test environment")
		}
	}

	scanner := binscan.NewScanner()
	result, err := scanner.Scan(target)
	if err != nil {
		t.Skipf("no ELF reader available: %v", err)
	}
	deps := result.Paths()

	candidate := filter.NewSet(append([]string{target}, deps...))
	kept := filter.Apply(candidate, filter.Options{})

	if !kept[target] {
		t.Errorf("expected %s present in KeptSet", target)
	}
	for _, d := range deps {
		if !kept[d] {
			t.Errorf("expected dependency %s present in KeptSet", d)
		}
	}
}

// Scenario 2: Documentation filter.
func TestDocumentationFilterRemovesDocsKeepsBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "usr/share/doc/foo/README"))
	writeFile(t, filepath.Join(root, "usr/bin/foo"))

	view, err := rootfs.NewView(root)
	if err != nil {
		t.Fatal(err)
	}

	candidate := filter.NewSet([]string{"/usr/share/doc/foo/README", "/usr/bin/foo"})
	kept := filter.Apply(candidate, filter.Options{Text: filter.TextFilter{RemoveDocs: true}})

	if kept["/usr/share/doc/foo/README"] {
		t.Error("expected README excluded from KeptSet")
	}
	if !kept["/usr/bin/foo"] {
		t.Error("expected /usr/bin/foo to remain in KeptSet")
	}

	removed := view.Dissect(kept.Slice())
	found := false
	for _, r := range removed {
		if r == "/usr/share/doc/foo/README" {
			found = true
		}
	}
	if !found {
		t.Error("expected README in DeleteSet")
	}
}

// Scenario 3: Keep wins over filter.
func TestKeepOverridesDocumentationFilter(t *testing.T) {
	candidate := filter.NewSet([]string{"/usr/share/doc/foo/README", "/usr/bin/foo"})
	kept := filter.Apply(candidate, filter.Options{
		Text: filter.TextFilter{RemoveDocs: true},
		Keep: []string{"/usr/share/doc/foo/README"},
	})
	if !kept["/usr/share/doc/foo/README"] {
		t.Error("expected an explicit keep to override the doc filter")
	}
}

// Scenario 4: Alias expansion. coreutils owns /bin/ls; the rootfs only has
// the /usr/bin form on disk (a merged-/usr system), so subtraction of the
// kept set must still remove it from the view via the forward
// (/bin -> /usr/bin) alias.
func TestAliasExpansionRemovesMergedUsrForm(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "usr/bin/ls"))

	view, err := rootfs.NewView(root)
	if err != nil {
		t.Fatal(err)
	}

	kept := []string{"/bin/ls"} // package metadata reports the old-fashioned path
	removed := view.Dissect(kept)
	for _, r := range removed {
		if r == "/usr/bin/ls" {
			t.Error("expected alias-aware subtraction to preserve /usr/bin/ls")
		}
	}
}

// Scenario 5: Lockfile guard. A second apply-mode run against the same
// chroot must refuse to proceed.
func TestLockfileGuardRefusesSecondRun(t *testing.T) {
	root := t.TempDir()

	if err := rootfs.CheckLockfile(root); err != nil {
		t.Fatalf("first run: unexpected error %v", err)
	}
	if err := rootfs.WriteLockfile(root); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	if err := rootfs.CheckLockfile(root); err == nil {
		t.Fatal("expected the second run to fail with AlreadyTinted")
	}
}

// Scenario 6: Dropped package. bar owns /usr/lib/bar/lib.so; even though
// another scan pulled it into the candidate set, the dropped_packages
// subtraction must remove it from KeptSet.
func TestDroppedPackageRemovesOwnedFileEvenIfPulledIn(t *testing.T) {
	p := profile.Default()
	p.AddTarget("/usr/bin/foo")

	candidate := filter.NewSet([]string{"/usr/bin/foo", "/usr/lib/bar/lib.so"})
	kept := filter.Apply(candidate, filter.Options{
		DroppedPackages: []string{"bar"},
		Contents: func(pkg string) ([]string, error) {
			if pkg == "bar" {
				return []string{"/usr/lib/bar/lib.so"}, nil
			}
			return nil, nil
		},
	})

	if kept["/usr/lib/bar/lib.so"] {
		t.Error("expected dropped package's file excluded from KeptSet")
	}
	if !kept["/usr/bin/foo"] {
		t.Error("expected unrelated target to remain in KeptSet")
	}
}

// Universal invariant: ld-linux is preserved even with an empty kept set.
func TestLdLinuxSurvivesWithEmptyKeptSet(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib64/ld-linux-x86-64.so.2"))

	view, err := rootfs.NewView(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range view.Dissect(nil) {
		if r == "/lib64/ld-linux-x86-64.so.2" {
			t.Fatal("expected ld-linux preserved even with nothing kept")
		}
	}
}
