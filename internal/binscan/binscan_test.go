package binscan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFakeLdd(t *testing.T, dir string, output string) {
	t.Helper()
	script := "#!/bin/sh\ncat <<'EOF'\n" + output + "\nEOF\n"
	fn := filepath.Join(dir, "ldd")
	if err := os.WriteFile(fn, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
}

func withPath(t *testing.T, dir string) {
	t.Helper()
	old := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", old) })
	os.Setenv("PATH", dir+string(os.PathListSeparator)+old)
}

func TestScanParsesLddOutput(t *testing.T) {
	dir := t.TempDir()
	writeFakeLdd(t, dir, `	linux-vdso.so.1 (0x00007ffd)
	libc.so.6 => /lib/x86_64-linux-gnu/libc.so.6 (0x00007f1234567000)
	/lib64/ld-linux-x86-64.so.2 (0x00007f1234789000)`)
	withPath(t, dir)

	s := NewScanner()
	result, err := s.Scan("/usr/bin/true")
	if err != nil {
		t.Fatal(err)
	}
	got := result.Paths()
	sort.Strings(got)
	want := []string{"/lib/x86_64-linux-gnu/libc.so.6", "/lib64/ld-linux-x86-64.so.2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanMissingToolFails(t *testing.T) {
	old := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", old) })
	os.Setenv("PATH", t.TempDir()) // empty dir, no ldd/readelf on PATH

	s := NewScanner()
	if _, err := s.Scan("/usr/bin/true"); err == nil {
		t.Fatal("expected errMissingTool, got nil")
	}
}

// writeConditionalLdd writes a fake ldd whose output depends on $1's
// basename, so a per-dependency failure can be simulated without aborting
// every other invocation.
func writeConditionalLdd(t *testing.T, dir string) {
	t.Helper()
	script := `#!/bin/sh
case "$(basename "$1")" in
	app)
		cat <<'EOF'
	libbad.so => /lib/bad.so (0x1)
	libgood.so => /lib/good.so (0x2)
EOF
		;;
	bad.so)
		exit 1
		;;
	good.so)
		echo "	libugly.so => /lib/ugly.so (0x3)"
		;;
	*)
		;;
esac
`
	fn := filepath.Join(dir, "ldd")
	if err := os.WriteFile(fn, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestScanIsolatesOneFailingDependency(t *testing.T) {
	dir := t.TempDir()
	writeConditionalLdd(t, dir)
	withPath(t, dir)

	var logged []string
	s := NewScanner()
	s.Logf = func(format string, args ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	result, err := s.Scan("/usr/bin/app")
	if err != nil {
		t.Fatal(err)
	}
	got := result.Paths()
	sort.Strings(got)
	want := []string{"/lib/bad.so", "/lib/good.so", "/lib/ugly.so"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}
	if len(logged) == 0 {
		t.Error("expected the failing dependency to be logged via Logf")
	}
}

func TestResolveNamesSkipsUnresolvable(t *testing.T) {
	got := ResolveNames([]string{"this-library-does-not-exist.so.999"})
	if len(got) != 0 {
		t.Errorf("expected no resolution for a nonexistent library, got %v", got)
	}
}
