package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNameFormatsTimestamp(t *testing.T) {
	ts := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	got := Name("bundle", ts)
	want := "bundle-20260731123045.tar.gz"
	if got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestValidateRejectsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.tar.gz")
	writeFile(t, dest, "x")
	if err := Validate(dest); err == nil {
		t.Fatal("expected an error for an existing destination")
	}
}

func TestValidateRejectsDirectoryDestination(t *testing.T) {
	dir := t.TempDir()
	if err := Validate(dir); err == nil {
		t.Fatal("expected an error when destination is a directory")
	}
}

func TestWriteProducesReadableTarGzip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "usr/bin/foo"), "binary")
	writeFile(t, filepath.Join(root, "usr/lib/bar.so"), "lib")

	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := Write(root, dest, []string{"/usr/bin/foo", "/usr/lib/bar.so"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	found := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar.Next: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		found[hdr.Name] = string(body)
	}

	want := map[string]string{
		"bundle/usr/bin/foo":  "binary",
		"bundle/usr/lib/bar.so": "lib",
	}
	for name, content := range want {
		if got, ok := found[name]; !ok || got != content {
			t.Errorf("entry %q = %q, %v; want %q", name, got, ok, content)
		}
	}
}

func TestWriteRefusesExistingDestination(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "usr/bin/foo"), "binary")

	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	writeFile(t, dest, "already here")

	if err := Write(root, dest, []string{"/usr/bin/foo"}); err == nil {
		t.Fatal("expected Write to refuse an existing destination")
	}
}
