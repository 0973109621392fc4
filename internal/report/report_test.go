package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportKeptListsFilesAndTotal(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "usr/bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "usr/bin/foo"), []byte("hello"), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	r := NewTerminal(&buf)
	r.ReportKept(root, []string{"/usr/bin/foo"})

	out := buf.String()
	if !strings.Contains(out, "foo") {
		t.Errorf("expected output to mention foo, got %q", out)
	}
	if !strings.Contains(out, "Kept 1 files") {
		t.Errorf("expected a trailing kept-count summary, got %q", out)
	}
}

func TestReportRemovedSkipsMissingFiles(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	r := NewTerminal(&buf)
	r.ReportRemoved(root, []string{"/usr/bin/gone"})

	out := buf.String()
	if strings.Contains(out, "gone") {
		t.Errorf("expected missing file to be skipped, got %q", out)
	}
	if !strings.Contains(out, "Removed 0 files") {
		t.Errorf("expected a zero-count summary, got %q", out)
	}
}
