// Package report defines the Reporter interface consumed by the
// orchestrator and a default terminal implementation (spec.md §1: the
// reporter is an external collaborator referenced only through its
// interface).
//
// Grounded on original_source/src/scanner/dlst.rs's ContentFormatter: a
// tree-style directory listing, executables highlighted, symlinks shown
// with their target, a trailing total.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Reporter is handed the kept and removed sets at the end of a dry run.
// Apply-mode and archive-mode runs do not call it.
type Reporter interface {
	ReportKept(root string, kept []string)
	ReportRemoved(root string, removed []string)
}

// Terminal is the default Reporter: a colorized, tree-style directory
// listing, grouped by parent directory, with a trailing size total.
// Colors are disabled automatically when stdout is not a terminal.
type Terminal struct {
	Out io.Writer

	kept    *color.Color
	exec    *color.Color
	symlink *color.Color
	dir     *color.Color
}

// NewTerminal builds a Terminal reporter writing to out.
func NewTerminal(out io.Writer) *Terminal {
	enabled := false
	if f, ok := out.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd())
	}

	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		c.EnableColor()
		if !enabled {
			c.DisableColor()
		}
		return c
	}

	return &Terminal{
		Out:     out,
		dir:     mk(color.FgBlue, color.Bold),
		exec:    mk(color.FgGreen, color.Bold),
		symlink: mk(color.FgCyan, color.Bold),
		kept:    mk(color.FgWhite),
	}
}

// ReportKept prints a grouped tree of the surviving paths (spec.md: "hand
// the kept ... sets to the reporter").
func (t *Terminal) ReportKept(root string, kept []string) {
	t.list("kept", root, kept)
}

// ReportRemoved prints a grouped tree of the removed paths.
func (t *Terminal) ReportRemoved(root string, removed []string) {
	t.list("removed", root, removed)
}

func (t *Terminal) list(label, root string, paths []string) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var total uint64
	count := 0
	lastDir := ""
	for _, rel := range sorted {
		full := filepath.Join(root, rel)
		fi, err := os.Lstat(full)
		if err != nil {
			continue
		}
		total += uint64(fi.Size())
		count++

		dname := filepath.Dir(rel)
		fname := filepath.Base(rel)
		if dname != lastDir {
			lastDir = dname
			fmt.Fprintln(t.Out)
			t.dir.Fprintln(t.Out, lastDir)
		}

		switch {
		case fi.Mode()&os.ModeSymlink != 0:
			target, _ := os.Readlink(full)
			t.symlink.Fprintf(t.Out, "  +- %s -> %s\n", fname, target)
		case fi.Mode()&0o111 != 0:
			t.exec.Fprintf(t.Out, "  +- %s\n", fname)
		default:
			fmt.Fprintf(t.Out, "  +- %s\n", fname)
		}
	}

	fmt.Fprintf(t.Out, "\n%s%s %d files, %s\n", strings.ToUpper(label[:1]), label[1:], count, humanize.Bytes(total))
}
