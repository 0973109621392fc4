// Package orchestrate sequences the mezzotint pipeline end to end (spec.md
// §4.6): chroot, lockfile guard, pre-hook, per-target scanning, the filter
// pipeline, the dissector, and dry-run/archive/apply dispatch.
//
// Grounded on cmd/distri/builder.go's use of golang.org/x/sync/errgroup to
// parallelise independent per-target work, and internal/build/build.go's
// unix.Chroot sequencing.
package orchestrate

import (
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/tinythings/mezzotint/internal/archive"
	"github.com/tinythings/mezzotint/internal/binscan"
	"github.com/tinythings/mezzotint/internal/filter"
	"github.com/tinythings/mezzotint/internal/hook"
	"github.com/tinythings/mezzotint/internal/pkgscan"
	"github.com/tinythings/mezzotint/internal/profile"
	"github.com/tinythings/mezzotint/internal/report"
	"github.com/tinythings/mezzotint/internal/rootfs"
	"github.com/tinythings/mezzotint/internal/trace"
)

// Options configures one orchestrated run.
type Options struct {
	Root        string
	Profile     *profile.Profile
	Mode        pkgscan.Mode
	Invert      bool
	DryRun      bool
	ArchivePath string
	Reporter    report.Reporter
	Logf        func(format string, args ...interface{})
}

func (o *Options) logf(format string, args ...interface{}) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Run executes the full pipeline against o.Root per spec.md §4.6's
// numbered steps. It returns the computed kept and removed sets; in
// apply mode the deletions have already been performed by the time Run
// returns.
func Run(o Options) (kept, removed []string, err error) {
	// o.ArchivePath is a basename (optionally directory-qualified), not the
	// literal destination file: spec.md §4.5 mandates the actual archive
	// filename as <basename>-<YYYYMMDDHHMMSS>.tar.gz.
	var archiveDest string
	if o.ArchivePath != "" {
		archiveDest = archive.Name(o.ArchivePath, time.Now())
		if err := archive.Validate(archiveDest); err != nil {
			return nil, nil, err
		}
	}

	if err := enterChroot(o.Root); err != nil {
		return nil, nil, xerrors.Errorf("orchestrate: chroot: %w", err)
	}

	if o.ArchivePath == "" { // archive mode never touches the lockfile
		if err := rootfs.CheckLockfile("/"); err != nil {
			return nil, nil, err
		}
	}

	if pre := o.Profile.PreHook(); pre != "" {
		if o.DryRun {
			o.logf("dry-run: pre-hook would run:\n%s", pre)
		} else if _, stderr, err := hook.New(pre).Run(); err != nil {
			o.logf("pre-hook failed: %v (stderr: %s)", err, stderr)
		}
	}

	pkgScanner := pkgscan.New(pkgscan.DetectFamily("/"), o.Mode)
	pkgScanner.Exclude(o.Profile.DroppedPackages())

	scanEv := trace.Event("scan", 0)
	candidate, err := scanTargets(o.Profile.Targets(), pkgScanner, o.logf)
	scanEv.Done()
	if err != nil {
		return nil, nil, err
	}

	for _, pkg := range o.Profile.Packages() {
		files, err := pkgScanner.Contents(pkg)
		if err != nil {
			continue
		}
		for _, f := range files {
			candidate[f] = true
		}
	}

	opts := filterOptions(o, pkgScanner)
	filterEv := trace.Event("filter", 0)
	keptSet := filter.Apply(candidate, opts)
	filterEv.Done()
	kept = keptSet.Slice()

	dissectEv := trace.Event("dissect", 0)
	view, err := rootfs.NewView("/")
	if err != nil {
		dissectEv.Done()
		return nil, nil, err
	}
	removed = view.Dissect(kept)
	dissectEv.Done()

	switch {
	case o.ArchivePath != "":
		if err := archive.Write("/", archiveDest, kept); err != nil {
			return kept, removed, err
		}
	case o.DryRun:
		if o.Reporter != nil {
			o.Reporter.ReportKept("/", kept)
			o.Reporter.ReportRemoved("/", removed)
		}
		if post := o.Profile.PostHook(); post != "" {
			o.logf("dry-run: post-hook would run:\n%s", post)
		}
	default:
		if post := o.Profile.PostHook(); post != "" {
			if _, stderr, err := hook.New(post).Run(); err != nil {
				o.logf("post-hook failed: %v (stderr: %s)", err, stderr)
			}
		}
		for _, applyErr := range rootfs.Apply("/", removed) {
			o.logf("apply: %v", applyErr)
		}
		if err := rootfs.WriteLockfile("/"); err != nil {
			return kept, removed, err
		}
	}

	return kept, removed, nil
}

func enterChroot(root string) error {
	if root == "" || root == "/" {
		return nil
	}
	if err := unix.Chroot(root); err != nil {
		return err
	}
	return unix.Chdir("/")
}

// scanTargets unions, for each target, its binary dependency closure, its
// package dependency closure, and the target itself -- parallelised across
// targets per spec.md §5's explicit allowance, using an errgroup the way
// cmd/distri/builder.go fans out independent build steps.
func scanTargets(targets []string, pkgScanner *pkgscan.Scanner, logf func(format string, args ...interface{})) (map[string]bool, error) {
	results := make([][]string, len(targets))

	var eg errgroup.Group
	binScanner := binscan.NewScanner()
	binScanner.Logf = logf
	for i, target := range targets {
		i, target := i, target
		eg.Go(func() error {
			var union []string
			union = append(union, target)

			binResult, err := binScanner.Scan(target)
			if err == nil {
				union = append(union, binResult.Paths()...)
			}

			pkgResult, err := pkgScanner.Scan(target)
			if err == nil {
				union = append(union, pkgResult.Paths()...)
			}

			results[i] = union
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]bool)
	for _, union := range results {
		for _, p := range union {
			out[p] = true
		}
	}
	return out, nil
}

func filterOptions(o Options, pkgScanner *pkgscan.Scanner) filter.Options {
	p := o.Profile
	l10n, i18n, doc, man, log := p.FilterL10n(), p.FilterI18n(), p.FilterDoc(), p.FilterMan(), p.FilterLog()
	dir, img, arc := p.FilterDir(), p.FilterImg(), p.FilterArc()
	if o.Invert {
		l10n, i18n, doc, man, log = !l10n, !i18n, !doc, !man, !log
		dir, img, arc = !dir, !img, !arc
	}

	return filter.Options{
		Text: filter.TextFilter{
			RemoveManpages: man,
			RemoveDocs:     doc,
			RemoveL10n:     l10n,
			RemoveI18n:     i18n,
			RemoveLog:      log,
		},
		Resource: filter.ResourceFilter{
			RemoveArchives: arc,
			RemoveImages:   img,
			PotentialJunk:  o.Mode == pkgscan.Clean || o.Mode == pkgscan.Tight,
		},
		Keep:            p.KeepPaths(),
		Prune:           p.PrunePaths(),
		RemoveDirs:      dir,
		DroppedPackages: p.DroppedPackages(),
		Contents:        pkgScanner.Contents,
	}
}
