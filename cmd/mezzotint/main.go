// Command mezzotint transforms a mounted container root filesystem into a
// minimal application bundle: it computes the dependency closure of one or
// more target executables (or a declarative profile) and either deletes
// everything outside the closure or archives the closure into a tar.gz.
//
// Grounded on cmd/distri/distri.go's funcmain/flag wiring, trimmed from a
// multi-verb dispatch table down to mezzotint's single one-shot operation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/tinythings/mezzotint"
	internaltrace "github.com/tinythings/mezzotint/internal/trace"
	"github.com/tinythings/mezzotint/internal/oninterrupt"
	"github.com/tinythings/mezzotint/internal/orchestrate"
	"github.com/tinythings/mezzotint/internal/pkgscan"
	"github.com/tinythings/mezzotint/internal/profile"
	"github.com/tinythings/mezzotint/internal/report"
)

var (
	debug      = flag.Bool("debug", false, "enable debug mode: format error messages with additional detail")
	cpuprofile = flag.String("cpuprofile", "", "path to store a CPU profile at")
	memprofile = flag.String("memprofile", "", "path to store a memory profile at")
	tracefile  = flag.String("tracefile", "", "path to store a trace at")
	ctracefile = flag.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")

	root        = flag.String("root", "", "mount point of the container root filesystem to chroot into (required)")
	exe         = flag.String("exe", "", "single target executable (mutually exclusive with -profile)")
	profilePath = flag.String("profile", "", "path to a declarative profile file (mutually exclusive with -exe)")
	packages    = flag.String("packages", "", "comma-separated list of package names to keep in full")
	invert      = flag.Bool("invert", false, "negate the meaning of every filter flag")
	dryRun      = flag.Bool("dry-run", false, "compute the kept/removed sets and report them without mutating the root")
	archiveOut  = flag.String("archive", "", "write the kept closure to a <value>-<timestamp>.tar.gz archive instead of deleting from the root")
	autodeps    = flag.String("autodeps", "none", "package-dependency traversal mode: free, clean, tight, or none")

	filterL10n = flag.Bool("l10n", false, "remove localisation data")
	filterI18n = flag.Bool("i18n", false, "remove internationalisation data")
	filterDoc  = flag.Bool("doc", false, "remove documentation")
	filterMan  = flag.Bool("man", false, "remove manpages")
	filterDirs = flag.Bool("dirs", false, "remove empty directories")
	filterLogs = flag.Bool("logs", false, "remove log files")
	filterPic  = flag.Bool("pic", false, "remove image resources")
	filterArc  = flag.Bool("arc", false, "remove archive resources")
)

func parseAutodeps(s string) (pkgscan.Mode, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return pkgscan.Undef, nil
	case "free":
		return pkgscan.Free, nil
	case "clean":
		return pkgscan.Clean, nil
	case "tight":
		return pkgscan.Tight, nil
	default:
		return pkgscan.Undef, fmt.Errorf("invalid -autodeps value %q: want free, clean, tight, or none", s)
	}
}

func loadProfile() (*profile.Profile, error) {
	switch {
	case *exe != "" && *profilePath != "":
		return nil, fmt.Errorf("-exe and -profile are mutually exclusive")
	case *exe == "" && *profilePath == "":
		return nil, fmt.Errorf("exactly one of -exe or -profile is required")
	case *profilePath != "":
		return profile.Load(*profilePath)
	default:
		p := profile.Default()
		p.AddTarget(*exe)
		return p, nil
	}
}

func applyFlagOverrides(p *profile.Profile) {
	// Each override is wired to its own dedicated setter -- see DESIGN.md's
	// Open Question decision on the prototype's copy-paste bug.
	if *filterL10n {
		p.SetL10n(true)
	}
	if *filterI18n {
		p.SetI18n(true)
	}
	if *filterDoc {
		p.SetDoc(true)
	}
	if *filterMan {
		p.SetMan(true)
	}
	if *filterDirs {
		p.SetDir(true)
	}
	if *filterLogs {
		p.SetLog(true)
	}
	if *filterPic {
		p.SetImg(true)
	}
	if *filterArc {
		p.SetArc(true)
	}
}

func funcmain() error {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *tracefile != "" {
		f, err := os.Create(*tracefile)
		if err != nil {
			return err
		}
		trace.Start(f)
		defer trace.Stop()
	}

	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return err
		}
		internaltrace.Sink(f)
	}

	if *root == "" {
		return fmt.Errorf("-root is required")
	}
	if _, err := os.Stat(*root); err != nil {
		return fmt.Errorf("mount point %s: %w", *root, err)
	}

	mode, err := parseAutodeps(*autodeps)
	if err != nil {
		return err
	}

	p, err := loadProfile()
	if err != nil {
		return err
	}
	applyFlagOverrides(p)
	if *packages != "" {
		for _, pkg := range strings.Split(*packages, ",") {
			p.AddPackage(strings.TrimSpace(pkg))
		}
	}

	oninterrupt.Register(func() {
		log.Println("interrupted: root may be left in an intermediate state (no lockfile written)")
	})

	kept, removed, err := orchestrate.Run(orchestrate.Options{
		Root:        *root,
		Profile:     p,
		Mode:        mode,
		Invert:      *invert,
		DryRun:      *dryRun,
		ArchivePath: *archiveOut,
		Reporter:    report.NewTerminal(os.Stdout),
		Logf:        log.Printf,
	})
	if err != nil {
		return err
	}

	log.Printf("kept %d paths, removed %d paths", len(kept), len(removed))

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			return err
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}

	return mezzotint.RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		if *debug {
			fmt.Fprintf(os.Stderr, "mezzotint: %+v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "mezzotint: %v\n", err)
		}
		os.Exit(1)
	}
}
