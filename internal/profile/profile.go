// Package profile implements the declarative bundling profile (spec.md §3,
// §6): targets, packages to keep/drop in full, filter flags, and explicit
// keep/prune overrides, plus pre/post shell hooks.
//
// Grounded on original_source/src/profile.rs: all filters default to "off"
// (nothing removed) and a profile flag enables a removal predicate, not the
// other way around.
package profile

import (
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk YAML shape (spec.md §6).
type document struct {
	Targets  []string `yaml:"targets"`
	Packages []string `yaml:"packages"`
	Config   *struct {
		Filters          []string `yaml:"filters"`
		Prune            []string `yaml:"prune"`
		Keep             []string `yaml:"keep"`
		PreHook          string   `yaml:"pre_hook"`
		PostHook         string   `yaml:"post_hook"`
		BundledPackages  []string `yaml:"bundled_packages"`
		DroppedPackages  []string `yaml:"dropped_packages"`
	} `yaml:"config"`
}

// Profile is the resolved, in-memory configuration driving one run.
type Profile struct {
	targets  []string
	packages []string

	bundledPackages []string
	droppedPackages []string

	keep  []string
	prune []string

	preHook  string
	postHook string

	removeL10n bool
	removeI18n bool
	removeDoc  bool
	removeMan  bool
	removeDir  bool
	removeLog  bool
	removeImg  bool
	removeArc  bool
}

// Default returns a Profile with every filter off (nothing removed) and no
// targets, matching original_source/src/profile.rs::Profile::default.
func Default() *Profile {
	return &Profile{}
}

// errMalformedProfile wraps a YAML parse failure (spec.md §7).
type errMalformedProfile struct {
	path string
	err  error
}

func (e *errMalformedProfile) Error() string {
	return "malformed profile " + e.path + ": " + e.err.Error()
}

func (e *errMalformedProfile) Unwrap() error { return e.err }

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errMalformedProfile{path: path, err: err}
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &errMalformedProfile{path: path, err: err}
	}

	p := Default()
	p.targets = append(p.targets, doc.Targets...)
	p.packages = append(p.packages, doc.Packages...)

	if doc.Config != nil {
		cfg := doc.Config
		for _, flag := range cfg.Filters {
			switch flag {
			case "l10n":
				p.removeL10n = true
			case "i18n":
				p.removeI18n = true
			case "doc":
				p.removeDoc = true
			case "man":
				p.removeMan = true
			case "log":
				p.removeLog = true
			case "dir":
				p.removeDir = true
			case "images":
				p.removeImg = true
			case "archives":
				p.removeArc = true
			case "all":
				p.removeL10n = true
				p.removeI18n = true
				p.removeDoc = true
				p.removeMan = true
				p.removeLog = true
				p.removeDir = true
				p.removeImg = true
				p.removeArc = true
			}
		}
		p.prune = append(p.prune, cfg.Prune...)
		p.keep = append(p.keep, cfg.Keep...)
		p.preHook = cfg.PreHook
		p.postHook = cfg.PostHook
		p.bundledPackages = append(p.bundledPackages, cfg.BundledPackages...)
		p.droppedPackages = append(p.droppedPackages, cfg.DroppedPackages...)
	}

	return p, nil
}

// AddTarget appends a target path, used when the CLI -exe flag is given
// instead of -profile.
func (p *Profile) AddTarget(target string) { p.targets = append(p.targets, target) }

// AddPackage appends a package name to keep in full, used when the CLI
// -packages flag is given.
func (p *Profile) AddPackage(pkg string) { p.packages = append(p.packages, pkg) }

// Setters -- one per filter flag. spec.md §9's design notes call out that
// the CLI layer's prototype wires every override to the manpages setter;
// each of these must stay wired to its own field.
func (p *Profile) SetL10n(remove bool) { p.removeL10n = remove }
func (p *Profile) SetI18n(remove bool) { p.removeI18n = remove }
func (p *Profile) SetDoc(remove bool)  { p.removeDoc = remove }
func (p *Profile) SetMan(remove bool)  { p.removeMan = remove }
func (p *Profile) SetDir(remove bool)  { p.removeDir = remove }
func (p *Profile) SetLog(remove bool)  { p.removeLog = remove }
func (p *Profile) SetImg(remove bool)  { p.removeImg = remove }
func (p *Profile) SetArc(remove bool)  { p.removeArc = remove }

func (p *Profile) KeepPath(path string)  { p.keep = append(p.keep, path) }
func (p *Profile) PrunePath(path string) { p.prune = append(p.prune, path) }

// Accessors.
func (p *Profile) Targets() []string         { return p.targets }
func (p *Profile) Packages() []string        { return p.packages }
func (p *Profile) BundledPackages() []string { return p.bundledPackages }
func (p *Profile) DroppedPackages() []string { return p.droppedPackages }
func (p *Profile) KeepPaths() []string       { return p.keep }
func (p *Profile) PrunePaths() []string      { return p.prune }
func (p *Profile) PreHook() string           { return p.preHook }
func (p *Profile) PostHook() string          { return p.postHook }

func (p *Profile) FilterL10n() bool { return p.removeL10n }
func (p *Profile) FilterI18n() bool { return p.removeI18n }
func (p *Profile) FilterDoc() bool  { return p.removeDoc }
func (p *Profile) FilterMan() bool  { return p.removeMan }
func (p *Profile) FilterDir() bool  { return p.removeDir }
func (p *Profile) FilterLog() bool  { return p.removeLog }
func (p *Profile) FilterImg() bool  { return p.removeImg }
func (p *Profile) FilterArc() bool  { return p.removeArc }
