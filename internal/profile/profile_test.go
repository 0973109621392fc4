package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasNoFiltersEnabled(t *testing.T) {
	p := Default()
	if p.FilterDoc() || p.FilterMan() || p.FilterL10n() || p.FilterI18n() ||
		p.FilterDir() || p.FilterLog() || p.FilterImg() || p.FilterArc() {
		t.Error("expected every filter to default to off")
	}
}

func TestLoadParsesFiltersAndHooks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	body := `
targets:
  - /usr/bin/foo
packages:
  - foo
config:
  filters:
    - doc
    - man
  keep:
    - /usr/share/doc/foo/LICENSE
  prune:
    - /usr/bin/foo-debug
  pre_hook: "echo pre"
  post_hook: "echo post"
  dropped_packages:
    - bar
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.FilterDoc() || !p.FilterMan() {
		t.Error("expected doc and man filters enabled")
	}
	if p.FilterL10n() {
		t.Error("expected l10n filter to remain off")
	}
	if got := p.Targets(); len(got) != 1 || got[0] != "/usr/bin/foo" {
		t.Errorf("Targets() = %v", got)
	}
	if got := p.KeepPaths(); len(got) != 1 || got[0] != "/usr/share/doc/foo/LICENSE" {
		t.Errorf("KeepPaths() = %v", got)
	}
	if p.PreHook() != "echo pre" || p.PostHook() != "echo post" {
		t.Errorf("hooks = %q, %q", p.PreHook(), p.PostHook())
	}
	if got := p.DroppedPackages(); len(got) != 1 || got[0] != "bar" {
		t.Errorf("DroppedPackages() = %v", got)
	}
}

func TestAllFilterEnablesEveryPredicate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	body := "config:\n  filters:\n    - all\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !(p.FilterDoc() && p.FilterMan() && p.FilterL10n() && p.FilterI18n() &&
		p.FilterDir() && p.FilterLog() && p.FilterImg() && p.FilterArc()) {
		t.Error("expected \"all\" to enable every filter")
	}
}

func TestLoadMissingFileReturnsMalformedProfile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing profile file")
	}
}

func TestSettersAreIndependent(t *testing.T) {
	p := Default()
	p.SetDoc(true)
	if p.FilterMan() {
		t.Error("SetDoc must not also flip the manpages filter")
	}
	p.SetMan(true)
	if !p.FilterDoc() || !p.FilterMan() {
		t.Error("expected both doc and man filters enabled independently")
	}
}
