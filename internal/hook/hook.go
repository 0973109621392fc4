// Package hook runs the pre/post shell hooks named by a profile (spec.md
// §6): a script body, optionally shebang-prefixed, piped to a detected
// shell's stdin.
//
// Grounded on original_source/src/shcall.rs verbatim: shebang detection with
// a fallback shell candidate list, script body piped over stdin.
package hook

import (
	"bytes"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/xerrors"
)

const shellDefault = "/usr/bin/sh"

var shellCandidates = []string{
	"/usr/bin/bash",
	"/usr/bin/ksh",
	"/usr/bin/dash",
	"/usr/bin/zsh",
	"/usr/bin/ash",
}

// Script is a shell script body paired with the interpreter it should run
// under.
type Script struct {
	data string
}

// New wraps data as a runnable Script. An empty or all-whitespace body
// becomes a no-op script under the default shell.
func New(data string) *Script {
	s := strings.TrimSpace(data)
	if s == "" {
		s = "#!" + shellDefault
	}
	return &Script{data: s}
}

// errNoShell reports that neither a candidate shell nor the default shell
// exists.
type errNoShell struct{}

func (errNoShell) Error() string { return "no supported shell found" }

func (s *Script) detachShebang() (shell, body string, err error) {
	lines := strings.SplitN(s.data, "\n", 2)
	first := strings.TrimSpace(lines[0])
	rest := ""
	if len(lines) > 1 {
		rest = lines[1]
	}

	if shebang := strings.TrimPrefix(first, "#!"); shebang != first {
		if _, statErr := os.Stat(shebang); statErr == nil {
			return shebang, rest, nil
		}
	}

	for _, candidate := range shellCandidates {
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, s.data, nil
		}
	}

	if _, statErr := os.Stat(shellDefault); statErr == nil {
		return shellDefault, s.data, nil
	}

	return "", "", &errNoShell{}
}

// Run executes the script, piping its body to the detected shell's stdin,
// and returns captured stdout/stderr.
func (s *Script) Run() (stdout, stderr string, err error) {
	shell, body, err := s.detachShebang()
	if err != nil {
		return "", "", xerrors.Errorf("hook: %w", err)
	}

	cmd := exec.Command(shell)
	cmd.Stdin = strings.NewReader(body)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return outBuf.String(), errBuf.String(), xerrors.Errorf("hook: %s: %w", shell, err)
	}
	return outBuf.String(), errBuf.String(), nil
}
