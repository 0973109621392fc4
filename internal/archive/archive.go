// Package archive implements the tar.gz writer (spec.md §4.5 Archive mode):
// copy the kept closure into a timestamped staging directory, tar and gzip
// it, then remove the staging directory.
//
// Grounded on distri's own internal/install/install.go, which carries a
// "// TODO: consider github.com/klauspost/pgzip" comment next to its gzip
// writer -- mezzotint is where that TODO gets acted on.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// errAlreadyExists and errInvalidArgument are the pre-check failures spec.md
// §7 requires before any archive work begins.
type errAlreadyExists struct{ path string }

func (e *errAlreadyExists) Error() string { return "archive destination already exists: " + e.path }

type errInvalidArgument struct{ reason string }

func (e *errInvalidArgument) Error() string { return "invalid argument: " + e.reason }

// Validate checks the destination archive path per spec.md §7: it must not
// already exist and must not be a directory.
func Validate(dest string) error {
	fi, err := os.Stat(dest)
	if err == nil {
		if fi.IsDir() {
			return &errInvalidArgument{reason: fmt.Sprintf("%s is a directory", dest)}
		}
		return &errAlreadyExists{path: dest}
	}
	if !os.IsNotExist(err) {
		return xerrors.Errorf("archive: stat %s: %w", dest, err)
	}
	return nil
}

// Name builds the archive's timestamped filename: <basename>-<YYYYMMDDHHMMSS>.tar.gz
// (spec.md §4.5 Archive mode).
func Name(basename string, ts time.Time) string {
	return fmt.Sprintf("%s-%s.tar.gz", basename, ts.Format("20060102150405"))
}

// Write copies each path in kept (relative to root) into a fresh staging
// directory, tars and gzips it to dest, and removes the staging directory.
// The tar's top-level directory name matches dest's basename without its
// extension (spec.md §7 Archive format).
func Write(root, dest string, kept []string) (err error) {
	if err := Validate(dest); err != nil {
		return err
	}

	stagingParent, err := os.MkdirTemp("", "mezzotint-archive-")
	if err != nil {
		return xerrors.Errorf("archive: create staging parent: %w", err)
	}
	defer os.RemoveAll(stagingParent)

	topLevel := strings.TrimSuffix(filepath.Base(dest), ".tar.gz")
	staging := filepath.Join(stagingParent, time.Now().Format("20060102150405")+"-"+uuid.New().String())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return xerrors.Errorf("archive: create staging dir: %w", err)
	}

	for _, rel := range kept {
		if err := copyInto(root, staging, rel); err != nil {
			return xerrors.Errorf("archive: stage %s: %w", rel, err)
		}
	}

	return tarGzip(staging, dest, topLevel)
}

func copyInto(root, staging, rel string) error {
	src := filepath.Join(root, rel)
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	dst := filepath.Join(staging, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func tarGzip(staging, dest, topLevel string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return xerrors.Errorf("archive: create %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	gz, err := pgzip.NewWriterLevel(out, pgzip.BestCompression)
	if err != nil {
		return xerrors.Errorf("archive: new gzip writer: %w", err)
	}
	defer func() {
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}()

	tw := tar.NewWriter(gz)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	return filepath.Walk(staging, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == staging {
			return nil
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil {
			return err
		}
		name := filepath.Join(topLevel, rel)

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
}
