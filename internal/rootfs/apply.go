package rootfs

import (
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// LockfileName is the completion marker checked and written at root (spec.md
// §3, §7): its presence before a run means the root was already processed.
const LockfileName = "/.tinted.lock"

// errAlreadyTinted is returned when the lockfile exists at the start of a
// run (spec.md §7).
type errAlreadyTinted struct{ path string }

func (e *errAlreadyTinted) Error() string { return "already tinted: lockfile exists at " + e.path }

// CheckLockfile aborts the run if root was already processed.
func CheckLockfile(root string) error {
	path := filepath.Join(root, LockfileName)
	if _, err := os.Stat(path); err == nil {
		return &errAlreadyTinted{path: path}
	}
	return nil
}

// WriteLockfile creates the completion marker. Uses renameio so a crash
// mid-write never leaves a partial lockfile that would falsely short-circuit
// the next run's CheckLockfile.
func WriteLockfile(root string) error {
	path := filepath.Join(root, LockfileName)
	if err := renameio.WriteFile(path, nil, 0o644); err != nil {
		return xerrors.Errorf("rootfs: write lockfile: %w", err)
	}
	return nil
}

// Apply unlinks every path in deleted (relative to root), then recursively
// removes directories that became empty, then sweeps broken symlinks among
// the survivors. Per-path errors are logged by the caller via the returned
// per-path error list, not propagated (spec.md §4.5, §7: "errors logged, not
// fatal").
func Apply(root string, deleted []string) (errs []error) {
	for _, rel := range deleted {
		full := filepath.Join(root, rel)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			errs = append(errs, xerrors.Errorf("unlink %s: %w", full, err))
		}
	}

	if err := pruneEmptyDirs(root); err != nil {
		errs = append(errs, err)
	}

	survivors, err := remainingFiles(root)
	if err != nil {
		errs = append(errs, err)
		return errs
	}
	for _, rel := range BrokenSymlinks(root, survivors) {
		full := filepath.Join(root, rel)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			errs = append(errs, xerrors.Errorf("unlink broken symlink %s: %w", full, err))
		}
	}

	return errs
}

// pruneEmptyDirs recursively removes directories under root that contain no
// files after all their children have themselves been pruned. A directory
// is empty iff every entry it contains is, recursively, empty (spec.md
// §4.5).
func pruneEmptyDirs(root string) error {
	_, err := pruneDir(root, root)
	return err
}

// pruneDir returns whether dir is now empty (and thus itself removable by
// its caller), recursing contents-first so a parent's emptiness check sees
// its children's final state.
func pruneDir(root, dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, xerrors.Errorf("readdir %s: %w", dir, err)
	}

	empty := true
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			childEmpty, err := pruneDir(root, full)
			if err != nil {
				return false, err
			}
			if childEmpty {
				if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
					return false, xerrors.Errorf("rmdir %s: %w", full, err)
				}
			} else {
				empty = false
			}
			continue
		}
		empty = false
	}

	return empty && dir != root, nil
}

func remainingFiles(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		out = append(out, "/"+rel)
		return nil
	})
	return out, err
}
