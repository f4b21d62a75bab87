package pkgengine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// LockedError reports that a package's lock file already exists, so a
// caller cannot safely open it for writing. pid is whatever decimal
// content the existing lock file held; a value of 0 means the file was
// present but empty or unparsable.
type LockedError struct {
	Pid int
}

func (e *LockedError) Error() string {
	if e.Pid == 0 {
		return "evidence package is locked by another process"
	}
	return fmt.Sprintf("evidence package is locked by process %d", e.Pid)
}

// lockPath derives <dir>/.~<name> from the path an evidence package is
// stored at, per §4.3.
func lockPath(packagePath string) string {
	dir := filepath.Dir(packagePath)
	name := filepath.Base(packagePath)
	return filepath.Join(dir, ".~"+name)
}

// lock is a file-presence lock: its existence, not its content's
// liveness, is what excludes other openers. It is released by deleting
// the file.
type lock struct {
	path string
	log  *slog.Logger
}

// acquireLock creates the lock file for packagePath, failing with
// *LockedError if one is already present. The file's content is the
// current process ID as decimal ASCII, per §4.3; that content is never
// read back to check liveness, only its presence is meaningful. log
// receives diagnostic output; a nil log falls back to slog.Default().
func acquireLock(packagePath string, log *slog.Logger) (*lock, error) {
	if log == nil {
		log = slog.Default()
	}
	path := lockPath(packagePath)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, &LockedError{Pid: readLockPid(path)}
		}
		return nil, err
	}
	defer file.Close()

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		os.Remove(path)
		return nil, err
	}
	if log != nil {
		log.Debug("acquired package lock", "path", path, "pid", os.Getpid())
	}
	return &lock{path: path, log: log}, nil
}

// readLockPid best-effort parses the PID out of an existing lock file,
// for inclusion in the LockedError. A file that is empty, unreadable, or
// holds non-numeric content is still a valid lock — it simply carries no
// identifiable PID.
func readLockPid(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return pid
}

// release removes the lock file. It is safe to call on an already
// released lock.
func (l *lock) release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	if l.log != nil {
		l.log.Debug("released package lock", "path", l.path)
	}
	return err
}
