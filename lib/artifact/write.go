// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockFileName is the per-directory lock taken while an artifact is
// being rewritten.
const LockFileName = ".artifact_write_lock"

// Writer writes artifacts into directories, skipping writes whose
// content already matches the file on disk.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer. A nil logger uses slog.Default.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger.With("component", "artifact")}
}

// Digest returns the hex SHA-1 of content. Equal digests mean Write
// leaves the existing file alone.
func Digest(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Write stores content at directory/filename and returns the absolute
// path. An empty filename writes to a fresh uniquely named file in
// directory. The directory is created (0700) when missing.
func (w *Writer) Write(content, directory, filename string) (string, error) {
	directory, err := filepath.Abs(directory)
	if err != nil {
		return "", fmt.Errorf("resolving artifact directory: %w", err)
	}
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return "", fmt.Errorf("creating artifact directory %s: %w", directory, err)
	}

	var path string
	if filename == "" {
		file, err := os.CreateTemp(directory, "tmp")
		if err != nil {
			return "", fmt.Errorf("creating anonymous artifact in %s: %w", directory, err)
		}
		path = file.Name()
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("closing %s: %w", path, err)
		}
	} else {
		path = filepath.Join(directory, filename)
	}

	unchanged, err := matchesFile(path, []byte(content))
	if err != nil {
		return "", err
	}
	if unchanged {
		w.logger.Debug("artifact unchanged", "path", path)
		return path, nil
	}

	if err := writeLocked(directory, path, []byte(content)); err != nil {
		return "", err
	}
	w.logger.Debug("artifact written", "path", path, "bytes", len(content))
	return path, nil
}

// matchesFile reports whether path exists with exactly content.
func matchesFile(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading existing artifact %s: %w", path, err)
	}
	return Digest(existing) == Digest(content), nil
}

// writeLocked truncates and rewrites path while holding an exclusive
// lock on the directory's lock file. The lock file is unlocked, closed
// and removed on every return path.
func writeLocked(directory, path string, content []byte) (err error) {
	lockPath := filepath.Join(directory, LockFileName)
	lockFile, err := acquireLock(lockPath)
	if err != nil {
		return err
	}
	defer func() {
		// Removed before unlocking; acquireLock relies on this order.
		removeErr := os.Remove(lockPath)
		if errors.Is(removeErr, os.ErrNotExist) {
			removeErr = nil
		}
		unlockErr := unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
		closeErr := lockFile.Close()
		if err == nil {
			err = errors.Join(removeErr, unlockErr, closeErr)
		}
	}()

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening artifact %s: %w", path, err)
	}
	if err := file.Chmod(0o600); err != nil {
		file.Close()
		return fmt.Errorf("restricting permissions on %s: %w", path, err)
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return fmt.Errorf("writing artifact %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing artifact %s: %w", path, err)
	}
	return nil
}

// acquireLock opens and exclusively locks lockPath. A holder removes
// the lock file before unlocking, so after the flock succeeds the open
// file must still be the one at lockPath; otherwise the lock is stale
// and the open is retried.
func acquireLock(lockPath string) (*os.File, error) {
	for {
		lockFile, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening artifact lock %s: %w", lockPath, err)
		}
		if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
			lockFile.Close()
			return nil, fmt.Errorf("locking %s: %w", lockPath, err)
		}

		var held, current unix.Stat_t
		if err := unix.Fstat(int(lockFile.Fd()), &held); err != nil {
			lockFile.Close()
			return nil, fmt.Errorf("inspecting artifact lock %s: %w", lockPath, err)
		}
		if err := unix.Stat(lockPath, &current); err == nil && current.Dev == held.Dev && current.Ino == held.Ino {
			return lockFile, nil
		}
		lockFile.Close()
	}
}
