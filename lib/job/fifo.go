// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type fifoOpen struct {
	file *os.File
	err  error
}

// ServeKeyFifo creates a named pipe at path and writes key to the first
// reader, so the key never lands in a regular file. The returned
// channel receives the result of the write once a reader has consumed
// it, or ctx.Err() if ctx ends first (the fifo is then removed).
func ServeKeyFifo(ctx context.Context, path, key string) (<-chan error, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale key fifo %s: %w", path, err)
	}
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("creating key fifo %s: %w", path, err)
	}

	opened := make(chan fifoOpen, 1)
	go func() {
		// Opening a fifo for writing blocks until a reader opens it.
		file, err := os.OpenFile(path, os.O_WRONLY, 0)
		opened <- fifoOpen{file: file, err: err}
	}()

	done := make(chan error, 1)
	go func() {
		select {
		case result := <-opened:
			if result.err != nil {
				done <- fmt.Errorf("opening key fifo: %w", result.err)
				return
			}
			_, err := result.file.WriteString(key)
			done <- errors.Join(err, result.file.Close())
		case <-ctx.Done():
			// A throwaway reader releases the pending open.
			if reader, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0); err == nil {
				if result := <-opened; result.file != nil {
					result.file.Close()
				}
				reader.Close()
			}
			os.Remove(path)
			done <- ctx.Err()
		}
	}()

	return done, nil
}
