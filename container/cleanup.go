// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// CleanupRegistry collects temporary paths (registry auth directories)
// that must be removed when the owning process shuts down. The owner
// calls Cleanup exactly once on its way out, including on signals.
type CleanupRegistry struct {
	mu    sync.Mutex
	paths []string
}

// NewCleanupRegistry creates an empty registry.
func NewCleanupRegistry() *CleanupRegistry {
	return &CleanupRegistry{}
}

// Register adds path to the set removed by Cleanup.
func (r *CleanupRegistry) Register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns a copy of the registered paths in registration order.
func (r *CleanupRegistry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Cleanup removes every registered path. Removal is best effort: all
// paths are attempted and failures are joined. Paths are forgotten
// afterwards, so a second call is a no-op.
func (r *CleanupRegistry) Cleanup() error {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
